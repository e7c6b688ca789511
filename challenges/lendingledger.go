package challenges

import (
	"path/filepath"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/prepd/prepd"
)

// LedgerResult is the lending ledger output: the per-transaction
// statement with running balances, and the forward-filled daily
// balance for every account and date.
type LedgerResult struct {
	Statement    *prepd.Table
	DailyBalance *prepd.Table
}

// Release releases both result tables.
func (r *LedgerResult) Release() {
	if r.Statement != nil {
		r.Statement.Release()
	}
	if r.DailyBalance != nil {
		r.DailyBalance.Release()
	}
}

// SolveLendingLedger builds customer statements from account opening
// balances and the transaction stream. The opening balance enters the
// ledger as the first movement of each account, transactions are
// signed by direction, and running balances accumulate per account in
// date order.
func SolveLendingLedger(accountInfoPath, transactionDetailPath, transactionPathPath string, mem memory.Allocator) (*LedgerResult, error) {
	accountInfo, err := loadAccountInfo(accountInfoPath, mem)
	if err != nil {
		return nil, err
	}
	defer accountInfo.Release()

	detail, err := loadTransactionDetail(transactionDetailPath, mem)
	if err != nil {
		return nil, err
	}
	defer detail.Release()

	path, err := loadTransactionPath(transactionPathPath, mem)
	if err != nil {
		return nil, err
	}
	defer path.Release()

	statement, err := buildStatement(accountInfo, detail, path)
	if err != nil {
		return nil, err
	}

	daily, err := buildDailyBalance(statement)
	if err != nil {
		statement.Release()
		return nil, err
	}

	renderedStatement, err := renderLedgerDates(statement)
	statement.Release()
	if err != nil {
		daily.Release()
		return nil, err
	}

	renderedDaily, err := renderLedgerDates(daily)
	daily.Release()
	if err != nil {
		renderedStatement.Release()
		return nil, err
	}

	return &LedgerResult{Statement: renderedStatement, DailyBalance: renderedDaily}, nil
}

func loadAccountInfo(path string, mem memory.Allocator) (*prepd.Table, error) {
	raw, err := prepd.ReadCSVFile(path, prepd.DefaultCSVOptions(), mem)
	if err != nil {
		return nil, err
	}
	return pipeOwned(raw,
		prepd.Named("rename_accounts", func(in *prepd.Table) (*prepd.Table, error) {
			return in.Rename(map[string]string{
				"Account Number": "account_number",
				"Balance Date":   "balance_taken_on",
				"Balance":        "balance",
			})
		}),
		prepd.Named("parse_balance_date", func(in *prepd.Table) (*prepd.Table, error) {
			return in.WithColumns(
				prepd.Col("balance_taken_on").ToDate("2006-01-02").As("balance_taken_on"),
			)
		}),
	)
}

func loadTransactionDetail(path string, mem memory.Allocator) (*prepd.Table, error) {
	raw, err := prepd.ReadCSVFile(path, prepd.DefaultCSVOptions(), mem)
	if err != nil {
		return nil, err
	}
	return pipeOwned(raw,
		prepd.Named("rename_detail", func(in *prepd.Table) (*prepd.Table, error) {
			return in.Rename(map[string]string{
				"Transaction ID":   "transaction_id",
				"Transaction Date": "transaction_created_on",
				"Value":            "transaction_value",
				"Cancelled?":       "cancelled",
			})
		}),
		prepd.Named("clean_detail", func(in *prepd.Table) (*prepd.Table, error) {
			return in.WithColumns(
				prepd.Col("transaction_created_on").ToDate("2006-01-02").As("transaction_created_on"),
				prepd.Case().
					When(prepd.Col("cancelled").Eq(prepd.Lit("Y")), prepd.Lit(true)).
					Else(prepd.Lit(false)).
					As("is_cancelled"),
			)
		}),
	)
}

func loadTransactionPath(path string, mem memory.Allocator) (*prepd.Table, error) {
	raw, err := prepd.ReadCSVFile(path, prepd.DefaultCSVOptions(), mem)
	if err != nil {
		return nil, err
	}
	return pipeOwned(raw,
		prepd.Named("rename_path", func(in *prepd.Table) (*prepd.Table, error) {
			return in.Rename(map[string]string{
				"Transaction ID": "transaction_id",
				"Account_From":   "source_account",
				"Account_To":     "destination_account",
			})
		}),
	)
}

// transactionFlow melts the path table so every transaction produces
// one row per involved account, signed positive for the destination
// and negative for the source.
func transactionFlow(detail, path *prepd.Table) (*prepd.Table, error) {
	melted, err := path.Melt([]string{"transaction_id"}, nil, "direction", "account_number")
	if err != nil {
		return nil, err
	}

	return pipeOwned(melted,
		prepd.Named("join_detail", func(in *prepd.Table) (*prepd.Table, error) {
			return in.Join(detail, prepd.JoinOptions{
				Type:   prepd.InnerJoin,
				LeftOn: []string{"transaction_id"},
			})
		}),
		prepd.Named("drop_cancelled", func(in *prepd.Table) (*prepd.Table, error) {
			return in.Filter(prepd.Col("is_cancelled").Not())
		}),
		prepd.Named("sign_values", func(in *prepd.Table) (*prepd.Table, error) {
			return in.WithColumns(
				prepd.Case().
					When(prepd.Col("direction").Eq(prepd.Lit("destination_account")), prepd.Col("transaction_value")).
					When(prepd.Col("direction").Eq(prepd.Lit("source_account")), prepd.Col("transaction_value").Neg()).
					As("transaction_value"),
			)
		}),
		prepd.Named("project_flow", func(in *prepd.Table) (*prepd.Table, error) {
			return in.Select("transaction_id", "account_number", "transaction_created_on", "transaction_value")
		}),
	)
}

// buildStatement stacks each account's opening balance on top of its
// transaction flow and accumulates the running balance. The opening
// rows carry a null transaction_id.
func buildStatement(accountInfo, detail, path *prepd.Table) (*prepd.Table, error) {
	flow, err := transactionFlow(detail, path)
	if err != nil {
		return nil, err
	}
	defer flow.Release()

	opening, err := openingBalances(accountInfo)
	if err != nil {
		return nil, err
	}
	defer opening.Release()

	stacked, err := prepd.DiagonalConcat(opening, flow)
	if err != nil {
		return nil, err
	}

	return pipeOwned(stacked,
		prepd.Named("order_statement", func(in *prepd.Table) (*prepd.Table, error) {
			return in.Sort(
				prepd.SortOrder{Column: "account_number"},
				prepd.SortOrder{Column: "transaction_created_on"},
				prepd.SortOrder{Column: "transaction_value", Descending: true},
			)
		}),
		prepd.Named("running_balance", func(in *prepd.Table) (*prepd.Table, error) {
			return in.WithColumns(
				prepd.CumSum(prepd.Col("transaction_value")).
					Over(prepd.Over("account_number")).
					As("running_balance"),
			)
		}),
	)
}

func openingBalances(accountInfo *prepd.Table) (*prepd.Table, error) {
	unique, err := accountInfo.Unique("account_number")
	if err != nil {
		return nil, err
	}

	return pipeOwned(unique,
		prepd.Named("project_opening", func(in *prepd.Table) (*prepd.Table, error) {
			return in.Select("account_number", "balance_taken_on", "balance")
		}),
		prepd.Named("rename_opening", func(in *prepd.Table) (*prepd.Table, error) {
			return in.Rename(map[string]string{
				"balance_taken_on": "transaction_created_on",
				"balance":          "transaction_value",
			})
		}),
	)
}

// buildDailyBalance scaffolds every account against every statement
// date with a cross join, attaches the closing balance of days that
// had movements, and forward fills the gaps per account.
func buildDailyBalance(statement *prepd.Table) (*prepd.Table, error) {
	closing, err := closingBalances(statement)
	if err != nil {
		return nil, err
	}
	defer closing.Release()

	accounts, err := distinctColumn(statement, "account_number")
	if err != nil {
		return nil, err
	}
	defer accounts.Release()

	dates, err := distinctColumn(statement, "transaction_created_on")
	if err != nil {
		return nil, err
	}
	defer dates.Release()

	scaffold, err := accounts.Join(dates, prepd.JoinOptions{Type: prepd.CrossJoin})
	if err != nil {
		return nil, err
	}

	return pipeOwned(scaffold,
		prepd.Named("attach_closing", func(in *prepd.Table) (*prepd.Table, error) {
			return in.Join(closing, prepd.JoinOptions{
				Type:   prepd.LeftJoin,
				LeftOn: []string{"account_number", "transaction_created_on"},
			})
		}),
		prepd.Named("order_daily", func(in *prepd.Table) (*prepd.Table, error) {
			return in.SortBy("account_number", "transaction_created_on")
		}),
		prepd.Named("carry_balance", func(in *prepd.Table) (*prepd.Table, error) {
			return in.WithColumns(
				prepd.ForwardFill(prepd.Col("closing_balance")).
					Over(prepd.Over("account_number")).
					As("balance"),
			)
		}),
		prepd.Named("project_daily", func(in *prepd.Table) (*prepd.Table, error) {
			return in.Select("account_number", "transaction_created_on", "balance")
		}),
	)
}

func closingBalances(statement *prepd.Table) (*prepd.Table, error) {
	net, err := statement.GroupBy("account_number", "transaction_created_on").
		Agg(prepd.Sum(prepd.Col("transaction_value")).As("net_change"))
	if err != nil {
		return nil, err
	}

	return pipeOwned(net,
		prepd.Named("order_net", func(in *prepd.Table) (*prepd.Table, error) {
			return in.SortBy("account_number", "transaction_created_on")
		}),
		prepd.Named("accumulate_closing", func(in *prepd.Table) (*prepd.Table, error) {
			return in.WithColumns(
				prepd.CumSum(prepd.Col("net_change")).
					Over(prepd.Over("account_number")).
					As("closing_balance"),
			)
		}),
		prepd.Named("project_closing", func(in *prepd.Table) (*prepd.Table, error) {
			return in.Select("account_number", "transaction_created_on", "closing_balance")
		}),
	)
}

func distinctColumn(tbl *prepd.Table, name string) (*prepd.Table, error) {
	projected, err := tbl.Select(name)
	if err != nil {
		return nil, err
	}
	defer projected.Release()
	return projected.Unique()
}

func renderLedgerDates(tbl *prepd.Table) (*prepd.Table, error) {
	return tbl.WithColumns(
		prepd.Col("transaction_created_on").FormatDate("2006-01-02").As("transaction_created_on"),
	)
}

func runLendingLedger(inputDir, outputDir string) error {
	mem := memory.NewGoAllocator()

	result, err := SolveLendingLedger(
		filepath.Join(inputDir, "account_info.csv"),
		filepath.Join(inputDir, "transaction_detail.csv"),
		filepath.Join(inputDir, "transaction_path.csv"),
		mem,
	)
	if err != nil {
		return err
	}
	defer result.Release()

	return prepd.WriteJSONDocumentFile(
		filepath.Join(outputDir, "lending_ledger.json"),
		[]string{"statement", "daily_balance"},
		map[string]*prepd.Table{
			"statement":     result.Statement,
			"daily_balance": result.DailyBalance,
		},
	)
}
