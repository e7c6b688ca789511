package challenges

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/require"

	"github.com/prepd/prepd/internal/testutil"
)

const (
	accountInfoCSV = `Account Number,Account Type,Balance Date,Balance
1001,Checking,2024-01-31,100
2002,Checking,2024-01-31,50
3003,Savings,2024-01-31,75
`
	transactionDetailCSV = `Transaction ID,Transaction Date,Value,Cancelled?
T1,2024-02-01,30,N
T2,2024-02-02,20,Y
T3,2024-02-03,10,N
`
	transactionPathCSV = `Transaction ID,Account_From,Account_To
T1,1001,2002
T2,2002,1001
T3,2002,1001
`
)

func writeLedgerFixtures(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "account_info.csv"), []byte(accountInfoCSV), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "transaction_detail.csv"), []byte(transactionDetailCSV), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "transaction_path.csv"), []byte(transactionPathCSV), 0o600))
	return dir
}

func TestSolveLendingLedgerStatement(t *testing.T) {
	dir := writeLedgerFixtures(t)

	result, err := SolveLendingLedger(
		filepath.Join(dir, "account_info.csv"),
		filepath.Join(dir, "transaction_detail.csv"),
		filepath.Join(dir, "transaction_path.csv"),
		memory.NewGoAllocator(),
	)
	require.NoError(t, err)
	defer result.Release()

	// cancelled T2 never appears; opening balances lead each account
	want := testutil.MustTable(t, map[string]any{
		"account_number": []int64{1001, 1001, 1001, 2002, 2002, 2002, 3003},
		"transaction_created_on": []string{
			"2024-01-31", "2024-02-01", "2024-02-03",
			"2024-01-31", "2024-02-01", "2024-02-03",
			"2024-01-31",
		},
		"transaction_value": []int64{100, -30, 10, 50, 30, -10, 75},
		"transaction_id":    []any{nil, "T1", "T3", nil, "T1", "T3", nil},
		"running_balance":   []int64{100, 70, 80, 50, 80, 70, 75},
	}, []string{
		"account_number", "transaction_created_on", "transaction_value",
		"transaction_id", "running_balance",
	})
	defer want.Release()

	testutil.AssertTableEqual(t, want, result.Statement)
}

func TestSolveLendingLedgerDailyBalance(t *testing.T) {
	dir := writeLedgerFixtures(t)

	result, err := SolveLendingLedger(
		filepath.Join(dir, "account_info.csv"),
		filepath.Join(dir, "transaction_detail.csv"),
		filepath.Join(dir, "transaction_path.csv"),
		memory.NewGoAllocator(),
	)
	require.NoError(t, err)
	defer result.Release()

	// 3003 has no movements after opening; its balance carries forward
	want := testutil.MustTable(t, map[string]any{
		"account_number": []int64{1001, 1001, 1001, 2002, 2002, 2002, 3003, 3003, 3003},
		"transaction_created_on": []string{
			"2024-01-31", "2024-02-01", "2024-02-03",
			"2024-01-31", "2024-02-01", "2024-02-03",
			"2024-01-31", "2024-02-01", "2024-02-03",
		},
		"balance": []int64{100, 70, 80, 50, 80, 70, 75, 75, 75},
	}, []string{"account_number", "transaction_created_on", "balance"})
	defer want.Release()

	testutil.AssertTableEqual(t, want, result.DailyBalance)
}

func TestRunLendingLedgerWritesDocument(t *testing.T) {
	inputDir := writeLedgerFixtures(t)
	outputDir := t.TempDir()

	challenge, ok := Find("lending-ledger")
	require.True(t, ok)
	require.NoError(t, challenge.Run(inputDir, outputDir))

	content, err := os.ReadFile(filepath.Join(outputDir, "lending_ledger.json"))
	require.NoError(t, err)
	require.Contains(t, string(content), `"statement"`)
	require.Contains(t, string(content), `"daily_balance"`)
}
