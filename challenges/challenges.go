// Package challenges holds the canonical data preparation pipelines
// shipped with the engine. Each challenge is a composition root: file
// paths in, tables out, deterministic given its inputs. There is
// exactly one implementation per challenge.
package challenges

import (
	"github.com/prepd/prepd"
)

// Challenge is one registered pipeline, runnable from the CLI.
type Challenge struct {
	Name        string
	Description string
	Run         func(inputDir, outputDir string) error
}

// All returns the registered challenges in registration order.
func All() []Challenge {
	return []Challenge{
		{
			Name:        "flight-details",
			Description: "split raw flight detail strings into a typed passenger table",
			Run:         runFlightDetails,
		},
		{
			Name:        "lending-ledger",
			Description: "build customer statements and daily balances from transactions",
			Run:         runLendingLedger,
		},
		{
			Name:        "grade-points",
			Description: "score letter grades and rank students by total points",
			Run:         runGradePoints,
		},
	}
}

// Find returns the challenge registered under name.
func Find(name string) (Challenge, bool) {
	for _, c := range All() {
		if c.Name == name {
			return c, true
		}
	}
	return Challenge{}, false
}

// pipeOwned threads tbl through the stages and releases tbl itself;
// every stage here produces a fresh table.
func pipeOwned(tbl *prepd.Table, stages ...prepd.Stage) (*prepd.Table, error) {
	out, err := prepd.Pipe(tbl, stages...)
	tbl.Release()
	return out, err
}

// lookupExpr maps column values through the lookup with a first-match
// case chain. Keys are visited in sorted order so the expression is
// deterministic; values absent from the lookup pass through unchanged.
func lookupExpr(column string, lk *prepd.Lookup) prepd.Expr {
	chain := prepd.Case()
	for _, key := range lk.Keys() {
		mapped, _ := lk.Get(key)
		chain = chain.When(prepd.Col(column).Eq(prepd.Lit(key)), prepd.Lit(mapped))
	}
	return chain.Else(prepd.Col(column))
}
