// Package selector ranks the candidate pool of one run and greedily admits
// candidates through the dedup engine under an optional sample budget.
package selector

import (
	"sort"

	"github.com/MikeSquared-Agency/curator/internal/dedup"
	"github.com/MikeSquared-Agency/curator/internal/sample"
)

// Options configures one selection pass.
type Options struct {
	// MaxSamples caps the accepted count; 0 means no cap.
	MaxSamples int
	Thresholds dedup.Thresholds
}

// Result is the outcome of a selection pass.
type Result struct {
	Accepted []*sample.Candidate
	Ledger   *IntentLedger

	Considered       int
	RejectedExact    int
	RejectedLexical  int
	RejectedSemantic int
	// BudgetReached is set when iteration stopped at MaxSamples.
	BudgetReached bool
}

// Select sorts the pool by quality (ties by Seq), then admits candidates in
// that order until the pool or the budget is exhausted. The pool slice is
// reordered in place. ledger may be nil.
func Select(pool []sample.Candidate, existing sample.SignatureSet, ledger *IntentLedger, opts Options) Result {
	Rank(pool)

	if ledger == nil {
		ledger = NewIntentLedger()
	}
	engine := dedup.NewEngine(existing, opts.Thresholds)
	res := Result{Ledger: ledger}

	for i := range pool {
		if opts.MaxSamples > 0 && len(engine.Accepted()) >= opts.MaxSamples {
			res.BudgetReached = true
			break
		}
		res.Considered++

		c := &pool[i]
		if engine.Admit(c) == dedup.Admitted {
			ledger.Record(c.PrimaryIntent())
		}
	}

	res.Accepted = engine.Accepted()
	res.RejectedExact = engine.Rejected(dedup.RejectedExact)
	res.RejectedLexical = engine.Rejected(dedup.RejectedLexical)
	res.RejectedSemantic = engine.Rejected(dedup.RejectedSemantic)
	return res
}

// Rank sorts candidates by quality descending, breaking ties by Seq.
func Rank(pool []sample.Candidate) {
	sort.SliceStable(pool, func(i, j int) bool {
		if pool[i].Quality != pool[j].Quality {
			return pool[i].Quality > pool[j].Quality
		}
		return pool[i].Seq < pool[j].Seq
	})
}
