package selector

import "sort"

// IntentLedger counts accepted candidates per primary intent.
//
// The counts and weights are reported but never used to reject a candidate;
// turning them into a fairness policy would change corpus composition.
type IntentLedger struct {
	counts map[string]int
	total  int
}

// NewIntentLedger returns an empty ledger.
func NewIntentLedger() *IntentLedger {
	return &IntentLedger{counts: make(map[string]int)}
}

// Record counts one accepted candidate for intent.
func (l *IntentLedger) Record(intent string) {
	l.counts[intent]++
	l.total++
}

// Count returns the accepted count for intent.
func (l *IntentLedger) Count(intent string) int {
	return l.counts[intent]
}

// Total returns the number of recorded candidates.
func (l *IntentLedger) Total() int {
	return l.total
}

// Weight is the balancing weight intent would receive: 1 for an unseen
// intent, shrinking as its share of the accepted set grows.
func (l *IntentLedger) Weight(intent string) float64 {
	if l.total == 0 {
		return 1
	}
	return 1 - float64(l.counts[intent])/float64(l.total)
}

// Counts returns a copy of the per-intent counts.
func (l *IntentLedger) Counts() map[string]int {
	out := make(map[string]int, len(l.counts))
	for k, v := range l.counts {
		out[k] = v
	}
	return out
}

// Shares returns each intent's fraction of the accepted set.
func (l *IntentLedger) Shares() map[string]float64 {
	out := make(map[string]float64, len(l.counts))
	if l.total == 0 {
		return out
	}
	for k, v := range l.counts {
		out[k] = float64(v) / float64(l.total)
	}
	return out
}

// Intents returns the recorded intents, most frequent first.
func (l *IntentLedger) Intents() []string {
	out := make([]string, 0, len(l.counts))
	for k := range l.counts {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if l.counts[out[i]] != l.counts[out[j]] {
			return l.counts[out[i]] > l.counts[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}
