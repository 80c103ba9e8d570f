package router

import "sort"

// Candidate is an instance eligible for dispatch, carrying the state the
// balancer needs to weigh it.
type Candidate struct {
	InstanceID string
	Capacity   int
	InFlight   int
}

// weight implements the spec's load formula: max(1, capacity - inFlight).
func (c Candidate) weight() int {
	w := c.Capacity - c.InFlight
	if w < 1 {
		return 1
	}
	return w
}

// SelectInstance picks one candidate per dispatch: the highest weight,
// breaking ties by lowest inFlight, then lowest instanceId. It is a
// stateless greedy selection rather than a cycling smooth-weighted
// round-robin, since each dispatch re-reads live inFlight counts.
func SelectInstance(candidates []Candidate) (Candidate, bool) {
	if len(candidates) == 0 {
		return Candidate{}, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if better(c, best) {
			best = c
		}
	}
	return best, true
}

func better(a, b Candidate) bool {
	wa, wb := a.weight(), b.weight()
	if wa != wb {
		return wa > wb
	}
	if a.InFlight != b.InFlight {
		return a.InFlight < b.InFlight
	}
	return a.InstanceID < b.InstanceID
}

// SortByPreference orders candidates best-first using the same ordering as
// SelectInstance, for callers that want a fallback sequence rather than a
// single pick (e.g. the dispatcher walking past Open breakers).
func SortByPreference(candidates []Candidate) []Candidate {
	out := make([]Candidate, len(candidates))
	copy(out, candidates)
	sort.Slice(out, func(i, j int) bool { return better(out[i], out[j]) })
	return out
}
