package infer

import (
	"golang.org/x/exp/rand"

	"github.com/rogpeppe/genprob/gen"
)

// Kernel is one MCMC transition: it consumes the current trace
// and returns the next one together with whether the move was
// accepted.
type Kernel[Args any, Data gen.Cloneable[Data], Ret any] func(rng *rand.Rand, t gen.Trace[Args, Data, Ret]) (gen.Trace[Args, Data, Ret], bool, error)

// ChainResult summarizes a run of [RunChain].
type ChainResult[Args any, Data gen.Cloneable[Data], Ret any] struct {
	// Final is the trace after the last step.
	Final gen.Trace[Args, Data, Ret]

	// Steps is the number of transitions applied.
	Steps int

	// Accepted is the number of accepted transitions.
	Accepted int
}

// AcceptRate returns the fraction of accepted transitions.
func (r ChainResult[Args, Data, Ret]) AcceptRate() float64 {
	if r.Steps == 0 {
		return 0
	}
	return float64(r.Accepted) / float64(r.Steps)
}

// RunChain applies kernel to t the given number of times,
// optionally recording each visited trace through record, which
// may be nil. The loop is step-wise; callers needing finer
// control can drive the kernels directly.
func RunChain[Args any, Data gen.Cloneable[Data], Ret any](
	rng *rand.Rand,
	t gen.Trace[Args, Data, Ret],
	steps int,
	kernel Kernel[Args, Data, Ret],
	record func(gen.Trace[Args, Data, Ret]),
) (ChainResult[Args, Data, Ret], error) {
	res := ChainResult[Args, Data, Ret]{}
	for i := 0; i < steps; i++ {
		next, accepted, err := kernel(rng, t)
		if err != nil {
			return res, err
		}
		t = next
		res.Steps++
		if accepted {
			res.Accepted++
		}
		if record != nil {
			record(t)
		}
	}
	res.Final = t
	return res, nil
}
