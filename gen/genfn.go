package gen

import (
	"errors"

	"golang.org/x/exp/rand"
)

var (
	// ErrAddressMissing is returned when an operation requires a
	// constraint or choice at an address that is not present.
	ErrAddressMissing = errors.New("address missing")

	// ErrUnsupported is returned by generative functions for
	// operations they do not implement.
	ErrUnsupported = errors.New("operation unsupported")
)

// ArgDiff hints at how a trace's arguments changed between
// successive update calls. The hint is advisory: for a fixed
// trace, arguments and constraints an update must produce the
// same result whatever the tag says. It only licenses shortcuts
// when the caller vouches for the relationship it names.
type ArgDiff int

const (
	// Unknown means the arguments may have changed arbitrarily.
	Unknown ArgDiff = iota

	// NoChange means the new arguments equal the old ones.
	NoChange

	// Extend means only a suffix of a sequence-valued argument
	// grew; everything the old arguments covered is unchanged.
	Extend
)

func (d ArgDiff) String() string {
	switch d {
	case NoChange:
		return "nochange"
	case Extend:
		return "extend"
	default:
		return "unknown"
	}
}

// GenFn is the interface a generative function exposes to the
// inference library. A generative function is a randomized
// procedure parameterized by Args whose execution samples the
// choices recorded in Data and returns a Ret.
//
// All randomness must come from the rng passed in, which the
// caller retains exclusive use of for the duration of the call.
//
// The weight identities documented on Generate and Update are
// load-bearing: the acceptance ratios computed by package infer
// are exact only if implementations satisfy them.
type GenFn[Args any, Data Cloneable[Data], Ret any] interface {
	// Simulate runs the function forward, sampling
	// Data ~ p(· ; args), and returns the resulting trace with
	// LogJP = log p(Data ; args).
	Simulate(rng *rand.Rand, args Args) (Trace[Args, Data, Ret], error)

	// Generate runs the function with every choice present in
	// constraints forced to its constrained value and every
	// other choice sampled from the function's internal
	// proposal. The returned weight is
	//
	//	log p(constrained ; args) − log q(unconstrained | constrained ; args)
	//
	// which for an ancestral sampler reduces to the log density
	// of the constrained choices. The trace's LogJP is the full
	// joint over all choices.
	Generate(rng *rand.Rand, args Args, constraints Data) (Trace[Args, Data, Ret], float64, error)

	// Update moves a trace to new arguments and new constrained
	// values. Choices in constraints are overwritten; choices
	// still in the support at args are carried over; choices no
	// longer in the support are dropped; newly required choices
	// are sampled from the internal proposal. The returned
	// discard holds the previous values of every overwritten or
	// dropped choice, and the weight is the incremental log
	// importance weight
	//
	//	new.LogJP − old.LogJP − log q_fwd + log q_bwd
	//
	// with q_fwd the density of freshly sampled values under
	// the internal proposal and q_bwd the density of the
	// discarded values under the reverse proposal.
	Update(rng *rand.Rand, tr Trace[Args, Data, Ret], args Args, diff ArgDiff, constraints Data) (Trace[Args, Data, Ret], Data, float64, error)
}

// Regenerator is implemented by generative functions that support
// resampling a masked subset of their choices from the internal
// proposal. It is an optional capability: kernels that need it,
// like infer.RegenMH, require it in their signatures, so calling
// regenerate on a function that lacks it is a compile-time error
// rather than a runtime one.
type Regenerator[Args any, Data Cloneable[Data], Ret any] interface {
	GenFn[Args, Data, Ret]

	// Regenerate resamples every choice selected by mask from
	// the internal proposal and retains all others. The weight
	// identity is the same as Update's with empty constraints;
	// for an ancestral sampler the forward and backward
	// proposal densities of the resampled choices cancel.
	Regenerate(rng *rand.Rand, tr Trace[Args, Data, Ret], args Args, diff ArgDiff, mask *AddrMask) (Trace[Args, Data, Ret], float64, error)
}

// Proposer is implemented by generative functions that provide
// their own proposal operation instead of the derived one; see
// [Propose].
type Proposer[Args any, Data Cloneable[Data], Ret any] interface {
	Propose(rng *rand.Rand, args Args) (Data, float64, error)
}

// Assessor is implemented by generative functions that provide
// their own assessment operation instead of the derived one; see
// [Assess].
type Assessor[Args any, Data Cloneable[Data], Ret any] interface {
	Assess(rng *rand.Rand, args Args, constraints Data) (float64, error)
}

// Propose uses g to propose a full set of choices, returning the
// choices and their log proposal density. If g implements
// [Proposer] that is used; otherwise the choices come from
// Simulate and the density is the trace's LogJP, which is the
// proposal density exactly when g's internal proposal is its own
// joint — that is, for ancestral samplers.
func Propose[Args any, Data Cloneable[Data], Ret any](g GenFn[Args, Data, Ret], rng *rand.Rand, args Args) (Data, float64, error) {
	if p, ok := g.(Proposer[Args, Data, Ret]); ok {
		return p.Propose(rng, args)
	}
	tr, err := g.Simulate(rng, args)
	if err != nil {
		var zero Data
		return zero, 0, err
	}
	return tr.Data, tr.LogJP, nil
}

// Assess returns the log density of constraints under g at args.
// If g implements [Assessor] that is used; otherwise the result
// is the weight returned by Generate, which equals the log
// density only when constraints specify every choice g makes and
// g is an ancestral sampler.
func Assess[Args any, Data Cloneable[Data], Ret any](g GenFn[Args, Data, Ret], rng *rand.Rand, args Args, constraints Data) (float64, error) {
	if a, ok := g.(Assessor[Args, Data, Ret]); ok {
		return a.Assess(rng, args, constraints)
	}
	_, weight, err := g.Generate(rng, args, constraints)
	return weight, err
}

// Call runs g forward and returns just its return value.
func Call[Args any, Data Cloneable[Data], Ret any](g GenFn[Args, Data, Ret], rng *rand.Rand, args Args) (Ret, error) {
	tr, err := g.Simulate(rng, args)
	if err != nil {
		var zero Ret
		return zero, err
	}
	return tr.Retv, nil
}
