package infer

import (
	"fmt"
	"math"
	"runtime"

	"golang.org/x/exp/rand"

	"github.com/rogpeppe/genprob/gen"
)

// MetropolisHastings performs one Metropolis–Hastings step on t
// under model, proposing new values with the given proposal
// generative function. The proposal receives a non-owning
// reference to the current trace as the first half of its
// arguments and extra as the second; it must be symmetric with
// respect to Propose and Assess on that argument structure, which
// is the caller's responsibility.
//
// It returns the new trace and true if the step was accepted, or
// the unchanged input trace and false if it was rejected.
// Rejection is not an error.
func MetropolisHastings[Args any, Data gen.Cloneable[Data], Ret any, Extra any](
	rng *rand.Rand,
	model gen.GenFn[Args, Data, Ret],
	t gen.Trace[Args, Data, Ret],
	proposal gen.GenFn[gen.ProposalArgs[Args, Data, Ret, Extra], Data, struct{}],
	extra Extra,
) (gen.Trace[Args, Data, Ret], bool, error) {
	prev := t.Clone()

	// Park the current trace behind a weak reference for the
	// forward proposal; the strong pointer stays live in this
	// frame until KeepAlive, after which sole ownership of t is
	// recovered.
	cur := &t
	fwdChoices, logQFwd, err := gen.Propose(proposal, rng,
		gen.ProposalArgs[Args, Data, Ret, Extra]{Trace: gen.Park(cur), Extra: extra})
	runtime.KeepAlive(cur)
	if err != nil {
		return prev, false, fmt.Errorf("infer: forward proposal: %w", err)
	}

	next, discard, logW, err := model.Update(rng, t, t.Args, gen.NoChange, fwdChoices)
	if err != nil {
		return prev, false, fmt.Errorf("infer: model update: %w", err)
	}

	// Same discipline for the backward assessment, against the
	// proposed trace.
	nxt := &next
	logQBwd, err := gen.Assess(proposal, rng,
		gen.ProposalArgs[Args, Data, Ret, Extra]{Trace: gen.Park(nxt), Extra: extra}, discard)
	runtime.KeepAlive(nxt)
	if err != nil {
		return prev, false, fmt.Errorf("infer: backward assessment: %w", err)
	}

	alpha := logW - logQFwd + logQBwd
	if math.Log(rng.Float64()) < alpha {
		return next, true, nil
	}
	return prev, false, nil
}

// RegenMH performs one regenerative Metropolis–Hastings step on t
// under model, resampling the choices selected by mask from the
// model's internal proposal. The weight returned by Regenerate
// already incorporates the forward and backward proposal
// densities, so it is the acceptance log-ratio on its own.
func RegenMH[Args any, Data gen.Cloneable[Data], Ret any](
	rng *rand.Rand,
	model gen.Regenerator[Args, Data, Ret],
	t gen.Trace[Args, Data, Ret],
	mask *gen.AddrMask,
) (gen.Trace[Args, Data, Ret], bool, error) {
	prev := t.Clone()
	next, logW, err := model.Regenerate(rng, t, t.Args, gen.NoChange, mask)
	if err != nil {
		return prev, false, fmt.Errorf("infer: regenerate: %w", err)
	}
	if math.Log(rng.Float64()) < logW {
		return next, true, nil
	}
	return prev, false, nil
}
