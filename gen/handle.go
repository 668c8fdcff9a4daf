package gen

import (
	"errors"
	"weak"
)

// ErrDeadTrace is returned by [TraceRef.Load] when the referenced
// trace is no longer live.
var ErrDeadTrace = errors.New("trace reference is dead")

// TraceRef is a non-owning reference to a trace. An inference
// kernel parks its current trace behind a TraceRef for the
// duration of a proposal call, so the proposal can read the trace
// without claiming ownership of it; the kernel keeps the strong
// pointer live across the call and recovers sole ownership
// afterwards.
//
// A proposal must upgrade the reference with Load once per call
// and must not retain the returned pointer beyond the call.
type TraceRef[Args any, Data Cloneable[Data], Ret any] struct {
	p weak.Pointer[Trace[Args, Data, Ret]]
}

// Park returns a non-owning reference to *t. The caller is
// responsible for keeping *t live while the reference is in use
// (runtime.KeepAlive after the last use of the reference).
func Park[Args any, Data Cloneable[Data], Ret any](t *Trace[Args, Data, Ret]) TraceRef[Args, Data, Ret] {
	return TraceRef[Args, Data, Ret]{p: weak.Make(t)}
}

// Load upgrades the reference to a strong pointer for the
// duration of the current call. It returns [ErrDeadTrace] if the
// trace has been reclaimed, which indicates a kernel bug or a
// retained reference.
func (r TraceRef[Args, Data, Ret]) Load() (*Trace[Args, Data, Ret], error) {
	if t := r.p.Value(); t != nil {
		return t, nil
	}
	return nil, ErrDeadTrace
}

// ProposalArgs is the argument structure of a proposal generative
// function driven by infer.MetropolisHastings: a non-owning
// reference to the model's current trace plus any extra
// parameters the proposal needs.
type ProposalArgs[Args any, Data Cloneable[Data], Ret any, Extra any] struct {
	Trace TraceRef[Args, Data, Ret]
	Extra Extra
}
