// Package unfold provides a combinator that lifts a single-step
// generative function into a Markov chain over a fixed number of
// steps, storing each step's choices under the step's index in the
// combined choice trie ("0", "1", ...).
//
// The kernel is invoked with the step index and the state carried
// from the previous step, and its return value becomes the next
// carried state. The combinator's own return value is the slice of
// carried states, one per step.
//
// Update reconstructs per-step traces by running the kernel's
// Generate with the step's previous choices as full constraints, so
// the combinator is valid for kernels whose internal proposal is
// ancestral, the same restriction the derived Propose and Assess
// operations carry.
package unfold

import (
	"fmt"
	"strconv"

	"golang.org/x/exp/rand"

	"github.com/rogpeppe/genprob/gen"
	"github.com/rogpeppe/genprob/trie"
)

// Step is the kernel's argument: the index of the step being
// executed and the state carried from the previous one.
type Step[S any] struct {
	Index int
	State S
}

// Args parameterizes the unfolded chain: the number of steps and
// the initial carried state.
type Args[S any] struct {
	Steps int
	Init  S
}

// Unfold lifts Kernel to a generative function over whole chains.
// It implements gen.GenFn[Args[S], *trie.Trie[V], []S].
type Unfold[S, V any] struct {
	Kernel gen.GenFn[Step[S], *trie.Trie[V], S]
}

// Simulate runs the kernel forward args.Steps times, threading
// the carried state.
func (u Unfold[S, V]) Simulate(rng *rand.Rand, args Args[S]) (gen.Trace[Args[S], *trie.Trie[V], []S], error) {
	var zero gen.Trace[Args[S], *trie.Trie[V], []S]
	data := trie.New[V]()
	states := make([]S, 0, args.Steps)
	state := args.Init
	logjp := 0.0
	for i := 0; i < args.Steps; i++ {
		ktr, err := u.Kernel.Simulate(rng, Step[S]{Index: i, State: state})
		if err != nil {
			return zero, fmt.Errorf("unfold: step %d: %w", i, err)
		}
		if err := graft(data, i, ktr.Data); err != nil {
			return zero, err
		}
		logjp += ktr.LogJP
		state = ktr.Retv
		states = append(states, state)
	}
	return gen.MakeTrace(args, data, states, logjp), nil
}

// Generate runs the kernel args.Steps times, passing each step
// the subtree of constraints stored under its index. The weight
// is the sum of the per-step generate weights.
func (u Unfold[S, V]) Generate(rng *rand.Rand, args Args[S], constraints *trie.Trie[V]) (gen.Trace[Args[S], *trie.Trie[V], []S], float64, error) {
	var zero gen.Trace[Args[S], *trie.Trie[V], []S]
	data := trie.New[V]()
	states := make([]S, 0, args.Steps)
	state := args.Init
	logjp := 0.0
	weight := 0.0
	for i := 0; i < args.Steps; i++ {
		cons := stepConstraints(constraints, i)
		ktr, w, err := u.Kernel.Generate(rng, Step[S]{Index: i, State: state}, cons)
		if err != nil {
			return zero, 0, fmt.Errorf("unfold: step %d: %w", i, err)
		}
		if err := graft(data, i, ktr.Data); err != nil {
			return zero, 0, err
		}
		logjp += ktr.LogJP
		weight += w
		state = ktr.Retv
		states = append(states, state)
	}
	return gen.MakeTrace(args, data, states, logjp), weight, nil
}

// Update moves a chain trace to new arguments and constraints.
// Steps within both the old and new horizon are reconstructed and
// updated through the kernel; steps beyond the old horizon are
// generated fresh; steps beyond the new horizon are dropped into
// the discard. With diff Extend the unchanged prefix skips the
// per-step kernel updates entirely.
func (u Unfold[S, V]) Update(
	rng *rand.Rand,
	tr gen.Trace[Args[S], *trie.Trie[V], []S],
	args Args[S],
	diff gen.ArgDiff,
	constraints *trie.Trie[V],
) (gen.Trace[Args[S], *trie.Trie[V], []S], *trie.Trie[V], float64, error) {
	var zero gen.Trace[Args[S], *trie.Trie[V], []S]
	oldSteps := tr.Args.Steps
	data := trie.New[V]()
	discard := trie.New[V]()
	states := make([]S, 0, args.Steps)
	state := args.Init
	oldState := tr.Args.Init
	logjp := 0.0
	weight := 0.0

	// With Extend the caller vouches that the carried states
	// along the untouched prefix are identical to the old run's,
	// so per-step updates there are no-ops.
	diverged := diff != gen.Extend

	for i := 0; i < args.Steps; i++ {
		addr := strconv.Itoa(i)
		var prevSub *trie.Trie[V]
		if i < oldSteps {
			prevSub, _ = tr.Data.Search(addr)
		}
		cons := stepConstraints(constraints, i)

		if prevSub == nil {
			// A step beyond the old horizon: fresh material.
			var (
				ktr gen.Trace[Step[S], *trie.Trie[V], S]
				err error
			)
			if !cons.IsEmpty() {
				var w float64
				ktr, w, err = u.Kernel.Generate(rng, Step[S]{Index: i, State: state}, cons)
				weight += w
			} else {
				ktr, err = u.Kernel.Simulate(rng, Step[S]{Index: i, State: state})
			}
			if err != nil {
				return zero, nil, 0, fmt.Errorf("unfold: step %d: %w", i, err)
			}
			if err := graft(data, i, ktr.Data); err != nil {
				return zero, nil, 0, err
			}
			logjp += ktr.LogJP
			state = ktr.Retv
			states = append(states, state)
			diverged = true
			continue
		}

		// Reconstruct the step's old trace along the old state
		// thread; with full constraints the kernel samples
		// nothing, so no randomness is consumed.
		oldTr, _, err := u.Kernel.Generate(rng, Step[S]{Index: i, State: oldState}, prevSub.Clone())
		if err != nil {
			return zero, nil, 0, fmt.Errorf("unfold: reconstructing step %d: %w", i, err)
		}
		oldState = oldTr.Retv

		if !diverged && cons.IsEmpty() {
			// Untouched Extend prefix: carry the step over.
			if err := graft(data, i, oldTr.Data); err != nil {
				return zero, nil, 0, err
			}
			logjp += oldTr.LogJP
			state = oldTr.Retv
			states = append(states, state)
			continue
		}
		if !cons.IsEmpty() {
			diverged = true
		}

		stepDiff := gen.Unknown
		if !diverged {
			stepDiff = gen.NoChange
		}
		ktr, d, w, err := u.Kernel.Update(rng, oldTr, Step[S]{Index: i, State: state}, stepDiff, cons)
		if err != nil {
			return zero, nil, 0, fmt.Errorf("unfold: updating step %d: %w", i, err)
		}
		if d != nil && !d.IsEmpty() {
			if err := graft(discard, i, d); err != nil {
				return zero, nil, 0, err
			}
		}
		if err := graft(data, i, ktr.Data); err != nil {
			return zero, nil, 0, err
		}
		logjp += ktr.LogJP
		weight += w
		state = ktr.Retv
		states = append(states, state)
	}

	// Steps beyond the new horizon are dropped; their old joint
	// density and their backward proposal density cancel, so they
	// contribute only to the discard, not to the weight.
	for i := args.Steps; i < oldSteps; i++ {
		addr := strconv.Itoa(i)
		sub, _ := tr.Data.Search(addr)
		if sub != nil && !sub.IsEmpty() {
			if err := graft(discard, i, sub.Clone()); err != nil {
				return zero, nil, 0, err
			}
		}
	}

	return gen.MakeTrace(args, data, states, logjp), discard, weight, nil
}

// stepConstraints returns the constraint subtree for step i,
// never nil.
func stepConstraints[V any](constraints *trie.Trie[V], i int) *trie.Trie[V] {
	if constraints == nil {
		return trie.New[V]()
	}
	sub, _ := constraints.Search(strconv.Itoa(i))
	if sub == nil {
		return trie.New[V]()
	}
	return sub.Clone()
}

func graft[V any](dst *trie.Trie[V], i int, sub *trie.Trie[V]) error {
	if sub == nil || sub.IsEmpty() {
		return nil
	}
	if err := dst.Insert(strconv.Itoa(i), sub); err != nil {
		return fmt.Errorf("unfold: step %d: %w", i, err)
	}
	return nil
}
