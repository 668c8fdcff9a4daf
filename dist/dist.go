// Package dist defines the probability-distribution capability used
// by generative functions, together with a set of primitive
// distributions backed by gonum.
//
// A distribution exposes exactly two operations: the log density of a
// value under some parameters, and drawing one sample using an
// injected random source. Everything else about a primitive is opaque
// to the runtime.
//
// Out-of-support policy: LogPDF returns negative infinity for values
// outside the distribution's support. It never returns NaN, so a log
// joint density accumulated from LogPDF calls stays well defined.
package dist

import (
	"golang.org/x/exp/rand"
)

// Distribution is the capability a primitive distribution must
// provide: a total log density over values of type T given
// parameters of type P, and sampling from the injected rng.
//
// Implementations must draw randomness from the rng passed to
// Random exclusively, so that runs are reproducible for a fixed
// seed.
type Distribution[T, P any] interface {
	// LogPDF returns log p(x ; params), or negative infinity
	// when x is outside the support.
	LogPDF(x T, params P) float64

	// Random draws one sample from the distribution.
	Random(rng *rand.Rand, params P) T
}
