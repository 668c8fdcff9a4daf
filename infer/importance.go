// Package infer implements the standard inference kernels over the
// generative-function interface of package gen: importance sampling
// with optional resampling, Metropolis–Hastings with a custom
// proposal, and regenerative Metropolis–Hastings.
//
// The kernels are single-threaded: each call drives the injected rng
// exclusively and owns its traces exclusively. Independent chains may
// run concurrently provided each has its own rng and traces.
package infer

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/rogpeppe/genprob/gen"
)

// ImportanceResult holds the output of [ImportanceSampling]:
// one trace per particle, the log normalized weights (which
// exponentiate to a probability vector), and the log
// marginal-likelihood estimate log p(constraints ; args).
type ImportanceResult[Args any, Data gen.Cloneable[Data], Ret any] struct {
	Traces         []gen.Trace[Args, Data, Ret]
	LogNormWeights []float64
	LogMLEstimate  float64
}

// ImportanceSampling generates n traces of model at args
// consistent with constraints and weights them by the importance
// weights returned by Generate. Weights are normalized with a
// max-subtracting logsumexp, so large particle counts do not
// overflow.
func ImportanceSampling[Args any, Data gen.Cloneable[Data], Ret any](
	rng *rand.Rand,
	model gen.GenFn[Args, Data, Ret],
	args Args,
	constraints Data,
	n int,
) (ImportanceResult[Args, Data, Ret], error) {
	var res ImportanceResult[Args, Data, Ret]
	if n <= 0 {
		return res, errors.New("infer: importance sampling needs at least one particle")
	}
	res.Traces = make([]gen.Trace[Args, Data, Ret], n)
	logWeights := make([]float64, n)
	for i := range res.Traces {
		tr, w, err := model.Generate(rng, args, constraints.Clone())
		if err != nil {
			return ImportanceResult[Args, Data, Ret]{}, fmt.Errorf("infer: generating particle %d: %w", i, err)
		}
		res.Traces[i] = tr
		logWeights[i] = w
	}
	logTotal := floats.LogSumExp(logWeights)
	res.LogMLEstimate = logTotal - math.Log(float64(n))
	res.LogNormWeights = logWeights
	for i := range res.LogNormWeights {
		res.LogNormWeights[i] -= logTotal
	}
	return res, nil
}

// Resample draws n traces from the particle collection with
// probability proportional to the normalized importance weights.
// The returned traces are independent clones.
func (r ImportanceResult[Args, Data, Ret]) Resample(rng *rand.Rand, n int) []gen.Trace[Args, Data, Ret] {
	probs := make([]float64, len(r.LogNormWeights))
	for i, lw := range r.LogNormWeights {
		probs[i] = math.Exp(lw)
	}
	cat := distuv.NewCategorical(probs, rng)
	out := make([]gen.Trace[Args, Data, Ret], n)
	for i := range out {
		out[i] = r.Traces[int(cat.Rand())].Clone()
	}
	return out
}
