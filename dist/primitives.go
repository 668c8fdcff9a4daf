package dist

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/distuv"
)

// NormalParams parameterizes [Normal] by mean and standard
// deviation.
type NormalParams struct {
	Mu, Sigma float64
}

// Normal is the one-dimensional Gaussian distribution.
type Normal struct{}

func (Normal) LogPDF(x float64, p NormalParams) float64 {
	return distuv.Normal{Mu: p.Mu, Sigma: p.Sigma}.LogProb(x)
}

func (Normal) Random(rng *rand.Rand, p NormalParams) float64 {
	return distuv.Normal{Mu: p.Mu, Sigma: p.Sigma, Src: rng}.Rand()
}

// GammaParams parameterizes [Gamma] by shape and rate.
type GammaParams struct {
	Shape, Rate float64
}

// Gamma is the gamma distribution in shape/rate form.
type Gamma struct{}

func (Gamma) LogPDF(x float64, p GammaParams) float64 {
	if x <= 0 {
		return math.Inf(-1)
	}
	return distuv.Gamma{Alpha: p.Shape, Beta: p.Rate}.LogProb(x)
}

func (Gamma) Random(rng *rand.Rand, p GammaParams) float64 {
	return distuv.Gamma{Alpha: p.Shape, Beta: p.Rate, Src: rng}.Rand()
}

// UniformParams parameterizes [Uniform] by its closed support
// interval.
type UniformParams struct {
	Min, Max float64
}

// Uniform is the continuous uniform distribution on [Min, Max].
type Uniform struct{}

func (Uniform) LogPDF(x float64, p UniformParams) float64 {
	if x < p.Min || x > p.Max {
		return math.Inf(-1)
	}
	return -math.Log(p.Max - p.Min)
}

func (Uniform) Random(rng *rand.Rand, p UniformParams) float64 {
	return distuv.Uniform{Min: p.Min, Max: p.Max, Src: rng}.Rand()
}

// Bernoulli is the coin-flip distribution; its parameter is the
// probability of true.
type Bernoulli struct{}

func (Bernoulli) LogPDF(x bool, p float64) float64 {
	if x {
		return math.Log(p)
	}
	return math.Log(1 - p)
}

func (Bernoulli) Random(rng *rand.Rand, p float64) bool {
	return distuv.Bernoulli{P: p, Src: rng}.Rand() == 1
}

// Categorical is the distribution over indices 0..len(weights)-1
// with probability proportional to the given non-negative weights.
type Categorical struct{}

func (Categorical) LogPDF(x int, weights []float64) float64 {
	if x < 0 || x >= len(weights) {
		return math.Inf(-1)
	}
	return distuv.NewCategorical(weights, nil).LogProb(float64(x))
}

func (Categorical) Random(rng *rand.Rand, weights []float64) int {
	return int(distuv.NewCategorical(weights, rng).Rand())
}

// MVNormalParams parameterizes [MVNormal] by a mean vector and a
// symmetric positive-definite covariance matrix.
type MVNormalParams struct {
	Mu  []float64
	Cov *mat.SymDense
}

// MVNormal is the multivariate Gaussian distribution.
type MVNormal struct{}

func (MVNormal) LogPDF(x []float64, p MVNormalParams) float64 {
	n, ok := distmv.NewNormal(p.Mu, p.Cov, nil)
	if !ok {
		panic("dist: MVNormal covariance is not positive definite")
	}
	return n.LogProb(x)
}

func (MVNormal) Random(rng *rand.Rand, p MVNormalParams) []float64 {
	n, ok := distmv.NewNormal(p.Mu, p.Cov, rng)
	if !ok {
		panic("dist: MVNormal covariance is not positive definite")
	}
	return n.Rand(nil)
}

// Isotropic returns the dim×dim covariance matrix variance·I,
// convenient for drift proposals.
func Isotropic(dim int, variance float64) *mat.SymDense {
	c := mat.NewSymDense(dim, nil)
	for i := 0; i < dim; i++ {
		c.SetSym(i, i, variance)
	}
	return c
}
