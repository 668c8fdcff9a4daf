package infer_test

// The pointed model: a 2-D latent point drawn uniformly from a
// bounding box, observed through independent Gaussian noise on
// each coordinate. Its analytic simplicity makes it a convenient
// end-to-end fixture for the kernels.

import (
	"math"

	"golang.org/x/exp/rand"

	"github.com/rogpeppe/genprob/dist"
	"github.com/rogpeppe/genprob/gen"
	"github.com/rogpeppe/genprob/trie"
)

type point struct {
	X, Y float64
}

type rect struct {
	XMin, XMax, YMin, YMax float64
}

// uniform2D is the uniform distribution over a rectangle.
type uniform2D struct{}

func (uniform2D) LogPDF(p point, b rect) float64 {
	if p.X < b.XMin || p.X > b.XMax || p.Y < b.YMin || p.Y > b.YMax {
		return math.Inf(-1)
	}
	return -math.Log((b.XMax - b.XMin) * (b.YMax - b.YMin))
}

func (uniform2D) Random(rng *rand.Rand, b rect) point {
	var u dist.Uniform
	return point{
		X: u.Random(rng, dist.UniformParams{Min: b.XMin, Max: b.XMax}),
		Y: u.Random(rng, dist.UniformParams{Min: b.YMin, Max: b.YMax}),
	}
}

type pointedTrace = gen.Trace[rect, *trie.Trie[point], point]

// pointedModel has choices "latent" (the hidden point) and "obs"
// (the noisy observation). Leaf weights are the choices'
// log densities, so a trace's data weight equals its LogJP.
type pointedModel struct {
	ObsStd float64
}

func (m pointedModel) obsLogPDF(obs, latent point) float64 {
	var n dist.Normal
	return n.LogPDF(obs.X, dist.NormalParams{Mu: latent.X, Sigma: m.ObsStd}) +
		n.LogPDF(obs.Y, dist.NormalParams{Mu: latent.Y, Sigma: m.ObsStd})
}

func (m pointedModel) sampleObs(rng *rand.Rand, latent point) point {
	var n dist.Normal
	return point{
		X: n.Random(rng, dist.NormalParams{Mu: latent.X, Sigma: m.ObsStd}),
		Y: n.Random(rng, dist.NormalParams{Mu: latent.Y, Sigma: m.ObsStd}),
	}
}

// constraintAt returns the value stored at addr in constraints,
// if any.
func constraintAt(constraints *trie.Trie[point], addr string) (point, bool) {
	if constraints == nil {
		return point{}, false
	}
	node, err := constraints.Search(addr)
	if err != nil || node == nil || !node.HasValue() {
		return point{}, false
	}
	v, _, _ := node.Value()
	return v, true
}

func (m pointedModel) makeTrace(bounds rect, latent, obs point) (pointedTrace, error) {
	latentW := uniform2D{}.LogPDF(latent, bounds)
	obsW := m.obsLogPDF(obs, latent)
	data := trie.New[point]()
	if err := data.Observe("latent", latent, latentW); err != nil {
		return pointedTrace{}, err
	}
	if err := data.Observe("obs", obs, obsW); err != nil {
		return pointedTrace{}, err
	}
	return gen.MakeTrace(bounds, data, latent, latentW+obsW), nil
}

func (m pointedModel) Simulate(rng *rand.Rand, bounds rect) (pointedTrace, error) {
	latent := uniform2D{}.Random(rng, bounds)
	obs := m.sampleObs(rng, latent)
	return m.makeTrace(bounds, latent, obs)
}

func (m pointedModel) Generate(rng *rand.Rand, bounds rect, constraints *trie.Trie[point]) (pointedTrace, float64, error) {
	weight := 0.0

	latent, ok := constraintAt(constraints, "latent")
	if ok {
		weight += uniform2D{}.LogPDF(latent, bounds)
	} else {
		latent = uniform2D{}.Random(rng, bounds)
	}

	obs, ok := constraintAt(constraints, "obs")
	if ok {
		weight += m.obsLogPDF(obs, latent)
	} else {
		obs = m.sampleObs(rng, latent)
	}

	tr, err := m.makeTrace(bounds, latent, obs)
	if err != nil {
		return pointedTrace{}, 0, err
	}
	return tr, weight, nil
}

func (m pointedModel) Update(rng *rand.Rand, tr pointedTrace, bounds rect, diff gen.ArgDiff, constraints *trie.Trie[point]) (pointedTrace, *trie.Trie[point], float64, error) {
	discard := trie.New[point]()

	oldLatent, ok := constraintAt(tr.Data, "latent")
	if !ok {
		return pointedTrace{}, nil, 0, gen.ErrAddressMissing
	}
	oldObs, ok := constraintAt(tr.Data, "obs")
	if !ok {
		return pointedTrace{}, nil, 0, gen.ErrAddressMissing
	}

	latent := oldLatent
	if c, ok := constraintAt(constraints, "latent"); ok {
		old, _ := tr.Data.Search("latent")
		v, w, _ := old.Value()
		if err := discard.Observe("latent", v, w); err != nil {
			return pointedTrace{}, nil, 0, err
		}
		latent = c
	}
	obs := oldObs
	if c, ok := constraintAt(constraints, "obs"); ok {
		old, _ := tr.Data.Search("obs")
		v, w, _ := old.Value()
		if err := discard.Observe("obs", v, w); err != nil {
			return pointedTrace{}, nil, 0, err
		}
		obs = c
	}

	next, err := m.makeTrace(bounds, latent, obs)
	if err != nil {
		return pointedTrace{}, nil, 0, err
	}
	// All updates here replace constrained choices; nothing is
	// freshly sampled or dropped, so the forward and backward
	// proposal terms are zero and the weight is the plain log
	// joint difference.
	return next, discard, next.LogJP - tr.LogJP, nil
}

func (m pointedModel) Regenerate(rng *rand.Rand, tr pointedTrace, bounds rect, diff gen.ArgDiff, mask *gen.AddrMask) (pointedTrace, float64, error) {
	latent, ok := constraintAt(tr.Data, "latent")
	if !ok {
		return pointedTrace{}, 0, gen.ErrAddressMissing
	}
	obs, ok := constraintAt(tr.Data, "obs")
	if !ok {
		return pointedTrace{}, 0, gen.ErrAddressMissing
	}

	// Resampled choices come from the internal (prior) proposal,
	// so their forward density cancels against the new joint
	// term and the backward density against the old one.
	logQFwd, logQBwd := 0.0, 0.0
	if mask.Covers("latent") {
		old, _ := tr.Data.Search("latent")
		_, w, _ := old.Value()
		logQBwd += w
		latent = uniform2D{}.Random(rng, bounds)
		logQFwd += uniform2D{}.LogPDF(latent, bounds)
	}
	if mask.Covers("obs") {
		old, _ := tr.Data.Search("obs")
		_, w, _ := old.Value()
		logQBwd += w
		obs = m.sampleObs(rng, latent)
		logQFwd += m.obsLogPDF(obs, latent)
	}

	next, err := m.makeTrace(bounds, latent, obs)
	if err != nil {
		return pointedTrace{}, 0, err
	}
	return next, next.LogJP - tr.LogJP - logQFwd + logQBwd, nil
}

// driftProposal proposes a new latent by a small multivariate
// Gaussian step around the current one, reading the current trace
// through the parked reference.
type driftProposal struct {
	Std float64
}

type driftArgs = gen.ProposalArgs[rect, *trie.Trie[point], point, struct{}]

type driftTrace = gen.Trace[driftArgs, *trie.Trie[point], struct{}]

func (p driftProposal) params(args driftArgs) (dist.MVNormalParams, error) {
	cur, err := args.Trace.Load()
	if err != nil {
		return dist.MVNormalParams{}, err
	}
	latent, ok := constraintAt(cur.Data, "latent")
	if !ok {
		return dist.MVNormalParams{}, gen.ErrAddressMissing
	}
	return dist.MVNormalParams{
		Mu:  []float64{latent.X, latent.Y},
		Cov: dist.Isotropic(2, p.Std*p.Std),
	}, nil
}

func (p driftProposal) makeTrace(args driftArgs, latent point, logp float64) (driftTrace, error) {
	data := trie.New[point]()
	if err := data.Observe("latent", latent, logp); err != nil {
		return driftTrace{}, err
	}
	return gen.MakeTrace(args, data, struct{}{}, logp), nil
}

func (p driftProposal) Simulate(rng *rand.Rand, args driftArgs) (driftTrace, error) {
	mv, err := p.params(args)
	if err != nil {
		return driftTrace{}, err
	}
	var d dist.MVNormal
	xy := d.Random(rng, mv)
	latent := point{X: xy[0], Y: xy[1]}
	return p.makeTrace(args, latent, d.LogPDF(xy, mv))
}

func (p driftProposal) Generate(rng *rand.Rand, args driftArgs, constraints *trie.Trie[point]) (driftTrace, float64, error) {
	mv, err := p.params(args)
	if err != nil {
		return driftTrace{}, 0, err
	}
	var d dist.MVNormal
	c, ok := constraintAt(constraints, "latent")
	if !ok {
		tr, err := p.Simulate(rng, args)
		return tr, 0, err
	}
	logp := d.LogPDF([]float64{c.X, c.Y}, mv)
	tr, err := p.makeTrace(args, c, logp)
	if err != nil {
		return driftTrace{}, 0, err
	}
	return tr, logp, nil
}

func (p driftProposal) Update(rng *rand.Rand, tr driftTrace, args driftArgs, diff gen.ArgDiff, constraints *trie.Trie[point]) (driftTrace, *trie.Trie[point], float64, error) {
	return driftTrace{}, nil, 0, gen.ErrUnsupported
}
