// Package forest is a small seeded random forest for tabular classification.
// Same data, same config, same seed: same trees and same predictions.
package forest

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
)

type Config struct {
	Estimators int
	// MaxDepth of 0 grows every tree until its leaves are pure.
	MaxDepth        int
	MinSamplesSplit int
	// MaxFeatures tried per split; 0 means ceil(sqrt(features)).
	MaxFeatures int
	Seed        uint64
}

type Forest struct {
	cfg      Config
	trees    []*node
	classes  int
	features int
}

var ErrNotFitted = errors.New("forest: model is not fitted")

func New(cfg Config) *Forest {
	if cfg.Estimators <= 0 {
		cfg.Estimators = 100
	}
	if cfg.MinSamplesSplit < 2 {
		cfg.MinSamplesSplit = 2
	}
	return &Forest{cfg: cfg}
}

// Classes is the number of distinct class ids the forest can predict.
func (f *Forest) Classes() int { return f.classes }

// Trees returns the number of fitted trees.
func (f *Forest) Trees() int { return len(f.trees) }

// Fit trains the forest. Labels must be non-negative class ids.
func (f *Forest) Fit(X [][]float64, y []int) error {
	if len(X) == 0 {
		return errors.New("forest: no samples")
	}
	if len(X) != len(y) {
		return fmt.Errorf("forest: %d samples but %d labels", len(X), len(y))
	}
	width := len(X[0])
	if width == 0 {
		return errors.New("forest: samples have no features")
	}
	classes := 0
	for i, row := range X {
		if len(row) != width {
			return fmt.Errorf("forest: sample %d has %d features, want %d", i, len(row), width)
		}
		if y[i] < 0 {
			return fmt.Errorf("forest: sample %d has negative label %d", i, y[i])
		}
		if y[i]+1 > classes {
			classes = y[i] + 1
		}
	}

	mtry := f.cfg.MaxFeatures
	if mtry <= 0 || mtry > width {
		mtry = int(math.Ceil(math.Sqrt(float64(width))))
	}

	f.features = width
	f.classes = classes
	f.trees = make([]*node, 0, f.cfg.Estimators)
	for t := 0; t < f.cfg.Estimators; t++ {
		rng := rand.New(rand.NewPCG(f.cfg.Seed, uint64(t)))
		b := &builder{
			X: X, y: y, rng: rng,
			classes: classes, mtry: mtry,
			maxDepth: f.cfg.MaxDepth, minSplit: f.cfg.MinSamplesSplit,
		}
		f.trees = append(f.trees, b.grow(bootstrap(len(X), rng), 0))
	}
	return nil
}

// Proba returns class probabilities averaged over all trees.
func (f *Forest) Proba(x []float64) ([]float64, error) {
	if len(f.trees) == 0 {
		return nil, ErrNotFitted
	}
	if len(x) != f.features {
		return nil, fmt.Errorf("forest: sample has %d features, want %d", len(x), f.features)
	}
	sum := make([]float64, f.classes)
	for _, t := range f.trees {
		leaf := t.leaf(x)
		for c, p := range leaf.dist {
			sum[c] += p
		}
	}
	for c := range sum {
		sum[c] /= float64(len(f.trees))
	}
	return sum, nil
}

// Predict returns the most probable class per sample; ties go to the lower class id.
func (f *Forest) Predict(X [][]float64) ([]int, error) {
	out := make([]int, len(X))
	for i, x := range X {
		p, err := f.Proba(x)
		if err != nil {
			return nil, err
		}
		best := 0
		for c := 1; c < len(p); c++ {
			if p[c] > p[best] {
				best = c
			}
		}
		out[i] = best
	}
	return out, nil
}

func bootstrap(n int, rng *rand.Rand) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = rng.IntN(n)
	}
	return idx
}
