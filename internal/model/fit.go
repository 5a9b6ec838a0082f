package model

import (
	"errors"
	"math/rand"
	"time"

	"github.com/carebook/go-booking-backend/internal/feature"
)

// Sample is one labeled training row: the features a candidate was shown
// with and whether the user ultimately chose it.
type Sample struct {
	Features feature.Vector
	Chosen   bool
}

// FitConfig controls the deterministic fitting run. Zero values fall back to
// the defaults below.
type FitConfig struct {
	// Seed drives the shuffle behind the held-out split.
	Seed int64
	// HoldoutRatio is the fraction of rows reserved for validation.
	HoldoutRatio float64
	// Epochs is the number of full-batch gradient passes.
	Epochs int
	// LearnRate is the gradient step size.
	LearnRate float64
}

const (
	defaultHoldoutRatio = 0.2
	defaultEpochs       = 300
	defaultLearnRate    = 0.5
)

// ErrNoSamples is returned when Fit is called with an empty training set.
// Minimum-size policy lives with the retrain pipeline; this only guards the
// degenerate case.
var ErrNoSamples = errors.New("model: no training samples")

// Fit trains a new generation by logistic regression over the samples.
//
// The run is deterministic: weights start at zero, gradients are accumulated
// over the full batch in slice order, and the held-out rows are picked by a
// shuffle seeded from cfg.Seed. The returned generation carries its held-out
// accuracy (training accuracy when the set is too small to split).
func Fit(samples []Sample, version int, trainedAt time.Time, cfg FitConfig) (*Generation, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}
	if cfg.HoldoutRatio <= 0 || cfg.HoldoutRatio >= 1 {
		cfg.HoldoutRatio = defaultHoldoutRatio
	}
	if cfg.Epochs <= 0 {
		cfg.Epochs = defaultEpochs
	}
	if cfg.LearnRate <= 0 {
		cfg.LearnRate = defaultLearnRate
	}

	train, holdout := split(samples, cfg.Seed, cfg.HoldoutRatio)

	g := &Generation{
		Version:     version,
		TrainedRows: len(samples),
		TrainedAt:   trainedAt,
	}

	n := float64(len(train))
	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		var gradW [feature.Dim]float64
		var gradB float64
		for _, s := range train {
			raw := s.Features.Values()
			p := g.Predict(s.Features)
			y := 0.0
			if s.Chosen {
				y = 1.0
			}
			err := p - y
			for i := range raw {
				gradW[i] += err * raw[i] * inputScale[i]
			}
			gradB += err
		}
		for i := range gradW {
			g.Weights[i] -= cfg.LearnRate * gradW[i] / n
		}
		g.Bias -= cfg.LearnRate * gradB / n
	}

	eval := holdout
	if len(eval) == 0 {
		eval = train
	}
	g.Accuracy = Accuracy(g, eval)
	return g, nil
}

// Accuracy is the fraction of samples the generation classifies correctly at
// the 0.5 threshold. It is the validation metric the retrain pipeline
// compares across generations.
func Accuracy(g *Generation, samples []Sample) float64 {
	if len(samples) == 0 {
		return 0
	}
	correct := 0
	for _, s := range samples {
		pred := g.Predict(s.Features) >= 0.5
		if pred == s.Chosen {
			correct++
		}
	}
	return float64(correct) / float64(len(samples))
}

// split partitions samples into train and held-out sets using a seeded
// shuffle of indices. The input slice is never reordered. Sets smaller than
// five rows are not split; validating on the training rows beats validating
// on nothing.
func split(samples []Sample, seed int64, ratio float64) (train, holdout []Sample) {
	if len(samples) < 5 {
		return samples, nil
	}
	idx := make([]int, len(samples))
	for i := range idx {
		idx[i] = i
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })

	nHold := int(float64(len(samples)) * ratio)
	if nHold < 1 {
		nHold = 1
	}
	holdout = make([]Sample, 0, nHold)
	train = make([]Sample, 0, len(samples)-nHold)
	for i, id := range idx {
		if i < nHold {
			holdout = append(holdout, samples[id])
		} else {
			train = append(train, samples[id])
		}
	}
	return train, holdout
}
