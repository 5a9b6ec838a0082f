// Package model implements the learned half of slot scoring: a small
// logistic-regression ranker fitted from logged recommendation outcomes,
// plus the registry that publishes fitted generations to the serving path.
//
// Design notes, mirroring the constraints of the serving loop:
//
//   - A Generation is immutable once fitted. Serving code only ever reads
//     it, so a generation can be shared by any number of concurrent
//     recommendation requests without locks.
//   - Fitting is fully deterministic: full-batch gradient descent from
//     zero-initialized weights, with the held-out split drawn from a seeded
//     shuffle. Identical rows plus an identical seed reproduce the same
//     generation bit-for-bit.
//   - Inputs are rescaled by fixed per-feature factors before training and
//     prediction. The factors are compile-time constants applied identically
//     on both paths, so they cannot introduce training-serving skew.
package model

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/carebook/go-booking-backend/internal/feature"
)

// inputScale normalizes raw feature magnitudes so one gradient step treats
// all five channels comparably. Order matches feature.Vector.Values:
// same_hour, same_dow, hour_diff, slot_is_free, recent_count. The hour_diff
// divisor folds the no-history sentinel (999h) into roughly unit range.
var inputScale = [feature.Dim]float64{1, 1, 1.0 / feature.NoHistoryHourDiff, 1, 1.0 / 10}

// Generation is one fitted, versioned instance of the ranking model. It is
// immutable after Fit returns; the serving layer swaps whole generations,
// never mutates one in place.
type Generation struct {
	Version     int
	Weights     [feature.Dim]float64
	Bias        float64
	TrainedRows int
	Accuracy    float64
	TrainedAt   time.Time
}

// Predict returns the probability that a candidate with the given features
// would be chosen, in (0, 1).
func (g *Generation) Predict(v feature.Vector) float64 {
	raw := v.Values()
	z := g.Bias
	for i, x := range raw {
		z += g.Weights[i] * x * inputScale[i]
	}
	return sigmoid(z)
}

// MarshalWeights encodes the coefficient vector as a JSON array for
// persistence alongside the generation row.
func (g *Generation) MarshalWeights() ([]byte, error) {
	return json.Marshal(g.Weights[:])
}

// UnmarshalWeights decodes a persisted JSON coefficient array. The array
// length must match the feature dimension; a mismatch means the stored
// generation predates the current schema and cannot be served.
func (g *Generation) UnmarshalWeights(data []byte) error {
	var w []float64
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if len(w) != feature.Dim {
		return fmt.Errorf("model: weight vector has %d entries, want %d", len(w), feature.Dim)
	}
	copy(g.Weights[:], w)
	return nil
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}
