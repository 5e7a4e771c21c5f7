// Package vector holds the float32 vector math shared by the chunker and the
// aggregation step: cosine similarity, element-wise mean and L2 normalisation.
package vector

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrEmpty             = errors.New("vector: no vectors to aggregate")
	ErrDimensionMismatch = errors.New("vector: dimension mismatch")
	ErrZeroMagnitude     = errors.New("vector: zero magnitude")
)

// Dot returns the dot product of a and b. Both must have the same length.
func Dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Magnitude returns the L2 norm of v.
func Magnitude(v []float32) float64 {
	return math.Sqrt(Dot(v, v))
}

// CosineSimilarity returns the cosine of the angle between a and b.
// The second return value is false when the similarity is undefined:
// empty input, mismatched dimensions, or a zero vector on either side.
func CosineSimilarity(a, b []float32) (float64, bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}
	magA, magB := Magnitude(a), Magnitude(b)
	if magA == 0 || magB == 0 {
		return 0, false
	}
	sim := Dot(a, b) / (magA * magB)
	if math.IsNaN(sim) {
		return 0, false
	}
	return sim, true
}

// Normalize returns a unit-length copy of v. A zero vector is returned unchanged
// (as a copy) because it has no direction.
func Normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	mag := Magnitude(v)
	if mag == 0 {
		copy(out, v)
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / mag)
	}
	return out
}

// Mean returns the element-wise mean of vs.
func Mean(vs [][]float32) ([]float32, error) {
	if len(vs) == 0 {
		return nil, ErrEmpty
	}
	dim := len(vs[0])
	if dim == 0 {
		return nil, fmt.Errorf("%w: empty vector at 0", ErrDimensionMismatch)
	}
	sums := make([]float64, dim)
	for i, v := range vs {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: vector %d has %d dimensions, want %d", ErrDimensionMismatch, i, len(v), dim)
		}
		for j, x := range v {
			sums[j] += float64(x)
		}
	}
	mean := make([]float32, dim)
	n := float64(len(vs))
	for j, s := range sums {
		mean[j] = float32(s / n)
	}
	return mean, nil
}

// MeanNormalized computes the element-wise mean of vs and scales it to unit length:
// normalized[i] = mean[i] / sqrt(sum(mean[j]^2)).
func MeanNormalized(vs [][]float32) ([]float32, error) {
	mean, err := Mean(vs)
	if err != nil {
		return nil, err
	}
	if Magnitude(mean) == 0 {
		return nil, ErrZeroMagnitude
	}
	return Normalize(mean), nil
}
