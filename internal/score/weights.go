package score

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Dimension names, in report order.
const (
	Completion     = "completion"
	Timing         = "timing"
	Interaction    = "interaction"
	Quality        = "quality"
	CodeSize       = "code_size"
	TaskCompletion = "task_completion"
)

// Dimensions lists every scored dimension in report order.
var Dimensions = []string{Completion, Timing, Interaction, Quality, CodeSize, TaskCompletion}

// weightTolerance is how far the weight sum may drift from 1.0.
const weightTolerance = 1e-6

// ErrInvalidWeights matches every weight validation failure.
var ErrInvalidWeights = errors.New("invalid weight configuration")

// InvalidWeightsError describes why a weight map was rejected.
type InvalidWeightsError struct {
	Sum    float64
	Reason string
}

func (e *InvalidWeightsError) Error() string {
	return fmt.Sprintf("invalid weight configuration: %s (sum %.6g)", e.Reason, e.Sum)
}

// Is reports ErrInvalidWeights.
func (e *InvalidWeightsError) Is(target error) bool { return target == ErrInvalidWeights }

// Weights maps dimension names to their share of the overall score.
// Dimensions absent from the map weigh zero.
type Weights map[string]float64

// DefaultWeights returns the stock weighting.
func DefaultWeights() Weights {
	return Weights{
		Completion:     0.25,
		Timing:         0.20,
		Interaction:    0.20,
		Quality:        0.20,
		CodeSize:       0.05,
		TaskCompletion: 0.10,
	}
}

// Sum adds all weights.
func (w Weights) Sum() float64 {
	var sum float64
	for _, v := range w {
		sum += v
	}
	return sum
}

// Validate requires known dimension names, non-negative values, and a sum
// of 1.0 within 1e-6.
func (w Weights) Validate() error {
	sum := w.Sum()

	var unknown []string
	for name, v := range w {
		if !isDimension(name) {
			unknown = append(unknown, name)
			continue
		}
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return &InvalidWeightsError{Sum: sum, Reason: fmt.Sprintf("weight %s = %v is not a non-negative number", name, v)}
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return &InvalidWeightsError{Sum: sum, Reason: "unknown dimensions " + strings.Join(unknown, ", ")}
	}
	if math.Abs(sum-1) > weightTolerance {
		return &InvalidWeightsError{Sum: sum, Reason: "weights must sum to 1.0"}
	}
	return nil
}

func isDimension(name string) bool {
	for _, d := range Dimensions {
		if d == name {
			return true
		}
	}
	return false
}
