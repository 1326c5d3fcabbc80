// Package stats summarises adhesion samples and writes run artifacts.
package stats

import (
	"math"
	"slices"

	"adhesim/internal/model"
)

// Summary aggregates adhesion samples.
type Summary struct {
	Count       int     `json:"count"`
	MeanSize    float64 `json:"mean_size"`
	StdSize     float64 `json:"std_size"`
	MinSize     float64 `json:"min_size"`
	MaxSize     float64 `json:"max_size"`
	MeanTension float64 `json:"mean_tension"`
	MaxTension  float64 `json:"max_tension"`
	MeanMyosin  float64 `json:"mean_myosin"`
}

// StepSummary is the summary of the samples taken at one step.
type StepSummary struct {
	Step int `json:"step"`
	Summary
}

// Summarize computes population statistics over samples. The zero Summary is
// returned for no samples.
func Summarize(samples []model.AdhesionSample) Summary {
	if len(samples) == 0 {
		return Summary{}
	}

	s := Summary{
		Count:   len(samples),
		MinSize: math.Inf(1),
		MaxSize: math.Inf(-1),
	}
	sumSize, sumTension, sumMyosin := 0.0, 0.0, 0.0
	for _, sample := range samples {
		sumSize += sample.Size
		sumTension += sample.Tension
		sumMyosin += sample.Myosin
		s.MinSize = math.Min(s.MinSize, sample.Size)
		s.MaxSize = math.Max(s.MaxSize, sample.Size)
		s.MaxTension = math.Max(s.MaxTension, sample.Tension)
	}
	n := float64(len(samples))
	s.MeanSize = sumSize / n
	s.MeanTension = sumTension / n
	s.MeanMyosin = sumMyosin / n

	variance := 0.0
	for _, sample := range samples {
		d := sample.Size - s.MeanSize
		variance += d * d
	}
	s.StdSize = math.Sqrt(variance / n)
	return s
}

// SummarizeBySteps groups samples by step and summarises each group, in step
// order.
func SummarizeBySteps(samples []model.AdhesionSample) []StepSummary {
	byStep := make(map[int][]model.AdhesionSample)
	for _, sample := range samples {
		byStep[sample.Step] = append(byStep[sample.Step], sample)
	}
	steps := make([]int, 0, len(byStep))
	for step := range byStep {
		steps = append(steps, step)
	}
	slices.Sort(steps)

	out := make([]StepSummary, 0, len(steps))
	for _, step := range steps {
		out = append(out, StepSummary{Step: step, Summary: Summarize(byStep[step])})
	}
	return out
}
