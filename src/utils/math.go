package utils

import "math"

func Average(xs []float64) float64 {
	if len(xs) == 0 {
		return 0.0
	}
	total := 0.0
	for _, v := range xs {
		total += v
	}
	return total / float64(len(xs))
}

func StandardDeviation(xs []float64) float64 {
	if len(xs) == 0 {
		return 0.0
	}

	mean := Average(xs)
	var varianceSum float64

	for _, v := range xs {
		varianceSum += math.Pow(v-mean, 2)
	}

	variance := varianceSum / float64(len(xs))
	return math.Sqrt(variance)
}

// Summary describes a series for listings and run records.
type Summary struct {
	Count             int     `json:"count"`
	Min               float64 `json:"min"`
	Max               float64 `json:"max"`
	Average           float64 `json:"average"`
	StandardDeviation float64 `json:"standardDeviation"`
}

func Summarize(xs []float64) Summary {
	if len(xs) == 0 {
		return Summary{}
	}
	s := Summary{
		Count:             len(xs),
		Min:               xs[0],
		Max:               xs[0],
		Average:           Average(xs),
		StandardDeviation: StandardDeviation(xs),
	}
	for _, v := range xs[1:] {
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	return s
}
