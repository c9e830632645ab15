package common

import (
	"sort"
)

// WeightedValue is a value that counts for Weight in a weighted median.
type WeightedValue struct {
	Weight int64
	Value  float64
}

// WeightedMedian returns the weighted median of the input. Values are sorted
// in ascending order and their weights accumulated until the running weight
// reaches half of the total. If the running weight lands exactly on the half
// point, and the element is not one of the last two, the result interpolates
// between that element and the next, proportionally to their weights.
// Otherwise it is the value of the element that crosses the half point.
//
// An empty input, or one whose total weight is zero, yields 0.
func WeightedMedian(input []WeightedValue) float64 {

	// Start by sorting a copy of the slice
	s := make([]WeightedValue, len(input))
	copy(s, input)
	sort.SliceStable(s, func(i, j int) bool { return s[i].Value < s[j].Value })

	var total int64
	for _, v := range s {
		total += v.Weight
	}
	if total == 0 {
		return 0
	}

	half := float64(total) / 2
	var running int64
	for i, v := range s {
		running += v.Weight
		if float64(running) < half {
			continue
		}

		if float64(running) == half && i < len(s)-2 {
			next := s[i+1]
			w := v.Weight + next.Weight
			if w == 0 {
				return v.Value
			}
			return (v.Value*float64(v.Weight) + next.Value*float64(next.Weight)) / float64(w)
		}

		return v.Value
	}

	// Unreachable with non-negative weights
	return s[len(s)-1].Value
}
