package common

import "testing"

func equalWeights(values ...float64) []WeightedValue {
	res := make([]WeightedValue, len(values))
	for i, v := range values {
		res[i] = WeightedValue{Weight: 1, Value: v}
	}
	return res
}

func TestWeightedMedian(t *testing.T) {
	for _, c := range []struct {
		in  []WeightedValue
		out float64
	}{
		{equalWeights(5, 3, 4, 2, 1), 3},
		{equalWeights(4, 1, 3, 2), 2.5},
		{equalWeights(7), 7},
		// the half point falls on the first of the last two elements
		{equalWeights(1, 2), 1},
		{[]WeightedValue{{Weight: 10, Value: 1}, {Weight: 1, Value: 2}, {Weight: 1, Value: 3}}, 1},
		{[]WeightedValue{{Weight: 1, Value: 1}, {Weight: 1, Value: 2}, {Weight: 10, Value: 3}}, 3},
		{[]WeightedValue{{Weight: 2, Value: 0}, {Weight: 2, Value: 10}, {Weight: 2, Value: 20}, {Weight: 2, Value: 30}}, 15},
		{[]WeightedValue{{Weight: 1, Value: 4}, {Weight: 3, Value: 8}, {Weight: 2, Value: 1}, {Weight: 2, Value: 100}}, 8},
	} {
		got := WeightedMedian(c.in)
		if got != c.out {
			t.Errorf("WeightedMedian(%v) => %v != %v", c.in, got, c.out)
		}
	}

	if m := WeightedMedian([]WeightedValue{}); m != 0 {
		t.Errorf("Empty slice should have returned 0")
	}

	if m := WeightedMedian([]WeightedValue{{Weight: 0, Value: 5}}); m != 0 {
		t.Errorf("Zero total weight should have returned 0")
	}
}

func TestWeightedMedianDoesNotModifyInput(t *testing.T) {
	in := equalWeights(3, 1, 2)
	WeightedMedian(in)
	if in[0].Value != 3 || in[1].Value != 1 || in[2].Value != 2 {
		t.Fatalf("input was reordered: %v", in)
	}
}
