package services

import (
	"math"
	"testing"
)

func TestCosineSimilarity_Symmetric(t *testing.T) {
	pairs := [][2][]float32{
		{{1, 2, 3}, {4, 5, 6}},
		{{0.5, -1, 2}, {3, 0, -0.25}},
		{{1, 0}, {0, 1}},
	}

	for _, p := range pairs {
		ab := CosineSimilarity(p[0], p[1])
		ba := CosineSimilarity(p[1], p[0])
		if ab != ba {
			t.Errorf("Expected symmetric result for %v / %v, got %v and %v", p[0], p[1], ab, ba)
		}
	}
}

func TestCosineSimilarity_SelfIsOne(t *testing.T) {
	vectors := [][]float32{
		{1, 2, 3},
		{-4, 0.5, 9},
		{0, 0, 7},
	}

	for _, v := range vectors {
		got := CosineSimilarity(v, v)
		if math.Abs(got-1) > 1e-9 {
			t.Errorf("Expected ~1 for %v, got %v", v, got)
		}
	}
}

func TestCosineSimilarity_DegenerateInputs(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
	}{
		{"unequal length", []float32{1, 2}, []float32{1, 2, 3}},
		{"zero vector", []float32{0, 0, 0}, []float32{1, 2, 3}},
		{"both zero", []float32{0, 0}, []float32{0, 0}},
		{"empty", nil, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CosineSimilarity(tc.a, tc.b); got != 0 {
				t.Errorf("Expected 0, got %v", got)
			}
		})
	}
}

func TestCosineSimilarity_Orthogonal(t *testing.T) {
	if got := CosineSimilarity([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Errorf("Expected 0 for orthogonal vectors, got %v", got)
	}
}
