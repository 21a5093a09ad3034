package vision

import (
	"math"
	"testing"
)

func TestArgmaxSoftmax(t *testing.T) {
	tests := []struct {
		name     string
		logits   []float32
		wantIdx  int
		wantProb float64
	}{
		{"single", []float32{3}, 0, 1},
		{"uniform pair", []float32{1, 1}, 0, 0.5},
		{"clear winner", []float32{0, 10, 0}, 1, math.Exp(10) / (math.Exp(10) + 2)},
		{"tie keeps first", []float32{-1, 4, 4, 2}, 1, 0},
		{"large logits stay finite", []float32{1000, 999, 998}, 0, 1 / (1 + math.Exp(-1) + math.Exp(-2))},
		{"negative logits", []float32{-50, -51}, 0, 1 / (1 + math.Exp(-1))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, prob := ArgmaxSoftmax(tt.logits)
			if idx != tt.wantIdx {
				t.Fatalf("idx = %d, want %d", idx, tt.wantIdx)
			}
			if math.IsNaN(float64(prob)) || math.IsInf(float64(prob), 0) {
				t.Fatalf("prob is not finite: %v", prob)
			}
			if tt.wantProb != 0 && math.Abs(float64(prob)-tt.wantProb) > 1e-5 {
				t.Fatalf("prob = %v, want %v", prob, tt.wantProb)
			}
		})
	}
}

func TestArgmaxSoftmaxEmpty(t *testing.T) {
	idx, prob := ArgmaxSoftmax(nil)
	if idx != -1 || prob != 0 {
		t.Fatalf("got (%d, %v), want (-1, 0)", idx, prob)
	}
}

func TestSoftmaxSumsToOne(t *testing.T) {
	inputs := [][]float32{
		{0, 0, 0, 0},
		{1, 2, 3, 4, 5},
		{-3, 12.5, 0.25, 7},
		{88, 89, 90},
		{-1e3, 1e3},
	}

	for _, logits := range inputs {
		probs := Softmax(logits)
		var sum float64
		best, bestP := 0, probs[0]
		for i, p := range probs {
			sum += float64(p)
			if p > bestP {
				best, bestP = i, p
			}
		}
		if math.Abs(sum-1) > 1e-5 {
			t.Errorf("softmax(%v) sums to %v", logits, sum)
		}
		idx, prob := ArgmaxSoftmax(logits)
		if idx != best {
			t.Errorf("argmax(%v) = %d, softmax argmax = %d", logits, idx, best)
		}
		if math.Abs(float64(prob-bestP)) > 1e-6 {
			t.Errorf("prob(%v) = %v, softmax max = %v", logits, prob, bestP)
		}
	}
}

func TestSoftmaxEmpty(t *testing.T) {
	if got := Softmax(nil); len(got) != 0 {
		t.Fatalf("Softmax(nil) = %v, want empty", got)
	}
}
