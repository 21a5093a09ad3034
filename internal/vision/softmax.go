package vision

import "math"

// ArgmaxSoftmax returns the index of the largest logit and its softmax
// probability. On ties the first index wins. Returns (-1, 0) for an empty
// slice.
func ArgmaxSoftmax(logits []float32) (int, float32) {
	idx := argmax(logits)
	if idx < 0 {
		return -1, 0
	}
	return idx, Softmax(logits)[idx]
}

// Softmax returns the full probability distribution over logits. The max
// logit is subtracted before exponentiating and sums accumulate in float64.
func Softmax(logits []float32) []float32 {
	out := make([]float32, len(logits))
	idx := argmax(logits)
	if idx < 0 {
		return out
	}
	maxVal := logits[idx]

	exps := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		exps[i] = math.Exp(float64(v - maxVal))
		sum += exps[i]
	}
	for i := range exps {
		out[i] = float32(exps[i] / sum)
	}
	return out
}

func argmax(v []float32) int {
	if len(v) == 0 {
		return -1
	}
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
