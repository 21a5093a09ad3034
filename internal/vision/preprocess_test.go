package vision

import (
	"math"
	"testing"

	"github.com/hammamikhairi/cocinia/internal/domain"
)

func TestPreprocessPlanarLayout(t *testing.T) {
	// 2x1 image: pixel 0 = (255, 0, 51), pixel 1 = (0, 255, 102).
	pix := []byte{255, 0, 51, 0, 255, 102}
	mean := [3]float32{0, 0, 0}
	std := [3]float32{1, 1, 1}

	got, err := Preprocess(pix, 2, 1, mean, std)
	if err != nil {
		t.Fatalf("preprocess: %v", err)
	}
	want := []float32{1, 0, 0, 1, 0.2, 0.4}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-6 {
			t.Errorf("value[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestPreprocessNormalises(t *testing.T) {
	pix := []byte{255, 255, 255}
	got, err := Preprocess(pix, 1, 1, ImageNetMean, ImageNetStd)
	if err != nil {
		t.Fatalf("preprocess: %v", err)
	}
	for c := 0; c < 3; c++ {
		want := (1 - ImageNetMean[c]) / ImageNetStd[c]
		if math.Abs(float64(got[c]-want)) > 1e-6 {
			t.Errorf("channel %d = %v, want %v", c, got[c], want)
		}
	}
}

func TestPreprocessRejectsShortBuffer(t *testing.T) {
	if _, err := Preprocess(make([]byte, 5), 2, 1, ImageNetMean, ImageNetStd); err == nil {
		t.Fatal("expected error for short buffer")
	}
	if _, err := Preprocess(nil, 0, 0, ImageNetMean, ImageNetStd); err == nil {
		t.Fatal("expected error for zero size")
	}
}

func TestDownsample(t *testing.T) {
	frame := &domain.Frame{Width: 4, Height: 4, Pix: make([]byte, 4*4*3)}
	for i := 0; i < 16; i++ {
		frame.Pix[i*3] = 200
		frame.Pix[i*3+1] = 100
		frame.Pix[i*3+2] = 50
	}

	same, err := Downsample(frame, 4, 4, "")
	if err != nil {
		t.Fatalf("downsample same size: %v", err)
	}
	if &same[0] != &frame.Pix[0] {
		t.Fatal("expected same-size frame to be passed through")
	}

	small, err := Downsample(frame, 2, 2, "nearest")
	if err != nil {
		t.Fatalf("downsample: %v", err)
	}
	if len(small) != 2*2*3 {
		t.Fatalf("len = %d, want 12", len(small))
	}
	for i := 0; i < 4; i++ {
		if small[i*3] != 200 || small[i*3+1] != 100 || small[i*3+2] != 50 {
			t.Fatalf("pixel %d = %v, want solid color", i, small[i*3:i*3+3])
		}
	}
}
