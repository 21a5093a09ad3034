package vision

import (
	"fmt"
	"image"
	"strings"

	"golang.org/x/image/draw"

	"github.com/hammamikhairi/cocinia/internal/domain"
)

// Preprocess converts a packed RGB buffer into a normalised float32 tensor
// in planar (NCHW) layout: all red values, then all green, then all blue.
// Each channel value v becomes (v/255 - mean[c]) / std[c].
func Preprocess(pix []byte, width, height int, mean, std [3]float32) ([]float32, error) {
	n := width * height
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid input size %dx%d", width, height)
	}
	if len(pix) < 3*n {
		return nil, fmt.Errorf("pixel buffer too short: have %d bytes, need %d", len(pix), 3*n)
	}

	for c := range std {
		if std[c] == 0 {
			std[c] = 1
		}
	}

	out := make([]float32, 3*n)
	rOff, gOff, bOff := 0, n, 2*n
	for i := 0; i < n; i++ {
		p := i * 3
		out[rOff+i] = (float32(pix[p])/255.0 - mean[0]) / std[0]
		out[gOff+i] = (float32(pix[p+1])/255.0 - mean[1]) / std[1]
		out[bOff+i] = (float32(pix[p+2])/255.0 - mean[2]) / std[2]
	}
	return out, nil
}

// Downsample scales a frame to width x height and returns packed RGB.
// A frame already at the target size is returned as-is.
func Downsample(frame *domain.Frame, width, height int, interpolation string) ([]byte, error) {
	if frame.Width == width && frame.Height == height {
		return frame.Pix, nil
	}
	if len(frame.Pix) < 3*frame.Width*frame.Height {
		return nil, fmt.Errorf("frame %d: pixel buffer too short for %dx%d", frame.Seq, frame.Width, frame.Height)
	}

	src := image.NewRGBA(image.Rect(0, 0, frame.Width, frame.Height))
	for i, j := 0, 0; i < frame.Width*frame.Height; i, j = i+1, j+3 {
		o := i * 4
		src.Pix[o] = frame.Pix[j]
		src.Pix[o+1] = frame.Pix[j+1]
		src.Pix[o+2] = frame.Pix[j+2]
		src.Pix[o+3] = 0xff
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	chooseScaler(interpolation).Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	out := make([]byte, 3*width*height)
	for i, j := 0, 0; i < width*height; i, j = i+1, j+3 {
		o := i * 4
		out[j] = dst.Pix[o]
		out[j+1] = dst.Pix[o+1]
		out[j+2] = dst.Pix[o+2]
	}
	return out, nil
}

func chooseScaler(name string) draw.Scaler {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "nearest":
		return draw.NearestNeighbor
	case "catmullrom", "bicubic":
		return draw.CatmullRom
	case "approx":
		return draw.ApproxBiLinear
	default:
		return draw.BiLinear
	}
}
