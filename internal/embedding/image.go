package embedding

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// inputSize is the square input resolution expected by the feature model.
const inputSize = 224

// DecodeImage decodes raw bytes into an image. Undecodable bytes yield
// ErrUnreadableImage so callers can reject the request cleanly.
func DecodeImage(imageBytes []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableImage, err)
	}
	return img, nil
}

// Preprocess resizes img to the model input resolution and returns NHWC
// float32 pixel data scaled to [-1, 1] (MobileNet-style preprocessing).
func Preprocess(img image.Image) []float32 {
	resized := imaging.Resize(img, inputSize, inputSize, imaging.Lanczos)
	out := make([]float32, inputSize*inputSize*3)
	i := 0
	for y := 0; y < inputSize; y++ {
		for x := 0; x < inputSize; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()
			// RGBA returns 16-bit channels; scale down to 8-bit first.
			out[i] = float32(r>>8)/127.5 - 1.0
			out[i+1] = float32(g>>8)/127.5 - 1.0
			out[i+2] = float32(b>>8)/127.5 - 1.0
			i += 3
		}
	}
	return out
}
