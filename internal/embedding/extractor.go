// Package embedding produces fixed-length feature vectors from garment images.
package embedding

import (
	"context"
	"errors"
)

// ErrUnreadableImage is returned when input bytes cannot be decoded as an image.
var ErrUnreadableImage = errors.New("unreadable image")

// Extractor produces an embedding vector for an image. All returned vectors
// have the same length, Dimensions(), for a given extractor instance.
type Extractor interface {
	Extract(ctx context.Context, imageBytes []byte) ([]float32, error)
	Dimensions() int
	Close() error
}
