package embedding

import (
	"context"
	"encoding/binary"
	"math"
)

// MockExtractor is a deterministic extractor for tests. It validates that the
// bytes decode as an image, then derives a unit-normalized vector from their
// content hash so the same image always gets the same embedding.
type MockExtractor struct {
	dimensions int
	// Fixed, when set, is returned for every extraction (image decoding is
	// still enforced). Useful for steering similarity in tests.
	Fixed []float32
}

// NewMockExtractor returns an extractor producing deterministic embeddings of
// the given dimensions.
func NewMockExtractor(dimensions int) *MockExtractor {
	if dimensions <= 0 {
		dimensions = 1280
	}
	return &MockExtractor{dimensions: dimensions}
}

// Extract returns a deterministic embedding derived from the image content.
func (e *MockExtractor) Extract(ctx context.Context, imageBytes []byte) ([]float32, error) {
	if _, err := DecodeImage(imageBytes); err != nil {
		return nil, err
	}
	if e.Fixed != nil {
		out := make([]float32, len(e.Fixed))
		copy(out, e.Fixed)
		return out, nil
	}

	key := ContentKey(imageBytes)
	seed := binary.LittleEndian.Uint64([]byte(key)[:8])
	emb := make([]float32, e.dimensions)
	for i := range emb {
		emb[i] = float32(math.Sin(float64(seed%1000)*float64(i+1)) * 0.1)
	}

	var sum float64
	for _, v := range emb {
		sum += float64(v * v)
	}
	if sum > 0 {
		norm := float32(1.0 / math.Sqrt(sum))
		for i := range emb {
			emb[i] *= norm
		}
	}
	return emb, nil
}

// Dimensions returns the embedding dimension.
func (e *MockExtractor) Dimensions() int {
	if e.Fixed != nil {
		return len(e.Fixed)
	}
	return e.dimensions
}

// Close is a no-op for MockExtractor.
func (e *MockExtractor) Close() error {
	return nil
}
