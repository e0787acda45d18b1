//go:build !cgo
// +build !cgo

package embedding

import (
	"context"
	"errors"
)

// ONNXExtractor stub type when built without CGO (see onnx.go for real implementation).
type ONNXExtractor struct{}

// NewONNXExtractor returns an error when built without CGO (ONNX not available).
func NewONNXExtractor(_ string, _, _ int) (*ONNXExtractor, error) {
	return nil, errors.New("ONNX extractor requires CGO; build with CGO_ENABLED=1 and onnxruntime")
}

// Extract always fails on the stub.
func (e *ONNXExtractor) Extract(_ context.Context, _ []byte) ([]float32, error) {
	return nil, errors.New("ONNX extractor not available in this build")
}

// Dimensions returns 0 on the stub.
func (e *ONNXExtractor) Dimensions() int { return 0 }

// Close is a no-op on the stub.
func (e *ONNXExtractor) Close() error { return nil }
