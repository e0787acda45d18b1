//go:build cgo
// +build cgo

// ONNX-based image feature extraction (requires CGO and the onnxruntime library).
package embedding

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/mavazi/kabati/internal/vector"
)

// ONNXExtractor runs a MobileNetV2-style feature model via ONNX Runtime.
// The model takes a (1, 224, 224, 3) float32 image tensor and produces the
// penultimate-layer feature vector (1280 dimensions for MobileNetV2).
type ONNXExtractor struct {
	session    *ort.AdvancedSession
	dimensions int
	cache      *FeatureCache
	// Pre-allocated tensors for Run(); we update input data and read output.
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	mu           sync.Mutex
}

// NewONNXExtractor creates an ONNX extractor. InitializeEnvironment is called if not already done.
func NewONNXExtractor(modelPath string, dimensions, cacheSize int) (*ONNXExtractor, error) {
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
	}

	inputData := make([]float32, inputSize*inputSize*3)
	inputTensor, err := ort.NewTensor(ort.NewShape(1, inputSize, inputSize, 3), inputData)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	outputData := make([]float32, dimensions)
	outputTensor, err := ort.NewTensor(ort.NewShape(1, int64(dimensions)), outputData)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{"input"},
		[]string{"features"},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		nil,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &ONNXExtractor{
		session:      session,
		dimensions:   dimensions,
		cache:        NewFeatureCache(cacheSize),
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

// Extract returns the feature vector for the image, using the content cache
// when available.
func (e *ONNXExtractor) Extract(ctx context.Context, imageBytes []byte) ([]float32, error) {
	key := ContentKey(imageBytes)
	if cached, ok := e.cache.Get(key); ok {
		return cached, nil
	}

	img, err := DecodeImage(imageBytes)
	if err != nil {
		return nil, err
	}
	pixels := Preprocess(img)

	e.mu.Lock()
	defer e.mu.Unlock()

	copy(e.inputTensor.GetData(), pixels)
	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	outputData := e.outputTensor.GetData()
	features := make([]float32, e.dimensions)
	copy(features, outputData[:e.dimensions])

	vector.NormalizeL2(features)
	e.cache.Set(key, features)
	return features, nil
}

// Dimensions returns the feature vector dimension.
func (e *ONNXExtractor) Dimensions() int {
	return e.dimensions
}

// Close destroys the session and tensors.
func (e *ONNXExtractor) Close() error {
	var err error
	if e.session != nil {
		err = e.session.Destroy()
		e.session = nil
	}
	if e.inputTensor != nil {
		_ = e.inputTensor.Destroy()
		e.inputTensor = nil
	}
	if e.outputTensor != nil {
		_ = e.outputTensor.Destroy()
		e.outputTensor = nil
	}
	return err
}
