package benchmark

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/mavazi/kabati/internal/embedding"
	"github.com/mavazi/kabati/internal/vector"
)

func benchIndex(b *testing.B, n, dims int) *vector.Index {
	ids := make([]string, n)
	vecs := make([][]float32, n)
	for i := 0; i < n; i++ {
		ids[i] = fmt.Sprintf("item-%d", i)
		v := make([]float32, dims)
		v[i%dims] = 1
		v[(i+1)%dims] = float32(i%7) / 7
		vecs[i] = v
	}
	idx, err := vector.Build(dims, ids, vecs)
	if err != nil {
		b.Fatal(err)
	}
	return idx
}

func BenchmarkIndexBuild(b *testing.B) {
	const n, dims = 1000, 1280
	ids := make([]string, n)
	vecs := make([][]float32, n)
	for i := 0; i < n; i++ {
		ids[i] = fmt.Sprintf("item-%d", i)
		v := make([]float32, dims)
		v[i%dims] = 1
		vecs[i] = v
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = vector.Build(dims, ids, vecs)
	}
}

func BenchmarkIndexSearch(b *testing.B) {
	const dims = 1280
	idx := benchIndex(b, 1000, dims)
	query := make([]float32, dims)
	query[0] = 1
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.Search(query, 10)
	}
}

func BenchmarkMockExtractor_Extract(b *testing.B) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 4), uint8(y * 4), 120, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		b.Fatal(err)
	}
	photo := buf.Bytes()

	e := embedding.NewMockExtractor(1280)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Extract(ctx, photo)
	}
}
