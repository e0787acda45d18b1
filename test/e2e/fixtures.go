// Package e2e exercises the full HTTP API; this file builds synthetic garment
// photos for the tests.
package e2e

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
)

// Garment describes a synthetic wardrobe photo fixture.
type Garment struct {
	Name      string
	Base      color.RGBA
	Accent    color.RGBA
	IsMitumba bool
}

// StandardWardrobe returns a small fixture wardrobe with visually distinct
// garments. Each garment renders to a stable byte sequence, so the same
// fixture always embeds to the same vector.
func StandardWardrobe() []Garment {
	return []Garment{
		{Name: "red-dress", Base: color.RGBA{200, 30, 30, 255}, Accent: color.RGBA{240, 200, 200, 255}},
		{Name: "blue-jeans", Base: color.RGBA{30, 40, 140, 255}, Accent: color.RGBA{90, 110, 200, 255}, IsMitumba: true},
		{Name: "green-shirt", Base: color.RGBA{30, 160, 60, 255}, Accent: color.RGBA{200, 240, 210, 255}},
		{Name: "yellow-jacket", Base: color.RGBA{220, 200, 30, 255}, Accent: color.RGBA{120, 110, 20, 255}, IsMitumba: true},
		{Name: "black-shoes", Base: color.RGBA{20, 20, 20, 255}, Accent: color.RGBA{90, 90, 90, 255}},
	}
}

// Render produces the garment's PNG bytes: a base field with a striped accent
// band so distinct garments never collapse to the same pixels.
func (g Garment) Render() ([]byte, error) {
	const size = 32
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if y >= size/3 && y < size/2 && x%4 < 2 {
				img.Set(x, y, g.Accent)
			} else {
				img.Set(x, y, g.Base)
			}
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("render %s: %w", g.Name, err)
	}
	return buf.Bytes(), nil
}
