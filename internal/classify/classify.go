// Package classify maps image-model label predictions and pixel statistics to
// garment metadata (category, color, style, material, seasonality).
package classify

import (
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
)

// Prediction is a single label prediction from the classification model.
type Prediction struct {
	Label       string
	Probability float64
}

// Classification is the garment metadata inferred for an uploaded image.
type Classification struct {
	Category    string
	Color       string
	Style       string
	Material    string
	Seasonality string
	Confidence  float64
}

// categoryKeywords maps fashion categories to model label keywords. Order
// matters only within a prediction: the highest-probability matching label wins.
var categoryKeywords = map[string][]string{
	"shirt":     {"jersey", "t-shirt", "shirt", "polo", "blouse", "sweatshirt"},
	"trousers":  {"trousers", "jeans", "pants", "slacks", "leggings", "cargo"},
	"dress":     {"dress", "gown", "frock", "sundress", "maxi"},
	"suit":      {"suit", "tuxedo"},
	"jacket":    {"blazer", "jacket", "coat", "military uniform"},
	"shoes":     {"sneaker", "shoe", "boot", "sandal", "loafer", "heel"},
	"jewellery": {"necklace", "earring", "bracelet", "ring", "bangle", "anklet"},
	"bag":       {"handbag", "purse", "backpack", "clutch"},
}

// checkOrder fixes the category evaluation order so that e.g. "suit" is
// checked before "jacket" for labels matching both.
var checkOrder = []string{"shirt", "trousers", "dress", "suit", "jacket", "shoes", "jewellery", "bag"}

// MapLabel returns the fashion category for a single model label, or "other".
func MapLabel(label string) string {
	label = strings.ToLower(label)
	for _, category := range checkOrder {
		for _, kw := range categoryKeywords[category] {
			if strings.Contains(label, kw) {
				return category
			}
		}
	}
	return "other"
}

// FromPredictions picks the best fashion category across the predictions:
// the matching label with the highest probability wins. Falls back to "other"
// with zero confidence when nothing matches.
func FromPredictions(preds []Prediction) (category string, confidence float64) {
	category = "other"
	for _, p := range preds {
		if p.Probability <= confidence {
			continue
		}
		if c := MapLabel(p.Label); c != "other" {
			category = c
			confidence = p.Probability
		}
	}
	return category, confidence
}

// DominantColor returns the hex code of the image's average color. The image
// is shrunk to a single pixel, which averages all pixels cheaply.
func DominantColor(img image.Image) string {
	if img == nil || img.Bounds().Empty() {
		return "#95a5a6"
	}
	one := imaging.Resize(img, 1, 1, imaging.Box)
	r, g, b, _ := one.At(0, 0).RGBA()
	return fmt.Sprintf("#%02x%02x%02x", uint8(r>>8), uint8(g>>8), uint8(b>>8))
}

// Classify derives full garment metadata from predictions and the decoded image.
func Classify(preds []Prediction, img image.Image) Classification {
	category, confidence := FromPredictions(preds)

	style := "casual"
	material := "cotton"
	if category == "suit" || category == "jacket" {
		style = "formal"
		material = "wool"
	}

	color := DominantColor(img)
	seasonality := "cool"
	if isWarmColor(color) {
		seasonality = "warm"
	}

	return Classification{
		Category:    category,
		Color:       color,
		Style:       style,
		Material:    material,
		Seasonality: seasonality,
		Confidence:  confidence,
	}
}

// isWarmColor reports whether the hex color leans warm (red-dominant).
func isWarmColor(hex string) bool {
	var r, g, b int
	if _, err := fmt.Sscanf(hex, "#%02x%02x%02x", &r, &g, &b); err != nil {
		return false
	}
	return r > g && r > b
}
