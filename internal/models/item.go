// Package models defines core data structures for wardrobe items, uploads, and search results.
package models

import "time"

// WardrobeItem represents a single garment owned by a user.
// The embedding is set once at upload time and never mutated afterwards.
type WardrobeItem struct {
	ID             string    `json:"id" db:"id"`
	UserID         string    `json:"user_id" db:"user_id"`
	ImageURL       string    `json:"image_url,omitempty" db:"image_url"`
	Category       string    `json:"category" db:"category"`
	Color          string    `json:"color" db:"color"`
	Style          string    `json:"style" db:"style"`
	Material       string    `json:"material" db:"material"`
	Seasonality    string    `json:"seasonality" db:"seasonality"`
	IsMitumba      bool      `json:"is_mitumba" db:"is_mitumba"`
	SourcePlatform string    `json:"source_platform,omitempty" db:"source_platform"`
	UpcycleIdeas   []string  `json:"upcycle_suggestions,omitempty" db:"-"`
	Embedding      []float32 `json:"-" db:"-"`
	WearCount      int       `json:"wear_count" db:"wear_count"`
	LastWorn       *time.Time `json:"last_worn,omitempty" db:"last_worn"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// ItemInput is the input for creating a wardrobe item from an uploaded image.
type ItemInput struct {
	UserID         string `json:"user_id"`
	ImageBytes     []byte `json:"-"`
	ImageURL       string `json:"image_url,omitempty"`
	IsMitumba      bool   `json:"is_mitumba,omitempty"`
	SourcePlatform string `json:"source_platform,omitempty"`
}

// ItemSummary is the lightweight projection returned from item listings.
// The embedding is included so the per-user index can be built without a
// second round trip per item.
type ItemSummary struct {
	ID        string    `json:"id"`
	Category  string    `json:"category"`
	Color     string    `json:"color"`
	Style     string    `json:"style"`
	IsMitumba bool      `json:"is_mitumba"`
	Embedding []float32 `json:"-"`
}
