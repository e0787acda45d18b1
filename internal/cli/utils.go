// Package cli provides CLI output utilities for Kabati.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mavazi/kabati/internal/models"
)

// OutputFormat is the format for CLI output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// WriteSearchResults writes a similarity search response to w in the given
// format. Use OutputJSON for parseable output consumable by other apps.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	default:
		writeSearchResultsText(w, response)
		return nil
	}
}

func writeSearchResultsText(w io.Writer, response *models.SearchResponse) {
	fmt.Fprintf(w, "\nFound %d similar items in %dms\n\n", response.Total, response.QueryTime)
	for _, result := range response.Results {
		writeOneResult(w, result)
	}
	if response.AdvisoryHint != "" {
		fmt.Fprintf(w, "Hint: %s\n\n", response.AdvisoryHint)
	}
}

func writeOneResult(w io.Writer, result *models.SearchResult) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "Rank: %d | Score: %.4f\n", result.Rank, result.Score)
	fmt.Fprintf(w, "ID: %s\n", result.ItemID)
	fmt.Fprintf(w, "%s\n", DescribeItem(result.Category, result.Color, result.Style, result.Material))
	if result.IsMitumba {
		fmt.Fprintln(w, "Mitumba find")
	}
	if result.ImageURL != "" {
		fmt.Fprintf(w, "Image: %s\n", Truncate(result.ImageURL, 80))
	}
	fmt.Fprintln(w)
}

// WriteItems writes a wardrobe item listing to w in the given format.
func WriteItems(w io.Writer, items []*models.WardrobeItem, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}
	fmt.Fprintf(w, "\n%d wardrobe items\n\n", len(items))
	for _, item := range items {
		fmt.Fprintf(w, "%s  %s", item.ID, DescribeItem(item.Category, item.Color, item.Style, item.Material))
		if item.WearCount > 0 {
			fmt.Fprintf(w, "  worn %d times", item.WearCount)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)
	return nil
}

// PrintSearchResults prints search results to stdout in text format.
func PrintSearchResults(response *models.SearchResponse) {
	_ = WriteSearchResults(os.Stdout, response, OutputText)
}

// DescribeItem joins the non-empty metadata fields into a one-line label.
func DescribeItem(category, color, style, material string) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{color, material, style, category} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "(unclassified)"
	}
	return strings.Join(parts, " ")
}

// Truncate truncates s to maxLen and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
