package classify

import "strings"

const maxUpcycleIdeas = 6

// UpcycleIdeas returns rule-based upcycling suggestions for a second-hand
// (mitumba) garment, tailored to the Kenyan context.
func UpcycleIdeas(category, material, color, style string) []string {
	var ideas []string

	materialLower := strings.ToLower(material)
	categoryLower := strings.ToLower(category)

	if strings.Contains(materialLower, "cotton") || strings.Contains(materialLower, "kitenge") || strings.Contains(materialLower, "ankara") {
		ideas = append(ideas,
			"Add contrasting kitenge or ankara patches for cultural flair",
			"Tie-dye or re-dye to refresh faded areas",
			"Turn into a tote bag, headwrap or cushion cover if heavily worn",
		)
	}
	if strings.Contains(materialLower, "denim") || strings.Contains(categoryLower, "jeans") {
		ideas = append(ideas,
			"Distress knees and hems for modern streetwear vibe",
			"Patch with colorful African fabric prints",
			"Cut into high-waist shorts, denim skirt or bag",
		)
	}
	if strings.Contains(materialLower, "wool") || strings.Contains(categoryLower, "sweater") {
		ideas = append(ideas, "Felt and reshape into warm slippers, hat or bag")
	}

	colorLower := strings.ToLower(color)
	if strings.Contains(colorLower, "faded") || strings.Contains(colorLower, "worn") || strings.Contains(colorLower, "discolored") {
		ideas = append(ideas, "Re-dye with vibrant kitenge-inspired colors")
	}

	if strings.Contains(strings.ToLower(style), "traditional") ||
		strings.Contains(categoryLower, "kitenge") || strings.Contains(categoryLower, "kanga") || strings.Contains(categoryLower, "shuka") {
		ideas = append(ideas,
			"Layer with modern accessories for fusion look",
			"Add beads, cowrie shells or Maasai-inspired embroidery",
		)
	}
	switch categoryLower {
	case "shirt", "blouse", "dress":
		ideas = append(ideas,
			"Shorten into crop top or tunic style",
			"Add decorative buttons, zips or lace details",
		)
	}

	ideas = append(ideas,
		"Take to local fundi for resizing, zipper replacement or reinforcement",
		"Combine with other mitumba pieces for a unique layered outfit",
		"Sell or donate if upcycling isn't viable",
	)

	seen := make(map[string]bool)
	unique := make([]string, 0, maxUpcycleIdeas)
	for _, idea := range ideas {
		if seen[idea] {
			continue
		}
		seen[idea] = true
		unique = append(unique, idea)
		if len(unique) >= maxUpcycleIdeas {
			break
		}
	}
	return unique
}
