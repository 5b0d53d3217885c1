package delta

import (
	"strings"
	"unicode"

	"github.com/coverhub/geostaging/internal/domain"
)

// Slug-prefix matching of removed entities against added ones. A heuristic
// hint for the reviewer only; nothing is applied from it automatically.

const renameSimilarityThreshold = 0.6

func slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteRune('-')
			lastDash = true
		}
	}

	return strings.TrimSuffix(b.String(), "-")
}

func slugSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}

	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	common := 0
	for common < n && a[common] == b[common] {
		common++
	}

	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}

	return float64(common) / float64(longest)
}

func renameSuggestions(level string, removed []domain.EntityRef, added []domain.EntityRef) []domain.RenameSuggestion {
	var suggestions []domain.RenameSuggestion
	for _, r := range removed {
		removedSlug := slugify(r.Name)

		best := domain.RenameSuggestion{Similarity: 0}
		for _, a := range added {
			sim := slugSimilarity(removedSlug, slugify(a.Name))
			if sim > best.Similarity {
				best = domain.RenameSuggestion{
					Level:             level,
					RemovedExternalID: r.ExternalID,
					RemovedName:       r.Name,
					AddedExternalID:   a.ExternalID,
					AddedName:         a.Name,
					Similarity:        sim,
				}
			}
		}

		if best.Similarity >= renameSimilarityThreshold {
			suggestions = append(suggestions, best)
		}
	}

	return suggestions
}
