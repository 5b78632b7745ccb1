package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Category is a user-defined label notes can be filed under.
// Categories are created only by explicit user action.
type Category struct {
	ID         uuid.UUID  `json:"id"`
	OwnerID    uuid.UUID  `json:"owner_id"`
	Name       string     `json:"name"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

// NormalizeCategoryName folds a category name for comparison.
func NormalizeCategoryName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// FindCategory returns the category whose name matches name after
// normalization, or nil.
func FindCategory(categories []Category, name string) *Category {
	want := NormalizeCategoryName(name)
	if want == "" {
		return nil
	}
	for i := range categories {
		if NormalizeCategoryName(categories[i].Name) == want {
			return &categories[i]
		}
	}
	return nil
}

// CategoryNames returns the names of the given categories in order.
func CategoryNames(categories []Category) []string {
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = c.Name
	}
	return names
}
