package service

import (
	"math"

	"github.com/memo-edu/memo-api/internal/models"
)

// ResolveCoefficient returns the stream override when present, else the subject default, else 1.
func ResolveCoefficient(subject models.Subject, override *models.SubjectStream) float64 {
	if override != nil {
		return override.Coefficient
	}
	if subject.Coefficient != nil {
		return *subject.Coefficient
	}
	return 1
}

// ResolveCategory returns the stream category when set, else the subject category, else OTHER.
func ResolveCategory(subject models.Subject, override *models.SubjectStream) models.SubjectCategory {
	if override != nil && override.Category != nil && override.Category.Valid() {
		return *override.Category
	}
	if subject.Category != nil && subject.Category.Valid() {
		return *subject.Category
	}
	return models.CategoryOther
}

// listingCoefficient keeps a missing coefficient nil for subject listings.
func listingCoefficient(subject models.Subject, override *models.SubjectStream) *float64 {
	if override != nil {
		v := override.Coefficient
		return &v
	}
	return subject.Coefficient
}

// CompressDifficulty maps the 1-10 input scale onto the stored 1-5 scale: clamp(1, 5, ceil(x/2)).
func CompressDifficulty(input int) int {
	level := int(math.Ceil(float64(input) / 2))
	if level < 1 {
		return 1
	}
	if level > 5 {
		return 5
	}
	return level
}
