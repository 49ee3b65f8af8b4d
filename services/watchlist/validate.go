package watchlist

import (
	"strings"

	"reelist/models"
)

const maxTitleLength = 255

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", models.Validationf("title is required")
	}
	if len(title) > maxTitleLength {
		return "", models.Validationf("title must be at most %d characters", maxTitleLength)
	}
	return title, nil
}

func validateYear(year string) (string, error) {
	year = strings.TrimSpace(year)
	if year == "" {
		return "", nil
	}
	if len(year) != 4 {
		return "", models.Validationf("year must be a 4-digit string, e.g. \"1999\"")
	}
	for _, r := range year {
		if r < '0' || r > '9' {
			return "", models.Validationf("year must be a 4-digit string, e.g. \"1999\"")
		}
	}
	return year, nil
}

func validateRating(rating *int) error {
	if rating == nil {
		return nil
	}
	if *rating < models.RatingMin || *rating > models.RatingMax {
		return models.Validationf("rating must be between %d and %d", models.RatingMin, models.RatingMax)
	}
	return nil
}

// validateRatingStatus enforces the invariant that a rating only exists on a
// watched entry. Rating bounds are checked first so an out-of-range value is
// reported as such regardless of status.
func validateRatingStatus(rating *int, status models.Status) error {
	if err := validateRating(rating); err != nil {
		return err
	}
	if rating != nil && status != models.StatusWatched {
		return models.Validationf("rating requires status %q", models.StatusWatched)
	}
	return nil
}

func validateStatus(status models.Status) error {
	if !status.Valid() {
		return models.Validationf("status must be %q or %q", models.StatusToWatch, models.StatusWatched)
	}
	return nil
}

// ValidateFilter normalizes a list filter, applying paging defaults and
// rejecting unknown orderings.
func ValidateFilter(f models.ListFilter) (models.ListFilter, error) {
	if f.Order == "" {
		f.Order = models.OrderNewest
	}
	if !models.AllowedOrders[f.Order] {
		return f, models.Validationf("order must be one of -created_at, title, rating, -rating")
	}
	if f.Status != nil {
		if err := validateStatus(*f.Status); err != nil {
			return f, err
		}
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 10
	}
	if f.PageSize > 100 {
		f.PageSize = 100
	}
	return f, nil
}
