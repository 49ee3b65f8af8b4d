package watchlist

import (
	"context"
	"errors"

	"github.com/sourcegraph/conc/pool"

	"reelist/models"
)

// bulkWorkers bounds concurrent catalog lookups during a bulk add.
const bulkWorkers = 4

// BulkItemResult reports the outcome for one id of a bulk add.
type BulkItemResult struct {
	TMDBID  int    `json:"tmdbId"`
	OK      bool   `json:"ok"`
	Created bool   `json:"created"`
	ID      int64  `json:"id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// BulkSummary aggregates a bulk add outcome.
type BulkSummary struct {
	Requested       int `json:"requested"`
	Created         int `json:"created"`
	SkippedOrFailed int `json:"skippedOrFailed"`
}

// BulkResult is the full response of a bulk add.
type BulkResult struct {
	Summary BulkSummary      `json:"summary"`
	Results []BulkItemResult `json:"results"`
}

// BulkAddFromCatalog adds several catalog titles at once. Lookups run on a
// bounded worker pool; every insert is its own transaction, so one failing
// id cannot half-write the others. Results keep the request order.
func (s *Service) BulkAddFromCatalog(ctx context.Context, owner string, tmdbIDs []int, opts AddOptions) (*BulkResult, error) {
	if len(tmdbIDs) == 0 {
		return nil, models.Validationf("tmdbIds must be a non-empty array of integers")
	}
	if err := validateRatingStatus(opts.Rating, normStatus(opts.Status)); err != nil {
		return nil, err
	}

	results := make([]BulkItemResult, len(tmdbIDs))

	p := pool.New().WithMaxGoroutines(bulkWorkers)
	for i, id := range tmdbIDs {
		p.Go(func() {
			results[i] = s.bulkAddOne(ctx, owner, id, opts)
		})
	}
	p.Wait()

	summary := BulkSummary{Requested: len(tmdbIDs)}
	for _, r := range results {
		if r.OK && r.Created {
			summary.Created++
		} else {
			summary.SkippedOrFailed++
		}
	}

	return &BulkResult{Summary: summary, Results: results}, nil
}

func (s *Service) bulkAddOne(ctx context.Context, owner string, tmdbID int, opts AddOptions) BulkItemResult {
	if tmdbID <= 0 {
		return BulkItemResult{TMDBID: tmdbID, Error: "tmdbId must be a positive integer"}
	}

	m, err := s.AddFromCatalog(ctx, owner, tmdbID, opts)
	if err != nil {
		var domainErr *models.Error
		if errors.As(err, &domainErr) && domainErr.Kind == models.KindDuplicate {
			// Already on the list counts as ok but not created.
			return BulkItemResult{TMDBID: tmdbID, OK: true, Created: false}
		}
		s.logger.WithError(err).WithField("tmdb_id", tmdbID).Warn("Bulk add failed for one title")
		return BulkItemResult{TMDBID: tmdbID, Error: models.MessageOf(err)}
	}

	return BulkItemResult{TMDBID: tmdbID, OK: true, Created: true, ID: m.ID}
}

func normStatus(s models.Status) models.Status {
	if s == "" {
		return models.StatusToWatch
	}
	return s
}
