package service

import (
	"context"
	"strings"
	"time"

	"github.com/noah-isme/grievance-api/internal/models"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

// DefaultDuplicateWindow is how far back a repeat submission is looked for.
const DefaultDuplicateWindow = 24 * time.Hour

type duplicateFinder interface {
	FindRecentDuplicate(ctx context.Context, phone, normalizedTitle string, since time.Time) (*models.Grievance, error)
}

// DuplicateDetector refuses the same title from the same phone inside a trailing window.
// It is advisory: differently worded complaints pass through.
type DuplicateDetector struct {
	repo   duplicateFinder
	window time.Duration
	now    func() time.Time
}

// NewDuplicateDetector constructs the detector. A non-positive window falls back to 24 hours.
func NewDuplicateDetector(repo duplicateFinder, window time.Duration) *DuplicateDetector {
	if window <= 0 {
		window = DefaultDuplicateWindow
	}
	return &DuplicateDetector{repo: repo, window: window, now: time.Now}
}

// Window reports the configured look-back period.
func (d *DuplicateDetector) Window() time.Duration {
	return d.window
}

// Check returns the most recent matching grievance, or nil. window overrides the configured period when positive.
func (d *DuplicateDetector) Check(ctx context.Context, phone, title string, window time.Duration) (*models.Grievance, error) {
	if window <= 0 {
		window = d.window
	}
	normalized := NormalizeTitle(title)
	if normalized == "" || strings.TrimSpace(phone) == "" {
		return nil, nil
	}
	since := d.now().UTC().Add(-window)
	existing, err := d.repo.FindRecentDuplicate(ctx, strings.TrimSpace(phone), normalized, since)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to check for duplicate grievances")
	}
	return existing, nil
}

// NormalizeTitle is the comparison key for duplicate detection.
func NormalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

func duplicateError(existing *models.Grievance) *appErrors.Error {
	return appErrors.WithDetails(appErrors.ErrDuplicateDetected, map[string]interface{}{
		"existingId":      existing.ID,
		"referenceNumber": existing.ReferenceNumber,
		"createdAt":       existing.CreatedAt,
	})
}
