package pipeline

import (
	"time"

	"github.com/belens/belens-api/internal/nutrition"
)

// Record is the persisted unit of work: one prediction outcome with its
// provenance. Once written it is immutable; the store is append-only.
type Record struct {
	UserID     string
	UserEmail  string
	Prediction string
	Confidence float64
	FileURL    string
	Nutrition  *nutrition.Facts // nil when the reference table has no row
	CreatedAt  time.Time
}

// Fields returns the document representation used both for persistence and
// for the HTTP response body. An absent nutrition row becomes an empty map;
// anonymous records omit the principal fields.
func (r *Record) Fields() map[string]any {
	gizi := map[string]any{}
	if r.Nutrition != nil {
		gizi = r.Nutrition.Fields()
	}

	fields := map[string]any{
		"prediction": r.Prediction,
		"confidence": r.Confidence,
		"file_url":   r.FileURL,
		"gizi":       gizi,
		"timestamp":  r.CreatedAt.UTC().Format(time.RFC3339),
	}
	if r.UserID != "" {
		fields["user_id"] = r.UserID
		fields["user_email"] = r.UserEmail
	}
	return fields
}
