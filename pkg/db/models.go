package db

import (
	"time"

	"github.com/shopscope/shopscope/pkg/domain"
)

// FeedbackRecord is the database representation of a feedback event
type FeedbackRecord struct {
	ID            int64     `db:"id"`
	ItemID        string    `db:"item_id"`
	ItemURL       string    `db:"item_url"`
	ItemTitle     string    `db:"item_title"`
	FeedbackType  string    `db:"feedback_type"`
	FeedbackValue float64   `db:"feedback_value"`
	SearchQuery   string    `db:"search_query"`
	SessionID     string    `db:"session_id"`
	SourceSite    string    `db:"source_site"`
	Category      string    `db:"category"`
	Brand         string    `db:"brand"`
	Price         *float64  `db:"price"`
	CreatedAt     time.Time `db:"created_at"`
}

// ToDomain converts the record to a domain feedback event
func (r *FeedbackRecord) ToDomain() domain.FeedbackEvent {
	return domain.FeedbackEvent{
		ItemID:    r.ItemID,
		ItemURL:   r.ItemURL,
		ItemTitle: r.ItemTitle,
		Kind:      domain.FeedbackKind(r.FeedbackType),
		Weight:    r.FeedbackValue,
		Query:     r.SearchQuery,
		Session:   r.SessionID,
		Timestamp: r.CreatedAt,
		Site:      r.SourceSite,
		Category:  r.Category,
		Brand:     r.Brand,
		Price:     r.Price,
	}
}

// recordFromEvent converts a domain feedback event to its database form
func recordFromEvent(ev domain.FeedbackEvent) FeedbackRecord {
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return FeedbackRecord{
		ItemID:        ev.ItemID,
		ItemURL:       ev.ItemURL,
		ItemTitle:     ev.ItemTitle,
		FeedbackType:  string(ev.Kind),
		FeedbackValue: ev.Weight,
		SearchQuery:   ev.Query,
		SessionID:     ev.Session,
		SourceSite:    ev.Site,
		Category:      ev.Category,
		Brand:         ev.Brand,
		Price:         ev.Price,
		CreatedAt:     ts,
	}
}

// FeedbackStats summarizes stored feedback by type
type FeedbackStats struct {
	Total    int            `json:"total"`
	Sessions int            `json:"sessions"`
	ByType   map[string]int `json:"by_type"`
}
