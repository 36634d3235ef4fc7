package db

import (
	"context"
	"fmt"
	"time"

	"github.com/go-pkgz/repeater/v2"

	"github.com/shopscope/shopscope/pkg/domain"
)

// feedback-related database operations

// UpsertFeedback stores a feedback event, replacing an earlier event of the
// same type from the same session for the same item. SQLite lock errors are
// retried with backoff, anything else fails immediately.
func (db *DB) UpsertFeedback(ctx context.Context, ev domain.FeedbackEvent) error {
	if !ev.Kind.Valid() {
		return fmt.Errorf("invalid feedback type %q", ev.Kind)
	}
	rec := recordFromEvent(ev)

	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))
	return retrier.Do(ctx, func() error {
		query := `
			INSERT OR REPLACE INTO user_feedback (
				item_id, item_url, item_title, feedback_type, feedback_value,
				search_query, session_id, source_site, category, brand, price, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

		_, err := db.conn.ExecContext(ctx, query,
			rec.ItemID, rec.ItemURL, rec.ItemTitle, rec.FeedbackType, rec.FeedbackValue,
			rec.SearchQuery, rec.SessionID, rec.SourceSite, rec.Category, rec.Brand,
			rec.Price, rec.CreatedAt,
		)
		if err != nil {
			if isLockError(err) {
				return err // repeater will retry this
			}
			return &criticalError{err: fmt.Errorf("upsert feedback: %w", err)}
		}
		return nil
	})
}

// GetSessionFeedback returns all feedback events for a session recorded at or
// after the cutoff, newest first
func (db *DB) GetSessionFeedback(ctx context.Context, session string, since time.Time) ([]domain.FeedbackEvent, error) {
	query := `
		SELECT * FROM user_feedback
		WHERE session_id = ? AND created_at >= ?
		ORDER BY created_at DESC`

	var records []FeedbackRecord
	if err := db.conn.SelectContext(ctx, &records, query, session, since); err != nil {
		return nil, fmt.Errorf("get session feedback: %w", err)
	}

	events := make([]domain.FeedbackEvent, 0, len(records))
	for i := range records {
		events = append(events, records[i].ToDomain())
	}
	return events, nil
}

// GetItemFeedback returns all feedback events stored for one item
func (db *DB) GetItemFeedback(ctx context.Context, itemID string) ([]domain.FeedbackEvent, error) {
	query := `
		SELECT * FROM user_feedback
		WHERE item_id = ?
		ORDER BY created_at DESC`

	var records []FeedbackRecord
	if err := db.conn.SelectContext(ctx, &records, query, itemID); err != nil {
		return nil, fmt.Errorf("get item feedback: %w", err)
	}

	events := make([]domain.FeedbackEvent, 0, len(records))
	for i := range records {
		events = append(events, records[i].ToDomain())
	}
	return events, nil
}

// GetTrending aggregates positive feedback (likes and saves) recorded since
// the cutoff, most engaged items first
func (db *DB) GetTrending(ctx context.Context, since time.Time, limit int) ([]domain.TrendingEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT item_id, MAX(item_title) AS title, MAX(item_url) AS url,
		       MAX(source_site) AS site,
		       COUNT(*) AS cnt, AVG(feedback_value) AS avg_weight
		FROM user_feedback
		WHERE feedback_type IN ('like', 'save') AND created_at >= ?
		GROUP BY item_id
		ORDER BY cnt DESC, avg_weight DESC
		LIMIT ?`

	rows := []struct {
		ItemID    string  `db:"item_id"`
		Title     string  `db:"title"`
		URL       string  `db:"url"`
		Site      string  `db:"site"`
		Count     int     `db:"cnt"`
		AvgWeight float64 `db:"avg_weight"`
	}{}
	if err := db.conn.SelectContext(ctx, &rows, query, since, limit); err != nil {
		return nil, fmt.Errorf("get trending: %w", err)
	}

	entries := make([]domain.TrendingEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, domain.TrendingEntry{
			ItemID:    r.ItemID,
			Title:     r.Title,
			URL:       r.URL,
			Site:      r.Site,
			Count:     r.Count,
			AvgWeight: r.AvgWeight,
		})
	}
	return entries, nil
}

// GetFeedbackStats returns overall feedback counts by type plus the number
// of distinct sessions seen
func (db *DB) GetFeedbackStats(ctx context.Context) (*FeedbackStats, error) {
	stats := &FeedbackStats{ByType: make(map[string]int)}

	rows := []struct {
		FeedbackType string `db:"feedback_type"`
		Count        int    `db:"cnt"`
	}{}
	query := `SELECT feedback_type, COUNT(*) AS cnt FROM user_feedback GROUP BY feedback_type`
	if err := db.conn.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("get feedback stats: %w", err)
	}
	for _, r := range rows {
		stats.ByType[r.FeedbackType] = r.Count
		stats.Total += r.Count
	}

	var sessions int
	if err := db.conn.GetContext(ctx, &sessions,
		`SELECT COUNT(DISTINCT session_id) FROM user_feedback WHERE session_id != ''`); err != nil {
		return nil, fmt.Errorf("count sessions: %w", err)
	}
	stats.Sessions = sessions

	return stats, nil
}
