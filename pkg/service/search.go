// Package service runs the search pipeline end to end: query rewriting,
// source aggregation, deduplication, filtering, scoring and personalized
// ranking. The HTTP layer stays thin, everything interesting happens here.
package service

import (
	"context"

	"github.com/go-pkgz/lgr"

	"github.com/shopscope/shopscope/pkg/domain"
	"github.com/shopscope/shopscope/pkg/scoring"
)

// Aggregator fans a query out to the sources
type Aggregator interface {
	Aggregate(ctx context.Context, query string, filters domain.Filters, limit int) ([]domain.Item, map[string]error)
}

// Rewriter pre-processes free-form queries, optional
type Rewriter interface {
	Rewrite(ctx context.Context, query string) (string, error)
	ExtractFilters(ctx context.Context, query string) (domain.Filters, error)
}

// FeedbackManager records reactions and ranks results by learned preferences
type FeedbackManager interface {
	Record(ctx context.Context, ev domain.FeedbackEvent)
	Rank(ctx context.Context, items []domain.Item, session string) []domain.Item
	Profile(ctx context.Context, session string) *domain.PreferenceProfile
	Trending(ctx context.Context, limit int) ([]domain.TrendingEntry, error)
}

// Search coordinates one search request across all collaborators
type Search struct {
	aggregator Aggregator
	rewriter   Rewriter // nil when no LLM endpoint configured
	feedback   FeedbackManager

	prefs       *domain.UserPreferences // nil when no declared preferences
	priceRanges domain.PriceRanges

	maxResults    int
	viewRecordTop int
}

// Params holds search service dependencies and settings
type Params struct {
	Aggregator    Aggregator
	Rewriter      Rewriter
	Feedback      FeedbackManager
	Preferences   *domain.UserPreferences
	PriceRanges   domain.PriceRanges
	MaxResults    int
	ViewRecordTop int
}

// NewSearch creates the search service
func NewSearch(p Params) *Search {
	s := &Search{
		aggregator:    p.Aggregator,
		rewriter:      p.Rewriter,
		feedback:      p.Feedback,
		prefs:         p.Preferences,
		priceRanges:   p.PriceRanges,
		maxResults:    p.MaxResults,
		viewRecordTop: p.ViewRecordTop,
	}
	if s.maxResults <= 0 {
		s.maxResults = 50
	}
	if s.priceRanges == nil {
		s.priceRanges = domain.DefaultPriceRanges()
	}
	return s
}

// Result is what one search produces
type Result struct {
	Items        []domain.Item    `json:"items"`
	Query        string           `json:"query"`
	SearchTerms  string           `json:"search_terms"` // after rewriting
	SourceErrors map[string]error `json:"-"`
}

// Run executes the full pipeline for one query. Source failures degrade the
// result instead of failing it; they are reported in Result.SourceErrors.
func (s *Search) Run(ctx context.Context, query string, filters domain.Filters, session string) (*Result, error) {
	terms := query

	// query rewriting is best effort, the raw query works without it
	if s.rewriter != nil {
		if rewritten, err := s.rewriter.Rewrite(ctx, query); err != nil {
			lgr.Printf("[WARN] query rewrite failed for %q: %v", query, err)
		} else {
			lgr.Printf("[DEBUG] rewrote query %q to %q", query, rewritten)
			terms = rewritten
		}

		if extracted, err := s.rewriter.ExtractFilters(ctx, query); err != nil {
			lgr.Printf("[WARN] filter extraction failed for %q: %v", query, err)
		} else {
			// explicit filters win over extracted ones
			filters = filters.Merge(extracted)
		}
	}

	items, srcErrs := s.aggregator.Aggregate(ctx, terms, filters, 0)

	items = scoring.DedupeBySignature(items)
	items = scoring.Apply(items, filters)
	if s.prefs != nil {
		items = scoring.ByPreferences(items, s.prefs, s.priceRanges)
	}
	items = scoring.Relevance(items, terms)
	items = s.feedback.Rank(ctx, items, session)

	if len(items) > s.maxResults {
		items = items[:s.maxResults]
	}

	s.recordViews(ctx, items, session, query)

	return &Result{Items: items, Query: query, SearchTerms: terms, SourceErrors: srcErrs}, nil
}

// recordViews stores view feedback for the top returned items so impressions
// feed the preference profile
func (s *Search) recordViews(ctx context.Context, items []domain.Item, session, query string) {
	if session == "" || s.viewRecordTop <= 0 {
		return
	}
	top := s.viewRecordTop
	if top > len(items) {
		top = len(items)
	}
	for i := 0; i < top; i++ {
		s.feedback.Record(ctx, domain.NewFeedbackEvent(&items[i], domain.FeedbackView, session, query))
	}
}

// Feedback records an explicit user reaction. Always acks, storage problems
// are logged inside the manager.
func (s *Search) Feedback(ctx context.Context, item *domain.Item, kind domain.FeedbackKind, session, query string) {
	s.feedback.Record(ctx, domain.NewFeedbackEvent(item, kind, session, query))
}

// Trending returns the currently most engaged items
func (s *Search) Trending(ctx context.Context, limit int) ([]domain.TrendingEntry, error) {
	return s.feedback.Trending(ctx, limit)
}

// Profile returns the learned preference profile for a session
func (s *Search) Profile(ctx context.Context, session string) *domain.PreferenceProfile {
	return s.feedback.Profile(ctx, session)
}

// Recommendations materializes trending entries as items and ranks them for
// the session. Without a session this is plain trending order.
func (s *Search) Recommendations(ctx context.Context, session string, limit int) ([]domain.Item, error) {
	entries, err := s.feedback.Trending(ctx, limit)
	if err != nil {
		return nil, err
	}

	items := make([]domain.Item, 0, len(entries))
	for _, e := range entries {
		rel := e.TrendingScore() / 100
		if rel > 1 {
			rel = 1
		}
		if rel < 0 {
			rel = 0
		}
		items = append(items, domain.Item{
			Title:          e.Title,
			URL:            e.URL,
			Site:           e.Site,
			RelevanceScore: &rel,
		})
	}

	items = s.feedback.Rank(ctx, items, session)
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}
