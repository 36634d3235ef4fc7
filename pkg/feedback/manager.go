// Package feedback records user reactions to listings and turns the
// accumulated history into ranking adjustments. Recording is best effort,
// a broken feedback store never fails a search.
package feedback

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/shopscope/shopscope/pkg/domain"
)

// adjustment caps per profile dimension, strong history in one direction
// can only move a score so far
const (
	maxSiteAdjust     = 0.3
	maxCategoryAdjust = 0.3
	maxBrandAdjust    = 0.2

	adjustPerPoint = 0.1 // score shift per accumulated weight point
)

// Store is the persistence the manager needs
type Store interface {
	UpsertFeedback(ctx context.Context, ev domain.FeedbackEvent) error
	GetSessionFeedback(ctx context.Context, session string, since time.Time) ([]domain.FeedbackEvent, error)
	GetTrending(ctx context.Context, since time.Time, limit int) ([]domain.TrendingEntry, error)
}

// Manager builds preference profiles from stored feedback and applies
// them to search results
type Manager struct {
	store Store

	profileWindow  time.Duration
	trendingWindow time.Duration
}

// NewManager creates a feedback manager. Window days below one fall back
// to 30 days for profiles and 7 for trending.
func NewManager(store Store, profileWindowDays, trendingWindowDays int) *Manager {
	if profileWindowDays < 1 {
		profileWindowDays = 30
	}
	if trendingWindowDays < 1 {
		trendingWindowDays = 7
	}
	return &Manager{
		store:          store,
		profileWindow:  time.Duration(profileWindowDays) * 24 * time.Hour,
		trendingWindow: time.Duration(trendingWindowDays) * 24 * time.Hour,
	}
}

// Record stores one feedback event. Storage failures are logged and
// swallowed so interaction tracking never breaks the caller.
func (m *Manager) Record(ctx context.Context, ev domain.FeedbackEvent) {
	if !ev.Kind.Valid() {
		lgr.Printf("[WARN] dropping feedback with unknown type %q for item %s", ev.Kind, ev.ItemID)
		return
	}
	if err := m.store.UpsertFeedback(ctx, ev); err != nil {
		lgr.Printf("[WARN] failed to record %s feedback for item %s: %v", ev.Kind, ev.ItemID, err)
	}
}

// Profile accumulates the session's feedback within the profile window into
// per-site, per-category and per-brand net weights. Anonymous sessions and
// store failures yield an empty profile.
func (m *Manager) Profile(ctx context.Context, session string) *domain.PreferenceProfile {
	profile := domain.NewPreferenceProfile()
	if session == "" {
		return profile
	}

	events, err := m.store.GetSessionFeedback(ctx, session, time.Now().Add(-m.profileWindow))
	if err != nil {
		lgr.Printf("[WARN] failed to load feedback for session %s: %v", session, err)
		return profile
	}

	for _, ev := range events {
		profile.Kinds[ev.Kind]++
		if ev.Site != "" {
			profile.Sites[strings.ToLower(ev.Site)] += ev.Weight
		}
		if ev.Category != "" {
			profile.Categories[strings.ToLower(ev.Category)] += ev.Weight
		}
		if ev.Brand != "" {
			profile.Brands[strings.ToLower(ev.Brand)] += ev.Weight
		}
	}
	return profile
}

// PersonalizedScore adjusts the item's relevance by the profile's accumulated
// weights for its site, category and brand. Positive history boosts, negative
// history penalizes, each dimension capped. The result stays within [0, 1].
func (m *Manager) PersonalizedScore(item *domain.Item, profile *domain.PreferenceProfile) float64 {
	score := item.Relevance()
	if profile == nil || profile.Empty() {
		return score
	}

	score += dimensionAdjust(profile.Sites[strings.ToLower(item.Site)], maxSiteAdjust)
	score += dimensionAdjust(profile.Categories[strings.ToLower(item.Category)], maxCategoryAdjust)
	score += dimensionAdjust(profile.Brands[strings.ToLower(item.Brand)], maxBrandAdjust)

	switch {
	case score < 0:
		return 0
	case score > 1:
		return 1
	}
	return score
}

// dimensionAdjust converts a net feedback weight into a capped score shift,
// symmetric for positive and negative history
func dimensionAdjust(net, maxAdjust float64) float64 {
	if net == 0 {
		return 0
	}
	adjust := net * adjustPerPoint
	if adjust > maxAdjust {
		return maxAdjust
	}
	if adjust < -maxAdjust {
		return -maxAdjust
	}
	return adjust
}

// Rank reorders items by personalized score for the session, best first.
// The profile is loaded once per call. Anonymous sessions sort by plain
// relevance. The items are updated in place with their preference scores.
func (m *Manager) Rank(ctx context.Context, items []domain.Item, session string) []domain.Item {
	profile := m.Profile(ctx, session)

	for i := range items {
		score := m.PersonalizedScore(&items[i], profile)
		items[i].PreferenceScore = &score
	}

	sort.SliceStable(items, func(i, j int) bool {
		return *items[i].PreferenceScore > *items[j].PreferenceScore
	})
	return items
}

// Trending returns the most engaged items within the trending window
func (m *Manager) Trending(ctx context.Context, limit int) ([]domain.TrendingEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	return m.store.GetTrending(ctx, time.Now().Add(-m.trendingWindow), limit)
}
