package feedback

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopscope/shopscope/pkg/domain"
)

type mockStore struct {
	events    []domain.FeedbackEvent
	trending  []domain.TrendingEntry
	upsertErr error
	loadErr   error

	upserted []domain.FeedbackEvent
}

func (m *mockStore) UpsertFeedback(_ context.Context, ev domain.FeedbackEvent) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserted = append(m.upserted, ev)
	return nil
}

func (m *mockStore) GetSessionFeedback(_ context.Context, session string, _ time.Time) ([]domain.FeedbackEvent, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	var res []domain.FeedbackEvent
	for _, ev := range m.events {
		if ev.Session == session {
			res = append(res, ev)
		}
	}
	return res, nil
}

func (m *mockStore) GetTrending(_ context.Context, _ time.Time, limit int) ([]domain.TrendingEntry, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if limit < len(m.trending) {
		return m.trending[:limit], nil
	}
	return m.trending, nil
}

func likeEvent(session, site, category, brand string) domain.FeedbackEvent {
	return domain.FeedbackEvent{
		ItemID:   "amazon_11111111",
		Kind:     domain.FeedbackLike,
		Weight:   domain.FeedbackLike.Weight(),
		Session:  session,
		Site:     site,
		Category: category,
		Brand:    brand,
	}
}

func TestRecordStoresEvent(t *testing.T) {
	store := &mockStore{}
	m := NewManager(store, 30, 7)

	m.Record(context.Background(), likeEvent("sess1", "amazon", "jackets", "levis"))
	require.Len(t, store.upserted, 1)
	assert.Equal(t, domain.FeedbackLike, store.upserted[0].Kind)
}

func TestRecordSwallowsStoreError(t *testing.T) {
	store := &mockStore{upsertErr: errors.New("disk full")}
	m := NewManager(store, 30, 7)

	// must not panic or propagate
	m.Record(context.Background(), likeEvent("sess1", "amazon", "jackets", "levis"))
	assert.Empty(t, store.upserted)
}

func TestRecordDropsInvalidKind(t *testing.T) {
	store := &mockStore{}
	m := NewManager(store, 30, 7)

	ev := likeEvent("sess1", "amazon", "jackets", "levis")
	ev.Kind = "stare"
	m.Record(context.Background(), ev)
	assert.Empty(t, store.upserted)
}

func TestProfileAccumulatesWeights(t *testing.T) {
	store := &mockStore{events: []domain.FeedbackEvent{
		likeEvent("sess1", "Amazon", "Jackets", "Levis"),
		likeEvent("sess1", "amazon", "jackets", ""),
		{Session: "sess1", Kind: domain.FeedbackDislike, Weight: -1.0, Site: "ebay", Category: "shoes", Brand: "nike"},
		likeEvent("other", "etsy", "hats", "stetson"),
	}}
	m := NewManager(store, 30, 7)

	p := m.Profile(context.Background(), "sess1")
	require.False(t, p.Empty())
	assert.InDelta(t, 2.0, p.Sites["amazon"], 0.001, "case folded and summed")
	assert.InDelta(t, -1.0, p.Sites["ebay"], 0.001)
	assert.InDelta(t, 2.0, p.Categories["jackets"], 0.001)
	assert.InDelta(t, 1.0, p.Brands["levis"], 0.001, "empty attributes skipped")
	assert.Equal(t, 2, p.Kinds[domain.FeedbackLike])
	assert.Equal(t, 1, p.Kinds[domain.FeedbackDislike])
	assert.NotContains(t, p.Sites, "etsy", "other sessions excluded")
}

func TestProfileAnonymousEmpty(t *testing.T) {
	store := &mockStore{events: []domain.FeedbackEvent{likeEvent("", "amazon", "jackets", "levis")}}
	m := NewManager(store, 30, 7)
	assert.True(t, m.Profile(context.Background(), "").Empty())
}

func TestProfileStoreErrorEmpty(t *testing.T) {
	store := &mockStore{loadErr: errors.New("locked")}
	m := NewManager(store, 30, 7)
	assert.True(t, m.Profile(context.Background(), "sess1").Empty())
}

func TestPersonalizedScoreBoostAndCap(t *testing.T) {
	m := NewManager(&mockStore{}, 30, 7)

	rel := 0.5
	item := domain.Item{Site: "Amazon", Category: "jackets", Brand: "levis", RelevanceScore: &rel}

	p := domain.NewPreferenceProfile()
	p.Sites["amazon"] = 2.0 // would be +0.2, under the 0.3 cap
	assert.InDelta(t, 0.7, m.PersonalizedScore(&item, p), 0.001)

	p.Sites["amazon"] = 10.0 // capped at +0.3
	assert.InDelta(t, 0.8, m.PersonalizedScore(&item, p), 0.001)
}

func TestPersonalizedScorePenaltySymmetric(t *testing.T) {
	m := NewManager(&mockStore{}, 30, 7)

	rel := 0.5
	item := domain.Item{Site: "ebay", Category: "shoes", Brand: "nike", RelevanceScore: &rel}

	p := domain.NewPreferenceProfile()
	p.Brands["nike"] = -1.5 // -0.15, under the 0.2 brand cap
	assert.InDelta(t, 0.35, m.PersonalizedScore(&item, p), 0.001)

	p.Brands["nike"] = -10.0 // capped at -0.2
	assert.InDelta(t, 0.3, m.PersonalizedScore(&item, p), 0.001)
}

func TestPersonalizedScoreBounds(t *testing.T) {
	m := NewManager(&mockStore{}, 30, 7)

	high := 0.95
	item := domain.Item{Site: "amazon", Category: "jackets", Brand: "levis", RelevanceScore: &high}
	p := domain.NewPreferenceProfile()
	p.Sites["amazon"] = 10
	p.Categories["jackets"] = 10
	p.Brands["levis"] = 10
	assert.InDelta(t, 1.0, m.PersonalizedScore(&item, p), 0.001, "clamped at 1")

	low := 0.1
	item2 := domain.Item{Site: "amazon", Category: "jackets", Brand: "levis", RelevanceScore: &low}
	p2 := domain.NewPreferenceProfile()
	p2.Sites["amazon"] = -10
	p2.Categories["jackets"] = -10
	p2.Brands["levis"] = -10
	assert.Zero(t, m.PersonalizedScore(&item2, p2), "clamped at 0")
}

func TestPersonalizedScoreNoProfileEqualsRelevance(t *testing.T) {
	m := NewManager(&mockStore{}, 30, 7)

	rel := 0.73
	item := domain.Item{Site: "amazon", RelevanceScore: &rel}
	assert.InDelta(t, rel, m.PersonalizedScore(&item, nil), 0.001)
	assert.InDelta(t, rel, m.PersonalizedScore(&item, domain.NewPreferenceProfile()), 0.001)

	unscored := domain.Item{Site: "amazon"}
	assert.InDelta(t, 0.5, m.PersonalizedScore(&unscored, nil), 0.001, "missing relevance treated as neutral")
}

func TestRankPrefersLikedSite(t *testing.T) {
	store := &mockStore{events: []domain.FeedbackEvent{
		likeEvent("sess1", "amazon", "", ""),
		likeEvent("sess1", "amazon", "", ""),
	}}
	m := NewManager(store, 30, 7)

	rel := 0.5
	items := []domain.Item{
		{Title: "from ebay", Site: "ebay", RelevanceScore: &rel},
		{Title: "from amazon", Site: "amazon", RelevanceScore: &rel},
	}

	ranked := m.Rank(context.Background(), items, "sess1")
	require.Len(t, ranked, 2)
	assert.Equal(t, "from amazon", ranked[0].Title)
	require.NotNil(t, ranked[0].PreferenceScore)
	assert.InDelta(t, 0.7, *ranked[0].PreferenceScore, 0.001)
	assert.InDelta(t, 0.5, *ranked[1].PreferenceScore, 0.001)
}

func TestRankAnonymousByRelevance(t *testing.T) {
	m := NewManager(&mockStore{}, 30, 7)

	hi, lo := 0.9, 0.2
	items := []domain.Item{
		{Title: "weak", RelevanceScore: &lo},
		{Title: "strong", RelevanceScore: &hi},
	}

	ranked := m.Rank(context.Background(), items, "")
	assert.Equal(t, "strong", ranked[0].Title)
	assert.Equal(t, "weak", ranked[1].Title)
}

func TestRankStableOnTies(t *testing.T) {
	m := NewManager(&mockStore{}, 30, 7)

	rel := 0.5
	items := []domain.Item{
		{Title: "first", RelevanceScore: &rel},
		{Title: "second", RelevanceScore: &rel},
	}
	ranked := m.Rank(context.Background(), items, "")
	assert.Equal(t, "first", ranked[0].Title)
}

func TestTrending(t *testing.T) {
	store := &mockStore{trending: []domain.TrendingEntry{
		{ItemID: "a", Count: 4, AvgWeight: 1.125},
		{ItemID: "b", Count: 1, AvgWeight: 1.0},
	}}
	m := NewManager(store, 30, 7)

	entries, err := m.Trending(context.Background(), 20)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].ItemID)
	assert.InDelta(t, 4.5, entries[0].TrendingScore(), 0.001)
}
