package domain

import "time"

// FeedbackKind represents the type of user action on an item
type FeedbackKind string

// recognized feedback kinds
const (
	FeedbackView    FeedbackKind = "view"
	FeedbackLike    FeedbackKind = "like"
	FeedbackDislike FeedbackKind = "dislike"
	FeedbackSave    FeedbackKind = "save"
)

// Valid reports whether the kind is one of the recognized feedback kinds
func (k FeedbackKind) Valid() bool {
	switch k {
	case FeedbackView, FeedbackLike, FeedbackDislike, FeedbackSave:
		return true
	}
	return false
}

// Weight returns the signed weight associated with the feedback kind
func (k FeedbackKind) Weight() float64 {
	switch k {
	case FeedbackView:
		return 0.1
	case FeedbackLike:
		return 1.0
	case FeedbackDislike:
		return -1.0
	case FeedbackSave:
		return 1.5
	}
	return 0
}

// FeedbackEvent is an immutable record of one user action on one item.
// Item attributes are denormalized at event time so later aggregation
// never needs to re-join against live search results.
type FeedbackEvent struct {
	ItemID    string
	ItemURL   string
	ItemTitle string

	Kind   FeedbackKind
	Weight float64

	Query   string
	Session string // empty for anonymous

	Timestamp time.Time

	Site     string
	Category string
	Brand    string
	Price    *float64
}

// NewFeedbackEvent builds an event from an item and a feedback kind,
// capturing the denormalized item attributes
func NewFeedbackEvent(item *Item, kind FeedbackKind, session, query string) FeedbackEvent {
	return FeedbackEvent{
		ItemID:    item.ID(),
		ItemURL:   item.URL,
		ItemTitle: item.Title,
		Kind:      kind,
		Weight:    kind.Weight(),
		Query:     query,
		Session:   session,
		Timestamp: time.Now(),
		Site:      item.Site,
		Category:  item.Category,
		Brand:     item.Brand,
		Price:     item.Price,
	}
}

// PreferenceProfile is the per-session aggregation of feedback events
// within a trailing window. Map keys are lower-cased.
type PreferenceProfile struct {
	Sites      map[string]float64
	Categories map[string]float64
	Brands     map[string]float64
	Kinds      map[FeedbackKind]int
}

// NewPreferenceProfile returns an empty profile with initialized maps
func NewPreferenceProfile() *PreferenceProfile {
	return &PreferenceProfile{
		Sites:      make(map[string]float64),
		Categories: make(map[string]float64),
		Brands:     make(map[string]float64),
		Kinds:      make(map[FeedbackKind]int),
	}
}

// Empty reports whether the profile has no accumulated feedback
func (p *PreferenceProfile) Empty() bool {
	return len(p.Sites) == 0 && len(p.Categories) == 0 && len(p.Brands) == 0 && len(p.Kinds) == 0
}

// TrendingEntry is a derived popularity record for one item,
// computed from recent positive feedback
type TrendingEntry struct {
	ItemID    string
	Title     string
	URL       string
	Site      string
	Count     int
	AvgWeight float64
}

// TrendingScore is feedback volume times average weight
func (t TrendingEntry) TrendingScore() float64 {
	return float64(t.Count) * t.AvgWeight
}
