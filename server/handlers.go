package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/shopscope/shopscope/pkg/domain"
)

// searchRequest is the POST /search body
type searchRequest struct {
	Query   string         `json:"query"`
	Filters map[string]any `json:"filters"`
	Limit   int            `json:"limit"`
}

// searchResponse is what a search returns to the client
type searchResponse struct {
	Query        string            `json:"query"`
	SearchTerms  string            `json:"search_terms"`
	Items        []domain.Item     `json:"items"`
	SourceErrors map[string]string `json:"source_errors,omitempty"`
}

// searchHandler runs the full search pipeline
func (s *Server) searchHandler(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RenderError(w, r, fmt.Errorf("parse request: %w", err), http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		RenderError(w, r, fmt.Errorf("query is required"), http.StatusBadRequest)
		return
	}

	filters, err := domain.ParseFilters(req.Filters)
	if err != nil {
		RenderError(w, r, err, http.StatusBadRequest)
		return
	}

	session := s.session(w, r)
	res, err := s.search.Run(r.Context(), req.Query, filters, session)
	if err != nil {
		RenderError(w, r, err, http.StatusInternalServerError)
		return
	}

	resp := searchResponse{
		Query:       res.Query,
		SearchTerms: res.SearchTerms,
		Items:       res.Items,
	}
	if len(res.SourceErrors) > 0 {
		resp.SourceErrors = make(map[string]string, len(res.SourceErrors))
		for name, srcErr := range res.SourceErrors {
			resp.SourceErrors[name] = srcErr.Error()
		}
	}
	if resp.Items == nil {
		resp.Items = []domain.Item{}
	}

	RenderJSON(w, r, http.StatusOK, resp)
}

// feedbackRequest is the POST /feedback body
type feedbackRequest struct {
	Type  string `json:"type"`
	Query string `json:"query"`
	Item  struct {
		Title    string   `json:"title"`
		URL      string   `json:"url"`
		Site     string   `json:"site"`
		Brand    string   `json:"brand"`
		Category string   `json:"category"`
		Price    *float64 `json:"price"`
	} `json:"item"`
}

// feedbackHandler records one user reaction, always acks
func (s *Server) feedbackHandler(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RenderError(w, r, fmt.Errorf("parse request: %w", err), http.StatusBadRequest)
		return
	}

	kind := domain.FeedbackKind(req.Type)
	if !kind.Valid() {
		RenderError(w, r, fmt.Errorf("invalid feedback type %q", req.Type), http.StatusBadRequest)
		return
	}
	if req.Item.URL == "" {
		RenderError(w, r, fmt.Errorf("item.url is required"), http.StatusBadRequest)
		return
	}

	item := domain.Item{
		Title:    req.Item.Title,
		URL:      req.Item.URL,
		Site:     req.Item.Site,
		Brand:    req.Item.Brand,
		Category: req.Item.Category,
		Price:    req.Item.Price,
	}

	session := s.session(w, r)
	s.search.Feedback(r.Context(), &item, kind, session, req.Query)

	RenderJSON(w, r, http.StatusOK, map[string]string{"status": "ok", "item_id": item.ID()})
}

// trendingHandler returns the currently most engaged items
func (s *Server) trendingHandler(w http.ResponseWriter, r *http.Request) {
	entries, err := s.search.Trending(r.Context(), queryLimit(r))
	if err != nil {
		RenderError(w, r, err, http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []domain.TrendingEntry{}
	}
	RenderJSON(w, r, http.StatusOK, map[string]any{"trending": entries})
}

// recommendationsHandler returns trending items personalized for the caller
func (s *Server) recommendationsHandler(w http.ResponseWriter, r *http.Request) {
	session := s.session(w, r)
	items, err := s.search.Recommendations(r.Context(), session, queryLimit(r))
	if err != nil {
		RenderError(w, r, err, http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []domain.Item{}
	}
	RenderJSON(w, r, http.StatusOK, map[string]any{"items": items})
}

// preferencesHandler returns the learned profile for a session
func (s *Server) preferencesHandler(w http.ResponseWriter, r *http.Request) {
	session := r.PathValue("session")
	if session == "" {
		RenderError(w, r, fmt.Errorf("session is required"), http.StatusBadRequest)
		return
	}

	profile := s.search.Profile(r.Context(), session)
	RenderJSON(w, r, http.StatusOK, map[string]any{
		"session":    session,
		"sites":      profile.Sites,
		"categories": profile.Categories,
		"brands":     profile.Brands,
		"activity":   profile.Kinds,
	})
}

// queryLimit reads the optional limit query parameter, zero means default
func queryLimit(r *http.Request) int {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return 0
	}
	limit, err := strconv.Atoi(v)
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}
