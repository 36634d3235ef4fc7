// Package llm improves raw user queries before they hit the sources. An
// OpenAI-compatible endpoint rewrites free-form shopping requests into
// effective search terms and pulls structured filters out of them. The
// whole package is optional, searches work unchanged without it.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/shopscope/shopscope/pkg/config"
	"github.com/shopscope/shopscope/pkg/domain"
)

// Rewriter uses an LLM to pre-process search queries
type Rewriter struct {
	client    *openai.Client
	config    config.LLMConfig
	systemMsg string
}

// NewRewriter creates a new LLM query rewriter
func NewRewriter(cfg config.LLMConfig) *Rewriter {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientConfig.BaseURL = cfg.Endpoint
	}

	// use custom system prompt if provided, otherwise use default
	systemMsg := cfg.SystemPrompt
	if systemMsg == "" {
		systemMsg = defaultSystemPrompt
	}

	return &Rewriter{
		client:    openai.NewClientWithConfig(clientConfig),
		config:    cfg,
		systemMsg: systemMsg,
	}
}

// default system prompt for query rewriting
const defaultSystemPrompt = `You are a shopping search assistant. The user gives you a free-form
description of something they want to buy. Rewrite it into short, effective search terms a
product search engine understands.

Rules:
- Keep the product noun and meaningful attributes (color, material, style)
- Drop filler words, politeness and sentence structure
- Never invent attributes the user did not state
- Answer with the search terms only, no quotes and no explanation

Example: "I'm looking for a warm jacket for winter hiking, ideally something blue" -> "blue winter hiking jacket"`

// filtersPrompt asks for structured filters as a single JSON object
const filtersPrompt = `Extract shopping filters from the user's request. Respond with a single JSON object
using exactly these keys (omit keys the user did not specify):
{"size": string, "color": string, "brand": string, "category": string, "price_min": number, "price_max": number, "keywords": [string]}

Sizes are clothing sizes like XS, S, M, L, XL. Prices are plain numbers without currency symbols.
Respond with the JSON object only.`

// Rewrite turns a free-form request into compact search terms. The caller
// falls back to the original query on error.
func (r *Rewriter) Rewrite(ctx context.Context, query string) (string, error) {
	content, err := r.complete(ctx, r.systemMsg, query, false)
	if err != nil {
		return "", err
	}

	terms := strings.TrimSpace(strings.Trim(strings.TrimSpace(content), `"`))
	if terms == "" {
		return "", fmt.Errorf("empty rewrite for query %q", query)
	}
	return terms, nil
}

// extractedFilters is the JSON shape the model answers with
type extractedFilters struct {
	Size     string   `json:"size"`
	Color    string   `json:"color"`
	Brand    string   `json:"brand"`
	Category string   `json:"category"`
	PriceMin *float64 `json:"price_min"`
	PriceMax *float64 `json:"price_max"`
	Keywords []string `json:"keywords"`
}

// ExtractFilters pulls structured filters out of a free-form request. The
// caller falls back to no filters on error.
func (r *Rewriter) ExtractFilters(ctx context.Context, query string) (domain.Filters, error) {
	content, err := r.complete(ctx, filtersPrompt, query, true)
	if err != nil {
		return domain.Filters{}, err
	}

	jsonPart := extractJSON(content)
	if jsonPart == "" {
		return domain.Filters{}, fmt.Errorf("no json object in llm response")
	}

	var ef extractedFilters
	if err := json.Unmarshal([]byte(jsonPart), &ef); err != nil {
		return domain.Filters{}, fmt.Errorf("parse filters json: %w", err)
	}

	return domain.Filters{
		Size:     strings.ToUpper(strings.TrimSpace(ef.Size)),
		Color:    strings.ToLower(strings.TrimSpace(ef.Color)),
		Brand:    strings.ToLower(strings.TrimSpace(ef.Brand)),
		Category: strings.ToLower(strings.TrimSpace(ef.Category)),
		PriceMin: ef.PriceMin,
		PriceMax: ef.PriceMax,
		Keywords: ef.Keywords,
	}, nil
}

// complete runs one chat completion and returns the raw answer text
func (r *Rewriter) complete(ctx context.Context, system, user string, jsonMode bool) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       r.config.Model,
		Temperature: float32(r.config.Temperature),
		MaxTokens:   r.config.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	}

	if jsonMode && r.config.UseJSONMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := r.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("llm request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from llm")
	}
	return resp.Choices[0].Message.Content, nil
}

// extractJSON finds the first JSON object in text, models sometimes wrap
// answers in prose or code fences
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return text[start : end+1]
}
