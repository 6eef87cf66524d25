// Package report implements the drafting service: it assembles guide
// material for an indicator, asks the model for required inputs, drafts
// and summarizes sections, and persists drafts per (topic, company).
package report

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/esg-insight/internal/apperr"
	"github.com/sells-group/esg-insight/internal/model"
	"github.com/sells-group/esg-insight/internal/store"
	"github.com/sells-group/esg-insight/pkg/llm"
)

// Service wires the guide corpus, the LLM client, and draft persistence.
type Service struct {
	store     store.Store
	llm       llm.Client
	model     string
	maxTokens int64
}

// NewService builds a drafting service.
func NewService(st store.Store, client llm.Client, model string, maxTokens int64) *Service {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &Service{store: st, llm: client, model: model, maxTokens: maxTokens}
}

// HistoryItem is a past activity the caller wants reflected in a draft.
type HistoryItem struct {
	Date        string `json:"date"`
	Description string `json:"description"`
}

// FetchResult is the guide material assembled for one indicator.
type FetchResult struct {
	Topic      string        `json:"topic"`
	Company    string        `json:"company"`
	Department string        `json:"department"`
	History    []HistoryItem `json:"history"`
	ChunkCount int           `json:"chunk_count"`
	Chunks     []string      `json:"chunks"`
	TableHTMLs []string      `json:"table_htmls"`
	TableTexts []string      `json:"table_texts"`
	Pages      []int         `json:"pages"`
}

// FetchData gathers the guide chunks for a topic plus every table on the
// pages those chunks reference.
func (s *Service) FetchData(ctx context.Context, topic, company, department string, history []HistoryItem) (*FetchResult, error) {
	chunks, err := s.store.ListGuideChunks(ctx, topic)
	if err != nil {
		return nil, apperr.Upstream(err, "report: load guide chunks")
	}
	if len(chunks) == 0 {
		return nil, apperr.NotFoundf("no guide material for topic %q", topic)
	}

	pageSet := map[int]bool{}
	contents := make([]string, 0, len(chunks))
	for _, c := range chunks {
		contents = append(contents, c.Content)
		for _, p := range c.Pages {
			pageSet[p] = true
		}
	}
	pages := make([]int, 0, len(pageSet))
	for p := range pageSet {
		pages = append(pages, p)
	}
	sort.Ints(pages)

	tables, err := s.store.ListGuideTables(ctx, pages)
	if err != nil {
		return nil, apperr.Upstream(err, "report: load guide tables")
	}

	result := &FetchResult{
		Topic:      topic,
		Company:    company,
		Department: department,
		History:    history,
		ChunkCount: len(chunks),
		Chunks:     contents,
		Pages:      pages,
	}
	for _, t := range tables {
		result.TableHTMLs = append(result.TableHTMLs, t.HTML)
		result.TableTexts = append(result.TableTexts, t.Text)
	}

	zap.L().Debug("guide material assembled",
		zap.String("topic", topic),
		zap.Int("chunks", len(chunks)),
		zap.Int("tables", len(tables)),
	)
	return result, nil
}

// RequiredData is the model's field recommendation for an indicator.
type RequiredData struct {
	Topic          string          `json:"topic"`
	RequiredData   string          `json:"required_data"`
	RequiredFields []RequiredField `json:"required_fields"`
}

// InferRequiredData asks the model which inputs must be collected before
// the indicator can be drafted, then parses its markdown into fields.
func (s *Service) InferRequiredData(ctx context.Context, topic string, chunks, tableTexts []string) (*RequiredData, error) {
	resp, err := s.llm.CreateMessage(ctx, llm.MessageRequest{
		Model:     s.model,
		MaxTokens: s.maxTokens,
		System:    llm.BuildCachedSystemBlocks(inferSystemPrompt),
		Messages: []llm.Message{
			{Role: "user", Content: inferUserPrompt(topic, chunks, tableTexts)},
		},
	})
	if err != nil {
		return nil, apperr.Upstream(err, "report: infer required data")
	}
	resp.Usage.LogUsage(s.model, "infer")

	raw := strings.TrimSpace(resp.Text())
	return &RequiredData{
		Topic:          topic,
		RequiredData:   raw,
		RequiredFields: ParseFields(raw),
	}, nil
}

// DraftRequest carries everything GenerateDraft needs.
type DraftRequest struct {
	Topic       string         `json:"topic"`
	Inputs      map[string]any `json:"inputs"`
	Chunks      []string       `json:"chunks"`
	TableTexts  []string       `json:"table_texts"`
	Improvement string         `json:"improvement"`
}

// GenerateDraft produces a section draft from guide material and user
// inputs. LLM failures surface as upstream errors, not placeholder text.
func (s *Service) GenerateDraft(ctx context.Context, req DraftRequest) (string, error) {
	if req.Topic == "" {
		return "", apperr.InvalidArgument("topic is required")
	}
	resp, err := s.llm.CreateMessage(ctx, llm.MessageRequest{
		Model:     s.model,
		MaxTokens: s.maxTokens,
		System:    llm.BuildCachedSystemBlocks(draftSystemPrompt),
		Messages: []llm.Message{
			{Role: "user", Content: draftUserPrompt(req.Topic, req.Chunks, req.TableTexts, req.Inputs, req.Improvement)},
		},
	})
	if err != nil {
		return "", apperr.Upstream(err, "report: generate draft")
	}
	resp.Usage.LogUsage(s.model, "draft")
	return strings.TrimSpace(resp.Text()), nil
}

// SummarizeIndicator condenses an indicator's guide text for display.
func (s *Service) SummarizeIndicator(ctx context.Context, topic string, chunks []string) (string, error) {
	resp, err := s.llm.CreateMessage(ctx, llm.MessageRequest{
		Model:     s.model,
		MaxTokens: s.maxTokens,
		System:    []llm.SystemBlock{{Text: summarizeSystemPrompt}},
		Messages: []llm.Message{
			{Role: "user", Content: "[Indicator: " + topic + "]\n\n" + strings.Join(chunks, "\n")},
		},
	})
	if err != nil {
		return "", apperr.Upstream(err, "report: summarize indicator")
	}
	resp.Usage.LogUsage(s.model, "summarize")
	return strings.TrimSpace(resp.Text()), nil
}

// SaveDraft persists a draft for (topic, company), replacing any previous
// version.
func (s *Service) SaveDraft(ctx context.Context, topic, company, body string) error {
	if topic == "" || company == "" {
		return apperr.InvalidArgument("topic and company are required")
	}
	err := s.store.UpsertDraft(ctx, model.Draft{
		Topic:     topic,
		Company:   company,
		Body:      body,
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		return apperr.Upstream(err, "report: save draft")
	}
	return nil
}

// LoadDraft returns the stored draft body, or "" when none exists.
func (s *Service) LoadDraft(ctx context.Context, topic, company string) (string, error) {
	d, err := s.store.GetDraft(ctx, topic, company)
	if err != nil {
		return "", apperr.Upstream(err, "report: load draft")
	}
	if d == nil {
		return "", nil
	}
	return d.Body, nil
}

// DeleteDraft removes a stored draft; a missing draft is ErrNotFound.
func (s *Service) DeleteDraft(ctx context.Context, topic, company string) error {
	deleted, err := s.store.DeleteDraft(ctx, topic, company)
	if err != nil {
		return apperr.Upstream(err, "report: delete draft")
	}
	if !deleted {
		return apperr.NotFoundf("no draft for topic %q company %q", topic, company)
	}
	return nil
}
