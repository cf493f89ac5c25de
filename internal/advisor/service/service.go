package service

import (
	"context"
	"fmt"
	"strings"

	"fddhub/internal/advisor/fdd"
	"fddhub/platform/apperr"
	"fddhub/platform/logger"

	"github.com/google/uuid"
	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

const (
	temperature     = float32(0.3)
	maxOutputTokens = int32(800)
)

// ErrDisabled is returned when no LLM provider is configured.
var ErrDisabled = apperr.New(apperr.KindUpstream, "FDD advisor is not configured")

// QuestionRecorder stores asked questions on the buyer's engagement record.
type QuestionRecorder interface {
	RecordQuestion(ctx context.Context, userID, franchiseID uuid.UUID, question string)
}

type Question struct {
	UserID           *uuid.UUID
	FranchiseID      *uuid.UUID
	FranchiseName    string
	Question         string
	FDDText          string
	FranchiseContext string
	// PageMapping is used when the document has no parsable table of contents.
	PageMapping map[int]int
}

type Answer struct {
	Answer        string
	Source        *fdd.Source
	RelevantItems []int
}

type Service struct {
	llm      model.LLM
	topics   *fdd.Topics
	recorder QuestionRecorder
	log      *logger.Logger
}

// New returns a service that answers nothing but ErrDisabled when llm is nil.
func New(llm model.LLM, topics *fdd.Topics, recorder QuestionRecorder, log *logger.Logger) *Service {
	return &Service{llm: llm, topics: topics, recorder: recorder, log: log}
}

func (s *Service) Enabled() bool {
	return s.llm != nil
}

func (s *Service) Ask(ctx context.Context, q Question) (Answer, error) {
	if !s.Enabled() {
		return Answer{}, ErrDisabled
	}
	q.Question = strings.TrimSpace(q.Question)
	q.FranchiseName = strings.TrimSpace(q.FranchiseName)
	if q.Question == "" || q.FranchiseName == "" {
		return Answer{}, apperr.BadRequest("Missing required fields: question and franchiseName are required")
	}
	if strings.TrimSpace(q.FDDText) == "" {
		return Answer{}, apperr.BadRequest("FDD content not provided. Please ensure the FDD document is loaded.")
	}

	s.recordQuestion(ctx, q)

	items := s.topics.RelevantItems(q.Question)
	content, found := fdd.ExtractSections(q.FDDText, items)
	if len(found) == 0 {
		s.log.Warn("fdd sections not found, sending full document", "items", items, "franchise", q.FranchiseName)
		content = q.FDDText
	}

	full, err := s.generate(ctx, buildSystemPrompt(q, items, content), q.Question)
	if err != nil {
		return Answer{}, err
	}

	answer, source := fdd.ParseCitation(full)
	if source != nil && source.Page == nil {
		source.Page = lookupPage(q, source.Item)
	}
	return Answer{Answer: answer, Source: source, RelevantItems: items}, nil
}

func (s *Service) recordQuestion(ctx context.Context, q Question) {
	if s.recorder == nil || q.UserID == nil || q.FranchiseID == nil {
		return
	}
	s.recorder.RecordQuestion(ctx, *q.UserID, *q.FranchiseID, q.Question)
}

func (s *Service) generate(ctx context.Context, systemPrompt, question string) (string, error) {
	temp := temperature
	req := &model.LLMRequest{
		Model: s.llm.Name(),
		Contents: []*genai.Content{
			genai.NewContentFromText(question, genai.RoleUser),
		},
		Config: &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
			Temperature:       &temp,
			MaxOutputTokens:   maxOutputTokens,
		},
	}

	var out strings.Builder
	for resp, err := range s.llm.GenerateContent(ctx, req, false) {
		if err != nil {
			return "", apperr.Upstream("AI service error. Please try again.", err)
		}
		if resp == nil || resp.Content == nil {
			continue
		}
		for _, part := range resp.Content.Parts {
			if part != nil {
				out.WriteString(part.Text)
			}
		}
	}

	text := strings.TrimSpace(out.String())
	if text == "" {
		return "", apperr.Upstream("No response generated from AI service", fmt.Errorf("advisor: empty completion from %s", s.llm.Name()))
	}
	return text, nil
}

func lookupPage(q Question, item int) *int {
	pages := fdd.ParseTableOfContents(q.FDDText)
	if len(pages) == 0 {
		pages = q.PageMapping
	}
	if page, ok := pages[item]; ok {
		return &page
	}
	return nil
}

func buildSystemPrompt(q Question, items []int, content string) string {
	contextInfo := strings.TrimSpace(q.FranchiseContext)
	if contextInfo == "" {
		contextInfo = fmt.Sprintf("Information about %s franchise", q.FranchiseName)
	}
	itemList := make([]string, len(items))
	for i, item := range items {
		itemList[i] = fmt.Sprint(item)
	}

	return fmt.Sprintf(`You are an expert FDD (Franchise Disclosure Document) analyst helping potential franchisees understand %[1]s's franchise opportunity.

Context about %[1]s:
%[2]s

Below are the relevant sections from the FDD (Items %[3]s). Analyze them carefully to answer the user's question.

FDD Content:
%[4]s

Provide clear, concise answers (2-4 sentences) based ONLY on the FDD content provided above. If the information is not in the provided sections, say so clearly.

IMPORTANT: At the end of your response, include a source citation in this format:
[SOURCE: Item X]

Where X is the FDD Item number (1-23) that contains the information you used to answer the question.`,
		q.FranchiseName, contextInfo, strings.Join(itemList, ", "), content)
}
