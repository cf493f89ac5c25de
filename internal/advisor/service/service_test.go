package service

import (
	"context"
	"errors"
	"iter"
	"testing"

	"fddhub/internal/advisor/fdd"
	"fddhub/platform/apperr"
	"fddhub/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

type fakeLLM struct {
	reply string
	err   error
	last  *model.LLMRequest
}

func (f *fakeLLM) Name() string { return "fake" }

func (f *fakeLLM) GenerateContent(_ context.Context, req *model.LLMRequest, _ bool) iter.Seq2[*model.LLMResponse, error] {
	f.last = req
	return func(yield func(*model.LLMResponse, error) bool) {
		if f.err != nil {
			yield(nil, f.err)
			return
		}
		yield(&model.LLMResponse{Content: genai.NewContentFromText(f.reply, genai.RoleModel)}, nil)
	}
}

type recordedQuestion struct {
	userID, franchiseID uuid.UUID
	question            string
}

type fakeRecorder struct {
	calls []recordedQuestion
}

func (r *fakeRecorder) RecordQuestion(_ context.Context, userID, franchiseID uuid.UUID, question string) {
	r.calls = append(r.calls, recordedQuestion{userID, franchiseID, question})
}

const document = `TABLE OF CONTENTS
ITEM 5  INITIAL FEES 4
ITEM 6  OTHER FEES 9
EXHIBITS:

ITEM 5: INITIAL FEES
You must pay us an initial franchise fee of $45,000 when you sign the franchise agreement. The fee is non-refundable.

ITEM 6: OTHER FEES
Royalty of 6% of gross sales is payable weekly. A brand fund contribution of 2% of gross sales is also payable weekly.
`

func newService(t *testing.T, llm model.LLM, rec QuestionRecorder) *Service {
	t.Helper()
	topics, err := fdd.LoadTopics()
	require.NoError(t, err)
	return New(llm, topics, rec, logger.NewNop())
}

func systemPrompt(req *model.LLMRequest) string {
	return req.Config.SystemInstruction.Parts[0].Text
}

func TestAskAnswersWithCitationAndTOCPage(t *testing.T) {
	llm := &fakeLLM{reply: "The royalty is 6% of gross sales, paid weekly.\n[SOURCE: Item 6]"}
	rec := &fakeRecorder{}
	svc := newService(t, llm, rec)

	userID, franchiseID := uuid.New(), uuid.New()
	answer, err := svc.Ask(context.Background(), Question{
		UserID:        &userID,
		FranchiseID:   &franchiseID,
		FranchiseName: "Acme Tutoring",
		Question:      "What is the royalty?",
		FDDText:       document,
	})
	require.NoError(t, err)

	assert.Equal(t, "The royalty is 6% of gross sales, paid weekly.", answer.Answer)
	require.NotNil(t, answer.Source)
	assert.Equal(t, 6, answer.Source.Item)
	require.NotNil(t, answer.Source.Page)
	assert.Equal(t, 9, *answer.Source.Page)
	assert.Equal(t, []int{6}, answer.RelevantItems)

	prompt := systemPrompt(llm.last)
	assert.Contains(t, prompt, "=== ITEM 6 ===")
	assert.NotContains(t, prompt, "$45,000")
	assert.Contains(t, prompt, "Information about Acme Tutoring franchise")
	assert.Equal(t, "What is the royalty?", llm.last.Contents[0].Parts[0].Text)
	require.NotNil(t, llm.last.Config.Temperature)
	assert.InDelta(t, 0.3, *llm.last.Config.Temperature, 0.001)

	require.Len(t, rec.calls, 1)
	assert.Equal(t, recordedQuestion{userID, franchiseID, "What is the royalty?"}, rec.calls[0])
}

func TestAskFallsBackToFullDocument(t *testing.T) {
	llm := &fakeLLM{reply: "Not covered in the provided sections."}
	svc := newService(t, llm, nil)

	answer, err := svc.Ask(context.Background(), Question{
		FranchiseName:    "Acme",
		Question:         "Is there litigation?",
		FDDText:          "A short document without item headings.",
		FranchiseContext: "Tutoring brand founded in 2010",
	})
	require.NoError(t, err)

	assert.Nil(t, answer.Source)
	assert.Equal(t, []int{3}, answer.RelevantItems)
	prompt := systemPrompt(llm.last)
	assert.Contains(t, prompt, "A short document without item headings.")
	assert.Contains(t, prompt, "Tutoring brand founded in 2010")
}

func TestAskUsesProvidedPageMappingWithoutTOC(t *testing.T) {
	llm := &fakeLLM{reply: "Yes. [SOURCE: Item 3]"}
	svc := newService(t, llm, nil)

	answer, err := svc.Ask(context.Background(), Question{
		FranchiseName: "Acme",
		Question:      "Any lawsuit?",
		FDDText:       "plain text",
		PageMapping:   map[int]int{3: 2},
	})
	require.NoError(t, err)
	require.NotNil(t, answer.Source.Page)
	assert.Equal(t, 2, *answer.Source.Page)
}

func TestAskSkipsRecordingForAnonymousCallers(t *testing.T) {
	rec := &fakeRecorder{}
	svc := newService(t, &fakeLLM{reply: "ok"}, rec)

	_, err := svc.Ask(context.Background(), Question{FranchiseName: "Acme", Question: "fees?", FDDText: document})
	require.NoError(t, err)
	assert.Empty(t, rec.calls)
}

func TestAskValidation(t *testing.T) {
	svc := newService(t, &fakeLLM{reply: "ok"}, nil)

	tests := []struct {
		name string
		q    Question
	}{
		{"missing question", Question{FranchiseName: "Acme", FDDText: document}},
		{"missing franchise name", Question{Question: "fees?", FDDText: document}},
		{"missing document", Question{FranchiseName: "Acme", Question: "fees?"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Ask(context.Background(), tt.q)
			assert.True(t, apperr.Is(err, apperr.KindBadRequest))
		})
	}
}

func TestAskUpstreamFailures(t *testing.T) {
	q := Question{FranchiseName: "Acme", Question: "fees?", FDDText: document}

	_, err := newService(t, &fakeLLM{err: errors.New("boom")}, nil).Ask(context.Background(), q)
	assert.True(t, apperr.Is(err, apperr.KindUpstream))

	_, err = newService(t, &fakeLLM{reply: "   "}, nil).Ask(context.Background(), q)
	assert.True(t, apperr.Is(err, apperr.KindUpstream))
}

func TestAskDisabled(t *testing.T) {
	svc := newService(t, nil, nil)
	assert.False(t, svc.Enabled())

	_, err := svc.Ask(context.Background(), Question{FranchiseName: "Acme", Question: "fees?", FDDText: document})
	assert.ErrorIs(t, err, ErrDisabled)
}
