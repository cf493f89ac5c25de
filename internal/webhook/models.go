package webhook

import (
	"bytes"
	"encoding/json"
	"time"
)

const eventSubmissionCompleted = "submission.completed"

// ESignPayload is the body the e-signature provider posts for every event.
type ESignPayload struct {
	EventType string     `json:"event_type"`
	Data      Submission `json:"data"`
}

type Submission struct {
	ID          SubmissionID `json:"id"`
	AuditLogURL string       `json:"audit_log_url"`
	CompletedAt *time.Time   `json:"completed_at"`
	Submitters  []Submitter  `json:"submitters"`
}

type Submitter struct {
	Metadata  SubmitterMetadata `json:"metadata"`
	Documents []Document        `json:"documents"`
}

// SubmitterMetadata carries the ids the submission was created with.
type SubmitterMetadata struct {
	FranchiseID string `json:"franchise_id"`
	BuyerID     string `json:"buyer_id"`
}

type Document struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// SubmissionID accepts both numeric and string ids.
type SubmissionID string

func (id *SubmissionID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = SubmissionID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = SubmissionID(n.String())
	return nil
}

func (s Submission) firstSubmitter() Submitter {
	if len(s.Submitters) == 0 {
		return Submitter{}
	}
	return s.Submitters[0]
}

// pdfURL prefers the audit log, which embeds the signed document.
func (s Submission) pdfURL() string {
	if s.AuditLogURL != "" {
		return s.AuditLogURL
	}
	sub := s.firstSubmitter()
	if len(sub.Documents) > 0 {
		return sub.Documents[0].URL
	}
	return ""
}
