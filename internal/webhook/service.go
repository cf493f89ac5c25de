package webhook

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	accessrepo "fddhub/internal/access/repository"
	"fddhub/internal/adapters/storage"
	"fddhub/platform/apperr"
	"fddhub/platform/logger"

	"github.com/google/uuid"
)

const (
	maxReceiptBytes = 25 << 20

	msgMissingMetadata = "Missing metadata"
	msgInvalidMetadata = "Invalid metadata"
	msgNoPDFURL        = "No PDF URL"
	msgFetchFailed     = "Failed to download signed receipt"
	msgStoreFailed     = "Failed to store signed receipt"
)

// ReceiptRecorder is satisfied by the access service.
type ReceiptRecorder interface {
	GetGrant(ctx context.Context, buyerID, franchiseID uuid.UUID) (accessrepo.Grant, error)
	RecordReceipt(ctx context.Context, receipt accessrepo.Receipt) (accessrepo.Grant, error)
}

// DocumentFetcher downloads the signed document from the provider.
type DocumentFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Result is what the provider gets back.
type Result struct {
	Received bool
	Success  bool
	AccessID uuid.UUID
}

type Service struct {
	recorder       ReceiptRecorder
	store          storage.ObjectStore
	receiptsBucket string
	fetcher        DocumentFetcher
	log            *logger.Logger
	now            func() time.Time
}

func NewService(recorder ReceiptRecorder, store storage.ObjectStore, receiptsBucket string, fetcher DocumentFetcher, log *logger.Logger) *Service {
	return &Service{
		recorder:       recorder,
		store:          store,
		receiptsBucket: receiptsBucket,
		fetcher:        fetcher,
		log:            log,
		now:            time.Now,
	}
}

// ProcessESign stores the signed receipt of a completed submission and starts
// the buyer's waiting period. Other event types are acknowledged and ignored.
func (s *Service) ProcessESign(ctx context.Context, payload ESignPayload) (Result, error) {
	s.log.Info("e-signature webhook received", "eventType", payload.EventType)
	if payload.EventType != eventSubmissionCompleted {
		return Result{Received: true}, nil
	}

	submission := payload.Data
	meta := submission.firstSubmitter().Metadata
	if meta.FranchiseID == "" || meta.BuyerID == "" {
		return Result{}, apperr.BadRequest(msgMissingMetadata)
	}
	franchiseID, err := uuid.Parse(meta.FranchiseID)
	if err != nil {
		return Result{}, apperr.BadRequest(msgInvalidMetadata)
	}
	buyerID, err := uuid.Parse(meta.BuyerID)
	if err != nil {
		return Result{}, apperr.BadRequest(msgInvalidMetadata)
	}

	pdfURL := submission.pdfURL()
	if pdfURL == "" {
		return Result{}, apperr.BadRequest(msgNoPDFURL)
	}

	// The stored PDF is evidence of the first signing; redeliveries must not replace it.
	grant, err := s.recorder.GetGrant(ctx, buyerID, franchiseID)
	if err != nil {
		return Result{}, err
	}
	if grant.ReceiptSignedAt != nil {
		s.log.Info("receipt already stored", "accessId", grant.ID, "submissionId", string(submission.ID))
		return Result{Received: true, Success: true, AccessID: grant.ID}, nil
	}

	pdf, err := s.fetcher.Fetch(ctx, pdfURL)
	if err != nil {
		return Result{}, apperr.Upstream(msgFetchFailed, err)
	}
	key := storage.ReceiptKey(buyerID.String(), franchiseID.String())
	if err := s.store.PutObject(ctx, s.receiptsBucket, key, "application/pdf", pdf); err != nil {
		return Result{}, apperr.Upstream(msgStoreFailed, err)
	}

	signedAt := s.now()
	if submission.CompletedAt != nil {
		signedAt = *submission.CompletedAt
	}
	receipt := accessrepo.Receipt{
		BuyerID:     buyerID,
		FranchiseID: franchiseID,
		SignedAt:    signedAt,
		PDFKey:      &key,
	}
	if submission.ID != "" {
		id := string(submission.ID)
		receipt.SubmissionID = &id
	}

	grant, err = s.recorder.RecordReceipt(ctx, receipt)
	if err != nil {
		return Result{}, err
	}

	s.log.Info("item 23 receipt stored", "accessId", grant.ID, "key", key)
	return Result{Received: true, Success: true, AccessID: grant.ID}, nil
}

// HTTPFetcher downloads documents over HTTP.
type HTTPFetcher struct {
	client *http.Client
}

func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{client: &http.Client{Timeout: 20 * time.Second}}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("download %s: status %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReceiptBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxReceiptBytes {
		return nil, fmt.Errorf("download %s: document exceeds %d bytes", url, maxReceiptBytes)
	}
	return data, nil
}
