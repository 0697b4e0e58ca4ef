// Package service coordinates invoice ingestion and reporting.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/isnex/invoice-loader/internal/application/port"
	"github.com/isnex/invoice-loader/internal/domain/entity"
	"github.com/isnex/invoice-loader/internal/domain/workflow"
	"github.com/isnex/invoice-loader/internal/invoice"
	"github.com/isnex/invoice-loader/internal/isdoc"
	"github.com/isnex/invoice-loader/internal/observability/metrics"
	"github.com/isnex/invoice-loader/internal/storage"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Pipeline stages reported to the metrics sink
const (
	stageDedup     = "dedup"
	stageRead      = "read"
	stageExtract   = "extract"
	stageEncode    = "encode"
	stagePrimary   = "primary"
	stageArtifacts = "artifacts"
	stageSecondary = "secondary"
)

const reasonDisabled = "disabled"

// Config holds ingestion settings
type Config struct {
	// Tenant is used for submissions that do not name one
	Tenant           string
	TotalTolerance   decimal.Decimal
	PrimaryTimeout   time.Duration
	SecondaryTimeout time.Duration
	NotifyTimeout    time.Duration
}

// Dependencies are the collaborators of the ingest pipeline.
// Secondary may be nil when staging is disabled.
type Dependencies struct {
	Reader    port.TextExtractor
	Extractor *invoice.Extractor
	Encoder   *isdoc.Encoder
	Primary   port.PrimaryStore
	Secondary port.SecondaryStore
	Folders   *storage.FolderManager
	Files     storage.FileStorage
	Notifier  port.Notifier
	Metrics   port.MetricsSink
}

// IngestService runs one submission through extraction, encoding and
// both stores. It holds no per-request state and is safe for concurrent use.
type IngestService struct {
	cfg  Config
	deps Dependencies

	logger *zap.Logger
}

// NewIngestService creates a new ingest pipeline
func NewIngestService(cfg Config, deps Dependencies, logger *zap.Logger) *IngestService {
	if deps.Metrics == nil {
		deps.Metrics = metrics.Nop{}
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = 10 * time.Second
	}
	return &IngestService{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
	}
}

// run carries the state of one submission through the pipeline
type run struct {
	sub     entity.Submission
	tenant  string
	machine workflow.StateMachine
	result  *Result
	logger  *zap.Logger

	data *entity.InvoiceData
	xml  []byte
}

// fire advances the lifecycle. A refused trigger is a pipeline bug, so it is
// logged rather than surfaced to the submitter.
func (r *run) fire(ctx context.Context, trigger workflow.Trigger) bool {
	if err := r.machine.Fire(ctx, trigger); err != nil {
		r.logger.Error("Unexpected lifecycle state",
			zap.String("trigger", trigger.String()),
			zap.String("state", r.machine.State().String()),
			zap.Any("permitted", r.machine.PermittedTriggers()),
			zap.Error(err))
		return false
	}
	return true
}

// Process runs the pipeline for one submission and classifies the outcome.
// It never returns nil. Once the primary store holds the invoice, cancelling
// ctx no longer affects the remaining steps.
func (s *IngestService) Process(ctx context.Context, sub entity.Submission) (res *Result) {
	start := time.Now()

	tenant := strings.TrimSpace(sub.Tenant)
	if tenant == "" {
		tenant = s.cfg.Tenant
	}
	fingerprint := entity.Fingerprint(sub.Content)

	r := &run{
		sub:     sub,
		tenant:  tenant,
		machine: workflow.NewDocumentMachine(),
		result:  &Result{Tenant: tenant, Fingerprint: fingerprint},
		logger: s.logger.With(
			zap.String("tenant", tenant),
			zap.String("filename", sub.Filename),
			zap.String("file_hash", fingerprint)),
	}
	res = r.result

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("Pipeline panic", zap.Any("panic", p), zap.Stack("stack"))
			if r.machine.State().IsDurable() {
				s.warn(r, WarnInternal, fmt.Sprintf("internal error after commit: %v", p))
				if r.machine.CanFire(ctx, workflow.TriggerDeferSecondary) {
					r.fire(ctx, workflow.TriggerDeferSecondary)
				}
				s.complete(ctx, r)
			} else {
				s.fail(ctx, r, KindInternal, fmt.Errorf("panic: %v", p))
			}
		}
		res.State = r.machine.State()
		res.Path = r.machine.Path()
		res.Duration = time.Since(start)
		s.deps.Metrics.ObserveOutcome(res.Outcome, res.Duration)
		r.logger.Info("Submission processed",
			zap.String("outcome", res.Outcome),
			zap.String("state", res.State.String()),
			zap.Int64("invoice_id", res.InvoiceID),
			zap.Duration("duration", res.Duration))
	}()

	if len(sub.Content) == 0 {
		s.fail(ctx, r, KindInvalidInput, ErrEmptyDocument)
		return res
	}

	if s.checkDuplicate(ctx, r) {
		return res
	}
	if !s.extract(ctx, r) {
		return res
	}
	s.encode(ctx, r)
	if !s.commitPrimary(ctx, r) {
		return res
	}

	// the invoice is recorded; later steps run to completion
	ctx = context.WithoutCancel(ctx)

	s.saveArtifacts(ctx, r)
	s.commitSecondary(ctx, r)
	s.complete(ctx, r)
	return res
}

// checkDuplicate is the fast path; the store's uniqueness constraint is authoritative
func (s *IngestService) checkDuplicate(ctx context.Context, r *run) bool {
	defer s.observe(stageDedup, time.Now())

	dup, err := s.deps.Primary.IsDuplicate(ctx, r.tenant, r.result.Fingerprint)
	if err != nil {
		s.fail(ctx, r, KindPrimaryStore, fmt.Errorf("%w: duplicate check: %v", ErrPrimaryStore, err))
		return true
	}
	if dup {
		s.markDuplicate(ctx, r, "document already processed")
		return true
	}
	return false
}

func (s *IngestService) extract(ctx context.Context, r *run) bool {
	readStart := time.Now()
	text, err := s.deps.Reader.ReadText(ctx, r.sub.Filename, r.sub.Content)
	s.observe(stageRead, readStart)
	if err != nil {
		s.fail(ctx, r, KindExtraction, fmt.Errorf("failed to read document: %w", err))
		return false
	}

	defer s.observe(stageExtract, time.Now())

	data := s.deps.Extractor.Extract(text)
	r.data = data
	r.result.InvoiceNumber = data.InvoiceNumber
	r.result.ItemCount = len(data.Items)
	s.deps.Metrics.ObserveItems(len(data.Items))

	if err := r.machine.Fire(ctx, workflow.TriggerExtract); err != nil {
		s.fail(ctx, r, KindInternal, err)
		return false
	}

	if missing := data.MissingRequired(); len(missing) > 0 {
		r.result.Missing = missing
		r.result.Err = fmt.Errorf("%w: missing %s", ErrExtractionIncomplete, strings.Join(missing, ", "))
		s.deps.Metrics.IncWarning(WarnIncomplete)
		r.logger.Warn("Extraction incomplete", zap.Strings("missing", missing))
	}
	if msg, ok := totalsMismatch(data, s.cfg.TotalTolerance); ok {
		s.warn(r, WarnTotalsMismatch, msg)
	}
	for _, msg := range identifierProblems(data) {
		s.warn(r, WarnIdentifier, msg)
	}
	return true
}

// encode renders the interchange document in memory. A failure is recorded
// and the invoice is still committed.
func (s *IngestService) encode(ctx context.Context, r *run) {
	defer s.observe(stageEncode, time.Now())

	doc, err := s.deps.Encoder.Encode(r.data)
	if err != nil {
		s.deps.Metrics.IncError(WarnEncoding)
		s.warn(r, WarnEncoding, err.Error())
		return
	}
	if err := r.machine.Fire(ctx, workflow.TriggerEncode); err != nil {
		s.warn(r, WarnEncoding, err.Error())
		return
	}
	r.xml = doc
}

func (s *IngestService) commitPrimary(ctx context.Context, r *run) bool {
	defer s.observe(stagePrimary, time.Now())

	rec := entity.NewInvoiceRecord(r.tenant, r.result.Fingerprint, r.sub, r.data)
	rec.Status = entity.RecordStatusProcessed
	if len(r.result.Missing) > 0 {
		rec.Status = entity.RecordStatusPartial
	}
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.ProcessedAt = &now

	writeCtx, cancel := s.withTimeout(ctx, s.cfg.PrimaryTimeout)
	defer cancel()

	err := s.deps.Primary.Create(writeCtx, rec)
	switch {
	case errors.Is(err, port.ErrDuplicate):
		r.logger.Info("Concurrent submission won the commit")
		s.markDuplicate(ctx, r, "document already processed")
		return false
	case err != nil:
		s.fail(ctx, r, KindPrimaryStore, fmt.Errorf("%w: %v", ErrPrimaryStore, err))
		return false
	}

	fireCtx := ctx
	if r.xml == nil {
		fireCtx = workflow.WithEncodingSkipped(ctx)
	}
	r.fire(fireCtx, workflow.TriggerCommitPrimary)
	r.result.InvoiceID = rec.ID
	r.result.PrimarySaved = true
	return true
}

// saveArtifacts archives the source document and the interchange XML.
// Failures degrade the result; the record stays committed.
func (s *IngestService) saveArtifacts(ctx context.Context, r *run) {
	defer s.observe(stageArtifacts, time.Now())

	if s.deps.Folders == nil || s.deps.Files == nil {
		return
	}
	if err := s.deps.Folders.EnsureTenantFolders(r.tenant); err != nil {
		s.artifactFailure(r, err)
		return
	}

	received := r.sub.ReceivedAt
	if received.IsZero() {
		received = time.Now()
	}
	pdfPath := s.deps.Folders.PDFPath(r.tenant, received, r.result.Fingerprint, r.sub.Filename)
	if err := s.deps.Files.SaveFileWithType(pdfPath, r.sub.Content, storage.FileTypePDF); err != nil {
		s.artifactFailure(r, err)
		return
	}
	r.result.PDFPath = pdfPath

	var xmlPath string
	if r.xml != nil {
		xmlPath = s.deps.Folders.XMLPath(r.tenant, r.data.InvoiceNumber)
		if err := s.deps.Files.SaveFileWithType(xmlPath, r.xml, storage.FileTypeXML); err != nil {
			s.artifactFailure(r, err)
			xmlPath = ""
		} else {
			r.result.XMLPath = xmlPath
		}
	}

	writeCtx, cancel := s.withTimeout(ctx, s.cfg.PrimaryTimeout)
	defer cancel()
	if err := s.deps.Primary.SetArtifacts(writeCtx, r.result.InvoiceID, pdfPath, xmlPath); err != nil {
		s.artifactFailure(r, err)
		return
	}
	r.result.ArtifactsSaved = r.xml == nil || xmlPath != ""
}

func (s *IngestService) artifactFailure(r *run, err error) {
	s.deps.Metrics.IncError(WarnArtifacts)
	s.warn(r, WarnArtifacts, err.Error())
}

// commitSecondary stages the invoice for review. It never fails the request.
func (s *IngestService) commitSecondary(ctx context.Context, r *run) {
	defer s.observe(stageSecondary, time.Now())

	id, reason, err := s.stage(ctx, r)
	if err == nil {
		r.fire(ctx, workflow.TriggerCommitSecondary)
		r.result.SecondarySaved = true
		r.result.StagingID = id
		r.logger.Info("Invoice staged", zap.Int64("staging_id", id))
		return
	}

	r.fire(ctx, workflow.TriggerDeferSecondary)
	r.result.SecondaryError = err.Error()
	if reason == reasonDisabled {
		return
	}
	if r.result.Err == nil {
		r.result.Err = err
	}
	s.deps.Metrics.IncSecondaryDeferred(reason)
	r.logger.Warn("Staging deferred", zap.String("reason", reason), zap.Error(err))
}

// stage returns the staging ID, or the deferral reason and error
func (s *IngestService) stage(ctx context.Context, r *run) (int64, string, error) {
	if s.deps.Secondary == nil {
		return 0, reasonDisabled, fmt.Errorf("%w: staging disabled", ErrSecondaryStore)
	}
	if r.xml == nil {
		return 0, "not_encoded", fmt.Errorf("%w: no interchange document", ErrSecondaryStore)
	}

	stageCtx, cancel := s.withTimeout(ctx, s.cfg.SecondaryTimeout)
	defer cancel()

	dup, err := s.deps.Secondary.CheckDuplicate(stageCtx, r.data.Supplier.ICO, r.data.InvoiceNumber)
	if err != nil {
		return 0, s.classify(err), fmt.Errorf("%w: %v", ErrSecondaryStore, err)
	}
	if dup {
		return 0, "duplicate", fmt.Errorf("%w: invoice %s of supplier %s already staged",
			ErrSecondaryStore, r.data.InvoiceNumber, r.data.Supplier.ICO)
	}

	id, err := s.deps.Secondary.SaveInvoice(stageCtx, r.data, r.xml, port.StagingMeta{
		Tenant:     r.tenant,
		FileHash:   r.result.Fingerprint,
		PrimaryID:  r.result.InvoiceID,
		SourceFile: r.sub.Filename,
	})
	if err != nil {
		return 0, s.classify(err), fmt.Errorf("%w: %v", ErrSecondaryStore, err)
	}
	return id, "", nil
}

func (s *IngestService) classify(err error) string {
	if c, ok := s.deps.Secondary.(port.ErrorClassifier); ok {
		return c.ClassifyError(err)
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}
	return "unknown"
}

// complete finishes an accepted submission as success or partial
func (s *IngestService) complete(ctx context.Context, r *run) {
	r.fire(ctx, workflow.TriggerFinish)

	res := r.result
	res.Success = true
	if len(res.Missing) > 0 {
		res.Outcome = OutcomePartial
		res.Message = fmt.Sprintf("Invoice stored with missing fields: %s", strings.Join(res.Missing, ", "))
		s.notify(r, func(ctx context.Context) error {
			return s.deps.Notifier.NotifyValidationFailed(ctx, port.ValidationAlert{
				Tenant:        r.tenant,
				Filename:      r.sub.Filename,
				InvoiceNumber: res.InvoiceNumber,
				InvoiceID:     res.InvoiceID,
				Missing:       res.Missing,
				Warnings:      res.Warnings,
			})
		})
		return
	}

	res.Outcome = OutcomeSuccess
	res.Message = "Invoice processed"
	if !res.SecondarySaved {
		res.Message = "Invoice processed, staging deferred"
	}
}

func (s *IngestService) markDuplicate(ctx context.Context, r *run, msg string) {
	r.fire(ctx, workflow.TriggerMarkDuplicate)
	r.result.Outcome = OutcomeDuplicate
	r.result.Duplicate = true
	r.result.Message = msg
	r.logger.Info("Duplicate submission")
}

// fail ends a submission that never reached the primary store
func (s *IngestService) fail(ctx context.Context, r *run, kind string, err error) {
	r.fire(ctx, workflow.TriggerFail)

	res := r.result
	res.Outcome = OutcomeFailed
	res.Success = false
	res.ErrorKind = kind
	res.Message = err.Error()
	res.Err = err
	s.deps.Metrics.IncError(kind)
	r.logger.Error("Submission failed", zap.String("kind", kind), zap.Error(err))

	s.notify(r, func(ctx context.Context) error {
		return s.deps.Notifier.NotifyFailure(ctx, port.FailureAlert{
			Tenant:      r.tenant,
			Filename:    r.sub.Filename,
			Fingerprint: res.Fingerprint,
			Kind:        kind,
			Message:     err.Error(),
			OccurredAt:  time.Now(),
		})
	})
}

// notify runs an alert detached from the request; errors are only logged
func (s *IngestService) notify(r *run, send func(ctx context.Context) error) {
	if s.deps.Notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.NotifyTimeout)
	defer cancel()
	if err := send(ctx); err != nil {
		r.logger.Warn("Notification failed", zap.Error(err))
	}
}

func (s *IngestService) warn(r *run, kind, msg string) {
	r.result.Warnings = append(r.result.Warnings, msg)
	s.deps.Metrics.IncWarning(kind)
	r.logger.Warn("Submission warning", zap.String("kind", kind), zap.String("detail", msg))
}

func (s *IngestService) observe(stage string, start time.Time) {
	s.deps.Metrics.ObserveStage(stage, time.Since(start))
}

func (s *IngestService) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
