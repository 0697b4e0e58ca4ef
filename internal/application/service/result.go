package service

import (
	"time"

	"github.com/isnex/invoice-loader/internal/domain/workflow"
)

// Outcomes reported for every submission
const (
	OutcomeSuccess   = "success"
	OutcomePartial   = "partial"
	OutcomeDuplicate = "duplicate"
	OutcomeFailed    = "failed"
)

// Error kinds of failed submissions
const (
	KindInvalidInput = "invalid_input"
	KindExtraction   = "extraction_failed"
	KindPrimaryStore = "primary_store_failure"
	KindInternal     = "internal"
)

// Warning kinds of accepted submissions
const (
	WarnIncomplete     = "extraction_incomplete"
	WarnTotalsMismatch = "totals_mismatch"
	WarnIdentifier     = "invalid_identifier"
	WarnEncoding       = "encoding_failed"
	WarnArtifacts      = "artifacts_failed"
	WarnInternal       = "internal"
)

// Result is the classified outcome of one submission. Exactly one of
// success, partial, duplicate or failed is reported.
type Result struct {
	Outcome        string           `json:"outcome"`
	Success        bool             `json:"success"`
	Duplicate      bool             `json:"duplicate"`
	Tenant         string           `json:"customer_name"`
	InvoiceID      int64            `json:"invoice_id,omitempty"`
	InvoiceNumber  string           `json:"invoice_number,omitempty"`
	Fingerprint    string           `json:"file_hash"`
	State          workflow.State   `json:"state"`
	Path           []workflow.State `json:"path,omitempty"`
	PrimarySaved   bool             `json:"primary_saved"`
	SecondarySaved bool             `json:"secondary_saved"`
	SecondaryError string           `json:"secondary_error,omitempty"`
	StagingID      int64            `json:"staging_id,omitempty"`
	PDFPath        string           `json:"pdf_path,omitempty"`
	XMLPath        string           `json:"xml_path,omitempty"`
	ArtifactsSaved bool             `json:"artifacts_saved"`
	ItemCount      int              `json:"item_count"`
	Missing        []string         `json:"missing,omitempty"`
	Warnings       []string         `json:"warnings,omitempty"`
	ErrorKind      string           `json:"error_kind,omitempty"`
	Message        string           `json:"message"`
	Duration       time.Duration    `json:"-"`

	// Err carries the classified error of a failed or degraded submission
	Err error `json:"-"`
}
