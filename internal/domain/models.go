// ==============================================================================
// DOMAIN MODELS - internal/domain/models.go
// ==============================================================================

package domain

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// User is the minimal account row the customer profile hangs off. Signup and
// session handling live outside this service.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

const RoleAdmin = "admin"

// Customer carries the per-customer KYC aggregate. The overall kyc_status
// column is always recomputed from the two per-document slots inside the same
// transaction that updates them; OverallStatus is the canonical derivation.
type Customer struct {
	ID            uuid.UUID           `db:"id" json:"id"`
	UserID        uuid.UUID           `db:"user_id" json:"user_id"`
	AadhaarNo     sql.NullString      `db:"aadhaar_no" json:"-"`
	PANNo         sql.NullString      `db:"pan_no" json:"-"`
	AadhaarStatus *VerificationStatus `db:"aadhaar_status" json:"aadhaar_status,omitempty"`
	PANStatus     *VerificationStatus `db:"pan_status" json:"pan_status,omitempty"`
	KycStatus     VerificationStatus  `db:"kyc_status" json:"kyc_status"`
	LatestKycID   *uuid.UUID          `db:"latest_kyc_id" json:"latest_kyc_id,omitempty"`
	CreatedAt     time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time           `db:"updated_at" json:"updated_at"`
}

// OverallStatus derives the customer-level status from the per-document
// slots. KycStatus must never be set except to this value.
func (c *Customer) OverallStatus() VerificationStatus {
	return AggregateStatus(c.AadhaarStatus, c.PANStatus)
}

// FileKind distinguishes uploaded source artifacts from generated XML ones.
type FileKind string

const (
	FileKindSource FileKind = "source"
	FileKindXML    FileKind = "xml"
)

// KycFile is one row per physical or generated artifact. Generated XML may be
// stored inline in XMLContent instead of on the filesystem.
type KycFile struct {
	ID             uuid.UUID      `db:"id" json:"id"`
	UserID         uuid.UUID      `db:"user_id" json:"user_id"`
	CustomerID     uuid.UUID      `db:"customer_id" json:"customer_id"`
	Kind           FileKind       `db:"kind" json:"kind"`
	FileName       string         `db:"file_name" json:"file_name"`
	StoragePath    sql.NullString `db:"storage_path" json:"-"`
	XMLContent     sql.NullString `db:"xml_content" json:"-"`
	ContentType    string         `db:"content_type" json:"content_type"`
	FileSize       int64          `db:"file_size" json:"file_size"`
	ChecksumSHA256 string         `db:"checksum_sha256" json:"checksum_sha256"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
}

// KycRecord is one verification attempt. Records are append-only and
// immutable; a new attempt always creates a new row.
type KycRecord struct {
	ID           uuid.UUID          `db:"id" json:"id"`
	UserID       uuid.UUID          `db:"user_id" json:"user_id"`
	CustomerID   uuid.UUID          `db:"customer_id" json:"customer_id"`
	DocumentKind DocumentKind       `db:"document_kind" json:"document_kind"`
	Source       ExtractionSource   `db:"source" json:"source"`
	SourceFileID *uuid.UUID         `db:"source_file_id" json:"source_file_id,omitempty"`
	XMLFileID    uuid.UUID          `db:"xml_file_id" json:"xml_file_id"`
	Extracted    ExtractedFields    `db:"extracted" json:"-"`
	Score        int                `db:"score" json:"score"`
	Reasons      StringList         `db:"reasons" json:"reasons"`
	Status       VerificationStatus `db:"status" json:"status"`
	CreatedAt    time.Time          `db:"created_at" json:"created_at"`
}

// KycStateSnapshot mirrors the customer's current statuses in responses.
type KycStateSnapshot struct {
	AadhaarStatus *VerificationStatus `json:"aadhaar_status,omitempty"`
	PANStatus     *VerificationStatus `json:"pan_status,omitempty"`
	KycStatus     VerificationStatus  `json:"kyc_status"`
}

// VerifyResponse is returned by both verification endpoints.
type VerifyResponse struct {
	RecordID     uuid.UUID          `json:"record_id"`
	DocumentKind DocumentKind       `json:"document_kind"`
	Status       VerificationStatus `json:"status"`
	Score        int                `json:"score"`
	Reasons      []string           `json:"reasons"`
	MatchFlags   MatchFlags         `json:"match_flags"`
	Extracted    SanitizedFields    `json:"extracted"`
	XMLFileID    uuid.UUID          `json:"xml_file_id"`
	Kyc          KycStateSnapshot   `json:"kyc"`
}

// RecordSummary is one redacted entry in the latest-KYC summary and in the
// attempt history listing.
type RecordSummary struct {
	RecordID     uuid.UUID          `json:"record_id"`
	DocumentKind DocumentKind       `json:"document_kind"`
	Status       VerificationStatus `json:"status"`
	Score        int                `json:"score"`
	Extracted    SanitizedFields    `json:"extracted"`
	XMLFileID    uuid.UUID          `json:"xml_file_id"`
	CreatedAt    time.Time          `json:"created_at"`
}

// KycSummary is the latest Aadhaar and PAN records for a customer, redacted.
type KycSummary struct {
	Aadhaar   *RecordSummary     `json:"aadhaar,omitempty"`
	PAN       *RecordSummary     `json:"pan,omitempty"`
	KycStatus VerificationStatus `json:"kyc_status"`
}
