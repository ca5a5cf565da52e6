// ==============================================================================
// KYC REPOSITORY IMPLEMENTATION - internal/repository/postgres/kyc.go
// ==============================================================================
// Persistence for verification artifacts and append-only verification records
// ==============================================================================

package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"loanserve/internal/domain"
	"loanserve/internal/kyc"
	"loanserve/pkg/errors"
)

// KycRepository implements kyc.Repository.
type KycRepository struct {
	db *sqlx.DB
}

// NewKycRepository creates a new KycRepository
func NewKycRepository(db *sqlx.DB) *KycRepository {
	return &KycRepository{db: db}
}

// BeginTransaction opens a database transaction for the verification flow.
func (r *KycRepository) BeginTransaction(ctx context.Context) (kyc.Transaction, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	return &sqlxTransaction{tx: tx}, nil
}

// CreateFileTx inserts an artifact row inside the given transaction.
func (r *KycRepository) CreateFileTx(ctx context.Context, tx kyc.Transaction, file *domain.KycFile) error {
	stx, err := unwrapTx(tx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO kyc_files (
			id, user_id, customer_id, kind, file_name, storage_path,
			xml_content, content_type, file_size, checksum_sha256, created_at
		) VALUES (
			:id, :user_id, :customer_id, :kind, :file_name, :storage_path,
			:xml_content, :content_type, :file_size, :checksum_sha256, :created_at
		)
	`

	if _, err := stx.NamedExecContext(ctx, query, file); err != nil {
		return errors.Wrap(err, "failed to create kyc file")
	}
	return nil
}

// CreateRecordTx inserts a verification record inside the given transaction.
// Records are never updated after this point.
func (r *KycRepository) CreateRecordTx(ctx context.Context, tx kyc.Transaction, record *domain.KycRecord) error {
	stx, err := unwrapTx(tx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO kyc_records (
			id, user_id, customer_id, document_kind, source, source_file_id,
			xml_file_id, extracted, score, reasons, status, created_at
		) VALUES (
			:id, :user_id, :customer_id, :document_kind, :source, :source_file_id,
			:xml_file_id, :extracted, :score, :reasons, :status, :created_at
		)
	`

	if _, err := stx.NamedExecContext(ctx, query, record); err != nil {
		return errors.Wrap(err, "failed to create kyc record")
	}
	return nil
}

// FindFileByID fetches one artifact row.
func (r *KycRepository) FindFileByID(ctx context.Context, id uuid.UUID) (*domain.KycFile, error) {
	var file domain.KycFile
	query := `
		SELECT id, user_id, customer_id, kind, file_name, storage_path,
		       xml_content, content_type, file_size, checksum_sha256, created_at
		FROM kyc_files WHERE id = $1`

	err := r.db.GetContext(ctx, &file, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.ErrArtifactNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find kyc file")
	}
	return &file, nil
}

// FindLatestRecord fetches the newest verification record of one kind for a
// customer.
func (r *KycRepository) FindLatestRecord(ctx context.Context, customerID uuid.UUID, kind domain.DocumentKind) (*domain.KycRecord, error) {
	var record domain.KycRecord
	query := `
		SELECT id, user_id, customer_id, document_kind, source, source_file_id,
		       xml_file_id, extracted, score, reasons, status, created_at
		FROM kyc_records
		WHERE customer_id = $1 AND document_kind = $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1`

	err := r.db.GetContext(ctx, &record, query, customerID, kind)
	if err == sql.ErrNoRows {
		return nil, errors.ErrRecordNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find latest kyc record")
	}
	return &record, nil
}

// FindRecordsByCustomer returns the full attempt history, newest first.
func (r *KycRepository) FindRecordsByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*domain.KycRecord, error) {
	var records []*domain.KycRecord
	query := `
		SELECT id, user_id, customer_id, document_kind, source, source_file_id,
		       xml_file_id, extracted, score, reasons, status, created_at
		FROM kyc_records
		WHERE customer_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	if err := r.db.SelectContext(ctx, &records, query, customerID, limit, offset); err != nil {
		return nil, errors.Wrap(err, "failed to list kyc records")
	}
	return records, nil
}
