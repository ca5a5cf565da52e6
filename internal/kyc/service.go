// ==============================================================================
// KYC VERIFICATION SERVICE - internal/kyc/service.go
// ==============================================================================
// Document verification orchestration: extraction, scoring, status decision,
// and transactional persistence of artifacts and records
// ==============================================================================

package kyc

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"loanserve/internal/domain"
	"loanserve/internal/ekyc"
	"loanserve/internal/extract"
	kycerrors "loanserve/pkg/errors"
	"loanserve/pkg/logger"
	"loanserve/pkg/validator"
)

// ==============================================================================
// REPOSITORY INTERFACES
// ==============================================================================

// Repository defines the data persistence interface for KYC artifacts and
// verification records.
type Repository interface {
	BeginTransaction(ctx context.Context) (Transaction, error)
	CreateFileTx(ctx context.Context, tx Transaction, file *domain.KycFile) error
	CreateRecordTx(ctx context.Context, tx Transaction, record *domain.KycRecord) error
	FindFileByID(ctx context.Context, id uuid.UUID) (*domain.KycFile, error)
	FindLatestRecord(ctx context.Context, customerID uuid.UUID, kind domain.DocumentKind) (*domain.KycRecord, error)
	FindRecordsByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*domain.KycRecord, error)
}

// CustomerRepository defines customer-profile operations needed by the
// verification flow.
type CustomerRepository interface {
	GetOrCreateByUserID(ctx context.Context, userID uuid.UUID) (*domain.Customer, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*domain.Customer, error)
	FindByIDForUpdateTx(ctx context.Context, tx Transaction, id uuid.UUID) (*domain.Customer, error)
	UpdateKycStateTx(ctx context.Context, tx Transaction, customer *domain.Customer) error
}

type Transaction interface {
	Commit() error
	Rollback() error
}

// ArtifactStore abstracts the confined filesystem store.
type ArtifactStore interface {
	Save(userID uuid.UUID, fileName string, data []byte) (string, string, error)
	Read(storagePath string) ([]byte, error)
	Delete(storagePath string) error
}

// TextExtractor produces the raw text of a document through the configured
// provider chain.
type TextExtractor interface {
	ExtractText(ctx context.Context, documentPath string) (string, error)
}

// ArchiveParser reads an offline e-KYC package.
type ArchiveParser func(zipPath, passcode string) *ekyc.PackageData

// StatusEvent describes a committed verification outcome.
type StatusEvent struct {
	UserID       uuid.UUID                 `json:"user_id"`
	CustomerID   uuid.UUID                 `json:"customer_id"`
	RecordID     uuid.UUID                 `json:"record_id"`
	DocumentKind domain.DocumentKind       `json:"document_kind"`
	Status       domain.VerificationStatus `json:"status"`
	Overall      domain.VerificationStatus `json:"overall"`
	At           time.Time                 `json:"at"`
}

// Notifier receives status events after commit. Delivery is best effort and
// must never fail the verification call.
type Notifier interface {
	KycStatusChanged(ctx context.Context, event StatusEvent)
}

// ==============================================================================
// TRANSACTION TYPES
// ==============================================================================

// TransactionalContext holds the transaction and related context
type TransactionalContext struct {
	Tx  Transaction
	Ctx context.Context
}

// TransactionManager manages database transactions
type TransactionManager struct {
	repo Repository
}

// NewTransactionManager creates a new transaction manager
func NewTransactionManager(repo Repository) *TransactionManager {
	return &TransactionManager{repo: repo}
}

// WithTransaction executes a function within a transaction
func (tm *TransactionManager) WithTransaction(ctx context.Context, fn func(txCtx *TransactionalContext) error) error {
	tx, err := tm.repo.BeginTransaction(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	txCtx := &TransactionalContext{
		Tx:  tx,
		Ctx: ctx,
	}

	// Always rollback on error, commit on success
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(txCtx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ==============================================================================
// REQUEST TYPES
// ==============================================================================

// Upload is a file already received by the transport layer and staged at a
// temporary path. The service owns its lifecycle from here on.
type Upload struct {
	Path        string
	FileName    string
	ContentType string
	Size        int64
}

// AadhaarRequest carries one Aadhaar verification attempt. AadhaarNo is the
// asserted value; Archive and Document are mutually exclusive inputs, archive
// taking priority when both are present.
type AadhaarRequest struct {
	AadhaarNo        string
	DOB              string
	Archive          *Upload
	ArchivePasscode  string
	Document         *Upload
	DocumentPasscode string
}

// PANRequest carries one PAN verification attempt.
type PANRequest struct {
	PANNo            string
	DOB              string
	Document         *Upload
	DocumentPasscode string
}

// ==============================================================================
// SERVICE
// ==============================================================================

// Service implements the verification workflow for both document kinds.
type Service struct {
	repo         Repository
	customers    CustomerRepository
	txManager    *TransactionManager
	store        ArtifactStore
	decryptor    extract.Decryptor
	extractor    TextExtractor
	parseArchive ArchiveParser
	notifier     Notifier
	logger       logger.Logger
	now          func() time.Time
}

// NewService creates a verification service with all required dependencies.
// notifier may be nil.
func NewService(
	repo Repository,
	customers CustomerRepository,
	store ArtifactStore,
	decryptor extract.Decryptor,
	extractor TextExtractor,
	notifier Notifier,
	log logger.Logger,
) *Service {
	return &Service{
		repo:         repo,
		customers:    customers,
		txManager:    NewTransactionManager(repo),
		store:        store,
		decryptor:    decryptor,
		extractor:    extractor,
		parseArchive: ekyc.ParseArchive,
		notifier:     notifier,
		logger:       log,
		now:          time.Now,
	}
}

// ==============================================================================
// VERIFICATION OPERATIONS
// ==============================================================================

// VerifyAadhaar runs one Aadhaar verification attempt for the user. At least
// one of the asserted number, an offline e-KYC archive, or a document upload
// must be present.
func (s *Service) VerifyAadhaar(ctx context.Context, userID uuid.UUID, req *AadhaarRequest) (*domain.VerifyResponse, error) {
	defer s.discardUploads(req.Archive, req.Document)

	if req.AadhaarNo == "" && req.Archive == nil && req.Document == nil {
		return nil, kycerrors.ErrNoInputSupplied
	}
	if req.AadhaarNo != "" && !validator.IsValidAadhaar(req.AadhaarNo) {
		return nil, kycerrors.ErrInvalidAadhaar
	}

	customer, err := s.customers.GetOrCreateByUserID(ctx, userID)
	if err != nil {
		return nil, kycerrors.Wrap(err, "failed to load customer profile")
	}

	var fields domain.ExtractedFields
	source := domain.ExtractionSourceNone
	var sourceUpload *Upload

	switch {
	case req.Archive != nil:
		source = domain.ExtractionSourceZip
		sourceUpload = req.Archive
		pkg := s.parseArchive(req.Archive.Path, req.ArchivePasscode)
		if pkg.DecryptFailed {
			return nil, fmt.Errorf("%w: %s", kycerrors.ErrWrongPasscode, pkg.Err)
		}
		if pkg.Err != "" {
			// Parse trouble short of a decrypt failure still records the
			// attempt; the empty extraction keeps the score at zero.
			s.logger.Warn("Offline package parse incomplete", map[string]interface{}{
				"user_id": userID.String(),
				"reason":  pkg.Err,
			})
		}
		fields = domain.ExtractedFields{
			AadhaarNo: pkg.Last4,
			DOB:       pkg.DOB,
			Name:      pkg.Name,
			Gender:    pkg.Gender,
		}
	case req.Document != nil:
		source = domain.ExtractionSourcePDF
		sourceUpload = req.Document
		fields, err = s.extractDocument(ctx, req.Document, req.DocumentPasscode)
		if err != nil {
			return nil, err
		}
	}

	asserted := Asserted{AadhaarNo: req.AadhaarNo, DOB: req.DOB}
	return s.finalize(ctx, customer, domain.DocumentKindAadhaar, source, sourceUpload, fields, asserted)
}

// VerifyPAN runs one PAN verification attempt for the user.
func (s *Service) VerifyPAN(ctx context.Context, userID uuid.UUID, req *PANRequest) (*domain.VerifyResponse, error) {
	defer s.discardUploads(req.Document)

	if req.PANNo == "" && req.Document == nil {
		return nil, kycerrors.ErrNoInputSupplied
	}
	if req.PANNo != "" && !validator.IsValidPAN(strings.ToUpper(req.PANNo)) {
		return nil, kycerrors.ErrInvalidPAN
	}

	customer, err := s.customers.GetOrCreateByUserID(ctx, userID)
	if err != nil {
		return nil, kycerrors.Wrap(err, "failed to load customer profile")
	}

	var fields domain.ExtractedFields
	source := domain.ExtractionSourceNone
	var sourceUpload *Upload

	if req.Document != nil {
		source = domain.ExtractionSourcePDF
		sourceUpload = req.Document
		fields, err = s.extractDocument(ctx, req.Document, req.DocumentPasscode)
		if err != nil {
			return nil, err
		}
	}

	asserted := Asserted{PAN: strings.ToUpper(req.PANNo), DOB: req.DOB}
	return s.finalize(ctx, customer, domain.DocumentKindPAN, source, sourceUpload, fields, asserted)
}

// extractDocument decrypts the uploaded document if needed and runs the text
// extraction chain over it.
func (s *Service) extractDocument(ctx context.Context, up *Upload, passcode string) (domain.ExtractedFields, error) {
	workPath, err := s.decryptor.Decrypt(ctx, up.Path, passcode)
	if err != nil {
		return domain.ExtractedFields{}, err
	}
	if workPath != up.Path {
		defer os.Remove(workPath)
	}

	text, err := s.extractor.ExtractText(ctx, workPath)
	if err != nil {
		return domain.ExtractedFields{}, err
	}

	return extract.ParseFields(text), nil
}

// finalize scores the extraction and persists the whole outcome atomically:
// source artifact, generated XML artifact, verification record, and the
// customer state update happen in one transaction or not at all. Artifacts
// already written to the store are removed when the transaction rolls back.
func (s *Service) finalize(
	ctx context.Context,
	customer *domain.Customer,
	kind domain.DocumentKind,
	source domain.ExtractionSource,
	sourceUpload *Upload,
	fields domain.ExtractedFields,
	asserted Asserted,
) (*domain.VerifyResponse, error) {
	assessment, flags := Score(fields, asserted)
	status := DecideStatus(assessment.Score)
	now := s.now()

	var stored []string
	var record *domain.KycRecord
	var snapshot domain.KycStateSnapshot

	txErr := s.txManager.WithTransaction(ctx, func(txCtx *TransactionalContext) error {
		var sourceFileID *uuid.UUID
		if sourceUpload != nil {
			data, err := os.ReadFile(sourceUpload.Path)
			if err != nil {
				return kycerrors.Wrap(err, "failed to read uploaded document")
			}
			path, checksum, err := s.store.Save(customer.UserID, sourceUpload.FileName, data)
			if err != nil {
				return err
			}
			stored = append(stored, path)

			file := &domain.KycFile{
				ID:             uuid.New(),
				UserID:         customer.UserID,
				CustomerID:     customer.ID,
				Kind:           domain.FileKindSource,
				FileName:       sourceUpload.FileName,
				StoragePath:    sql.NullString{String: path, Valid: true},
				ContentType:    sourceUpload.ContentType,
				FileSize:       int64(len(data)),
				ChecksumSHA256: checksum,
				CreatedAt:      now,
			}
			if err := s.repo.CreateFileTx(txCtx.Ctx, txCtx.Tx, file); err != nil {
				return err
			}
			sourceFileID = &file.ID
		}

		xmlDoc, err := GenerateXML(kind, source, fields, assessment, status, now)
		if err != nil {
			return err
		}
		xmlFile := &domain.KycFile{
			ID:             uuid.New(),
			UserID:         customer.UserID,
			CustomerID:     customer.ID,
			Kind:           domain.FileKindXML,
			FileName:       fmt.Sprintf("%s-extract-%s.xml", strings.ToLower(string(kind)), now.UTC().Format("20060102T150405Z")),
			XMLContent:     sql.NullString{String: xmlDoc, Valid: true},
			ContentType:    "application/xml",
			FileSize:       int64(len(xmlDoc)),
			ChecksumSHA256: fmt.Sprintf("%x", sha256.Sum256([]byte(xmlDoc))),
			CreatedAt:      now,
		}
		if err := s.repo.CreateFileTx(txCtx.Ctx, txCtx.Tx, xmlFile); err != nil {
			return err
		}

		record = &domain.KycRecord{
			ID:           uuid.New(),
			UserID:       customer.UserID,
			CustomerID:   customer.ID,
			DocumentKind: kind,
			Source:       source,
			SourceFileID: sourceFileID,
			XMLFileID:    xmlFile.ID,
			Extracted:    fields,
			Score:        assessment.Score,
			Reasons:      assessment.Reasons,
			Status:       status,
			CreatedAt:    now,
		}
		if err := s.repo.CreateRecordTx(txCtx.Ctx, txCtx.Tx, record); err != nil {
			return err
		}

		locked, err := s.customers.FindByIDForUpdateTx(txCtx.Ctx, txCtx.Tx, customer.ID)
		if err != nil {
			return err
		}

		// Only asserted values touch the stored identifiers. Extracted values
		// are evidence, never authoritative.
		docStatus := status
		switch kind {
		case domain.DocumentKindAadhaar:
			if asserted.AadhaarNo != "" {
				locked.AadhaarNo = sql.NullString{String: asserted.AadhaarNo, Valid: true}
			}
			locked.AadhaarStatus = &docStatus
		case domain.DocumentKindPAN:
			if asserted.PAN != "" {
				locked.PANNo = sql.NullString{String: asserted.PAN, Valid: true}
			}
			locked.PANStatus = &docStatus
		}
		locked.LatestKycID = &record.ID
		locked.KycStatus = locked.OverallStatus()
		locked.UpdatedAt = now

		if err := s.customers.UpdateKycStateTx(txCtx.Ctx, txCtx.Tx, locked); err != nil {
			return err
		}

		snapshot = domain.KycStateSnapshot{
			AadhaarStatus: locked.AadhaarStatus,
			PANStatus:     locked.PANStatus,
			KycStatus:     locked.KycStatus,
		}
		return nil
	})
	if txErr != nil {
		for _, p := range stored {
			if err := s.store.Delete(p); err != nil {
				s.logger.Warn("Failed to remove artifact after rollback", map[string]interface{}{
					"path":  p,
					"error": err.Error(),
				})
			}
		}
		return nil, txErr
	}

	s.logger.Info("Verification recorded", map[string]interface{}{
		"user_id":       customer.UserID.String(),
		"customer_id":   customer.ID.String(),
		"record_id":     record.ID.String(),
		"document_kind": string(kind),
		"source":        string(source),
		"score":         assessment.Score,
		"status":        string(status),
	})

	if s.notifier != nil {
		s.notifier.KycStatusChanged(ctx, StatusEvent{
			UserID:       customer.UserID,
			CustomerID:   customer.ID,
			RecordID:     record.ID,
			DocumentKind: kind,
			Status:       status,
			Overall:      snapshot.KycStatus,
			At:           now,
		})
	}

	return &domain.VerifyResponse{
		RecordID:     record.ID,
		DocumentKind: kind,
		Status:       status,
		Score:        assessment.Score,
		Reasons:      assessment.Reasons,
		MatchFlags:   flags,
		Extracted:    Redact(fields),
		XMLFileID:    record.XMLFileID,
		Kyc:          snapshot,
	}, nil
}

// ==============================================================================
// READ OPERATIONS
// ==============================================================================

// LatestSummary returns the redacted latest record per document kind. A user
// with no customer profile yet gets an empty summary with the default status.
func (s *Service) LatestSummary(ctx context.Context, userID uuid.UUID) (*domain.KycSummary, error) {
	customer, err := s.customers.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, kycerrors.ErrCustomerNotFound) {
			return &domain.KycSummary{KycStatus: domain.AggregateStatus(nil, nil)}, nil
		}
		return nil, kycerrors.Wrap(err, "failed to load customer profile")
	}

	summary := &domain.KycSummary{KycStatus: customer.KycStatus}
	for _, kind := range []domain.DocumentKind{domain.DocumentKindAadhaar, domain.DocumentKindPAN} {
		rec, err := s.repo.FindLatestRecord(ctx, customer.ID, kind)
		if err != nil {
			if errors.Is(err, kycerrors.ErrRecordNotFound) {
				continue
			}
			return nil, kycerrors.Wrap(err, "failed to load latest record")
		}
		entry := recordSummary(rec)
		if kind == domain.DocumentKindAadhaar {
			summary.Aadhaar = entry
		} else {
			summary.PAN = entry
		}
	}
	return summary, nil
}

// History returns the user's verification attempts, newest first and
// redacted. A user with no customer profile yet has an empty history.
func (s *Service) History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.RecordSummary, error) {
	customer, err := s.customers.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, kycerrors.ErrCustomerNotFound) {
			return []*domain.RecordSummary{}, nil
		}
		return nil, kycerrors.Wrap(err, "failed to load customer profile")
	}

	records, err := s.repo.FindRecordsByCustomer(ctx, customer.ID, limit, offset)
	if err != nil {
		return nil, kycerrors.Wrap(err, "failed to list verification history")
	}

	entries := make([]*domain.RecordSummary, 0, len(records))
	for _, rec := range records {
		entries = append(entries, recordSummary(rec))
	}
	return entries, nil
}

func recordSummary(rec *domain.KycRecord) *domain.RecordSummary {
	return &domain.RecordSummary{
		RecordID:     rec.ID,
		DocumentKind: rec.DocumentKind,
		Status:       rec.Status,
		Score:        rec.Score,
		Extracted:    Redact(rec.Extracted),
		XMLFileID:    rec.XMLFileID,
		CreatedAt:    rec.CreatedAt,
	}
}

// DownloadArtifact returns an artifact row and its bytes. Only the owning
// user or an admin may read it.
func (s *Service) DownloadArtifact(ctx context.Context, callerID uuid.UUID, callerRole string, fileID uuid.UUID) (*domain.KycFile, []byte, error) {
	file, err := s.repo.FindFileByID(ctx, fileID)
	if err != nil {
		return nil, nil, err
	}
	if file.UserID != callerID && callerRole != domain.RoleAdmin {
		return nil, nil, kycerrors.ErrArtifactAccessDenied
	}

	if file.XMLContent.Valid {
		return file, []byte(file.XMLContent.String), nil
	}
	if !file.StoragePath.Valid {
		return nil, nil, kycerrors.ErrArtifactNotFound
	}
	data, err := s.store.Read(file.StoragePath.String)
	if err != nil {
		return nil, nil, err
	}
	return file, data, nil
}

// discardUploads removes staged temporary uploads. Missing files are fine;
// nothing here is an error worth surfacing.
func (s *Service) discardUploads(uploads ...*Upload) {
	for _, up := range uploads {
		if up == nil || up.Path == "" {
			continue
		}
		if err := os.Remove(up.Path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("Failed to remove staged upload", map[string]interface{}{
				"path":  up.Path,
				"error": err.Error(),
			})
		}
	}
}
