package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loanserve/internal/domain"
	"loanserve/internal/kyc"
	"loanserve/internal/middleware"
	kycerrors "loanserve/pkg/errors"
	"loanserve/pkg/logger"
	"loanserve/pkg/validator"
)

// ==============================================================================
// STUBS
// ==============================================================================

type stubRepo struct {
	file    *domain.KycFile
	fileErr error
	records []*domain.KycRecord
}

func (s *stubRepo) BeginTransaction(context.Context) (kyc.Transaction, error) { return nil, nil }
func (s *stubRepo) CreateFileTx(context.Context, kyc.Transaction, *domain.KycFile) error {
	return nil
}
func (s *stubRepo) CreateRecordTx(context.Context, kyc.Transaction, *domain.KycRecord) error {
	return nil
}
func (s *stubRepo) FindFileByID(context.Context, uuid.UUID) (*domain.KycFile, error) {
	return s.file, s.fileErr
}
func (s *stubRepo) FindLatestRecord(context.Context, uuid.UUID, domain.DocumentKind) (*domain.KycRecord, error) {
	return nil, kycerrors.ErrRecordNotFound
}
func (s *stubRepo) FindRecordsByCustomer(context.Context, uuid.UUID, int, int) ([]*domain.KycRecord, error) {
	return s.records, nil
}

type stubCustomers struct {
	customer *domain.Customer
}

func (s *stubCustomers) GetOrCreateByUserID(context.Context, uuid.UUID) (*domain.Customer, error) {
	return s.customer, nil
}
func (s *stubCustomers) FindByUserID(context.Context, uuid.UUID) (*domain.Customer, error) {
	if s.customer == nil {
		return nil, kycerrors.ErrCustomerNotFound
	}
	return s.customer, nil
}
func (s *stubCustomers) FindByIDForUpdateTx(context.Context, kyc.Transaction, uuid.UUID) (*domain.Customer, error) {
	return s.customer, nil
}
func (s *stubCustomers) UpdateKycStateTx(context.Context, kyc.Transaction, *domain.Customer) error {
	return nil
}

type stubStore struct {
	data []byte
	err  error
}

func (s *stubStore) Save(uuid.UUID, string, []byte) (string, string, error) { return "", "", nil }
func (s *stubStore) Read(string) ([]byte, error)                            { return s.data, s.err }
func (s *stubStore) Delete(string) error                                    { return nil }

// ==============================================================================
// HELPERS
// ==============================================================================

func newTestHandler(repo *stubRepo, customers *stubCustomers, store *stubStore) *KycHandler {
	svc := kyc.NewService(repo, customers, store, nil, nil, nil, logger.NewNop())
	return NewKycHandler(svc, nil, validator.New(), logger.NewNop(), 10<<20, time.Second)
}

func downloadRequest(fileID string, userID uuid.UUID, role string, authenticated bool) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/kyc/files/"+fileID, nil)
	r = mux.SetURLVars(r, map[string]string{"fileID": fileID})
	if authenticated {
		r = r.WithContext(middleware.ContextWithIdentity(r.Context(), userID, "", role))
	}
	return r
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

// ==============================================================================
// ARTIFACT DOWNLOAD
// ==============================================================================

func TestDownloadArtifact_RequiresAuthentication(t *testing.T) {
	h := newTestHandler(&stubRepo{}, &stubCustomers{}, &stubStore{})

	rec := httptest.NewRecorder()
	h.DownloadArtifact(rec, downloadRequest(uuid.New().String(), uuid.Nil, "", false))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDownloadArtifact_InvalidFileID(t *testing.T) {
	h := newTestHandler(&stubRepo{}, &stubCustomers{}, &stubStore{})

	rec := httptest.NewRecorder()
	h.DownloadArtifact(rec, downloadRequest("not-a-uuid", uuid.New(), "customer", true))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDownloadArtifact_NotFound(t *testing.T) {
	h := newTestHandler(&stubRepo{fileErr: kycerrors.ErrArtifactNotFound}, &stubCustomers{}, &stubStore{})

	rec := httptest.NewRecorder()
	h.DownloadArtifact(rec, downloadRequest(uuid.New().String(), uuid.New(), "customer", true))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownloadArtifact_ForbiddenForOtherUser(t *testing.T) {
	owner := uuid.New()
	file := &domain.KycFile{ID: uuid.New(), UserID: owner, FileName: "pan.pdf", ContentType: "application/pdf"}
	file.XMLContent = sql.NullString{String: "<KycExtract/>", Valid: true}
	h := newTestHandler(&stubRepo{file: file}, &stubCustomers{}, &stubStore{})

	rec := httptest.NewRecorder()
	h.DownloadArtifact(rec, downloadRequest(file.ID.String(), uuid.New(), "customer", true))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NotContains(t, rec.Body.String(), "KycExtract")
}

func TestDownloadArtifact_OwnerGetsInlineXML(t *testing.T) {
	owner := uuid.New()
	file := &domain.KycFile{ID: uuid.New(), UserID: owner, FileName: "aadhaar-extract.xml", ContentType: "application/xml"}
	file.XMLContent = sql.NullString{String: "<KycExtract/>", Valid: true}
	h := newTestHandler(&stubRepo{file: file}, &stubCustomers{}, &stubStore{})

	rec := httptest.NewRecorder()
	h.DownloadArtifact(rec, downloadRequest(file.ID.String(), owner, "customer", true))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<KycExtract/>", rec.Body.String())
	assert.Equal(t, "application/xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "aadhaar-extract.xml")
}

func TestDownloadArtifact_AdminAllowed(t *testing.T) {
	file := &domain.KycFile{ID: uuid.New(), UserID: uuid.New(), FileName: "pan.pdf", ContentType: "application/pdf"}
	file.StoragePath = sql.NullString{String: "users/x/pan.pdf", Valid: true}
	h := newTestHandler(&stubRepo{file: file}, &stubCustomers{}, &stubStore{data: []byte("%PDF")})

	rec := httptest.NewRecorder()
	h.DownloadArtifact(rec, downloadRequest(file.ID.String(), uuid.New(), domain.RoleAdmin, true))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "%PDF", rec.Body.String())
}

func TestDownloadArtifact_OutsideRootMapsToNotFound(t *testing.T) {
	owner := uuid.New()
	file := &domain.KycFile{ID: uuid.New(), UserID: owner, FileName: "pan.pdf", ContentType: "application/pdf"}
	file.StoragePath = sql.NullString{String: "../../etc/passwd", Valid: true}
	h := newTestHandler(&stubRepo{file: file}, &stubCustomers{}, &stubStore{err: kycerrors.ErrArtifactOutsideRoot})

	rec := httptest.NewRecorder()
	h.DownloadArtifact(rec, downloadRequest(file.ID.String(), owner, "customer", true))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ==============================================================================
// HISTORY AND SUMMARY
// ==============================================================================

func TestHistory_ReturnsRedactedRecords(t *testing.T) {
	customer := &domain.Customer{ID: uuid.New(), UserID: uuid.New(), KycStatus: domain.StatusPending}
	repo := &stubRepo{records: []*domain.KycRecord{{
		ID:           uuid.New(),
		CustomerID:   customer.ID,
		DocumentKind: domain.DocumentKindPAN,
		Extracted:    domain.ExtractedFields{PAN: "ABCDE1234F"},
		Score:        1,
		Status:       domain.StatusNeedsReview,
	}}}
	h := newTestHandler(repo, &stubCustomers{customer: customer}, &stubStore{})

	r := httptest.NewRequest(http.MethodGet, "/api/v1/kyc/history", nil)
	r = r.WithContext(middleware.ContextWithIdentity(r.Context(), customer.UserID, "", "customer"))
	rec := httptest.NewRecorder()
	h.History(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ABCXXXXF")
	assert.NotContains(t, rec.Body.String(), "ABCDE1234F")
}

func TestSummary_EmptyForNewUser(t *testing.T) {
	h := newTestHandler(&stubRepo{}, &stubCustomers{}, &stubStore{})

	r := httptest.NewRequest(http.MethodGet, "/api/v1/kyc/summary", nil)
	r = r.WithContext(middleware.ContextWithIdentity(r.Context(), uuid.New(), "", "customer"))
	rec := httptest.NewRecorder()
	h.Summary(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), string(domain.StatusPending))
}

// ==============================================================================
// SERVICE ERROR MAPPING
// ==============================================================================

func TestRespondServiceError_StatusMapping(t *testing.T) {
	h := newTestHandler(&stubRepo{}, &stubCustomers{}, &stubStore{})

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"no input", kycerrors.ErrNoInputSupplied, http.StatusBadRequest},
		{"invalid aadhaar", kycerrors.ErrInvalidAadhaar, http.StatusBadRequest},
		{"invalid pan", kycerrors.ErrInvalidPAN, http.StatusBadRequest},
		{"wrong passcode", kycerrors.ErrWrongPasscode, http.StatusUnprocessableEntity},
		{"decrypt failed", kycerrors.ErrDecryptFailed, http.StatusUnprocessableEntity},
		{"extraction failed", kycerrors.ErrExtractionFailed, http.StatusUnprocessableEntity},
		{"no extraction method", kycerrors.ErrNoExtractionMethod, http.StatusServiceUnavailable},
		{"tool unavailable", kycerrors.ErrToolUnavailable, http.StatusServiceUnavailable},
		{"duplicate aadhaar", kycerrors.ErrDuplicateAadhaar, http.StatusConflict},
		{"duplicate pan", kycerrors.ErrDuplicatePAN, http.StatusConflict},
		{"unknown", assert.AnError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.respondServiceError(rec, tt.err)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestRespondServiceError_DuplicateCarriesField(t *testing.T) {
	h := newTestHandler(&stubRepo{}, &stubCustomers{}, &stubStore{})

	rec := httptest.NewRecorder()
	h.respondServiceError(rec, kycerrors.ErrDuplicateAadhaar)
	assert.Equal(t, "aadhaar_no", decodeError(t, rec)["field"])

	rec = httptest.NewRecorder()
	h.respondServiceError(rec, kycerrors.ErrDuplicatePAN)
	assert.Equal(t, "pan_no", decodeError(t, rec)["field"])
}
