// ==============================================================================
// KYC VERIFICATION HANDLER - internal/handler/kyc.go
// ==============================================================================
// Multipart verification endpoints, artifact download, and the cached summary
// ==============================================================================

package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"loanserve/internal/domain"
	"loanserve/internal/kyc"
	"loanserve/internal/middleware"
	"loanserve/pkg/cache"
	kycerrors "loanserve/pkg/errors"
	"loanserve/pkg/logger"
	"loanserve/pkg/validator"
)

// KycHandler manages the verification endpoints.
type KycHandler struct {
	service       *kyc.Service
	cache         *cache.RedisCache
	validator     *validator.Validator
	logger        logger.Logger
	maxUploadSize int64
	summaryTTL    time.Duration
}

// NewKycHandler creates a KycHandler.
func NewKycHandler(service *kyc.Service, c *cache.RedisCache, v *validator.Validator, log logger.Logger, maxUploadSize int64, summaryTTL time.Duration) *KycHandler {
	return &KycHandler{
		service:       service,
		cache:         c,
		validator:     v,
		logger:        log,
		maxUploadSize: maxUploadSize,
		summaryTTL:    summaryTTL,
	}
}

// aadhaarForm and panForm carry the asserted form fields through struct
// validation before any upload is staged.
type aadhaarForm struct {
	AadhaarNo string `validate:"omitempty,aadhaar"`
	DOB       string `validate:"omitempty,max=10"`
}

type panForm struct {
	PANNo string `validate:"omitempty,pan"`
	DOB   string `validate:"omitempty,max=10"`
}

// VerifyAadhaar accepts an asserted number plus an optional offline e-KYC
// archive or document upload and runs one verification attempt.
func (h *KycHandler) VerifyAadhaar(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	if err := h.parseForm(w, r); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	form := aadhaarForm{
		AadhaarNo: strings.TrimSpace(r.FormValue("aadhaar_no")),
		DOB:       strings.TrimSpace(r.FormValue("dob")),
	}
	if errs := h.validator.ValidateStructured(form); errs != nil {
		h.respondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  "Validation failed",
			"fields": errs,
		})
		return
	}

	archive, err := h.stageUpload(r, "zip_file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	document, err := h.stageUpload(r, "pdf_file")
	if err != nil {
		discard(archive)
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	req := &kyc.AadhaarRequest{
		AadhaarNo:        form.AadhaarNo,
		DOB:              form.DOB,
		Archive:          archive,
		ArchivePasscode:  r.FormValue("zip_passcode"),
		Document:         document,
		DocumentPasscode: r.FormValue("pdf_passcode"),
	}

	resp, err := h.service.VerifyAadhaar(r.Context(), userID, req)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.invalidateSummary(r, userID)
	h.respondJSON(w, http.StatusCreated, resp)
}

// VerifyPAN accepts an asserted PAN plus an optional document upload and runs
// one verification attempt.
func (h *KycHandler) VerifyPAN(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	if err := h.parseForm(w, r); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	form := panForm{
		PANNo: strings.TrimSpace(r.FormValue("pan_no")),
		DOB:   strings.TrimSpace(r.FormValue("dob")),
	}
	if errs := h.validator.ValidateStructured(form); errs != nil {
		h.respondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  "Validation failed",
			"fields": errs,
		})
		return
	}

	document, err := h.stageUpload(r, "pdf_file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	req := &kyc.PANRequest{
		PANNo:            form.PANNo,
		DOB:              form.DOB,
		Document:         document,
		DocumentPasscode: r.FormValue("pdf_passcode"),
	}

	resp, err := h.service.VerifyPAN(r.Context(), userID, req)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.invalidateSummary(r, userID)
	h.respondJSON(w, http.StatusCreated, resp)
}

// Summary returns the latest redacted record per document kind. Responses are
// cached per user for a short TTL; verifications invalidate the entry.
func (h *KycHandler) Summary(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	key := summaryCacheKey(userID)
	if h.cache != nil {
		var cached domain.KycSummary
		if err := h.cache.Get(r.Context(), key, &cached); err == nil {
			h.respondJSON(w, http.StatusOK, &cached)
			return
		}
	}

	summary, err := h.service.LatestSummary(r.Context(), userID)
	if err != nil {
		h.logger.Error("Summary lookup failed", map[string]interface{}{
			"user_id": userID.String(),
			"error":   err.Error(),
		})
		h.respondError(w, http.StatusInternalServerError, "Failed to load summary")
		return
	}

	if h.cache != nil {
		if err := h.cache.Set(r.Context(), key, summary, h.summaryTTL); err != nil {
			h.logger.Warn("Summary cache write failed", map[string]interface{}{"error": err.Error()})
		}
	}
	h.respondJSON(w, http.StatusOK, summary)
}

const (
	historyDefaultLimit = 20
	historyMaxLimit     = 100
)

// History lists the user's verification attempts, newest first.
func (h *KycHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	limit := queryInt(r, "limit", historyDefaultLimit)
	if limit < 1 || limit > historyMaxLimit {
		limit = historyDefaultLimit
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	entries, err := h.service.History(r.Context(), userID, limit, offset)
	if err != nil {
		h.logger.Error("History lookup failed", map[string]interface{}{
			"user_id": userID.String(),
			"error":   err.Error(),
		})
		h.respondError(w, http.StatusInternalServerError, "Failed to load history")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"records": entries})
}

// DownloadArtifact streams a stored artifact to its owner or an admin.
func (h *KycHandler) DownloadArtifact(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	role, _ := middleware.RoleFromContext(r.Context())

	fileID, err := uuid.Parse(mux.Vars(r)["fileID"])
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid file ID")
		return
	}

	file, data, err := h.service.DownloadArtifact(r.Context(), userID, role, fileID)
	if err != nil {
		switch {
		case errors.Is(err, kycerrors.ErrArtifactNotFound):
			h.respondError(w, http.StatusNotFound, "Artifact not found")
		case errors.Is(err, kycerrors.ErrArtifactAccessDenied):
			h.respondError(w, http.StatusForbidden, "Access denied")
		case errors.Is(err, kycerrors.ErrArtifactOutsideRoot):
			h.respondError(w, http.StatusNotFound, "Artifact not found")
		default:
			h.logger.Error("Artifact download failed", map[string]interface{}{
				"file_id": fileID.String(),
				"error":   err.Error(),
			})
			h.respondError(w, http.StatusInternalServerError, "Failed to read artifact")
		}
		return
	}

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.FileName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// ==============================================================================
// HELPERS
// ==============================================================================

func queryInt(r *http.Request, key string, defaultValue int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return n
}

func summaryCacheKey(userID uuid.UUID) string {
	return "kyc:summary:" + userID.String()
}

func (h *KycHandler) invalidateSummary(r *http.Request, userID uuid.UUID) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Delete(r.Context(), summaryCacheKey(userID)); err != nil {
		h.logger.Warn("Summary cache invalidation failed", map[string]interface{}{
			"user_id": userID.String(),
			"error":   err.Error(),
		})
	}
}

func (h *KycHandler) parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+(1<<20))
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		if err == http.ErrNotMultipart {
			return fmt.Errorf("request is not multipart form")
		}
		if strings.Contains(err.Error(), "request body too large") {
			return fmt.Errorf("request body exceeds maximum size")
		}
		return fmt.Errorf("failed to parse multipart form: %w", err)
	}
	return nil
}

// stageUpload copies one optional form file to a temp path the service takes
// ownership of. A missing field is not an error.
func (h *KycHandler) stageUpload(r *http.Request, field string) (*kyc.Upload, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if err == http.ErrMissingFile {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", field, err)
	}
	defer file.Close()

	tmp, err := os.CreateTemp("", "kyc_upload_*")
	if err != nil {
		return nil, fmt.Errorf("failed to stage upload: %w", err)
	}
	size, err := io.Copy(tmp, file)
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to stage upload: %w", err)
	}

	return &kyc.Upload{
		Path:        tmp.Name(),
		FileName:    header.Filename,
		ContentType: contentTypeFor(header),
		Size:        size,
	}, nil
}

func contentTypeFor(header *multipart.FileHeader) string {
	if ct := header.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func discard(up *kyc.Upload) {
	if up != nil && up.Path != "" {
		os.Remove(up.Path)
	}
}

// respondServiceError maps service errors onto HTTP statuses. Validation and
// passcode problems are client errors; duplicates are field-level conflicts.
func (h *KycHandler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, kycerrors.ErrNoInputSupplied):
		h.respondError(w, http.StatusBadRequest, kycerrors.ErrNoInputSupplied.Error())
	case errors.Is(err, kycerrors.ErrInvalidAadhaar):
		h.respondError(w, http.StatusBadRequest, kycerrors.ErrInvalidAadhaar.Error())
	case errors.Is(err, kycerrors.ErrInvalidPAN):
		h.respondError(w, http.StatusBadRequest, kycerrors.ErrInvalidPAN.Error())
	case errors.Is(err, kycerrors.ErrWrongPasscode):
		h.respondError(w, http.StatusUnprocessableEntity, "Wrong passcode for uploaded document")
	case errors.Is(err, kycerrors.ErrDecryptFailed):
		h.respondError(w, http.StatusUnprocessableEntity, "Failed to decrypt uploaded document")
	case errors.Is(err, kycerrors.ErrNoExtractionMethod):
		h.respondError(w, http.StatusServiceUnavailable, "No text extraction method available")
	case errors.Is(err, kycerrors.ErrToolUnavailable):
		h.respondError(w, http.StatusServiceUnavailable, "Document processing tools unavailable")
	case errors.Is(err, kycerrors.ErrExtractionFailed):
		h.respondError(w, http.StatusUnprocessableEntity, "Could not extract text from document")
	case errors.Is(err, kycerrors.ErrDuplicateAadhaar):
		h.respondJSON(w, http.StatusConflict, map[string]string{
			"error": kycerrors.ErrDuplicateAadhaar.Error(),
			"field": "aadhaar_no",
		})
	case errors.Is(err, kycerrors.ErrDuplicatePAN):
		h.respondJSON(w, http.StatusConflict, map[string]string{
			"error": kycerrors.ErrDuplicatePAN.Error(),
			"field": "pan_no",
		})
	default:
		h.logger.Error("Verification failed", map[string]interface{}{"error": err.Error()})
		h.respondError(w, http.StatusInternalServerError, "Verification failed")
	}
}

func (h *KycHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("json encode failed", map[string]interface{}{"error": err.Error()})
		_, _ = w.Write([]byte(`{"error":"response encoding failed"}`))
	}
}

func (h *KycHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
