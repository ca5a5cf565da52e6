// Package errors provides common, reusable error values and helpers.
package errors

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrUserNotFound     = errors.New("user not found")
	ErrCustomerNotFound = errors.New("customer not found")

	// KYC record errors
	ErrRecordNotFound   = errors.New("kyc record not found")
	ErrNoInputSupplied  = errors.New("no value or document supplied for verification")
	ErrInvalidAadhaar   = errors.New("invalid aadhaar number: must be 12 digits")
	ErrInvalidPAN       = errors.New("invalid pan: expected 5 letters, 4 digits, 1 letter")
	ErrDuplicateAadhaar = errors.New("aadhaar number already registered to another customer")
	ErrDuplicatePAN     = errors.New("pan already registered to another customer")

	// Artifact errors
	ErrArtifactNotFound     = errors.New("artifact not found")
	ErrArtifactOutsideRoot  = errors.New("artifact path resolves outside storage root")
	ErrArtifactStoreFailed  = errors.New("artifact storage failed")
	ErrArtifactAccessDenied = errors.New("access denied to artifact")

	// Extraction errors
	ErrToolUnavailable    = errors.New("external tool not available")
	ErrWrongPasscode      = errors.New("wrong passcode")
	ErrDecryptFailed      = errors.New("decryption failed")
	ErrNoExtractionMethod = errors.New("no text extraction method available")
	ErrExtractionFailed   = errors.New("text extraction failed")
)

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
