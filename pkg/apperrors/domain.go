package apperrors

import (
	"fmt"
	"net/http"
	"strings"
)

const bytesPerMiB = 1024 * 1024

// ErrNotFound converts a repository miss into a 404.
func ErrNotFound(err error) *AppError {
	return Wrap(err, CodeNotFound, "resource", "Resource not found", http.StatusNotFound)
}

func ErrDatabase(err error) *AppError {
	return Wrap(err, CodeDatabaseError, "database", "Database operation failed", http.StatusInternalServerError)
}

func ErrStorage(err error) *AppError {
	return Wrap(err, CodeStorageError, "storage", "File storage operation failed", http.StatusInternalServerError)
}

func ErrInvalidToken(err error) *AppError {
	return Wrap(err, CodeInvalidToken, "signing", "Invalid or expired file token", http.StatusForbidden)
}

// --- Image ingestion ---

func ErrNoFileProvided() *AppError {
	return New(CodeNoFileProvided, "image", "No file uploaded", http.StatusBadRequest)
}

// ErrContentMismatch is returned when the leading bytes do not match the declared type.
// detected may be empty when the payload matches no known format.
func ErrContentMismatch(declared, detected string) *AppError {
	msg := fmt.Sprintf("File content does not match declared type %s", declared)
	details := map[string]string{"declared": declared}
	if detected != "" {
		msg += fmt.Sprintf(" (looks like %s)", detected)
		details["detected"] = detected
	}
	return New(CodeContentMismatch, "image", msg, http.StatusBadRequest).WithDetails(details)
}

func ErrMalformedEncoding(err error) *AppError {
	return Wrap(err, CodeMalformedEncoding, "image", "Invalid base64 image data", http.StatusBadRequest)
}

// ErrPayloadTooLarge states the computed size and the ceiling in MiB.
func ErrPayloadTooLarge(size, limit int64) *AppError {
	msg := fmt.Sprintf("File too large: %.2f MiB. Maximum size is %s MiB",
		float64(size)/bytesPerMiB, formatMiB(limit))
	return New(CodePayloadTooLarge, "image", msg, http.StatusRequestEntityTooLarge).
		WithDetails(map[string]int64{"size": size, "limit": limit})
}

// ErrUnsupportedType enumerates the allowed set in its message.
func ErrUnsupportedType(got string, allowed []string) *AppError {
	if got == "" {
		got = "unknown"
	}
	msg := fmt.Sprintf("Unsupported image type %s. Allowed types: %s", got, strings.Join(allowed, ", "))
	return New(CodeUnsupportedType, "image", msg, http.StatusUnsupportedMediaType).
		WithDetails(map[string]interface{}{"type": got, "allowed": allowed})
}

// ErrImageValidation wraps an unexpected fault raised while validating an image.
// The original message is kept for diagnostics.
func ErrImageValidation(err error) *AppError {
	return Wrap(err, CodeValidationError, "image", "Image validation failed: "+err.Error(), http.StatusInternalServerError)
}

func formatMiB(n int64) string {
	if n%bytesPerMiB == 0 {
		return fmt.Sprintf("%d", n/bytesPerMiB)
	}
	return fmt.Sprintf("%.2f", float64(n)/bytesPerMiB)
}
