package apperrors

// ErrorCode is the stable, machine-readable error identifier sent to clients.
type ErrorCode string

// Generic codes
const (
	CodeInternalError    ErrorCode = "INTERNAL_ERROR"
	CodeDatabaseError    ErrorCode = "DATABASE_ERROR"
	CodeStorageError     ErrorCode = "STORAGE_ERROR"
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	CodeInvalidToken     ErrorCode = "INVALID_TOKEN"
)

// Image ingestion codes
const (
	CodeNoFileProvided    ErrorCode = "NO_FILE_PROVIDED"
	CodeContentMismatch   ErrorCode = "CONTENT_MISMATCH"
	CodeMalformedEncoding ErrorCode = "MALFORMED_ENCODING"
	CodePayloadTooLarge   ErrorCode = "PAYLOAD_TOO_LARGE"
	CodeUnsupportedType   ErrorCode = "UNSUPPORTED_TYPE"
	CodeValidationError   ErrorCode = "VALIDATION_ERROR"
)
