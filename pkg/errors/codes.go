package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
// Codes follow the MODULE_NNN convention so dashboards can group by prefix.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeUnauthorized       ErrorCode = "COMMON_003"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeFeatureDisabled    ErrorCode = "COMMON_015"
	ErrCodeNotImplemented     ErrorCode = "COMMON_016"
)

// Aliases kept short for call sites.
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeConflict     = ErrCodeConflict
	CodeOK           = ErrorCode("OK")
	CodeUnknown      = ErrorCode("UNKNOWN")
)

// Evidence Module Error Codes
const (
	ErrCodeEvidenceEmpty           ErrorCode = "EVD_001"
	ErrCodeEvidenceTooLarge        ErrorCode = "EVD_002"
	ErrCodeEvidenceTypeUnsupported ErrorCode = "EVD_003"
	ErrCodeEvidenceNotFound        ErrorCode = "EVD_004"
	ErrCodeEvidenceUploadFailed    ErrorCode = "EVD_005"
)

// Precedent Module Error Codes
const (
	ErrCodePrecedentSearchFailed ErrorCode = "PRC_001"
	ErrCodePrecedentIndexFailed  ErrorCode = "PRC_002"
	ErrCodePrecedentNotFound     ErrorCode = "PRC_003"
	ErrCodeDiagnosisNotFound     ErrorCode = "PRC_004"
)

// Engine Error Codes (OCR, ASR, diarization, LLM)
const (
	ErrCodeOCRFailed             ErrorCode = "ENG_001"
	ErrCodeTranscriptionFailed   ErrorCode = "ENG_002"
	ErrCodeDiarizationFailed     ErrorCode = "ENG_003"
	ErrCodeDiarizerUnavailable   ErrorCode = "ENG_004"
	ErrCodeEmbeddingFailed       ErrorCode = "ENG_005"
	ErrCodeGenerationFailed      ErrorCode = "ENG_006"
	ErrCodeAnalysisResponseParse ErrorCode = "ENG_007"
)

// ErrorCodeHTTPStatus maps codes to the HTTP status returned by the API.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeFeatureDisabled:    http.StatusForbidden,
	ErrCodeNotImplemented:     http.StatusNotImplemented,

	ErrCodeEvidenceEmpty:           http.StatusUnprocessableEntity,
	ErrCodeEvidenceTooLarge:        http.StatusRequestEntityTooLarge,
	ErrCodeEvidenceTypeUnsupported: http.StatusUnsupportedMediaType,
	ErrCodeEvidenceNotFound:        http.StatusNotFound,
	ErrCodeEvidenceUploadFailed:    http.StatusBadGateway,

	ErrCodePrecedentSearchFailed: http.StatusBadGateway,
	ErrCodePrecedentIndexFailed:  http.StatusInternalServerError,
	ErrCodePrecedentNotFound:     http.StatusNotFound,
	ErrCodeDiagnosisNotFound:     http.StatusNotFound,

	ErrCodeOCRFailed:             http.StatusBadGateway,
	ErrCodeTranscriptionFailed:   http.StatusBadGateway,
	ErrCodeDiarizationFailed:     http.StatusBadGateway,
	ErrCodeDiarizerUnavailable:   http.StatusServiceUnavailable,
	ErrCodeEmbeddingFailed:       http.StatusBadGateway,
	ErrCodeGenerationFailed:      http.StatusBadGateway,
	ErrCodeAnalysisResponseParse: http.StatusBadGateway,
}

// ErrorCodeMessage holds the default user-facing message per code.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeUnauthorized:       "unauthorized",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization error",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeFeatureDisabled:    "feature disabled",
	ErrCodeNotImplemented:     "not implemented",

	ErrCodeEvidenceEmpty:           "no usable evidence text",
	ErrCodeEvidenceTooLarge:        "evidence file too large",
	ErrCodeEvidenceTypeUnsupported: "unsupported evidence type",
	ErrCodeEvidenceNotFound:        "evidence not found",
	ErrCodeEvidenceUploadFailed:    "failed to store evidence",

	ErrCodePrecedentSearchFailed: "precedent search failed",
	ErrCodePrecedentIndexFailed:  "failed to index precedent",
	ErrCodePrecedentNotFound:     "precedent not found",
	ErrCodeDiagnosisNotFound:     "diagnosis not found",

	ErrCodeOCRFailed:             "text detection failed",
	ErrCodeTranscriptionFailed:   "speech transcription failed",
	ErrCodeDiarizationFailed:     "speaker diarization failed",
	ErrCodeDiarizerUnavailable:   "speaker diarization unavailable",
	ErrCodeEmbeddingFailed:       "embedding failed",
	ErrCodeGenerationFailed:      "text generation failed",
	ErrCodeAnalysisResponseParse: "failed to parse analysis response",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
