package llm

// ErrorCode classifies provider failures for retry and reporting.
type ErrorCode string

const (
	ErrInvalidRequest      ErrorCode = "LLM_INVALID_REQUEST"
	ErrUnauthorized        ErrorCode = "LLM_UNAUTHORIZED"
	ErrRateLimited         ErrorCode = "LLM_RATE_LIMITED"
	ErrQuotaExceeded       ErrorCode = "LLM_QUOTA_EXCEEDED"
	ErrUpstreamTimeout     ErrorCode = "LLM_UPSTREAM_TIMEOUT"
	ErrUpstreamError       ErrorCode = "LLM_UPSTREAM_ERROR"
	ErrProviderUnavailable ErrorCode = "LLM_PROVIDER_UNAVAILABLE"
)

type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Provider   string    `json:"provider,omitempty"`
}

func (e *Error) Error() string { return e.Message }

// classify maps an HTTP status to an error code and retryability.
func classify(status int) (ErrorCode, bool) {
	switch {
	case status == 401 || status == 403:
		return ErrUnauthorized, false
	case status == 429:
		return ErrRateLimited, true
	case status == 402:
		return ErrQuotaExceeded, false
	case status == 408 || status == 504:
		return ErrUpstreamTimeout, true
	case status >= 500:
		return ErrUpstreamError, true
	default:
		return ErrInvalidRequest, false
	}
}

// NewHTTPError builds a provider error from an HTTP status.
func NewHTTPError(provider string, status int, message string) *Error {
	code, retryable := classify(status)
	return &Error{
		Code:       code,
		Message:    message,
		HTTPStatus: status,
		Retryable:  retryable,
		Provider:   provider,
	}
}
