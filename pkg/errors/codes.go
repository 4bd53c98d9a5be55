package errors

// 공통 에러 코드 정의
const (
	// 일반적인 에러 코드
	ErrInternal        = "INTERNAL"
	ErrNotFound        = "NOT_FOUND"
	ErrInvalidArgument = "INVALID_ARGUMENT"
	ErrUnauthenticated = "UNAUTHENTICATED"
	ErrUnauthorized    = "UNAUTHORIZED"
	ErrConflict        = "CONFLICT"
	ErrTimeout         = "TIMEOUT"
	ErrNotImplemented  = "NOT_IMPLEMENTED"

	// 외부 결제 제공자 연동 에러 코드
	ErrNetwork          = "NETWORK"
	ErrRateLimited      = "RATE_LIMITED"
	ErrUpstream         = "UPSTREAM"
	ErrSignatureInvalid = "SIGNATURE_INVALID"
	ErrUnknownEventType = "UNKNOWN_EVENT_TYPE"
)

// retryableCodes는 재시도 가능한 에러 코드 집합입니다
var retryableCodes = map[string]bool{
	ErrNetwork:     true,
	ErrTimeout:     true,
	ErrRateLimited: true,
	ErrUpstream:    true,
}

// IsRetryable은 해당 코드의 실패가 일시적인지 여부를 반환합니다
func IsRetryable(code string) bool {
	return retryableCodes[code]
}

// 사용자에게 노출 가능한 기본 메시지
var userMessages = map[string]string{
	ErrInternal:         "Something went wrong. Please try again later.",
	ErrNotFound:         "The requested resource was not found.",
	ErrInvalidArgument:  "The request could not be processed. Please check your input.",
	ErrUnauthenticated:  "Authentication is required.",
	ErrUnauthorized:     "You do not have permission to perform this action.",
	ErrConflict:         "The resource was modified concurrently. Please retry.",
	ErrTimeout:          "The billing service took too long to respond. Please try again.",
	ErrNotImplemented:   "This feature is not available.",
	ErrNetwork:          "Could not reach the billing service. Please try again.",
	ErrRateLimited:      "Too many requests. Please wait a moment and try again.",
	ErrUpstream:         "The billing service is temporarily unavailable.",
	ErrSignatureInvalid: "Unauthorized.",
	ErrUnknownEventType: "Event type is not supported.",
}

// DefaultUserMessage는 코드에 대응하는 사용자용 메시지를 반환합니다
func DefaultUserMessage(code string) string {
	if msg, ok := userMessages[code]; ok {
		return msg
	}
	return userMessages[ErrInternal]
}
