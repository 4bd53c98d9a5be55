package errors

import "net/http"

// CodePair는 프레임워크 간 코드 매핑을 위한 구조체입니다
type CodePair struct {
	HTTPStatus int
	GRPCCode   int
}

// 코드 매핑 테이블
var codeMapping = map[string]CodePair{
	ErrInternal:         {500, 13}, // Internal Server Error, INTERNAL
	ErrNotFound:         {404, 5},  // Not Found, NOT_FOUND
	ErrInvalidArgument:  {400, 3},  // Bad Request, INVALID_ARGUMENT
	ErrUnauthenticated:  {401, 16}, // Unauthorized, UNAUTHENTICATED
	ErrUnauthorized:     {403, 7},  // Forbidden, PERMISSION_DENIED
	ErrConflict:         {409, 6},  // Conflict, ALREADY_EXISTS
	ErrTimeout:          {504, 4},  // Gateway Timeout, DEADLINE_EXCEEDED
	ErrNotImplemented:   {501, 12}, // Not Implemented, UNIMPLEMENTED
	ErrNetwork:          {502, 14}, // Bad Gateway, UNAVAILABLE
	ErrRateLimited:      {429, 8},  // Too Many Requests, RESOURCE_EXHAUSTED
	ErrUpstream:         {502, 14}, // Bad Gateway, UNAVAILABLE
	ErrSignatureInvalid: {401, 16}, // Unauthorized, UNAUTHENTICATED
	ErrUnknownEventType: {200, 0},  // 알 수 없는 이벤트는 수신 확인만 합니다
}

// GetCodeMapping은 특정 에러 코드에 대한 HTTP 및 gRPC 코드 매핑을 반환합니다
func GetCodeMapping(code string) (int, int) {
	if pair, ok := codeMapping[code]; ok {
		return pair.HTTPStatus, pair.GRPCCode
	}
	return 500, 13 // 기본값으로 Internal Server Error
}

// FromHTTPStatus는 외부 API의 HTTP 응답 상태를 내부 에러 코드로 분류합니다
func FromHTTPStatus(status int) string {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return ErrTimeout
	case status >= 500:
		return ErrUpstream
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusUnauthorized:
		return ErrUnauthenticated
	case status == http.StatusForbidden:
		return ErrUnauthorized
	case status == http.StatusConflict:
		return ErrConflict
	case status >= 400:
		return ErrInvalidArgument
	default:
		return ErrInternal
	}
}
