package errors

import "github.com/labstack/echo/v4"

// ToHTTPStatus는 에러 코드에 대응하는 HTTP 상태 코드를 반환합니다
func ToHTTPStatus(code string) int {
	httpStatus, _ := GetCodeMapping(code)
	return httpStatus
}

// ToHTTPError는 에러를 Echo HTTP 에러로 변환합니다.
// 응답 본문에는 사용자용 메시지와 코드만 담고 원본 에러는 Internal 로 보존합니다.
func ToHTTPError(err error) *echo.HTTPError {
	if err == nil {
		return nil
	}

	if echoErr, ok := err.(*echo.HTTPError); ok {
		return echoErr
	}

	code, userMessage := ErrInternal, DefaultUserMessage(ErrInternal)
	var appErr *AppError
	if As(err, &appErr) {
		code, userMessage = appErr.Code(), appErr.UserMessage()
	}

	return echo.NewHTTPError(ToHTTPStatus(code), echo.Map{
		"error": userMessage,
		"code":  code,
	}).SetInternal(err)
}
