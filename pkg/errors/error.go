package errors

import (
	"errors"
	"fmt"
)

var (
	New = errors.New
	Is  = errors.Is
	As  = errors.As
)

// AppError는 코드가 붙은 애플리케이션 에러입니다.
// message는 로그용이고 userMessage는 응답 본문에 그대로 노출됩니다.
type AppError struct {
	code        string
	message     string
	userMessage string
	err         error
}

// NewAppError는 코드와 내부 메시지로 에러를 만듭니다. err는 nil 이어도 됩니다.
func NewAppError(code string, message string, err error) *AppError {
	return &AppError{code: code, message: message, err: err}
}

// Errorf는 fmt.Errorf 형식의 메시지로 AppError를 만듭니다
func Errorf(code string, format string, args ...any) *AppError {
	return NewAppError(code, fmt.Sprintf(format, args...), nil)
}

func (e *AppError) Error() string {
	if e.err == nil {
		return e.message
	}
	return e.message + ": " + e.err.Error()
}

func (e *AppError) Code() string  { return e.code }
func (e *AppError) Unwrap() error { return e.err }

// Retryable은 코드 기준으로 재시도 대상인지 판단합니다
func (e *AppError) Retryable() bool { return IsRetryable(e.code) }

// UserMessage는 지정된 사용자 메시지가 없으면 코드별 기본 문구를 돌려줍니다
func (e *AppError) UserMessage() string {
	if e.userMessage == "" {
		return DefaultUserMessage(e.code)
	}
	return e.userMessage
}

// WithUserMessage는 원본을 건드리지 않고 사용자 메시지만 바꾼 복사본을 반환합니다
func (e *AppError) WithUserMessage(msg string) *AppError {
	cp := *e
	cp.userMessage = msg
	return &cp
}

// Wrap은 체인 안의 AppError 코드를 유지한 채 메시지를 덧붙입니다.
// 체인에 AppError가 없으면 INTERNAL 로 취급합니다.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return NewAppError(CodeOf(err), message, err)
}

// CodeOf는 에러 체인에서 처음 만나는 AppError의 코드를 반환합니다
func CodeOf(err error) string {
	var appErr *AppError
	if As(err, &appErr) {
		return appErr.Code()
	}
	return ErrInternal
}
