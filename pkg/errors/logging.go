package errors

import (
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// LogError는 에러 하나를 ERROR 레벨로 남깁니다. err가 nil이면 아무것도 하지 않습니다.
func LogError(logger *zap.Logger, err error, msg string, fields ...zap.Field) {
	if err == nil {
		return
	}
	logger.Error(msg, errorFields(err, fields)...)
}

// LogWarnings는 best-effort 작업의 실패를 WARN 레벨로 남깁니다.
// multierr.Append 로 합쳐진 에러는 항목마다 한 줄씩 기록됩니다.
func LogWarnings(logger *zap.Logger, err error, msg string, fields ...zap.Field) {
	for _, e := range multierr.Errors(err) {
		logger.Warn(msg, errorFields(e, fields)...)
	}
}

// errorFields는 error, error_code, retryable 필드 뒤에 호출자 필드를 붙입니다
func errorFields(err error, extra []zap.Field) []zap.Field {
	code := CodeOf(err)
	out := []zap.Field{
		zap.Error(err),
		zap.String("error_code", code),
		zap.Bool("retryable", IsRetryable(code)),
	}
	return append(out, extra...)
}
