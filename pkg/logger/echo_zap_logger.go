package logger

import (
	"fmt"
	"io"
	"sync"

	"github.com/labstack/gommon/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EchoZapLogger는 echo.Logger를 zap 위에 구현합니다.
// echo 내부 로그(서버 시작, 바인딩 오류 등)도 같은 JSON 스트림으로 모읍니다.
type EchoZapLogger struct {
	mu     sync.RWMutex
	base   *zap.Logger
	logger *zap.Logger
	prefix string
	level  log.Lvl
}

func NewEchoZapLogger(logger *zap.Logger) *EchoZapLogger {
	named := logger.Named("echo")
	return &EchoZapLogger{base: logger, logger: named, prefix: "echo", level: levelFromZap(logger)}
}

// levelFromZap은 zap 코어에서 활성화된 가장 낮은 레벨을 gommon 레벨로 옮깁니다.
func levelFromZap(logger *zap.Logger) log.Lvl {
	core := logger.Core()
	switch {
	case core.Enabled(zapcore.DebugLevel):
		return log.DEBUG
	case core.Enabled(zapcore.InfoLevel):
		return log.INFO
	case core.Enabled(zapcore.WarnLevel):
		return log.WARN
	default:
		return log.ERROR
	}
}

func (l *EchoZapLogger) current() (*zap.Logger, log.Lvl) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.logger, l.level
}

func (l *EchoZapLogger) emit(lvl log.Lvl, msg string, fields ...zap.Field) {
	logger, min := l.current()
	if lvl < min {
		return
	}
	switch lvl {
	case log.DEBUG:
		logger.Debug(msg, fields...)
	case log.INFO:
		logger.Info(msg, fields...)
	case log.WARN:
		logger.Warn(msg, fields...)
	default:
		logger.Error(msg, fields...)
	}
}

func (l *EchoZapLogger) Output() io.Writer {
	logger, _ := l.current()
	return &zapWriter{logger: logger}
}

// SetOutput은 무시합니다. 출력 대상은 zap 설정이 결정합니다.
func (l *EchoZapLogger) SetOutput(io.Writer) {}

// SetHeader도 무시합니다. 필드 구성은 zap 인코더가 담당합니다.
func (l *EchoZapLogger) SetHeader(string) {}

func (l *EchoZapLogger) Level() log.Lvl {
	_, lvl := l.current()
	return lvl
}

func (l *EchoZapLogger) SetLevel(v log.Lvl) {
	l.mu.Lock()
	l.level = v
	l.mu.Unlock()
}

func (l *EchoZapLogger) Prefix() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.prefix
}

// SetPrefix는 zap 로거 이름으로 반영됩니다.
func (l *EchoZapLogger) SetPrefix(p string) {
	l.mu.Lock()
	l.prefix = p
	l.logger = l.base.Named(p)
	l.mu.Unlock()
}

func (l *EchoZapLogger) Print(i ...interface{})            { l.emit(log.INFO, fmt.Sprint(i...)) }
func (l *EchoZapLogger) Printf(f string, i ...interface{}) { l.emit(log.INFO, fmt.Sprintf(f, i...)) }
func (l *EchoZapLogger) Printj(j log.JSON)                 { l.emit(log.INFO, "json_message", zap.Any("json", j)) }
func (l *EchoZapLogger) Debug(i ...interface{})            { l.emit(log.DEBUG, fmt.Sprint(i...)) }
func (l *EchoZapLogger) Debugf(f string, i ...interface{}) { l.emit(log.DEBUG, fmt.Sprintf(f, i...)) }
func (l *EchoZapLogger) Debugj(j log.JSON)                 { l.emit(log.DEBUG, "json_message", zap.Any("json", j)) }
func (l *EchoZapLogger) Info(i ...interface{})             { l.emit(log.INFO, fmt.Sprint(i...)) }
func (l *EchoZapLogger) Infof(f string, i ...interface{})  { l.emit(log.INFO, fmt.Sprintf(f, i...)) }
func (l *EchoZapLogger) Infoj(j log.JSON)                  { l.emit(log.INFO, "json_message", zap.Any("json", j)) }
func (l *EchoZapLogger) Warn(i ...interface{})             { l.emit(log.WARN, fmt.Sprint(i...)) }
func (l *EchoZapLogger) Warnf(f string, i ...interface{})  { l.emit(log.WARN, fmt.Sprintf(f, i...)) }
func (l *EchoZapLogger) Warnj(j log.JSON)                  { l.emit(log.WARN, "json_message", zap.Any("json", j)) }
func (l *EchoZapLogger) Error(i ...interface{})            { l.emit(log.ERROR, fmt.Sprint(i...)) }
func (l *EchoZapLogger) Errorf(f string, i ...interface{}) { l.emit(log.ERROR, fmt.Sprintf(f, i...)) }
func (l *EchoZapLogger) Errorj(j log.JSON)                 { l.emit(log.ERROR, "json_message", zap.Any("json", j)) }

// Fatal과 Panic 계열은 레벨과 무관하게 항상 기록합니다.
func (l *EchoZapLogger) Fatal(i ...interface{})            { l.logger.Fatal(fmt.Sprint(i...)) }
func (l *EchoZapLogger) Fatalf(f string, i ...interface{}) { l.logger.Fatal(fmt.Sprintf(f, i...)) }
func (l *EchoZapLogger) Fatalj(j log.JSON)                 { l.logger.Fatal("json_message", zap.Any("json", j)) }
func (l *EchoZapLogger) Panic(i ...interface{})            { l.logger.Panic(fmt.Sprint(i...)) }
func (l *EchoZapLogger) Panicf(f string, i ...interface{}) { l.logger.Panic(fmt.Sprintf(f, i...)) }
func (l *EchoZapLogger) Panicj(j log.JSON)                 { l.logger.Panic("json_message", zap.Any("json", j)) }

// zapWriter는 echo가 Output()으로 직접 쓰는 로그를 한 줄씩 zap에 넘깁니다.
type zapWriter struct {
	logger *zap.Logger
}

func (w *zapWriter) Write(p []byte) (int, error) {
	msg := string(p)
	if n := len(msg); n > 0 && msg[n-1] == '\n' {
		msg = msg[:n-1]
	}
	w.logger.Info(msg)
	return len(p), nil
}
