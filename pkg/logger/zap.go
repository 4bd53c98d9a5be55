package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config 로거 설정
type Config struct {
	// Level 로그 레벨 (debug, info, warn, error, dpanic, panic, fatal). 알 수 없는 값은 info
	Level string
	// Format 로그 포맷 (json, console)
	Format string
	// Output 로그 출력 대상 (stdout, stderr, file)
	Output string
	// FilePath Output이 file일 때의 경로
	FilePath string
	// Development 개발 모드 여부 (컬러 레벨, 호출자 정보)
	Development bool
	// Service 모든 로그에 붙는 서비스 이름
	Service string
	// Fields 모든 로그에 붙는 고정 필드 (version, environment 등)
	Fields map[string]string
}

// NewZapLogger 새로운 zap 로거를 생성합니다.
func NewZapLogger(config Config) (*zap.Logger, error) {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if lvl, err := zapcore.ParseLevel(config.Level); err == nil {
		level.SetLevel(lvl)
	}

	sink, err := newWriteSyncer(config)
	if err != nil {
		return nil, err
	}

	opts := []zap.Option{zap.AddStacktrace(zapcore.ErrorLevel)}
	if config.Development {
		opts = append(opts, zap.AddCaller())
	}

	logger := zap.New(zapcore.NewCore(newEncoder(config), sink, level), opts...)

	fields := make([]zap.Field, 0, len(config.Fields)+1)
	if config.Service != "" {
		fields = append(fields, zap.String("service", config.Service))
	}
	for k, v := range config.Fields {
		if v != "" {
			fields = append(fields, zap.String(k, v))
		}
	}
	return logger.With(fields...), nil
}

// newEncoder는 ECS 형태의 키(@timestamp, log.level)를 쓰는 인코더를 만듭니다.
func newEncoder(config Config) zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "@timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.LevelKey = "log.level"
	encoderConfig.MessageKey = "message"
	encoderConfig.CallerKey = "caller"

	if config.Development {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if config.Format == "console" {
		return zapcore.NewConsoleEncoder(encoderConfig)
	}
	return zapcore.NewJSONEncoder(encoderConfig)
}

func newWriteSyncer(config Config) (zapcore.WriteSyncer, error) {
	switch config.Output {
	case "stderr":
		return zapcore.Lock(os.Stderr), nil
	case "file":
		if config.FilePath == "" {
			return nil, fmt.Errorf("로그 파일 경로가 비어 있습니다")
		}
		file, err := os.OpenFile(config.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("로그 파일 열기 실패: %w", err)
		}
		return zapcore.AddSync(file), nil
	default:
		return zapcore.Lock(os.Stdout), nil
	}
}
