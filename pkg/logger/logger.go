// Package logger wires zap through the hertz logging bridge so framework logs
// and application logs share one encoder and one level. Everything goes to
// stdout, where the collector tails it next to the rest of the demo's output.
package logger

import (
	"os"
	"strings"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzzap "github.com/hertz-contrib/logger/zap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/last9/otelkit/config"
)

var Logger *zap.Logger

func Init() {
	level := parseLevel(config.Cfg.LoggerLevel)

	hzLogger := hertzzap.NewLogger(
		hertzzap.WithCoreEnc(newEncoder()),
		hertzzap.WithCoreWs(zapcore.Lock(os.Stdout)),
		hertzzap.WithCoreLevel(zap.NewAtomicLevelAt(level)),
		hertzzap.WithZapOptions(
			zap.AddCaller(),
			zap.AddStacktrace(zapcore.ErrorLevel),
		),
	)
	hlog.SetLogger(hzLogger)
	hlog.SetLevel(hlogLevel(level))

	Logger = hzLogger.Logger()
	Logger.Info("Logger ready",
		zap.String("level", level.CapitalString()),
		zap.Bool("json", jsonOutput()),
		zap.String("environment", config.Cfg.Environment),
	)
}

// Sync flushes buffered entries. stdout rejects fsync on some platforms, so
// the error is dropped.
func Sync() {
	if Logger != nil {
		_ = Logger.Sync()
	}
}

func newEncoder() zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeCaller = zapcore.ShortCallerEncoder

	if jsonOutput() {
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewJSONEncoder(cfg)
	}

	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zapcore.NewConsoleEncoder(cfg)
}

// jsonOutput reports whether logs should be machine-readable. Production
// always gets JSON regardless of LOGGER_FORMAT so log pipelines never see
// console color codes.
func jsonOutput() bool {
	if config.Cfg.IsProduction() {
		return true
	}
	return strings.EqualFold(config.Cfg.LoggerFormat, "json")
}

func parseLevel(raw string) zapcore.Level {
	level, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(raw)))
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}

func hlogLevel(level zapcore.Level) hlog.Level {
	switch level {
	case zapcore.DebugLevel:
		return hlog.LevelDebug
	case zapcore.WarnLevel:
		return hlog.LevelWarn
	case zapcore.ErrorLevel:
		return hlog.LevelError
	case zapcore.FatalLevel:
		return hlog.LevelFatal
	default:
		return hlog.LevelInfo
	}
}
