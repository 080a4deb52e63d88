package smklog

import (
	"encoding/hex"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var logger *zap.Logger      // info
var errorLogger *zap.Logger // error and above
var wireLogger *zap.Logger  // raw bytes
var atom = zap.NewAtomicLevel()

var opts *Options
var defaultOnce sync.Once

func Configure(op *Options) {
	atom.SetLevel(op.Level)
	opts = op

	loggerOpts := make([]zap.Option, 0)
	if opts.LineNum {
		loggerOpts = append(loggerOpts, zap.AddCaller(), zap.AddCallerSkip(2))
	}

	logger = zap.New(newCore("info.log", atom), loggerOpts...)
	errorLogger = zap.New(newCore("error.log", zap.ErrorLevel), loggerOpts...)
	wireLogger = zap.New(newCore("wire.log", zap.DebugLevel), loggerOpts...)
}

func newCore(file string, enab zapcore.LevelEnabler) zapcore.Core {
	writers := make([]zapcore.WriteSyncer, 0, 2)
	if !opts.NoStdout {
		writers = append(writers, zapcore.AddSync(os.Stdout))
	}
	if opts.LogDir != "" {
		writers = append(writers, zapcore.AddSync(&lumberjack.Logger{
			Filename:   path.Join(opts.LogDir, file),
			MaxSize:    opts.MaxSize,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAge,
		}))
	}
	return zapcore.NewCore(
		zapcore.NewJSONEncoder(newEncoderConfig()),
		zapcore.NewMultiWriteSyncer(writers...),
		enab,
	)
}

func ensure() {
	defaultOnce.Do(func() {
		if logger == nil {
			Configure(NewOptions())
		}
	})
}

func Level() zapcore.Level {
	ensure()
	return atom.Level()
}

// SetLevel changes the level of the info logger at runtime.
func SetLevel(l zapcore.Level) {
	atom.SetLevel(l)
}

func newEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:       "time",
		LevelKey:      "level",
		NameKey:       "logger",
		CallerKey:     "linenum",
		MessageKey:    "msg",
		StacktraceKey: "stacktrace",
		LineEnding:    zapcore.DefaultLineEnding,
		EncodeLevel:   zapcore.LowercaseLevelEncoder,
		EncodeCaller:  zapcore.ShortCallerEncoder,
		EncodeName:    zapcore.FullNameEncoder,
		EncodeTime: func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(t.Format("2006-01-02T15:04:05.999999999-07:00"))
		},
		EncodeDuration: func(d time.Duration, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendInt64(int64(d) / 1000000)
		},
	}
}

func Info(msg string, fields ...zap.Field) {
	ensure()
	logger.Info(msg, fields...)
}

func Debug(msg string, fields ...zap.Field) {
	ensure()
	logger.Debug(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	ensure()
	logger.Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	ensure()
	errorLogger.Error(msg, fields...)
}

// Wire logs data as hex when wire logging is on.
func Wire(msg string, data []byte, fields ...zap.Field) {
	ensure()
	if !opts.WireOn {
		return
	}
	wireLogger.Debug(msg, append(fields, zap.Int("len", len(data)), zap.String("hex", hex.EncodeToString(data)))...)
}

// WireOn reports whether raw bytes are being logged, so callers can skip
// building fields.
func WireOn() bool {
	ensure()
	return opts.WireOn
}

func Sync() error {
	if logger == nil {
		return nil
	}
	_ = errorLogger.Sync()
	_ = wireLogger.Sync()
	return logger.Sync()
}

type Log interface {
	Info(msg string, fields ...zap.Field)
	Debug(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
	Wire(msg string, data []byte, fields ...zap.Field)
}

// SmkLog prefixes every message with its component name.
type SmkLog struct {
	prefix string
}

func NewSmkLog(prefix string) *SmkLog {
	return &SmkLog{prefix: prefix}
}

func (t *SmkLog) format(msg string) string {
	var b strings.Builder
	b.Grow(len(t.prefix) + len(msg) + 3)
	b.WriteString("[")
	b.WriteString(t.prefix)
	b.WriteString("] ")
	b.WriteString(msg)
	return b.String()
}

func (t *SmkLog) Info(msg string, fields ...zap.Field) {
	Info(t.format(msg), fields...)
}

func (t *SmkLog) Debug(msg string, fields ...zap.Field) {
	Debug(t.format(msg), fields...)
}

func (t *SmkLog) Warn(msg string, fields ...zap.Field) {
	Warn(t.format(msg), fields...)
}

func (t *SmkLog) Error(msg string, fields ...zap.Field) {
	Error(t.format(msg), fields...)
}

func (t *SmkLog) Wire(msg string, data []byte, fields ...zap.Field) {
	Wire(t.format(msg), data, fields...)
}
