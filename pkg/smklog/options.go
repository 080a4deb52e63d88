package smklog

import "go.uber.org/zap/zapcore"

type Options struct {
	Level    zapcore.Level
	LogDir   string // empty writes to stdout only
	LineNum  bool
	NoStdout bool
	WireOn   bool // dump raw frame bytes to wire.log
	// rotation
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
}

func NewOptions() *Options {
	return &Options{
		Level:      zapcore.InfoLevel,
		MaxSize:    500,
		MaxBackups: 3,
		MaxAge:     28,
	}
}
