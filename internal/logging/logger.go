// Package logging wraps zap in the asynchronous logging facility spec.md
// treats as an external collaborator: every data-plane component logs into
// a bounded SPSC queue, and a single dedicated goroutine drains it into the
// real zap.Logger, so a log call on the hot path never blocks on I/O.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/abdoElHodaky/tradSys/pkg/queue"
)

type level uint8

const (
	levelDebug level = iota
	levelInfo
	levelWarn
	levelError
)

type record struct {
	level  level
	msg    string
	fields []zap.Field
}

// Logger is the async front-end every component receives. Calls append a
// record to an internal ring queue and return immediately; a background
// goroutine is the sole consumer.
type Logger struct {
	sink    *zap.Logger
	records *queue.Queue[record]
	done    chan struct{}
}

// New builds a Logger with the given service name and level, grounded on
// the teacher's StructuredLogger config shape (services/common/logging.go)
// but queued instead of calling zap synchronously.
func New(service string, lvl string, depth int) *Logger {
	cfg := zap.NewProductionConfig()
	switch lvl {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	cfg.Encoding = "json"
	cfg.EncoderConfig = zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
	}
	cfg.InitialFields = map[string]interface{}{
		"service": service,
		"pid":     os.Getpid(),
	}

	sink, err := cfg.Build()
	if err != nil {
		sink, _ = zap.NewDevelopment()
	}

	l := &Logger{
		sink:    sink,
		records: queue.New[record](depth),
		done:    make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *Logger) run() {
	for {
		rec, ok := l.records.Pop()
		if !ok {
			select {
			case <-l.done:
				return
			default:
			}
			continue
		}
		switch rec.level {
		case levelDebug:
			l.sink.Debug(rec.msg, rec.fields...)
		case levelWarn:
			l.sink.Warn(rec.msg, rec.fields...)
		case levelError:
			l.sink.Error(rec.msg, rec.fields...)
		default:
			l.sink.Info(rec.msg, rec.fields...)
		}
	}
}

func (l *Logger) enqueue(lvl level, msg string, fields ...zap.Field) {
	if l.records.Full() {
		// Backlog means the drain goroutine can't keep up; this is the
		// same "resource exhaustion is fatal" policy §7 applies to every
		// other fixed-capacity queue in the data plane.
		panic("logging: record queue full")
	}
	l.records.Push(record{level: lvl, msg: msg, fields: fields})
}

func (l *Logger) Debug(msg string, fields ...zap.Field) { l.enqueue(levelDebug, msg, fields...) }
func (l *Logger) Info(msg string, fields ...zap.Field)  { l.enqueue(levelInfo, msg, fields...) }
func (l *Logger) Warn(msg string, fields ...zap.Field)  { l.enqueue(levelWarn, msg, fields...) }
func (l *Logger) Error(msg string, fields ...zap.Field) { l.enqueue(levelError, msg, fields...) }

// Sync drains remaining records and flushes the underlying zap core. Call
// once at shutdown.
func (l *Logger) Sync() {
	for l.records.Len() > 0 {
	}
	close(l.done)
	_ = l.sink.Sync()
}
