package tabular

import (
	"log"
	"os"

	"go.uber.org/zap"
)

// Logger mirrors the teacher's minimal logging seam
// (go-sql-driver/mysql's `mysql.Logger`): a single `Print` method so
// any logging backend a host program already uses can be plugged in
// without the driver importing it directly.
type Logger interface {
	Print(v ...interface{})
}

// defaultLoggerImpl matches the teacher's own default: a stderr logger
// with a short prefix, used when no Option overrides it.
type defaultLoggerImpl struct {
	*log.Logger
}

func (l *defaultLoggerImpl) Print(v ...interface{}) { l.Logger.Print(v...) }

func defaultLogger() Logger {
	return &defaultLoggerImpl{log.New(os.Stderr, "[tabular] ", log.Ldate|log.Ltime|log.Lshortfile)}
}

// ZapLogger adapts a *zap.Logger to the Logger interface, grounded on
// the pack's native-protocol reference client which logs
// handshake/progress/block events at zap.DebugLevel with structured
// fields. Use StructuredPrint for call sites that have fields worth
// keeping structured; Print degrades them to a single Sugar call.
type ZapLogger struct {
	z *zap.Logger
}

// NewZapLogger wraps z for use as a Connection/Pool Logger.
func NewZapLogger(z *zap.Logger) *ZapLogger {
	return &ZapLogger{z: z}
}

func (l *ZapLogger) Print(v ...interface{}) {
	l.z.Sugar().Info(v...)
}

// StructuredPrint logs msg at debug level with fields, for call sites
// (connection open, pool startup) that have
// structured data worth preserving instead of flattening into Print's
// variadic interface{} signature.
func (l *ZapLogger) StructuredPrint(msg string, fields ...zap.Field) {
	l.z.Debug(msg, fields...)
}

// logStructured logs through l's StructuredPrint when l is a
// *ZapLogger, falling back to a plain Print call otherwise. Connection
// and Pool diagnostics call this rather than type-switching
// themselves.
func logStructured(l Logger, msg string, fields ...zap.Field) {
	if zl, ok := l.(*ZapLogger); ok {
		zl.StructuredPrint(msg, fields...)
		return
	}
	l.Print(msg)
}
