package observability

import (
	"runtime/debug"
)

// RecoverPanic recovers from a panic and logs it with its stack.
// It must be called directly in a defer statement:
//
//	go func() {
//		defer observability.RecoverPanic(logger, "token cleanup")
//		...
//	}()
//
// The panic is not re-raised.
func RecoverPanic(logger *Logger, where string) {
	if r := recover(); r != nil {
		RecoverPanicValue(logger, r, where)
	}
}

// RecoverPanicValue logs a value already returned by recover
func RecoverPanicValue(logger *Logger, value interface{}, where string) {
	logger.WithFields(map[string]interface{}{
		"panic":   value,
		"stack":   string(debug.Stack()),
		"context": where,
	}).Error("PANIC recovered")
}
