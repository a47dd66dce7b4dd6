// Package logging provides adapters for popular logger libraries to work with obtree's Logger interface.
//
// The adapters allow you to use your existing logger with obtree without writing boilerplate.
// Note that the standard library's slog.Logger already implements obtree.Logger directly.
//
// Example with zap:
//
//	import (
//	    "obtree"
//	    "obtree/logging"
//	    "go.uber.org/zap"
//	)
//
//	func main() {
//	    zapLogger, _ := zap.NewProduction()
//
//	    tree := obtree.New[int, int](obtree.WithLogger[int, int](logging.NewZap(zapLogger)))
//	}
package logging
