// Package logger builds the structured slog logger used across the Lumetric
// SDK.
//
// The factory produces JSON output by default so SDK diagnostics slot into
// the host application's log aggregation unchanged; text output is available
// for development. Context extractors let request-scoped values (such as a
// distinct id placed in the context) appear on every log record emitted
// within that call without threading attributes by hand:
//
//	log := logger.New(
//		logger.WithLevel(slog.LevelDebug),
//		logger.WithComponent("lumetric"),
//	)
//
// Applications embedding the SDK typically pass their own *slog.Logger into
// the client instead; this package is the default when they do not.
package logger
