// Package logger wraps zap for the packager:
//   - a global sugared logger with a console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing for the --log-level flag,
//   - convenience functions (Infof, InfoKV, ...).
//
// Services take a context and pull the logger from it, so names and fields
// attached by callers show up on every progress line.
package logger
