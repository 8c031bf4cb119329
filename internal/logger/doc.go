// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger with a console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level configuration and parsing utilities,
//   - per-component loggers that run at their own level (ForComponent).
//
// Services accept a context and extract the logger from it. The alarm queue
// itself is not context-driven, so it receives a component logger at creation.
package logger
