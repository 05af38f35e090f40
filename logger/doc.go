// Package logger provides structured logging for colpipe using zerolog.
//
// Logs go to standard error by default; standard output carries the
// pipeline's data and is never used for diagnostics unless a library caller
// asks for it explicitly.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "console"
//
// # Usage
//
//	log := logger.Get("merger")
//	log.Info("merge finished", logger.Fields("lines", 42))
package logger
