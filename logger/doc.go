// Package logger provides the structured logging used by the scoped
// container, built on zerolog.
//
// The container logs registry builds, scope entry and exit and teardown
// failures. It is silent unless a logger is configured.
//
// # Configuration
//
//	log:
//	  level: "debug"
//	  format: "json"
//
// # Usage
//
//	log := logger.New(&logger.Config{Level: "debug", Format: "console"}, "billing")
//	c, err := di.MakeContainer(providers, di.WithLogger(log))
package logger
