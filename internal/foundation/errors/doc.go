// Package errors provides the classified error primitives used across scopebuild.
//
// Every failure carries an ErrorCategory (config, validation, transform,
// compile, filesystem, build, render, ...), an ErrorSeverity and a
// RetryStrategy. The CLI adapter maps categories to process exit codes.
//
// Example usage:
//
//	err := errors.ConfigError("root scope has no layout").
//		WithContext("path", root).
//		Build()
package errors
