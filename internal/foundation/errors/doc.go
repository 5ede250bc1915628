// Package errors provides foundational, type-safe error primitives used across gdep.
//
// It contains classified error types and helpers for robust error handling,
// including a fluent builder API for constructing ClassifiedError values with
// context. Domain-specific error taxonomies (config parsing, git divergence,
// script failures) build on top of this package rather than replacing it; see
// internal/gdeperrors.
//
// Key features:
//   - ErrorCategory: broad error classification (config, git, network, runtime, etc.)
//   - ErrorSeverity: impact level (fatal, error, warning, info)
//   - RetryStrategy: retry behavior (never, immediate, backoff, rate_limit, user)
//   - ClassifiedError: structured error with category, severity, and context
//   - ErrorBuilder: fluent API for creating classified errors
//
// Example usage:
//
//	err := errors.NewError(errors.CategoryGit, "clone failed").
//		WithSeverity(errors.SeverityError).
//		WithRetry(errors.RetryBackoff).
//		WithContext("url", repoURL).
//		Build()
package errors
