// Package errors provides classified error primitives shared by postbuilder.
//
// A ClassifiedError carries a category, a severity and structured context.
// Errors are built with a fluent builder:
//
//	err := errors.NewError(errors.CategoryParse, "front matter is missing a title").
//		WithContext("path", path).
//		Build()
//
// The HTTP and CLI adapters map categories to status codes and exit codes.
package errors
