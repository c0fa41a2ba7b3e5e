// Package datastore error handling helpers for database operations
package datastore

import (
	"fmt"

	"github.com/mveikko/daybook-go/internal/errors"
)

// DateFormat is the canonical day key layout used in logs and diagnostics.
const DateFormat = "2006-01-02"

// dbError creates a properly categorized database error with context
func dbError(err error, operation, priority string, context ...any) error {
	builder := errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", operation)

	if priority != "" {
		builder = builder.Priority(priority)
	}

	for i := 0; i < len(context)-1; i += 2 {
		if key, ok := context[i].(string); ok {
			builder = builder.Context(key, context[i+1])
		}
	}

	return builder.Build()
}

// validationError creates a validation error for rejected input
func validationError(message, field string, value any) error {
	return errors.Newf("%s", message).
		Component("datastore").
		Category(errors.CategoryValidation).
		Context("field", field).
		Context("value", fmt.Sprintf("%v", value)).
		Build()
}

// notFoundError creates a not found error (low priority, expected in normal flow)
func notFoundError(resource string, identifier any) error {
	return errors.Newf("%s not found", resource).
		Component("datastore").
		Category(errors.CategoryNotFound).
		Priority(errors.PriorityLow).
		Context("resource", resource).
		Context("identifier", fmt.Sprintf("%v", identifier)).
		Build()
}

// conflictError creates a conflict error for constraint violations
func conflictError(err error, operation, conflictType string) error {
	return errors.New(err).
		Component("datastore").
		Category(errors.CategoryConflict).
		Priority(errors.PriorityMedium).
		Context("operation", operation).
		Context("conflict_type", conflictType).
		Build()
}

// consistencyError reports an internal invariant violation, such as two
// daily records sharing one date. These are diagnostics, not user errors.
func consistencyError(entity, key string, count int) error {
	return errors.Newf("internal consistency violation: %d %s rows share key %s", count, entity, key).
		Component("datastore").
		Category(errors.CategoryConsistency).
		Priority(errors.PriorityHigh).
		Context("entity", entity).
		Context("key", key).
		Context("count", count).
		Build()
}
