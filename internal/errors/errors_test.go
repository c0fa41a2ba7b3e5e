package errors

import (
	"fmt"
	"testing"
)

func TestBuildDefaults(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("test error")
	built := New(err).Build()

	var ee *EnhancedError
	if !As(built, &ee) {
		t.Fatalf("Build did not return an *EnhancedError: %T", built)
	}
	if ee.Error() != "test error" {
		t.Errorf("Expected error message 'test error', got '%s'", ee.Error())
	}
	if ee.GetComponent() != ComponentUnknown {
		t.Errorf("Expected component 'unknown', got '%s'", ee.GetComponent())
	}
	if ee.Category != CategoryGeneric {
		t.Errorf("Expected category 'generic', got '%s'", ee.Category)
	}
}

func TestBuildNilError(t *testing.T) {
	t.Parallel()

	if built := New(nil).Component("datastore").Build(); built != nil {
		t.Errorf("Expected nil for nil input, got %v", built)
	}
}

func TestContextAndCategory(t *testing.T) {
	t.Parallel()

	built := Newf("segment %d not found", 42).
		Component("datastore").
		Category(CategoryNotFound).
		Context("segment_id", 42).
		Build()

	var ee *EnhancedError
	if !As(built, &ee) {
		t.Fatalf("Build did not return an *EnhancedError")
	}
	if ee.GetComponent() != "datastore" {
		t.Errorf("Expected component 'datastore', got '%s'", ee.GetComponent())
	}
	ctx := ee.GetContext()
	if ctx["segment_id"] != 42 {
		t.Errorf("Expected context segment_id=42, got %v", ctx["segment_id"])
	}
	if !HasCategory(built, CategoryNotFound) {
		t.Error("HasCategory should report not-found")
	}
	if HasCategory(built, CategoryDatabase) {
		t.Error("HasCategory should not report database")
	}
}

func TestUnwrapPreservesSentinel(t *testing.T) {
	t.Parallel()

	sentinel := NewStd("underlying")
	built := New(fmt.Errorf("wrapped: %w", sentinel)).
		Category(CategoryDatabase).
		Build()

	if !Is(built, sentinel) {
		t.Error("Is should find the wrapped sentinel through the enhanced error")
	}
}

func TestInvalidPriorityFallsBack(t *testing.T) {
	t.Parallel()

	built := Newf("boom").Priority("urgent-ish").Build()
	var ee *EnhancedError
	if !As(built, &ee) {
		t.Fatalf("Build did not return an *EnhancedError")
	}
	if ee.GetPriority() != PriorityMedium {
		t.Errorf("Expected fallback priority 'medium', got '%s'", ee.GetPriority())
	}
}
