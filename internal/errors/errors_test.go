package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsHelpers_SeeThroughWrapping(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		match func(error) bool
	}{
		{"not found", NewNotFoundError("order 4 not found"), func(err error) bool { _, ok := IsNotFoundError(err); return ok }},
		{"validation", NewValidationError("bad input"), func(err error) bool { _, ok := IsValidationError(err); return ok }},
		{"invalid order", NewInvalidOrderError("no pizza"), func(err error) bool { _, ok := IsInvalidOrderError(err); return ok }},
		{"permission", NewPermissionError("not yours"), func(err error) bool { _, ok := IsPermissionError(err); return ok }},
		{"invalid state", NewInvalidStateError("terminal", "CANCELLED"), func(err error) bool { _, ok := IsInvalidStateError(err); return ok }},
		{"already completed", NewAlreadyCompletedError(3), func(err error) bool { _, ok := IsAlreadyCompletedError(err); return ok }},
		{"unknown code", NewUnknownCodeError("NOPE"), func(err error) bool { _, ok := IsUnknownCodeError(err); return ok }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("cancel order: %w", tt.err)
			assert.True(t, tt.match(wrapped))
			assert.False(t, tt.match(errors.New("plain")))
		})
	}
}

func TestValidationError_Details(t *testing.T) {
	err := NewValidationError("invalid order lines",
		ValidationDetail{Field: "items[0].quantity", Message: "quantity must be between 1 and 99"},
		ValidationDetail{Field: "items[1].menuItemId", Message: "menuItemId is required"},
	)

	assert.Equal(t, "invalid order lines", err.Error())
	assert.Len(t, err.Details, 2)
}

func TestInternalError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewInternalError("loading courier", cause)

	assert.Equal(t, "loading courier: connection reset", err.Error())
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "no cause", NewInternalError("no cause", nil).Error())
}

func TestConflictError_IsConflictError(t *testing.T) {
	err := NewConflictError("email already registered")

	conflictErr, ok := IsConflictError(err)
	assert.True(t, ok)
	assert.Equal(t, "email already registered", conflictErr.Error())

	_, ok = IsConflictError(errors.New("plain"))
	assert.False(t, ok)
}

func TestDeadlockError_IsDeadlockError(t *testing.T) {
	err := NewDeadlockError("could not create order")

	deadlockErr, ok := IsDeadlockError(err)
	assert.True(t, ok)
	assert.Equal(t, "could not create order", deadlockErr.Message)
}

func TestInvalidOrderError_Details(t *testing.T) {
	err := NewInvalidOrderError("order must contain at least one pizza",
		ValidationDetail{Field: "items", Message: "no pizza"},
	)

	invalidErr, ok := IsInvalidOrderError(err)
	assert.True(t, ok)
	assert.Len(t, invalidErr.Details, 1)
	assert.Equal(t, "order must contain at least one pizza", err.Error())
}

func TestDiscountErrors_Messages(t *testing.T) {
	unknown := NewUnknownCodeError("NOPE")
	assert.Contains(t, unknown.Error(), "NOPE")
	_, ok := IsUnknownCodeError(unknown)
	assert.True(t, ok)

	used := NewAlreadyUsedError("SPRING10", 7)
	assert.Contains(t, used.Error(), "SPRING10")
	assert.Contains(t, used.Error(), "7")
	_, ok = IsAlreadyUsedError(used)
	assert.True(t, ok)

	dup := NewDuplicateCodeError("SPRING10")
	_, ok = IsDuplicateCodeError(dup)
	assert.True(t, ok)
	_, ok = IsUnknownCodeError(dup)
	assert.False(t, ok)
}

func TestPermissionError_IsPermissionError(t *testing.T) {
	err := NewPermissionError("order belongs to another customer")

	_, ok := IsPermissionError(err)
	assert.True(t, ok)
	_, ok = IsNotFoundError(err)
	assert.False(t, ok)
}

func TestInvalidStateError_KeepsStatus(t *testing.T) {
	err := NewInvalidStateError("order can no longer be cancelled", "DELIVERED")

	stateErr, ok := IsInvalidStateError(err)
	assert.True(t, ok)
	assert.Equal(t, "DELIVERED", stateErr.Status)
}

func TestAlreadyCompletedError_Wrapped(t *testing.T) {
	err := NewInternalError("complete delivery", NewAlreadyCompletedError(12))

	completedErr, ok := IsAlreadyCompletedError(err)
	assert.True(t, ok)
	assert.Equal(t, uint(12), completedErr.DeliveryID)
}

func TestForbiddenError_IsForbiddenError(t *testing.T) {
	err := NewForbiddenError("customer mismatch")

	forbiddenErr, ok := IsForbiddenError(err)
	assert.True(t, ok)
	assert.Equal(t, "customer mismatch", forbiddenErr.Error())
}
