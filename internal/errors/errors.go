package errors

import (
	"errors"
	"fmt"
)

type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationError struct {
	Message string
	Details []ValidationDetail
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(message string, details ...ValidationDetail) *ValidationError {
	return &ValidationError{
		Message: message,
		Details: details,
	}
}

func IsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

func NewNotFoundError(message string) *NotFoundError {
	return &NotFoundError{Message: message}
}

func IsNotFoundError(err error) (*NotFoundError, bool) {
	var nfe *NotFoundError
	if errors.As(err, &nfe) {
		return nfe, true
	}
	return nil, false
}

type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func NewConflictError(message string) *ConflictError {
	return &ConflictError{Message: message}
}

func IsConflictError(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string {
	return e.Message
}

func NewForbiddenError(message string) *ForbiddenError {
	return &ForbiddenError{Message: message}
}

func IsForbiddenError(err error) (*ForbiddenError, bool) {
	var fe *ForbiddenError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

type DeadlockError struct {
	Message string
}

func (e *DeadlockError) Error() string {
	return e.Message
}

func NewDeadlockError(message string) *DeadlockError {
	return &DeadlockError{Message: message}
}

func IsDeadlockError(err error) (*DeadlockError, bool) {
	var de *DeadlockError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

type InternalError struct {
	Message string
	Cause   error
}

func (e *InternalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *InternalError) Unwrap() error {
	return e.Cause
}

func NewInternalError(message string, cause error) *InternalError {
	return &InternalError{
		Message: message,
		Cause:   cause,
	}
}

// InvalidOrderError rejects a cart that breaks an ordering rule, such as
// having no pizza or referencing an unknown menu item.
type InvalidOrderError struct {
	Message string
	Details []ValidationDetail
}

func (e *InvalidOrderError) Error() string {
	return e.Message
}

func NewInvalidOrderError(message string, details ...ValidationDetail) *InvalidOrderError {
	return &InvalidOrderError{
		Message: message,
		Details: details,
	}
}

func IsInvalidOrderError(err error) (*InvalidOrderError, bool) {
	var ie *InvalidOrderError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}

type UnknownCodeError struct {
	Code string
}

func (e *UnknownCodeError) Error() string {
	return fmt.Sprintf("discount code %q does not exist", e.Code)
}

func NewUnknownCodeError(code string) *UnknownCodeError {
	return &UnknownCodeError{Code: code}
}

func IsUnknownCodeError(err error) (*UnknownCodeError, bool) {
	var ue *UnknownCodeError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}

type AlreadyUsedError struct {
	Code       string
	CustomerID uint
}

func (e *AlreadyUsedError) Error() string {
	return fmt.Sprintf("discount code %q already used by customer %d", e.Code, e.CustomerID)
}

func NewAlreadyUsedError(code string, customerID uint) *AlreadyUsedError {
	return &AlreadyUsedError{Code: code, CustomerID: customerID}
}

func IsAlreadyUsedError(err error) (*AlreadyUsedError, bool) {
	var ae *AlreadyUsedError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

type DuplicateCodeError struct {
	Code string
}

func (e *DuplicateCodeError) Error() string {
	return fmt.Sprintf("discount code %q already exists", e.Code)
}

func NewDuplicateCodeError(code string) *DuplicateCodeError {
	return &DuplicateCodeError{Code: code}
}

func IsDuplicateCodeError(err error) (*DuplicateCodeError, bool) {
	var de *DuplicateCodeError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// PermissionError is returned when a customer touches an order owned by
// someone else.
type PermissionError struct {
	Message string
}

func (e *PermissionError) Error() string {
	return e.Message
}

func NewPermissionError(message string) *PermissionError {
	return &PermissionError{Message: message}
}

func IsPermissionError(err error) (*PermissionError, bool) {
	var pe *PermissionError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

type InvalidStateError struct {
	Message string
	Status  string
}

func (e *InvalidStateError) Error() string {
	return e.Message
}

func NewInvalidStateError(message string, status string) *InvalidStateError {
	return &InvalidStateError{Message: message, Status: status}
}

func IsInvalidStateError(err error) (*InvalidStateError, bool) {
	var ie *InvalidStateError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}

type AlreadyCompletedError struct {
	DeliveryID uint
}

func (e *AlreadyCompletedError) Error() string {
	return fmt.Sprintf("delivery %d is already completed", e.DeliveryID)
}

func NewAlreadyCompletedError(deliveryID uint) *AlreadyCompletedError {
	return &AlreadyCompletedError{DeliveryID: deliveryID}
}

func IsAlreadyCompletedError(err error) (*AlreadyCompletedError, bool) {
	var ae *AlreadyCompletedError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
