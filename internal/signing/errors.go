package signing

import "fmt"

// ConflictError means the assignment is not in a state that allows the operation
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return "conflict: " + e.Reason
}

// NotFoundError means the assignment is missing or not visible to the caller
type NotFoundError struct {
	AssignmentID uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("assignment %d not found", e.AssignmentID)
}

// UnauthorizedError means a provider notification failed authentication
type UnauthorizedError struct {
	Reason string
}

func (e *UnauthorizedError) Error() string {
	return "unauthorized: " + e.Reason
}

// InvalidInputError means the request payload cannot be applied to the document
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "invalid input: " + e.Reason
}
