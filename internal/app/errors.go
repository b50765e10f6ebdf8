package app

import (
	"fmt"
	"net/http"

	"mdreview/api/internal/reviewapi"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func notFound(message string) *DomainError {
	return domainError(http.StatusNotFound, "NOT_FOUND", message, nil)
}

// issues collects field-level validation failures.
type issues []reviewapi.Issue

func (v *issues) add(field, message string) {
	*v = append(*v, reviewapi.Issue{Field: field, Message: message})
}

// err returns nil when nothing was collected.
func (v issues) err() error {
	if len(v) == 0 {
		return nil
	}
	return domainError(http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data",
		&reviewapi.ErrorDetails{Issues: []reviewapi.Issue(v)})
}
