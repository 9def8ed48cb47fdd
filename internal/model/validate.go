package model

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string
	Message string
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names so messages match the wire format.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}()

// RaiseInput carries the fields of a raise request.
type RaiseInput struct {
	MeetingID     string `json:"meeting_id" validate:"required"`
	ParticipantID string `json:"participant_id" validate:"required"`
	DisplayName   string `json:"display_name,omitempty"`
	TransportID   string `json:"transport_id,omitempty"`
}

// DispositionInput carries the fields of an acknowledge or deny request.
type DispositionInput struct {
	MeetingID     string      `json:"meeting_id" validate:"required"`
	ParticipantID string      `json:"participant_id" validate:"required"`
	HostID        string      `json:"host_id" validate:"required"`
	Action        Disposition `json:"action" validate:"required,oneof=acknowledge deny"`
}

// HostInput carries a meeting id and the caller claiming to be its host.
type HostInput struct {
	MeetingID string `json:"meeting_id" validate:"required"`
	HostID    string `json:"host_id" validate:"required"`
}

// MeetingInput registers a meeting's host in the directory.
type MeetingInput struct {
	MeetingID string `json:"meeting_id" validate:"required"`
	HostID    string `json:"host_id" validate:"required"`
	Title     string `json:"title,omitempty" validate:"max=200"`
}

// Validate checks a request struct against its validate tags. It returns a
// *ValidationError if any rule fails, or nil if the input is valid.
func Validate(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	var ve ValidationError
	for _, fe := range verrs {
		ve.Errors = append(ve.Errors, FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return &ve
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %q", fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}
