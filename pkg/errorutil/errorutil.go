package errorutil

import (
	"errors"
	"fmt"
)

// Class groups error kinds by how the caller should treat them. The HTTP
// boundary owns the mapping from Class to status code.
type Class int

const (
	ClassInternal Class = iota
	ClassBadRequest
	ClassNotFound
	ClassUnauthorized
	ClassForbidden
)

func (c Class) String() string {
	switch c {
	case ClassBadRequest:
		return "bad_request"
	case ClassNotFound:
		return "not_found"
	case ClassUnauthorized:
		return "unauthorized"
	case ClassForbidden:
		return "forbidden"
	default:
		return "internal"
	}
}

// Kind is a named error with a stable code and a message template.
type Kind struct {
	Code     string
	Template string
	Class    Class
}

var (
	ProductNotFound             = Kind{"PRODUCT_NOT_FOUND", "Product not found with id: %d", ClassNotFound}
	UnsupportedUpdateType       = Kind{"UNSUPPORTED_UPDATE_TYPE", "Unsupported update request type: %s", ClassBadRequest}
	ValidationError             = Kind{"VALIDATION_ERROR", "Validation failed: %s", ClassBadRequest}
	InvalidProductData          = Kind{"INVALID_PRODUCT_DATA", "Invalid product data: %s", ClassBadRequest}
	DatabaseConstraintViolation = Kind{"DATABASE_CONSTRAINT_VIOLATION", "Database constraint violation - please check your input data", ClassBadRequest}
	DatabaseError               = Kind{"DATABASE_ERROR", "Database operation failed", ClassInternal}
	InternalServerError         = Kind{"INTERNAL_SERVER_ERROR", "An unexpected error occurred. Please try again later.", ClassInternal}
	Unauthorized                = Kind{"UNAUTHORIZED", "Authentication required: %s", ClassUnauthorized}
	Forbidden                   = Kind{"FORBIDDEN", "Access denied: %s", ClassForbidden}
	RouteNotFound               = Kind{"NOT_FOUND", "No handler for %s %s", ClassNotFound}
)

// Error standardizes application errors. Err is kept for diagnostics and is
// never rendered to the caller.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Code returns the machine-readable code of the error kind.
func (e *Error) Code() string {
	return e.Kind.Code
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind.Code == e.Kind.Code
}

// TemplateArityError signals a programming fault: a kind was raised with the
// wrong number of template arguments.
type TemplateArityError struct {
	Code     string
	Expected int
	Got      int
}

func (e *TemplateArityError) Error() string {
	return fmt.Sprintf("error kind %s expects %d argument(s), got %d", e.Code, e.Expected, e.Got)
}

// New raises an error of the given kind. It panics with *TemplateArityError when
// len(args) does not match the template placeholders.
func New(kind Kind, args ...any) *Error {
	return Wrap(kind, nil, args...)
}

// Wrap is like New but attaches an underlying cause.
func Wrap(kind Kind, cause error, args ...any) *Error {
	if want := placeholders(kind.Template); want != len(args) {
		panic(&TemplateArityError{Code: kind.Code, Expected: want, Got: len(args)})
	}
	msg := kind.Template
	if len(args) > 0 {
		msg = fmt.Sprintf(kind.Template, args...)
	}
	return &Error{Kind: kind, Message: msg, Err: cause}
}

// Of returns the *Error in err's chain, if any.
func Of(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	appErr, ok := Of(err)
	return ok && appErr.Kind.Code == kind.Code
}

func placeholders(template string) int {
	count := 0
	for i := 0; i < len(template); i++ {
		if template[i] != '%' {
			continue
		}
		if i+1 < len(template) && template[i+1] == '%' {
			i++
			continue
		}
		count++
	}
	return count
}
