package library

import (
	"github.com/pkg/errors"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateID       = errors.New("duplicate id")
	ErrDuplicateEmail    = errors.New("duplicate email")
	ErrUnavailable       = errors.New("no copies available")
	ErrLimitReached      = errors.New("borrowing limit reached")
	ErrOutstandingCopies = errors.New("copies are still on loan")
	ErrAlreadyReturned   = errors.New("loan already returned")
	ErrInvalid           = errors.New("invalid record")

	ErrInvalidCredentials = errors.New("invalid username or password")
)

// notFoundError names the entity a lookup missed. It matches ErrNotFound.
type notFoundError struct{ entity string }

func (e *notFoundError) Error() string        { return e.entity + " not found" }
func (e *notFoundError) Is(target error) bool { return target == ErrNotFound }

var (
	ErrBookNotFound   error = &notFoundError{entity: "book"}
	ErrMemberNotFound error = &notFoundError{entity: "member"}
	ErrLoanNotFound   error = &notFoundError{entity: "loan"}
)
