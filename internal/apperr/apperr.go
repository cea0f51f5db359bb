// internal/apperr/apperr.go
//
// Coded errors returned by every builder action.
//
// Context
// -------
// Actions either return a payload or an *Error.  The Code is stable and
// machine-readable (PAGE_LOCKED, SLUG_ALREADY_EXISTS, …), the Message is safe
// to show an editor, and Kind decides how the HTTP layer answers:
//
//   • KindValidation        → 400, field details attached
//   • KindNotFound          → 404
//   • KindConflict          → 409, PAGE_LOCKED also carries the lock holder
//   • KindInvalidOperation  → 422
//   • KindStorage           → 500, Cause logged and never rendered
//
// Notes
// -----
// • Storage errors may leave partial effects mid-cascade; the core reports
//   them and never retries.
// • Two spaces after periods.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind groups codes by who is at fault.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindConflict
	KindInvalidOperation
	KindStorage
)

// Stable codes.
const (
	CodeValidation          = "VALIDATION_ERROR"
	CodePageNotFound        = "PAGE_NOT_FOUND"
	CodePageNotFoundInTree  = "PAGE_NOT_FOUND_IN_TREE"
	CodeSiteNotFound        = "SITE_NOT_FOUND"
	CodeTemplateNotFound    = "TEMPLATE_NOT_FOUND"
	CodeSlugAlreadyExists   = "SLUG_ALREADY_EXISTS"
	CodeLanguagePageExists  = "LANGUAGE_PAGE_EXISTS"
	CodePageLocked          = "PAGE_LOCKED"
	CodeInvalidOperation    = "INVALID_OPERATION"
	CodeUnknownAction       = "UNKNOWN_ACTION"
	CodeErrorGettingPages   = "ERROR_GETTING_PAGES"
	CodeErrorPublishTheme   = "ERROR_PUBLISHING_THEME"
	CodeErrorPublishPage    = "ERROR_PUBLISHING_PAGE"
	CodeErrorCreateRevision = "ERROR_CREATING_REVISION"
	CodeUpdateFailed        = "UPDATE_FAILED"
	CodeDeleteFailed        = "DELETE_FAILED"
	CodeCreateFailed        = "CREATE_FAILED"
	CodeUnpublishFailed     = "UNPUBLISH_FAILED"
	CodeLockFailed          = "LOCK_FAILED"
)

// FieldError is one field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the structured error every action returns.
type Error struct {
	Code    string       `json:"code"`
	Message string       `json:"error"`
	Kind    Kind         `json:"-"`
	Editor  string       `json:"editor,omitempty"`
	Details []FieldError `json:"details,omitempty"`
	Cause   error        `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// HTTPStatus maps Kind onto a response status.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindInvalidOperation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// CallerError reports whether the requester, not the system, is at fault.
func (e *Error) CallerError() bool { return e.Kind != KindStorage }

//
// constructors
//

func Validation(msg string, details ...FieldError) *Error {
	return &Error{Code: CodeValidation, Message: msg, Kind: KindValidation, Details: details}
}

func NotFound(code, msg string) *Error {
	return &Error{Code: code, Message: msg, Kind: KindNotFound}
}

func Conflict(code, msg string) *Error {
	return &Error{Code: code, Message: msg, Kind: KindConflict}
}

// Locked reports the current holder of a page's edit lock.
func Locked(editor string) *Error {
	return &Error{
		Code:    CodePageLocked,
		Message: "page is being edited by another user",
		Kind:    KindConflict,
		Editor:  editor,
	}
}

func InvalidOperation(msg string) *Error {
	return &Error{Code: CodeInvalidOperation, Message: msg, Kind: KindInvalidOperation}
}

// Storage wraps a repository failure under code.
func Storage(code string, cause error) *Error {
	msg := "storage operation failed"
	if cause != nil {
		msg = cause.Error()
	}
	return &Error{Code: code, Message: msg, Kind: KindStorage, Cause: cause}
}

//
// helpers
//

// As extracts the *Error from err's chain, or nil.
func As(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// IsCode reports whether err carries code.
func IsCode(err error, code string) bool {
	ae := As(err)
	return ae != nil && ae.Code == code
}
