package leads

import (
	"fmt"
	"net/http"

	"webcalc/internal/calculator"
)

const (
	MsgRateLimited = "Příliš mnoho požadavků. Zkuste to prosím za chvíli."
	MsgInvalid     = "Zkontrolujte prosím vyplněné údaje."
	MsgUnavailable = "Poptávku se nepodařilo uložit. Zkuste to prosím znovu."
)

// RejectError is a submission failure that maps onto an HTTP status and a
// message for the visitor.
type RejectError struct {
	Status  int
	Message string
	Fields  calculator.FieldErrors
	Err     error
}

func (e *RejectError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("lead rejected (%d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("lead rejected (%d): %s", e.Status, e.Message)
}

func (e *RejectError) Unwrap() error {
	return e.Err
}

func (e *RejectError) UserMessage() string {
	return e.Message
}

func rateLimited() *RejectError {
	return &RejectError{Status: http.StatusTooManyRequests, Message: MsgRateLimited}
}

func invalid(fields calculator.FieldErrors, err error) *RejectError {
	return &RejectError{Status: http.StatusBadRequest, Message: MsgInvalid, Fields: fields, Err: err}
}

func unavailable(err error) *RejectError {
	return &RejectError{Status: http.StatusInternalServerError, Message: MsgUnavailable, Err: err}
}
