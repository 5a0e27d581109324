package booking

import "errors"

// error codes surfaced to handlers

type ErrCode string

const (
	ErrInvalidArgument   ErrCode = "INVALID_ARGUMENT"
	ErrSlotUnavailable   ErrCode = "SLOT_UNAVAILABLE"
	ErrNotAuthorized     ErrCode = "NOT_AUTHORIZED"
	ErrNotFound          ErrCode = "NOT_FOUND"
	ErrInvalidTransition ErrCode = "INVALID_STATE_TRANSITION"
	ErrTooLateToCancel   ErrCode = "TOO_LATE_TO_CANCEL"
)

type codedError struct {
	code ErrCode
	msg  string
}

func (e codedError) Error() string {
	if e.msg != "" {
		return string(e.code) + ": " + e.msg
	}
	return string(e.code)
}
func (e codedError) Code() ErrCode { return e.code }

func makeErr(c ErrCode, msg string) error { return codedError{code: c, msg: msg} }

// Code extracts the error code, or "" for uncoded errors.
func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}
