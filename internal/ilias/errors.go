package ilias

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork is a transport level failure, no response was received.
	ErrNetwork = errors.New("network error")
	// ErrRequest is a response with a non-success status.
	ErrRequest = errors.New("request error")
	// ErrAuthenticationFailed means the single sign-on handshake did not
	// end in a portal session.
	ErrAuthenticationFailed = errors.New("authentication failed")
	// ErrParse means an expected structure was absent from a fetched page.
	ErrParse = errors.New("parse error")
	// ErrDateParse means a portal date string could not be understood.
	ErrDateParse = errors.New("date parse error")

	ErrNoSubmission      = errors.New("assignment has no submission page")
	ErrUploadUnsupported = errors.New("folder does not allow uploading files")
)

type RequestError struct {
	Method string
	Url    string
	Status int
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Url, e.Status)
}

func (e *RequestError) Unwrap() error {
	return ErrRequest
}

// MissingElementError names the selector or attribute that yielded no
// match and the page it was looked up on.
type MissingElementError struct {
	Element string
	Page    string
}

func (e *MissingElementError) Error() string {
	if e.Page == "" {
		return fmt.Sprintf("missing element: %s", e.Element)
	}
	return fmt.Sprintf("missing element on %s: %s", e.Page, e.Element)
}

func (e *MissingElementError) Unwrap() error {
	return ErrParse
}

func missing(page, element string) error {
	return &MissingElementError{Element: element, Page: page}
}

type DateParseError struct {
	Text   string
	Reason string
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("could not parse date %q: %s", e.Text, e.Reason)
}

func (e *DateParseError) Unwrap() error {
	return ErrDateParse
}
