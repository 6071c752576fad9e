package fetch

import (
	"errors"
	"fmt"

	"statesdb/internal/datasource/httpds"
)

// Kind classifies a fetch failure.
type Kind int

const (
	// KindTransient failures may succeed on a later run: timeouts, transport
	// errors, 5xx and 429 after retries ran out.
	KindTransient Kind = iota
	// KindPermanent failures will not: malformed locators, 404 and other
	// final statuses, oversized bodies.
	KindPermanent
)

func (k Kind) String() string {
	if k == KindPermanent {
		return "permanent"
	}
	return "transient"
}

// Error is returned by Fetch for every failure.
type Error struct {
	Kind   Kind
	URL    string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s (%s, status %d): %v", e.URL, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch %s (%s): %v", e.URL, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsTransient reports whether err is a transient fetch failure.
func IsTransient(err error) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == KindTransient
}

// IsPermanent reports whether err is a permanent fetch failure.
func IsPermanent(err error) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == KindPermanent
}

func permanent(url string, err error) *Error {
	return &Error{Kind: KindPermanent, URL: url, Err: err}
}

// classify maps an httpds error onto a fetch Error.
func classify(url string, err error) *Error {
	var se *httpds.StatusError
	switch {
	case errors.As(err, &se):
		kind := KindPermanent
		if se.Retryable {
			kind = KindTransient
		}
		return &Error{Kind: kind, URL: url, Status: se.Code, Err: err}
	case errors.Is(err, httpds.ErrBodyTooLarge):
		return permanent(url, err)
	default:
		// transport errors, exhausted retries and cancellation
		return &Error{Kind: KindTransient, URL: url, Err: err}
	}
}
