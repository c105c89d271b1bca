package sparql

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrQueryBadFormed is returned for HTTP 400: the endpoint rejected the query text.
	ErrQueryBadFormed = errors.New("query bad formed")
	// ErrUnauthorized is returned for HTTP 401: missing or insufficient credentials.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrEndPointNotFound is returned for HTTP 404.
	ErrEndPointNotFound = errors.New("endpoint not found")
	// ErrURITooLong is returned for HTTP 414, typically a long query sent with GET.
	ErrURITooLong = errors.New("uri too long")
	// ErrEndPointInternalError is returned for HTTP 500.
	ErrEndPointInternalError = errors.New("endpoint internal error")
	// ErrTransport covers every other HTTP status and network-level failures.
	ErrTransport = errors.New("transport error")
	// ErrUnsupportedFormat is returned when a serialization is not available in this build.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrInvalidArgument signals a caller-side contract violation.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Error is a failed protocol exchange. Kind is one of the Err* sentinels above and is
// matched with errors.Is.
type Error struct {
	Kind   error
	Status int
	URL    string
	Body   []byte
	Err    error
}

func (e *Error) Error() string {
	summary := e.Kind.Error()
	if e.URL != "" {
		summary = fmt.Sprintf("%s: %s", summary, e.URL)
	}
	if e.Status == 0 {
		if e.Err != nil {
			return fmt.Sprintf("%s - %v", summary, e.Err)
		}
		return summary
	}
	message := strings.TrimSpace(string(e.Body))
	if message == "" {
		return fmt.Sprintf("%s - status: %d", summary, e.Status)
	}
	return fmt.Sprintf("%s - status: %d, response: %q", summary, e.Status, message)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// errorKindForStatus maps the statuses with a dedicated kind; everything else is ErrTransport.
func errorKindForStatus(status int) error {
	switch status {
	case http.StatusBadRequest:
		return ErrQueryBadFormed
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrEndPointNotFound
	case http.StatusRequestURITooLong:
		return ErrURITooLong
	case http.StatusInternalServerError:
		return ErrEndPointInternalError
	}
	return ErrTransport
}

// newHTTPError builds the error for a non-2xx response.
func newHTTPError(url string, status int, body []byte) error {
	return &Error{Kind: errorKindForStatus(status), Status: status, URL: url, Body: body}
}

// StatusCode returns the HTTP status a failed call carries, or 0.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

// ResponseBody returns the response body a failed call carries, or nil.
func ResponseBody(err error) []byte {
	var e *Error
	if errors.As(err, &e) {
		return e.Body
	}
	return nil
}

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func unsupportedFormat(f Format) error {
	return fmt.Errorf("%w: %q is not available in this build", ErrUnsupportedFormat, f)
}
