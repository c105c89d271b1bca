package sparql

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"sparql-client/base"

	"github.com/knakk/digest"
)

// RawResponse is a successful (2xx) exchange. The body has been read completely while
// the request deadline was still running.
type RawResponse struct {
	Status int
	Header base.Header
	URL    string
	Body   []byte
	// Format is the serialization the caller asked for, kept for cross-checking the
	// returned media type.
	Format Format
	Form   Form
}

// statusIsOK checks whether a status code is a success response.
func statusIsOK(status int) bool {
	return status >= 200 && status <= 299
}

// httpClient returns the client used for the next exchange, building it on first use.
func (s *Session) httpClient() *http.Client {
	if s.client != nil {
		return s.client
	}
	client := &http.Client{}
	var inner http.RoundTripper
	if s.baseClient != nil {
		*client = *s.baseClient
		inner = s.baseClient.Transport
	}
	if inner == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.DisableKeepAlives = !s.keepAlive
		if s.proxy != nil {
			transport.Proxy = http.ProxyURL(s.proxy)
		}
		inner = transport
	}
	if s.auth == DigestAuth && s.credentials != nil {
		t := digest.NewTransport(s.credentials.User, s.credentials.Password)
		t.Transport = &challengeTransport{next: inner, realm: s.credentials.Realm, logger: s.logger}
		inner = t
	}
	client.Transport = inner
	s.client = client
	return client
}

// invalidateClient drops the cached client after a transport-relevant setter ran.
func (s *Session) invalidateClient() {
	if s.client != nil {
		s.client.CloseIdleConnections()
	}
	s.client = nil
}

var realmRegex = regexp.MustCompile(`realm="([^"]*)"`)

// challengeTransport sits below the digest authenticator and sees the unauthenticated
// attempt. It warns when the server asks for a realm other than the configured one. The
// authenticator buffers the body for the replay and releases the 401 itself.
type challengeTransport struct {
	next   http.RoundTripper
	realm  string
	logger *slog.Logger
}

func (t *challengeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err != nil || resp.StatusCode != http.StatusUnauthorized || t.realm == "" {
		return resp, err
	}
	challenge := resp.Header.Get("WWW-Authenticate")
	if match := realmRegex.FindStringSubmatch(challenge); match != nil && match[1] != t.realm {
		t.logger.Warn("digest challenge realm differs from the configured realm", "configured", t.realm, "challenge", match[1])
	}
	return resp, nil
}

// dispatch executes req and maps the outcome onto the error kinds.
func (s *Session) dispatch(ctx context.Context, req *Request) (*RawResponse, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	httpReq, err := req.HTTPRequest(ctx)
	if err != nil {
		return nil, invalidArgument("cannot build request for %s: %v", req.URL, err)
	}
	resp, err := s.httpClient().Do(httpReq)
	if err != nil {
		return nil, &Error{Kind: ErrTransport, URL: req.URL, Err: err}
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: ErrTransport, URL: req.URL, Err: err}
	}
	location := req.URL
	if resp.Request != nil && resp.Request.URL != nil {
		location = resp.Request.URL.String()
	}
	if !statusIsOK(resp.StatusCode) {
		return nil, newHTTPError(location, resp.StatusCode, data)
	}
	return &RawResponse{
		Status: resp.StatusCode,
		Header: base.NewHeader(resp.Header),
		URL:    location,
		Body:   data,
		Format: req.Format,
		Form:   req.Form,
	}, nil
}

// IsTimeout reports whether err was caused by the session timeout or a context deadline.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
