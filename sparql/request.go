package sparql

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"strings"
)

// Encoding selects how a POST request carries the query.
type Encoding string

const (
	// URLEncoded sends query/update as an application/x-www-form-urlencoded body.
	URLEncoded Encoding = "urlencoded"
	// PostDirectly sends the unencoded query as the body (application/sparql-query or
	// application/sparql-update).
	PostDirectly Encoding = "postdirectly"
)

// AuthScheme selects the HTTP authentication used with credentials.
type AuthScheme string

const (
	BasicAuth  AuthScheme = "basic"
	DigestAuth AuthScheme = "digest"
)

const (
	contentTypeForm   = "application/x-www-form-urlencoded"
	contentTypeQuery  = "application/sparql-query"
	contentTypeUpdate = "application/sparql-update"
)

// parameter keys understood by the protocol and by common endpoint implementations
const (
	ParamQuery          = "query"
	ParamUpdate         = "update"
	ParamDefaultGraph   = "default-graph-uri"
	ParamNamedGraph     = "named-graph-uri"
	paramFormat         = "format"
	paramOutput         = "output"
	paramResults        = "results"
	headerAccept        = "Accept"
	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
	headerUserAgent     = "User-Agent"
)

// the same hint under every key some server family looks at
var formatParams = []string{paramFormat, paramOutput, paramResults}

// Request is the HTTP request a session dispatches.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
	Form   Form
	Format Format
}

// HTTPRequest materializes the request. Each call returns a fresh body reader.
func (r *Request) HTTPRequest(ctx context.Context) (*http.Request, error) {
	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, body)
	if err != nil {
		return nil, err
	}
	req.Header = r.Header.Clone()
	return req, nil
}

// acceptFor derives the Accept media types for a form and requested format.
// The boolean is false when nothing specific matched and */* is used instead.
func acceptFor(form Form, format Format) ([]string, bool) {
	switch {
	case form.IsUpdate():
		switch format {
		case XML:
			return mimeSPARQLXML, true
		case JSON:
			return mimeSPARQLJSON, true
		}
		// no specific result format for updates is fine
		return mimeAll, true
	case form.IsGraph():
		switch format {
		case Turtle:
			return mimeTurtle, true
		case N3:
			return mimeN3, true
		case XML, RDFXML:
			return mimeRDFXML, true
		case JSONLD:
			if jsonLDAvailable {
				return mimeJSONLD, true
			}
		}
	default:
		switch format {
		case XML:
			return mimeSPARQLXML, true
		case JSON:
			return mimeSPARQLJSON, true
		case CSV:
			return mimeCSV, true
		case TSV:
			return mimeTSV, true
		}
	}
	return mimeAll, false
}

// AcceptHeader returns the Accept value for a form and requested format.
func AcceptHeader(form Form, format Format) string {
	mimes, _ := acceptFor(form, format)
	return strings.Join(mimes, ",")
}

// formatHintMIME is the media type sent next to the short alias for formats whose alias
// some servers do not recognize.
func formatHintMIME(format Format) string {
	switch format {
	case TSV, RDFXML, JSONLD:
		if mimes := MIMETypes(format); len(mimes) > 0 && mimes[0] != mimeAll[0] {
			return mimes[0]
		}
	}
	return ""
}

// BuildRequest returns the request the next call to Query would dispatch.
func (s *Session) BuildRequest() (*Request, error) {
	return s.buildRequest(s.format)
}

func (s *Session) buildRequest(format Format) (*Request, error) {
	form := s.form
	update := form.IsUpdate()
	target := s.endpoint
	method := s.method
	if update {
		target = s.UpdateEndpoint()
		if method != http.MethodPost {
			s.logger.Warn("update requests must use POST, sending POST instead", "method", method, "form", form)
			method = http.MethodPost
		}
	}

	accept, matched := acceptFor(form, format)
	if !matched {
		s.logger.Warn("no media type matches the requested format for this query form, accepting anything", "form", form, "format", format)
	}

	params := s.params.Clone()
	key := ParamQuery
	if update {
		key = ParamUpdate
	}
	inline := s.encoding == URLEncoded || method == http.MethodGet
	if inline {
		params.Add(key, s.query)
	}
	if !s.onlyConneg && !update {
		hint := formatHintMIME(format)
		for _, p := range formatParams {
			params.Add(p, string(format))
			if hint != "" {
				params.Add(p, hint)
			}
		}
	}

	req := &Request{
		Method: method,
		Header: make(http.Header),
		Form:   form,
		Format: format,
	}
	switch {
	case method == http.MethodGet:
		req.URL = withQueryString(target, params.Encode())
	case inline:
		req.URL = target
		req.Header.Set(headerContentType, contentTypeForm)
		req.Body = []byte(params.Encode())
	default:
		req.URL = withQueryString(target, params.Encode())
		if update {
			req.Header.Set(headerContentType, contentTypeUpdate)
		} else {
			req.Header.Set(headerContentType, contentTypeQuery)
		}
		req.Body = []byte(s.query)
	}

	req.Header.Set(headerUserAgent, s.agent)
	req.Header.Set(headerAccept, strings.Join(accept, ","))
	if s.credentials != nil {
		switch s.auth {
		case BasicAuth:
			req.Header.Set(headerAuthorization, basicAuthorization(s.credentials.User, s.credentials.Password))
		case DigestAuth:
			// answered by the transport once the endpoint challenges
		default:
			return nil, invalidArgument("unknown authentication scheme %q", s.auth)
		}
	}
	s.headers.Apply(req.Header)
	return req, nil
}

func basicAuthorization(user string, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+password))
}

func withQueryString(target string, query string) string {
	if query == "" {
		return target
	}
	if strings.Contains(target, "?") {
		return target + "&" + query
	}
	return target + "?" + query
}
