package sparql

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sparql-client/base"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// DefaultQuery is the query a new or reset session holds.
	DefaultQuery = "SELECT * WHERE { ?s ?p ?o }"
	// DefaultRealm is the digest realm assumed when none is given.
	DefaultRealm = "SPARQL"
	// DefaultAgent identifies the client in the User-Agent header.
	DefaultAgent = "sparql-client/" + Version + " (Go)"
	Version      = "1.0.0"
)

// Credentials are the user name, password and digest realm sent to the endpoint.
type Credentials struct {
	User     string
	Password string
	Realm    string
}

// Session holds everything needed to talk to one endpoint. It is mutated between
// requests and is not safe for concurrent use.
type Session struct {
	endpoint       string
	updateEndpoint string
	agent          string
	defaultGraph   string
	defaultFormat  Format

	query       string
	form        Form
	format      Format
	method      string
	encoding    Encoding
	timeout     time.Duration
	onlyConneg  bool
	params      *Params
	headers     base.Header
	credentials *Credentials
	auth        AuthScheme
	keepAlive   bool
	proxy       *url.URL

	logger     *slog.Logger
	baseClient *http.Client
	client     *http.Client
}

// Option configures a session at construction.
type Option func(*Session)

// WithUpdateEndpoint sets the endpoint updates are sent to.
func WithUpdateEndpoint(endpoint string) Option {
	return func(s *Session) { s.updateEndpoint = endpoint }
}

// WithReturnFormat sets the format a reset session returns to.
func WithReturnFormat(format Format) Option {
	return func(s *Session) { s.defaultFormat = format }
}

// WithDefaultGraph adds graph as default-graph-uri on every request, including after resets.
func WithDefaultGraph(graph string) Option {
	return func(s *Session) { s.defaultGraph = graph }
}

// WithAgent sets the User-Agent.
func WithAgent(agent string) Option {
	return func(s *Session) { s.agent = agent }
}

// WithLogger sets the logger warnings are written to.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithHTTPClient dispatches through client. Its transport is kept and wrapped when
// digest authentication is configured.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Session) { s.baseClient = client }
}

// NewSession creates a session for endpoint, which must be an absolute URL.
func NewSession(endpoint string, options ...Option) (*Session, error) {
	s := &Session{
		endpoint:      endpoint,
		agent:         DefaultAgent,
		defaultFormat: XML,
		headers:       base.NewHeader(nil),
		auth:          BasicAuth,
		logger:        slog.Default(),
	}
	for _, option := range options {
		option(s)
	}
	if !isAbsoluteURL(s.endpoint) {
		return nil, invalidArgument("endpoint %q is not an absolute URL", s.endpoint)
	}
	if s.updateEndpoint != "" && !isAbsoluteURL(s.updateEndpoint) {
		return nil, invalidArgument("update endpoint %q is not an absolute URL", s.updateEndpoint)
	}
	if !Supported(s.defaultFormat) {
		if s.defaultFormat == JSONLD {
			return nil, unsupportedFormat(JSONLD)
		}
		return nil, invalidArgument("unknown return format %q", s.defaultFormat)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.ResetQuery()
	return s, nil
}

func isAbsoluteURL(value string) bool {
	u, err := url.Parse(value)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// ResetQuery restores the per-request state: GET, no timeout, urlencoded payload, the
// default query and return format, and the parameters reduced to the default graph.
// Credentials, custom headers and the content negotiation switch are kept.
func (s *Session) ResetQuery() {
	s.method = http.MethodGet
	s.timeout = 0
	s.encoding = URLEncoded
	s.format = s.defaultFormat
	s.params = NewParams()
	if s.defaultGraph != "" {
		s.params.Add(ParamDefaultGraph, s.defaultGraph)
	}
	s.SetQuery(DefaultQuery)
}

// SetQuery sets the query text and classifies it.
func (s *Session) SetQuery(query string) {
	s.query = query
	form, ok := Classify(query)
	if !ok {
		s.logger.Warn("could not determine the query form, assuming SELECT", "query", query)
	}
	s.form = form
}

// SetQueryBytes sets the query from UTF-8 encoded bytes.
func (s *Session) SetQueryBytes(query []byte) error {
	if !utf8.Valid(query) {
		return invalidArgument("query is not valid UTF-8")
	}
	s.SetQuery(string(query))
	return nil
}

// SetReturnFormat selects the serialization to ask for. Unknown values are ignored.
func (s *Session) SetReturnFormat(format Format) error {
	if format == JSONLD && !jsonLDAvailable {
		return unsupportedFormat(format)
	}
	if !Supported(format) {
		s.logger.Warn("ignoring unknown return format", "format", format)
		return nil
	}
	s.format = format
	return nil
}

// SetMethod selects GET or POST. Other values are ignored.
func (s *Session) SetMethod(method string) {
	method = strings.ToUpper(method)
	if method != http.MethodGet && method != http.MethodPost {
		s.logger.Warn("ignoring unsupported HTTP method", "method", method)
		return
	}
	s.method = method
}

// SetRequestMethod selects how POST requests carry the query. Other values are ignored.
func (s *Session) SetRequestMethod(encoding Encoding) {
	if encoding != URLEncoded && encoding != PostDirectly {
		s.logger.Warn("ignoring unsupported request method", "encoding", encoding)
		return
	}
	s.encoding = encoding
}

// AddParameter appends value to name. The reserved query parameter is refused.
func (s *Session) AddParameter(name string, value string) bool {
	if name == ParamQuery {
		return false
	}
	s.params.Add(name, value)
	return true
}

// ClearParameter removes name and reports whether it was set. The reserved query
// parameter is refused.
func (s *Session) ClearParameter(name string) bool {
	if name == ParamQuery {
		return false
	}
	return s.params.Del(name)
}

// AddDefaultGraph adds a default-graph-uri parameter.
func (s *Session) AddDefaultGraph(iri string) bool {
	return s.AddParameter(ParamDefaultGraph, iri)
}

// AddNamedGraph adds a named-graph-uri parameter.
func (s *Session) AddNamedGraph(iri string) bool {
	return s.AddParameter(ParamNamedGraph, iri)
}

// SetCredentials sets user and password. An empty realm means DefaultRealm.
func (s *Session) SetCredentials(user string, password string, realm string) {
	if realm == "" {
		realm = DefaultRealm
	}
	s.credentials = &Credentials{User: user, Password: password, Realm: realm}
	s.invalidateClient()
}

// SetHTTPAuth selects basic or digest authentication.
func (s *Session) SetHTTPAuth(scheme AuthScheme) error {
	scheme = AuthScheme(strings.ToLower(string(scheme)))
	if scheme != BasicAuth && scheme != DigestAuth {
		return invalidArgument("unknown authentication scheme %q", scheme)
	}
	s.auth = scheme
	s.invalidateClient()
	return nil
}

// SetTimeout bounds a whole exchange. Zero disables the limit.
func (s *Session) SetTimeout(timeout time.Duration) {
	s.timeout = timeout
}

// SetOnlyConneg disables the format, output and results parameters.
func (s *Session) SetOnlyConneg(onlyConneg bool) {
	s.onlyConneg = onlyConneg
}

// SetCustomHTTPHeader sets a header applied after all others.
func (s *Session) SetCustomHTTPHeader(name string, value string) {
	s.headers.Set(name, value)
}

// ClearCustomHTTPHeader removes a custom header and reports whether it was set.
func (s *Session) ClearCustomHTTPHeader(name string) bool {
	return s.headers.Del(name)
}

func (s *Session) SetUpdateEndpoint(endpoint string) error {
	if endpoint != "" && !isAbsoluteURL(endpoint) {
		return invalidArgument("update endpoint %q is not an absolute URL", endpoint)
	}
	s.updateEndpoint = endpoint
	return nil
}

func (s *Session) SetAgent(agent string) {
	s.agent = agent
}

// SetKeepAlive reuses connections between requests.
func (s *Session) SetKeepAlive(keepAlive bool) {
	s.keepAlive = keepAlive
	s.invalidateClient()
}

// SetProxy routes requests through proxy. An empty value restores the proxy settings
// from the environment.
func (s *Session) SetProxy(proxy string) error {
	if proxy == "" {
		s.proxy = nil
		s.invalidateClient()
		return nil
	}
	u, err := url.Parse(proxy)
	if err != nil || u.Host == "" {
		return invalidArgument("invalid proxy %q", proxy)
	}
	s.proxy = u
	s.invalidateClient()
	return nil
}

func (s *Session) Endpoint() string { return s.endpoint }

// UpdateEndpoint returns the endpoint updates go to, which defaults to Endpoint.
func (s *Session) UpdateEndpoint() string {
	if s.updateEndpoint == "" {
		return s.endpoint
	}
	return s.updateEndpoint
}

func (s *Session) QueryString() string { return s.query }

func (s *Session) QueryForm() Form { return s.form }

func (s *Session) IsUpdate() bool { return s.form.IsUpdate() }

func (s *Session) ReturnFormat() Format { return s.format }

func (s *Session) Method() string { return s.method }

func (s *Session) RequestMethod() Encoding { return s.encoding }

func (s *Session) Timeout() time.Duration { return s.timeout }

func (s *Session) OnlyConneg() bool { return s.onlyConneg }

func (s *Session) Agent() string { return s.agent }

func (s *Session) AuthScheme() AuthScheme { return s.auth }

// Parameters returns a copy of the extra parameters.
func (s *Session) Parameters() *Params { return s.params.Clone() }

// CustomHTTPHeaders returns a copy of the custom headers.
func (s *Session) CustomHTTPHeaders() base.Header { return s.headers.Clone() }

// Query dispatches the current query and returns the undecoded result.
func (s *Session) Query(ctx context.Context) (*QueryResult, error) {
	req, err := s.buildRequest(s.format)
	if err != nil {
		return nil, err
	}
	raw, err := s.dispatch(ctx, req)
	if err != nil {
		return nil, err
	}
	return newQueryResult(raw, s.logger), nil
}

// QueryAndConvert dispatches the current query and converts the result.
func (s *Session) QueryAndConvert(ctx context.Context) (any, error) {
	result, err := s.Query(ctx)
	if err != nil {
		return nil, err
	}
	return result.Convert()
}

// QueryBindings runs a SELECT or ASK query negotiating JSON for this request only and
// returns the typed view.
func (s *Session) QueryBindings(ctx context.Context) (*Bindings, error) {
	if s.form != Select && s.form != Ask {
		return nil, invalidArgument("bindings need a SELECT or ASK query, got %s", s.form)
	}
	req, err := s.buildRequest(JSON)
	if err != nil {
		return nil, err
	}
	raw, err := s.dispatch(ctx, req)
	if err != nil {
		return nil, err
	}
	return newQueryResult(raw, s.logger).Bindings()
}

func (s *Session) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "SPARQL session for %s", s.endpoint)
	if s.updateEndpoint != "" {
		fmt.Fprintf(&b, " (updates: %s)", s.updateEndpoint)
	}
	fmt.Fprintf(&b, "\n  form: %s, format: %s, method: %s, encoding: %s", s.form, s.format, s.method, s.encoding)
	if s.timeout > 0 {
		fmt.Fprintf(&b, ", timeout: %s", s.timeout)
	}
	if s.onlyConneg {
		b.WriteString(", content negotiation only")
	}
	if s.credentials != nil {
		fmt.Fprintf(&b, "\n  auth: %s as %s", s.auth, s.credentials.User)
	}
	if s.params.Len() > 0 {
		fmt.Fprintf(&b, "\n  parameters: %s", s.params.Encode())
	}
	fmt.Fprintf(&b, "\n  query: %s", s.query)
	return b.String()
}
