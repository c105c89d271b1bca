package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"sparql-client/base"
	"sparql-client/sparql"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/exp/slices"
)

const requestIdHeader = "X-Request-Id"

func init() {
	Router.GET(BasePath+"/sparql/query", handleQuery)
	Router.POST(BasePath+"/sparql/query", handleQuery)
	Router.POST(BasePath+"/sparql/update", requireWriteAccess, handleUpdate)
	Router.GET(BasePath+"/sparql/bindings", handleBindings)
}

type bindingsResponse struct {
	Variables []string     `json:"variables,omitempty"`
	Rows      []sparql.Row `json:"rows"`
	Boolean   *bool        `json:"boolean,omitempty"`
}

// newSession creates a session against the configured endpoint for one gateway request.
// The request id is forwarded upstream and echoed to the caller.
func newSession(c *gin.Context) (*sparql.Session, error) {
	config := base.Configuration
	requestId := c.GetHeader(requestIdHeader)
	if len(requestId) == 0 {
		requestId = uuid.NewString()
	}
	c.Header(requestIdHeader, requestId)

	options := []sparql.Option{
		sparql.WithLogger(slog.Default().With("request", requestId)),
	}
	if len(config.UpdateEndpoint) > 0 {
		options = append(options, sparql.WithUpdateEndpoint(config.UpdateEndpoint))
	}
	if len(config.DefaultGraph) > 0 {
		options = append(options, sparql.WithDefaultGraph(config.DefaultGraph))
	}
	if format, ok := sparql.ParseFormat(config.ReturnFormat); ok && sparql.Supported(format) {
		options = append(options, sparql.WithReturnFormat(format))
	}
	session, err := sparql.NewSession(config.Endpoint, options...)
	if err != nil {
		return nil, err
	}
	if len(config.User) > 0 {
		session.SetCredentials(config.User, config.Password, config.Realm)
		if err := session.SetHTTPAuth(sparql.AuthScheme(config.AuthScheme)); err != nil {
			return nil, err
		}
	}
	session.SetTimeout(config.Timeout)
	session.SetCustomHTTPHeader(requestIdHeader, requestId)
	return session, nil
}

// readOperation extracts the query or update text from a protocol request: the query
// string for GET, a direct body for application/sparql-query|update, the form otherwise.
func readOperation(c *gin.Context, param string) (string, error) {
	var text string
	if c.Request.Method == http.MethodGet {
		text = c.Query(param)
	} else {
		mediaType, _, _ := mime.ParseMediaType(c.ContentType())
		switch mediaType {
		case "application/sparql-query", "application/sparql-update":
			data, err := io.ReadAll(c.Request.Body)
			if err != nil {
				return "", err
			}
			text = string(data)
		default:
			text = c.PostForm(param)
		}
	}
	if len(strings.TrimSpace(text)) == 0 {
		return "", fmt.Errorf("missing %s parameter", param)
	}
	return text, nil
}

// negotiateFormat picks the return format from the format parameter or, without one,
// from the first media type in the Accept header that some format serves.
func negotiateFormat(c *gin.Context) (sparql.Format, bool, error) {
	if value := c.Query("format"); len(value) > 0 {
		format, ok := sparql.ParseFormat(value)
		if !ok {
			return "", false, fmt.Errorf("unknown format %q", value)
		}
		if !sparql.Supported(format) {
			return "", false, fmt.Errorf("format %q is not available", value)
		}
		return format, true, nil
	}
	for _, accepted := range strings.Split(c.GetHeader("Accept"), ",") {
		mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(accepted))
		if err != nil || mediaType == "*/*" {
			continue
		}
		for _, format := range sparql.Formats() {
			if slices.Contains(sparql.MIMETypes(format), mediaType) {
				return format, true, nil
			}
		}
	}
	return "", false, nil
}

// applyProtocolOptions copies format and dataset parameters from the gateway request.
func applyProtocolOptions(c *gin.Context, session *sparql.Session) error {
	format, ok, err := negotiateFormat(c)
	if err != nil {
		return err
	}
	if ok {
		if err := session.SetReturnFormat(format); err != nil {
			return err
		}
	}
	for _, graph := range append(c.QueryArray(sparql.ParamDefaultGraph), c.PostFormArray(sparql.ParamDefaultGraph)...) {
		session.AddDefaultGraph(graph)
	}
	for _, graph := range append(c.QueryArray(sparql.ParamNamedGraph), c.PostFormArray(sparql.ParamNamedGraph)...) {
		session.AddNamedGraph(graph)
	}
	return nil
}

func handleQuery(c *gin.Context) {
	query, err := readOperation(c, sparql.ParamQuery)
	if err != nil {
		c.JSON(http.StatusBadRequest, JSONError{Error: err.Error()})
		return
	}
	session, err := newSession(c)
	if err != nil {
		slog.Error("failed creating session", "error", err)
		c.JSON(http.StatusInternalServerError, JSONError{Error: err.Error()})
		return
	}
	session.SetQuery(query)
	if session.IsUpdate() {
		c.JSON(http.StatusBadRequest, JSONError{Error: fmt.Sprintf("%s operations must be sent to %s/sparql/update", session.QueryForm(), BasePath)})
		return
	}
	if err := applyProtocolOptions(c, session); err != nil {
		c.JSON(http.StatusBadRequest, JSONError{Error: err.Error()})
		return
	}
	result, err := session.Query(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	writeResult(c, result)
}

func handleUpdate(c *gin.Context) {
	update, err := readOperation(c, sparql.ParamUpdate)
	if err != nil {
		c.JSON(http.StatusBadRequest, JSONError{Error: err.Error()})
		return
	}
	session, err := newSession(c)
	if err != nil {
		slog.Error("failed creating session", "error", err)
		c.JSON(http.StatusInternalServerError, JSONError{Error: err.Error()})
		return
	}
	session.SetQuery(update)
	if !session.IsUpdate() {
		c.JSON(http.StatusBadRequest, JSONError{Error: fmt.Sprintf("%s is not an update operation", session.QueryForm())})
		return
	}
	session.SetMethod(http.MethodPost)
	slog.Info("running update", "user", c.GetString(base.AuthUserHeader), "form", session.QueryForm(), "endpoint", session.UpdateEndpoint())
	result, err := session.Query(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	if len(result.Bytes()) == 0 {
		c.Status(http.StatusNoContent)
		return
	}
	writeResult(c, result)
}

// handleBindings runs a SELECT or ASK query and returns its rows as JSON. Rows can be
// filtered with the repeatable require and forbid parameters.
func handleBindings(c *gin.Context) {
	query, err := readOperation(c, sparql.ParamQuery)
	if err != nil {
		c.JSON(http.StatusBadRequest, JSONError{Error: err.Error()})
		return
	}
	session, err := newSession(c)
	if err != nil {
		slog.Error("failed creating session", "error", err)
		c.JSON(http.StatusInternalServerError, JSONError{Error: err.Error()})
		return
	}
	session.SetQuery(query)
	bindings, err := session.QueryBindings(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	if session.QueryForm() == sparql.Ask {
		c.JSON(http.StatusOK, bindingsResponse{Rows: []sparql.Row{}, Boolean: &bindings.AskResult})
		return
	}
	rows, err := bindings.Select(c.QueryArray("require"), c.QueryArray("forbid"))
	if errors.Is(err, sparql.ErrOutOfRange) {
		rows = []sparql.Row{}
	}
	c.JSON(http.StatusOK, bindingsResponse{Variables: bindings.Variables, Rows: rows})
}

func writeResult(c *gin.Context, result *sparql.QueryResult) {
	contentType := result.ContentType()
	if len(contentType) == 0 {
		contentType = "application/octet-stream"
	}
	c.Data(result.StatusCode(), contentType, result.Bytes())
}

// abortWithError answers with the status matching the error kind. Failures caused by the
// gateway's own setup (credentials, endpoint address, endpoint crashes) are reported as
// 502.
func abortWithError(c *gin.Context, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("sparql request failed", "status", sparql.StatusCode(err), "error", err)
	}
	c.AbortWithStatusJSON(status, JSONError{Error: err.Error()})
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, sparql.ErrInvalidArgument), errors.Is(err, sparql.ErrUnsupportedFormat), errors.Is(err, sparql.ErrQueryBadFormed):
		return http.StatusBadRequest
	case errors.Is(err, sparql.ErrURITooLong):
		return http.StatusRequestURITooLong
	case sparql.IsTimeout(err):
		return http.StatusGatewayTimeout
	case errors.Is(err, sparql.ErrUnauthorized), errors.Is(err, sparql.ErrEndPointNotFound),
		errors.Is(err, sparql.ErrEndPointInternalError), errors.Is(err, sparql.ErrTransport):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
