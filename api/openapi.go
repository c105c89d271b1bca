package api

import (
	"log/slog"
	"net/http"
	"sparql-client/base"
	"sparql-client/sparql"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gin-gonic/gin"
	"gopkg.in/yaml.v3"
)

const (
	tagProtocol = "sparql"
	tagService  = "service"
)

var apispec = newApiSpec()

// init registers endpoints for OpenAPI JSON and YAML specs.
func init() {
	Router.GET(BasePath+"/openapi.json", func(c *gin.Context) {
		c.JSON(http.StatusOK, apispec)
	})

	Router.GET(BasePath+"/openapi.yaml", func(c *gin.Context) {
		data, err := yaml.Marshal(apispec)
		if err != nil {
			slog.Error("failed marshaling openapi spec", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Data(http.StatusOK, "text/yaml", data)
	})
}

// newApiSpec constructs the OpenAPI specification for this service.
func newApiSpec() *openapi3.T {
	spec := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title:       "SPARQL gateway API",
			Description: "Runs SPARQL 1.1 queries and updates against the configured endpoint",
			Version:     "v1",
			License: &openapi3.License{
				Name: "MIT License",
				URL:  "https://opensource.org/licenses/MIT",
			},
		},
		Servers: openapi3.Servers{
			&openapi3.Server{
				Description: "Production",
				URL:         strings.TrimSuffix(base.BackendUrl, "/") + BasePath,
			},
		},
		Tags: openapi3.Tags{
			&openapi3.Tag{Name: tagProtocol, Description: "SPARQL protocol operations"},
			&openapi3.Tag{Name: tagService, Description: "Service state"},
		},
		Components: &openapi3.Components{
			Schemas: openapi3.Schemas{
				"Value": openapi3.NewSchemaRef("", valueSchema()),
			},
			Responses: openapi3.ResponseBodies{
				"ErrorResponse": &openapi3.ResponseRef{
					Value: openapi3.NewResponse().
						WithDescription("Response when errors happen.").
						WithContent(openapi3.NewContentWithJSONSchema(openapi3.NewSchema().
							WithProperty("error", openapi3.NewStringSchema()))),
				},
			},
		},
		Paths: openapi3.NewPaths(),
	}
	if len(base.Configuration.ContactEmail) > 0 {
		spec.Info.Contact = &openapi3.Contact{
			Name:  base.Configuration.ContactEmail,
			Email: base.Configuration.ContactEmail,
		}
	}

	query := queryOperation("Run a SPARQL query", sparql.ParamQuery)
	query.AddParameter(openapi3.NewQueryParameter("format").
		WithDescription("Return format, overrides the Accept header").
		WithSchema(formatSchema()))
	spec.Paths.Set("/sparql/query", &openapi3.PathItem{
		Get:  query,
		Post: withDirectBody(queryOperation("Run a SPARQL query", sparql.ParamQuery), "application/sparql-query", sparql.ParamQuery),
	})

	update := withDirectBody(queryOperation("Run a SPARQL update", sparql.ParamUpdate), "application/sparql-update", sparql.ParamUpdate)
	update.Parameters = nil
	update.AddResponse(http.StatusNoContent, openapi3.NewResponse().WithDescription("Update applied"))
	update.AddResponse(http.StatusForbidden, openapi3.NewResponse().WithDescription("Write access required"))
	spec.Paths.Set("/sparql/update", &openapi3.PathItem{Post: update})

	bindings := queryOperation("Run a SELECT or ASK query and return typed rows", sparql.ParamQuery)
	bindings.AddParameter(openapi3.NewQueryParameter("require").
		WithDescription("Only return rows binding this variable").
		WithSchema(openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema())))
	bindings.AddParameter(openapi3.NewQueryParameter("forbid").
		WithDescription("Only return rows not binding this variable").
		WithSchema(openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema())))
	bindings.AddResponse(http.StatusOK, openapi3.NewResponse().
		WithDescription("Bindings").
		WithContent(openapi3.NewContentWithJSONSchema(openapi3.NewObjectSchema().
			WithProperty("variables", openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema())).
			WithProperty("boolean", openapi3.NewBoolSchema()).
			WithProperty("rows", openapi3.NewArraySchema().WithItems(
				openapi3.NewObjectSchema().WithAdditionalProperties(valueSchema()),
			)))))
	spec.Paths.Set("/sparql/bindings", &openapi3.PathItem{Get: bindings})

	health := openapi3.NewOperation()
	health.Summary = "Liveness, reflects the last endpoint probe"
	health.Tags = []string{tagService}
	health.AddResponse(http.StatusOK, openapi3.NewResponse().WithDescription("Endpoint reachable"))
	health.AddResponse(http.StatusServiceUnavailable, openapi3.NewResponse().WithDescription("Last probe failed"))
	spec.Paths.Set(livelinessEndpoint, &openapi3.PathItem{Get: health})

	config := openapi3.NewOperation()
	config.Summary = "Endpoint configuration and the caller's access rights"
	config.Tags = []string{tagService}
	config.AddResponse(http.StatusOK, openapi3.NewResponse().WithDescription("Configuration"))
	spec.Paths.Set("/config", &openapi3.PathItem{Get: config})
	return spec
}

func queryOperation(summary string, param string) *openapi3.Operation {
	operation := openapi3.NewOperation()
	operation.Summary = summary
	operation.Tags = []string{tagProtocol}
	operation.AddParameter(openapi3.NewQueryParameter(param).WithSchema(openapi3.NewStringSchema()))
	for _, graphParam := range []string{sparql.ParamDefaultGraph, sparql.ParamNamedGraph} {
		operation.AddParameter(openapi3.NewQueryParameter(graphParam).
			WithSchema(openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema())))
	}
	operation.AddResponse(http.StatusOK, openapi3.NewResponse().WithDescription("Result as returned by the endpoint"))
	for _, status := range []int{http.StatusBadRequest, http.StatusBadGateway, http.StatusGatewayTimeout} {
		operation.Responses.Set(strconv.Itoa(status), &openapi3.ResponseRef{Ref: "#/components/responses/ErrorResponse"})
	}
	return operation
}

func withDirectBody(operation *openapi3.Operation, mediaType string, param string) *openapi3.Operation {
	operation.RequestBody = &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().WithContent(openapi3.Content{
		mediaType: openapi3.NewMediaType().WithSchema(openapi3.NewStringSchema()),
		"application/x-www-form-urlencoded": openapi3.NewMediaType().WithSchema(openapi3.NewObjectSchema().
			WithProperty(param, openapi3.NewStringSchema())),
	})}
	return operation
}

func formatSchema() *openapi3.Schema {
	formats := sparql.Formats()
	values := make([]any, len(formats))
	for i, f := range formats {
		values[i] = string(f)
	}
	return openapi3.NewStringSchema().WithEnum(values...)
}

// valueSchema describes one bound value as it appears in SPARQL JSON results.
func valueSchema() *openapi3.Schema {
	return openapi3.NewObjectSchema().
		WithProperty("type", openapi3.NewStringSchema().WithEnum("uri", "literal", "typed-literal", "bnode")).
		WithProperty("value", openapi3.NewStringSchema()).
		WithProperty("xml:lang", openapi3.NewStringSchema()).
		WithProperty("datatype", openapi3.NewStringSchema())
}
