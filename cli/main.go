package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sparql-client/base"
	"sparql-client/rdf"
	"sparql-client/sparql"
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

var sessionFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "endpoint, e",
		Usage: "SPARQL query endpoint",
		Value: base.Configuration.Endpoint,
	},
	cli.StringFlag{
		Name:  "update-endpoint",
		Usage: "SPARQL update endpoint, defaults to the query endpoint",
		Value: base.Configuration.UpdateEndpoint,
	},
	cli.StringFlag{
		Name:  "method, m",
		Usage: "HTTP method, GET or POST",
		Value: "GET",
	},
	cli.StringFlag{
		Name:  "encoding",
		Usage: "how POST carries the query: urlencoded or postdirectly",
		Value: string(sparql.URLEncoded),
	},
	cli.DurationFlag{
		Name:  "timeout, t",
		Usage: "limit for the whole exchange, 0 disables it",
		Value: base.Configuration.Timeout,
	},
	cli.StringFlag{
		Name:  "user, u",
		Usage: "user name sent to the endpoint",
		Value: base.Configuration.User,
	},
	cli.StringFlag{
		Name:   "password",
		Usage:  "password sent to the endpoint",
		EnvVar: "SPARQL_PASSWORD",
	},
	cli.StringFlag{
		Name:  "realm",
		Usage: "digest realm",
		Value: base.Configuration.Realm,
	},
	cli.StringFlag{
		Name:  "auth",
		Usage: "authentication scheme, basic or digest",
		Value: base.Configuration.AuthScheme,
	},
	cli.StringSliceFlag{
		Name:  "default-graph",
		Usage: "default graph IRI, repeatable",
	},
	cli.StringSliceFlag{
		Name:  "named-graph",
		Usage: "named graph IRI, repeatable",
	},
	cli.StringSliceFlag{
		Name:  "param, p",
		Usage: "extra request parameter as name=value, repeatable",
	},
	cli.StringSliceFlag{
		Name:  "header, H",
		Usage: "custom HTTP header as 'Name: value', repeatable",
	},
	cli.BoolFlag{
		Name:  "only-conneg",
		Usage: "negotiate the format with the Accept header only",
	},
	cli.BoolFlag{
		Name:  "keep-alive",
		Usage: "reuse connections",
	},
	cli.StringFlag{
		Name:  "proxy",
		Usage: "HTTP proxy URL",
	},
	cli.StringFlag{
		Name:  "agent",
		Usage: "User-Agent header",
		Value: sparql.DefaultAgent,
	},
	cli.StringFlag{
		Name:  "file",
		Usage: "read the query from a file, - for stdin",
	},
}

func main() {
	app := cli.NewApp()
	app.Name = "sparql"
	app.Usage = "run SPARQL 1.1 queries and updates against an endpoint"
	app.Version = sparql.Version
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "verbose",
			Usage: "log debug output",
		},
	}
	app.Before = func(c *cli.Context) error {
		if c.Bool("verbose") {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
		return nil
	}
	app.Commands = []cli.Command{
		{
			Name:      "query",
			Usage:     "run a query and print the result",
			ArgsUsage: "[query]",
			Flags: append([]cli.Flag{
				cli.StringFlag{
					Name:  "format, f",
					Usage: "return format: " + formatNames(),
					Value: base.Configuration.ReturnFormat,
				},
				cli.BoolFlag{
					Name:  "table",
					Usage: "print SELECT or ASK results as a table",
				},
				cli.BoolFlag{
					Name:  "nquads",
					Usage: "print ?s ?p ?o ?g solutions as N-Quads",
				},
			}, sessionFlags...),
			Action: doQuery,
		},
		{
			Name:      "update",
			Usage:     "run an update",
			ArgsUsage: "[update]",
			Flags:     sessionFlags,
			Action:    doUpdate,
		},
		{
			Name:   "formats",
			Usage:  "list the available return formats",
			Action: doFormats,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func doQuery(c *cli.Context) error {
	session, err := newSession(c)
	if err != nil {
		return err
	}
	if session.IsUpdate() {
		return errors.Errorf("%s is an update, use the update command", session.QueryForm())
	}
	format := sparql.Format(c.String("format"))
	if c.Bool("table") || c.Bool("nquads") {
		format = sparql.JSON
	}
	if err := session.SetReturnFormat(format); err != nil {
		return err
	}
	result, err := session.Query(context.Background())
	if err != nil {
		return errors.Wrap(err, "query failed")
	}
	switch {
	case c.Bool("table"):
		return result.PrintResults(os.Stdout)
	case c.Bool("nquads"):
		graphs := c.StringSlice("default-graph")
		defaultGraph := ""
		if len(graphs) > 0 {
			defaultGraph = graphs[0]
		}
		data, err := rdf.SolutionsToNQuads(result.Bytes(), defaultGraph)
		if err != nil {
			return errors.Wrap(err, "convert solutions")
		}
		_, err = os.Stdout.Write(data)
		return err
	}
	_, err = os.Stdout.Write(result.Bytes())
	return err
}

func doUpdate(c *cli.Context) error {
	session, err := newSession(c)
	if err != nil {
		return err
	}
	if !session.IsUpdate() {
		return errors.Errorf("%s is not an update, use the query command", session.QueryForm())
	}
	result, err := session.Query(context.Background())
	if err != nil {
		return errors.Wrap(err, "update failed")
	}
	if len(result.Bytes()) > 0 {
		_, err = os.Stdout.Write(result.Bytes())
		return err
	}
	fmt.Printf("update applied (%d)\n", result.StatusCode())
	return nil
}

func doFormats(c *cli.Context) error {
	for _, format := range sparql.Formats() {
		fmt.Printf("%-8s %s\n", format, strings.Join(sparql.MIMETypes(format), ", "))
	}
	return nil
}

// newSession applies every session flag and the query text given on the command line.
func newSession(c *cli.Context) (*sparql.Session, error) {
	options := []sparql.Option{sparql.WithAgent(c.String("agent"))}
	if endpoint := c.String("update-endpoint"); len(endpoint) > 0 {
		options = append(options, sparql.WithUpdateEndpoint(endpoint))
	}
	session, err := sparql.NewSession(c.String("endpoint"), options...)
	if err != nil {
		return nil, err
	}

	query, err := readQuery(c)
	if err != nil {
		return nil, err
	}
	if err := session.SetQueryBytes(query); err != nil {
		return nil, err
	}
	session.SetMethod(c.String("method"))
	session.SetRequestMethod(sparql.Encoding(strings.ToLower(c.String("encoding"))))
	session.SetTimeout(c.Duration("timeout"))
	session.SetOnlyConneg(c.Bool("only-conneg"))
	session.SetKeepAlive(c.Bool("keep-alive"))
	if err := session.SetProxy(c.String("proxy")); err != nil {
		return nil, err
	}
	if user := c.String("user"); len(user) > 0 {
		password := c.String("password")
		if len(password) == 0 {
			password = base.Configuration.Password
		}
		session.SetCredentials(user, password, c.String("realm"))
		if err := session.SetHTTPAuth(sparql.AuthScheme(c.String("auth"))); err != nil {
			return nil, err
		}
	}
	for _, graph := range c.StringSlice("default-graph") {
		session.AddDefaultGraph(graph)
	}
	for _, graph := range c.StringSlice("named-graph") {
		session.AddNamedGraph(graph)
	}
	for _, param := range c.StringSlice("param") {
		name, value, ok := strings.Cut(param, "=")
		if !ok {
			return nil, errors.Errorf("invalid parameter %q, expected name=value", param)
		}
		if !session.AddParameter(name, value) {
			return nil, errors.Errorf("parameter %q cannot be set directly", name)
		}
	}
	for _, header := range c.StringSlice("header") {
		name, value, ok := strings.Cut(header, ":")
		if !ok {
			return nil, errors.Errorf("invalid header %q, expected 'Name: value'", header)
		}
		session.SetCustomHTTPHeader(strings.TrimSpace(name), strings.TrimSpace(value))
	}
	slog.Debug("prepared session", "session", session.String())
	return session, nil
}

func readQuery(c *cli.Context) ([]byte, error) {
	switch file := c.String("file"); file {
	case "":
		if !c.Args().Present() {
			return nil, errors.New("missing query argument")
		}
		return []byte(strings.Join(c.Args(), " ")), nil
	case "-":
		data, err := io.ReadAll(os.Stdin)
		return data, errors.Wrap(err, "read query from stdin")
	default:
		data, err := os.ReadFile(file)
		return data, errors.Wrap(err, "read query file")
	}
}

func formatNames() string {
	formats := sparql.Formats()
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}
