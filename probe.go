package main

import (
	"context"
	"fmt"
	"log/slog"
	"sparql-client/api"
	"sparql-client/base"
	"sparql-client/sparql"
	"time"

	"github.com/robfig/cron/v3"
)

const probeQuery = "ASK { ?s ?p ?o }"

// probeEndpoint asks the configured endpoint a trivial question and reports the outcome
// to the liveness endpoint.
func probeEndpoint() {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout())
	defer cancel()
	err := runProbe(ctx)
	if err != nil {
		slog.Warn("endpoint probe failed", "endpoint", base.Configuration.Endpoint, "error", err)
	} else {
		slog.Debug("endpoint probe succeeded", "endpoint", base.Configuration.Endpoint)
	}
	api.ReportProbe(err)
}

func runProbe(ctx context.Context) error {
	config := base.Configuration
	session, err := sparql.NewSession(config.Endpoint, sparql.WithReturnFormat(sparql.JSON))
	if err != nil {
		return err
	}
	if len(config.User) > 0 {
		session.SetCredentials(config.User, config.Password, config.Realm)
		if err := session.SetHTTPAuth(sparql.AuthScheme(config.AuthScheme)); err != nil {
			return err
		}
	}
	session.SetQuery(probeQuery)
	if _, err := session.QueryBindings(ctx); err != nil {
		return fmt.Errorf("probe query failed: %w", err)
	}
	return nil
}

func probeTimeout() time.Duration {
	if base.Configuration.Timeout > 0 {
		return base.Configuration.Timeout
	}
	return 30 * time.Second
}

// startProbe runs the endpoint probe once and, with a schedule configured, periodically.
func startProbe() error {
	probeEndpoint()
	if len(base.ProbeSchedule) == 0 {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(base.ProbeSchedule, probeEndpoint); err != nil {
		return fmt.Errorf("invalid probe schedule %q: %w", base.ProbeSchedule, err)
	}
	c.Start()
	slog.Info("started scheduled endpoint probe", "cron", base.ProbeSchedule, "details", c.Entries())
	return nil
}
