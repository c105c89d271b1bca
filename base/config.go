package base

import (
	"fmt"
	"log/slog"
	"net/url"
	"time"
)

// Config is the endpoint setup shared by the gateway, the probe and the CLI.
type Config struct {
	Endpoint       string        `json:"endpoint"`
	UpdateEndpoint string        `json:"updateEndpoint,omitempty"`
	ReturnFormat   string        `json:"returnFormat"`
	DefaultGraph   string        `json:"defaultGraph,omitempty"`
	AuthScheme     string        `json:"authScheme"`
	User           string        `json:"-"`
	Password       string        `json:"-"`
	Realm          string        `json:"-"`
	Timeout        time.Duration `json:"timeout"`
	AuthEnabled    bool          `json:"authEnabled"`
	ContactEmail   string        `json:"contactEmail,omitempty"`
}

// AuthenticatedConfig adds the caller's identity to the public configuration.
type AuthenticatedConfig struct {
	Config
	User        string `json:"authUser,omitempty"`
	Email       string `json:"authEmail,omitempty"`
	WriteAccess bool   `json:"authWriteAccess"`
}

var Configuration = Config{
	Endpoint:       EnvVar("SPARQL_ENDPOINT", "http://localhost:3030/ds/sparql"),
	UpdateEndpoint: EnvVar("SPARQL_UPDATE_ENDPOINT", ""),
	ReturnFormat:   EnvVar("SPARQL_RETURN_FORMAT", "json"),
	DefaultGraph:   EnvVar("SPARQL_DEFAULT_GRAPH", ""),
	AuthScheme:     EnvVar("SPARQL_AUTH", "basic"),
	User:           EnvVar("SPARQL_USER", ""),
	Password:       EnvVar("SPARQL_PASSWORD", ""),
	Realm:          EnvVar("SPARQL_REALM", "SPARQL"),
	Timeout:        EnvVarAsSeconds("SPARQL_TIMEOUT", 0),
	AuthEnabled:    len(EnvVar("DISABLE_OAUTH", "dummy")) == 0,
	ContactEmail:   EnvVar("CONTACT_EMAIL", ""),
}

var BackendUrl = EnvVar("BACKEND_URL", "http://localhost:3000")
var ListenAddress = EnvVar("LISTEN_ADDRESS", ":3000")
var AllowedOrigins = EnvVarAsStringSlice("ALLOWED_ORIGINS")
var AuthUserHeader = "X-User"
var AuthEmailHeader = "X-Email"
var AuthGroupsHeader = "X-Groups"
var AuthWriteAccessGroup = EnvVar("WRITE_ACCESS_GROUP", "")

// var ProbeSchedule = EnvVar("CRON", "*/5 * * * *") // every 5 minutes
var ProbeSchedule = EnvVar("CRON", "")

var logLevel = EnvVar("LOG_LEVEL", "INFO")

func init() {
	// set log level
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err == nil {
		slog.SetLogLoggerLevel(level)
	}
	if u, err := url.Parse(BackendUrl); err == nil {
		origin := fmt.Sprintf("%s://%s", u.Scheme, u.Host)
		AllowedOrigins = append([]string{origin}, AllowedOrigins...)
	}
}
