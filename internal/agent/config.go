package agent

import (
	"fmt"
	"strings"
)

// Config holds agent configuration. Token and endpoint have no defaults;
// missing either is a fatal startup error.
type Config struct {
	Token       string
	Endpoint    string
	IntervalSec int
	Flag        string // arbitrary display attribute forwarded in meta
}

// Validate checks that the agent can start at all.
func (c *Config) Validate() error {
	if c.Token == "" {
		return fmt.Errorf("token is required (--token or IMONITOR_TOKEN)")
	}
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required (--endpoint or IMONITOR_ENDPOINT)")
	}
	if c.IntervalSec <= 0 {
		return fmt.Errorf("interval must be positive, got %d", c.IntervalSec)
	}
	return nil
}

// ReportURL returns the collector's ingestion endpoint.
func (c *Config) ReportURL() string {
	return strings.TrimRight(c.Endpoint, "/") + "/api/report"
}
