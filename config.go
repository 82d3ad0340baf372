package gamedb

import (
	"strings"

	"github.com/autom8ter/gamedb/util"
)

// DefaultMaxPendingJobs is the number of submitted but unapplied commit jobs above which CommitChanges
// blocks until the commit worker drains its queue
const DefaultMaxPendingJobs = 16

// Config configures a Store
type Config struct {
	// Connection selects and configures the backend, ex: "JSON ./data", "Bolt ./data", "Mongo mongodb://localhost:27017 game", "Memory".
	// Parameters are separated by whitespace and can't contain any, so a storage directory with spaces in its path
	// has to be reached through a symlink or opened with the backend's own Open and passed to New.
	// It's ignored by New, which is handed an already opened backend.
	Connection string `json:"connection" validate:"required"`
	// MaxPendingJobs is the most submitted but unapplied commit jobs the queue holds before CommitChanges blocks (default 16)
	MaxPendingJobs int `json:"max_pending_jobs" validate:"gte=1"`
	// LogLevel is the level of the default logger (default info)
	LogLevel string `json:"log_level" validate:"oneof=debug info warn warning error"`
	// Logger overrides the default zap logger
	Logger Logger `json:"-"`
	// OnFault is called once, from the commit worker goroutine, when a backend fault stops the commit pipeline.
	// It may call any Store method, Close included. Commits it makes return the fault.
	OnFault func(err error) `json:"-"`
}

// SetDefaults fills in unset fields
func (c *Config) SetDefaults() {
	if c.MaxPendingJobs == 0 {
		c.MaxPendingJobs = DefaultMaxPendingJobs
	}
	c.LogLevel = strings.ToLower(c.LogLevel)
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate sets defaults and validates the config
func (c *Config) Validate() error {
	c.SetDefaults()
	return util.ValidateStruct(c)
}
