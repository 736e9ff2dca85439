// Package config loads the server configuration from config.yml and the
// environment.
package config

import (
	"time"

	"github.com/gotify/configor"
	"github.com/pkg/errors"
)

type Configuration struct {
	App struct {
		ListenAddr         string `default:"" env:"APP_HOST"`
		Port               int    `default:"8080" env:"APP_PORT"`
		ShutdownTimeoutSec int    `default:"15" env:"APP_SHUTDOWN_TIMEOUT_SEC"`
	}
	Database struct {
		Path string `default:"./data/leave.db" env:"DB_PATH"`
	}
	Auth struct {
		JWTSecret      string `default:"change-me" env:"JWT_SECRET"`
		JWTExpireInSec int    `default:"86400" env:"JWT_EXPIRE_IN_SEC"`
	}
	Log struct {
		Level  string `default:"info" env:"LOG_LEVEL"`
		Format string `default:"text" env:"LOG_FORMAT"`
	}
	Leave struct {
		ProRateFirstYear   *bool  `default:"false" env:"LEAVE_PRORATE_FIRST_YEAR"`
		SeniorApproverRole string `default:"general_manager" env:"LEAVE_SENIOR_APPROVER_ROLE"`
		LockWaitSec        int    `default:"5" env:"LEAVE_LOCK_WAIT_SEC"`
	}
	Audit struct {
		Enabled     *bool `default:"true" env:"AUDIT_ENABLED"`
		IntervalMin int   `default:"60" env:"AUDIT_INTERVAL_MIN"`
	}
	CORS struct {
		AllowedOrigins []string `default:"[\"*\"]"`
	}
	// Labels maps dictionary type to code to display label.
	Labels map[string]map[string]string
}

func DefaultFiles() []string {
	return []string{"config.yml"}
}

// Load reads files in order; missing files are skipped and environment
// variables win over file values.
func Load(files ...string) (*Configuration, error) {
	conf := new(Configuration)
	if err := configor.New(&configor.Config{}).Load(conf, files...); err != nil {
		return nil, errors.Wrap(err, "failed to load configuration")
	}
	return conf, nil
}

func (c *Configuration) ProRate() bool {
	return c.Leave.ProRateFirstYear != nil && *c.Leave.ProRateFirstYear
}

func (c *Configuration) AuditEnabled() bool {
	return c.Audit.Enabled == nil || *c.Audit.Enabled
}

func (c *Configuration) AuditInterval() time.Duration {
	if c.Audit.IntervalMin <= 0 {
		return time.Hour
	}
	return time.Duration(c.Audit.IntervalMin) * time.Minute
}

func (c *Configuration) LockWait() time.Duration {
	if c.Leave.LockWaitSec <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.Leave.LockWaitSec) * time.Second
}

func (c *Configuration) ShutdownTimeout() time.Duration {
	return time.Duration(c.App.ShutdownTimeoutSec) * time.Second
}

func (c *Configuration) TokenTTL() time.Duration {
	return time.Duration(c.Auth.JWTExpireInSec) * time.Second
}
