package config

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingHost is returned when no appliance address is configured
	ErrMissingHost = errors.New("host is required")

	// ErrInvalidValue is returned for an out-of-range configuration value
	ErrInvalidValue = errors.New("invalid configuration value")
)

// Validate reports every problem with c at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Host == "" {
		errs = append(errs, fmt.Errorf("%w (set host in the config file, PIKVM_HOST or --host)", ErrMissingHost))
	}
	switch c.Schema {
	case "http", "https":
	default:
		errs = append(errs, fmt.Errorf("%w: schema must be http or https (got: %q)", ErrInvalidValue, c.Schema))
	}
	if c.MaxRetries < 1 {
		errs = append(errs, fmt.Errorf("%w: max_retries must be at least 1 (got: %d)", ErrInvalidValue, c.MaxRetries))
	}
	if c.RetryDelay < 0 {
		errs = append(errs, fmt.Errorf("%w: retry_delay must be non-negative (got: %s)", ErrInvalidValue, c.RetryDelay))
	}
	if c.KeyDelay < 0 {
		errs = append(errs, fmt.Errorf("%w: key_delay must be non-negative (got: %s)", ErrInvalidValue, c.KeyDelay))
	}
	switch c.Logging.Format {
	case "", "json", "console":
	default:
		errs = append(errs, fmt.Errorf("%w: logging.format must be json or console (got: %q)", ErrInvalidValue, c.Logging.Format))
	}

	return errors.Join(errs...)
}
