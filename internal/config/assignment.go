package config

import (
	"fmt"
	"os"
	"time"

	"github.com/JaimeStill/kontrib/internal/assignment"
)

const (
	EnvAssignmentUnresolved   = "KONTRIB_ASSIGNMENT_UNRESOLVED_CONTRIBUTORS"
	EnvAssignmentBatchTimeout = "KONTRIB_ASSIGNMENT_BATCH_TIMEOUT"
)

// AssignmentConfig holds bulk assignment behavior.
type AssignmentConfig struct {
	// UnresolvedContributors is "fallback" (send the raw email as the user
	// id) or "fail" (fail the item without writing).
	UnresolvedContributors string `toml:"unresolved_contributors"`
	BatchTimeout           string `toml:"batch_timeout"`
}

// Policy returns the parsed unresolved-contributor policy.
func (c *AssignmentConfig) Policy() assignment.Policy {
	p, _ := assignment.ParsePolicy(c.UnresolvedContributors)
	return p
}

// BatchTimeoutDuration returns BatchTimeout as a time.Duration.
func (c *AssignmentConfig) BatchTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.BatchTimeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *AssignmentConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *AssignmentConfig) Merge(overlay *AssignmentConfig) {
	if overlay.UnresolvedContributors != "" {
		c.UnresolvedContributors = overlay.UnresolvedContributors
	}
	if overlay.BatchTimeout != "" {
		c.BatchTimeout = overlay.BatchTimeout
	}
}

func (c *AssignmentConfig) loadDefaults() {
	if c.UnresolvedContributors == "" {
		c.UnresolvedContributors = string(assignment.PolicyFallback)
	}
	if c.BatchTimeout == "" {
		c.BatchTimeout = "10m"
	}
}

func (c *AssignmentConfig) loadEnv() {
	if v := os.Getenv(EnvAssignmentUnresolved); v != "" {
		c.UnresolvedContributors = v
	}
	if v := os.Getenv(EnvAssignmentBatchTimeout); v != "" {
		c.BatchTimeout = v
	}
}

func (c *AssignmentConfig) validate() error {
	if _, err := assignment.ParsePolicy(c.UnresolvedContributors); err != nil {
		return fmt.Errorf("unresolved_contributors: %w", err)
	}
	d, err := time.ParseDuration(c.BatchTimeout)
	if err != nil {
		return fmt.Errorf("invalid batch_timeout: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("batch_timeout must be positive")
	}
	return nil
}

// AssignmentOptions assembles orchestrator options from the assignment and
// kontent sections.
func (c *Config) AssignmentOptions() assignment.Options {
	return assignment.Options{
		Policy:          c.Assignment.Policy(),
		DefaultWorkflow: c.Kontent.DefaultWorkflow,
		Steps:           c.StepFallback(),
	}
}

// StepFallback returns the configured distinguished step ids.
func (c *Config) StepFallback() assignment.StepFallback {
	return assignment.StepFallback{
		Published: c.Kontent.Steps.PublishedStepID,
		Scheduled: c.Kontent.Steps.ScheduledStepID,
		Archived:  c.Kontent.Steps.ArchivedStepID,
	}
}
