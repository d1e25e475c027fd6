package kontent

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Well-known step ids the CMS assigns to the distinguished steps of every
// workflow. Used only when no workflow definition is available.
const (
	DefaultPublishedStepID = "c199950d-99f0-4983-b711-6c4c91624b22"
	DefaultScheduledStepID = "9d2b0228-4d0d-4c23-8b49-01a698857709"
	DefaultArchivedStepID  = "7a535a69-ad34-47f8-806a-def1fdf4d391"
)

// Config holds CMS endpoint, credential and workflow settings.
type Config struct {
	ManagementURL      string      `toml:"management_url"`
	SubscriptionURL    string      `toml:"subscription_url"`
	EnvironmentID      string      `toml:"environment_id"`
	SubscriptionID     string      `toml:"subscription_id"`
	ManagementAPIKey   string      `toml:"management_api_key"`
	SubscriptionAPIKey string      `toml:"subscription_api_key"`
	Timeout            string      `toml:"timeout"`
	DefaultWorkflow    string      `toml:"default_workflow"`
	Steps              StepsConfig `toml:"steps"`
}

// StepsConfig holds the fallback ids of the distinguished workflow steps.
type StepsConfig struct {
	PublishedStepID string `toml:"published_step_id"`
	ScheduledStepID string `toml:"scheduled_step_id"`
	ArchivedStepID  string `toml:"archived_step_id"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	ManagementURL      string
	SubscriptionURL    string
	EnvironmentID      string
	SubscriptionID     string
	ManagementAPIKey   string
	SubscriptionAPIKey string
	Timeout            string
	DefaultWorkflow    string
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// ManagementBase returns the project-scoped management API base URL.
func (c *Config) ManagementBase() string {
	return strings.TrimSuffix(c.ManagementURL, "/") + "/projects/" + c.EnvironmentID
}

// SubscriptionBase returns the subscription-scoped API base URL.
func (c *Config) SubscriptionBase() string {
	return strings.TrimSuffix(c.SubscriptionURL, "/") + "/subscriptions/" + c.SubscriptionID
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	if c.SubscriptionURL == "" {
		c.SubscriptionURL = c.ManagementURL
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.ManagementURL != "" {
		c.ManagementURL = overlay.ManagementURL
	}
	if overlay.SubscriptionURL != "" {
		c.SubscriptionURL = overlay.SubscriptionURL
	}
	if overlay.EnvironmentID != "" {
		c.EnvironmentID = overlay.EnvironmentID
	}
	if overlay.SubscriptionID != "" {
		c.SubscriptionID = overlay.SubscriptionID
	}
	if overlay.ManagementAPIKey != "" {
		c.ManagementAPIKey = overlay.ManagementAPIKey
	}
	if overlay.SubscriptionAPIKey != "" {
		c.SubscriptionAPIKey = overlay.SubscriptionAPIKey
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.DefaultWorkflow != "" {
		c.DefaultWorkflow = overlay.DefaultWorkflow
	}
	if overlay.Steps.PublishedStepID != "" {
		c.Steps.PublishedStepID = overlay.Steps.PublishedStepID
	}
	if overlay.Steps.ScheduledStepID != "" {
		c.Steps.ScheduledStepID = overlay.Steps.ScheduledStepID
	}
	if overlay.Steps.ArchivedStepID != "" {
		c.Steps.ArchivedStepID = overlay.Steps.ArchivedStepID
	}
}

func (c *Config) loadDefaults() {
	if c.ManagementURL == "" {
		c.ManagementURL = "https://manage.kontent.ai/v2"
	}
	if c.Timeout == "" {
		c.Timeout = "30s"
	}
	if c.Steps.PublishedStepID == "" {
		c.Steps.PublishedStepID = DefaultPublishedStepID
	}
	if c.Steps.ScheduledStepID == "" {
		c.Steps.ScheduledStepID = DefaultScheduledStepID
	}
	if c.Steps.ArchivedStepID == "" {
		c.Steps.ArchivedStepID = DefaultArchivedStepID
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.ManagementURL != "" {
		if v := os.Getenv(env.ManagementURL); v != "" {
			c.ManagementURL = v
		}
	}
	if env.SubscriptionURL != "" {
		if v := os.Getenv(env.SubscriptionURL); v != "" {
			c.SubscriptionURL = v
		}
	}
	if env.EnvironmentID != "" {
		if v := os.Getenv(env.EnvironmentID); v != "" {
			c.EnvironmentID = v
		}
	}
	if env.SubscriptionID != "" {
		if v := os.Getenv(env.SubscriptionID); v != "" {
			c.SubscriptionID = v
		}
	}
	if env.ManagementAPIKey != "" {
		if v := os.Getenv(env.ManagementAPIKey); v != "" {
			c.ManagementAPIKey = v
		}
	}
	if env.SubscriptionAPIKey != "" {
		if v := os.Getenv(env.SubscriptionAPIKey); v != "" {
			c.SubscriptionAPIKey = v
		}
	}
	if env.Timeout != "" {
		if v := os.Getenv(env.Timeout); v != "" {
			c.Timeout = v
		}
	}
	if env.DefaultWorkflow != "" {
		if v := os.Getenv(env.DefaultWorkflow); v != "" {
			c.DefaultWorkflow = v
		}
	}
}

func (c *Config) validate() error {
	if c.EnvironmentID == "" {
		return fmt.Errorf("environment_id required")
	}
	if c.SubscriptionID == "" {
		return fmt.Errorf("subscription_id required")
	}
	if c.ManagementAPIKey == "" {
		return fmt.Errorf("management_api_key required")
	}
	if c.SubscriptionAPIKey == "" {
		return fmt.Errorf("subscription_api_key required")
	}
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	return nil
}
