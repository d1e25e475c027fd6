package config

import (
	"fmt"
	"os"

	"github.com/JaimeStill/kontrib/pkg/formatting"
	"github.com/JaimeStill/kontrib/pkg/middleware"
	"github.com/JaimeStill/kontrib/pkg/pagination"
)

const (
	EnvAPIBasePath       = "KONTRIB_API_BASE_PATH"
	EnvAPIMaxBodySize    = "KONTRIB_API_MAX_BODY_SIZE"
	EnvAPIFrameAncestors = "KONTRIB_API_FRAME_ANCESTORS"
)

var corsEnv = &middleware.CORSEnv{
	Enabled:          "KONTRIB_CORS_ENABLED",
	Origins:          "KONTRIB_CORS_ORIGINS",
	AllowedMethods:   "KONTRIB_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "KONTRIB_CORS_ALLOWED_HEADERS",
	AllowCredentials: "KONTRIB_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "KONTRIB_CORS_MAX_AGE",
}

var paginationEnv = &pagination.ConfigEnv{
	DefaultPageSize: "KONTRIB_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "KONTRIB_PAGINATION_MAX_PAGE_SIZE",
}

// DefaultFrameAncestors lets the CMS app embed the service in an iframe.
var DefaultFrameAncestors = []string{
	"'self'",
	"https://app.kontent.ai",
	"https://*.kontent.ai",
	"https://manage.kontent.ai",
}

// APIConfig holds API routing, embedding, CORS, and pagination settings.
type APIConfig struct {
	BasePath       string                `toml:"base_path"`
	MaxBodySize    string                `toml:"max_body_size"`
	FrameAncestors []string              `toml:"frame_ancestors"`
	CORS           middleware.CORSConfig `toml:"cors"`
	Pagination     pagination.Config     `toml:"pagination"`
}

// MaxBodySizeBytes returns MaxBodySize in bytes.
func (c *APIConfig) MaxBodySizeBytes() int64 {
	size, err := formatting.ParseBytes(c.MaxBodySize)
	if err != nil {
		return int64(formatting.MB)
	}
	return int64(size)
}

// Finalize applies defaults, environment variable overrides, and validation
// for the API config and its nested CORS and pagination configs.
func (c *APIConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.MaxBodySize != "" {
		c.MaxBodySize = overlay.MaxBodySize
	}
	if len(overlay.FrameAncestors) > 0 {
		c.FrameAncestors = overlay.FrameAncestors
	}

	c.CORS.Merge(&overlay.CORS)
	c.Pagination.Merge(&overlay.Pagination)
}

func (c *APIConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.MaxBodySize == "" {
		c.MaxBodySize = "1MB"
	}
	if len(c.FrameAncestors) == 0 {
		c.FrameAncestors = append([]string(nil), DefaultFrameAncestors...)
	}
}

func (c *APIConfig) loadEnv() {
	if v := os.Getenv(EnvAPIBasePath); v != "" {
		c.BasePath = v
	}
	if v := os.Getenv(EnvAPIMaxBodySize); v != "" {
		c.MaxBodySize = v
	}
	if v := os.Getenv(EnvAPIFrameAncestors); v != "" {
		c.FrameAncestors = middleware.SplitList(v)
	}
}

func (c *APIConfig) validate() error {
	size, err := formatting.ParseBytes(c.MaxBodySize)
	if err != nil {
		return fmt.Errorf("invalid max_body_size: %w", err)
	}
	if size <= 0 {
		return fmt.Errorf("max_body_size must be positive")
	}
	return nil
}
