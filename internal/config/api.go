package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/klauselwerk/klausel/pkg/formatting"
	"github.com/klauselwerk/klausel/pkg/middleware"
	"github.com/klauselwerk/klausel/pkg/pagination"
)

const (
	EnvAPIBasePath      = "KLAUSEL_API_BASE_PATH"
	EnvAPIMaxUploadSize = "KLAUSEL_API_MAX_UPLOAD_SIZE"
)

var corsEnv = &middleware.CORSEnv{
	Enabled:          "KLAUSEL_CORS_ENABLED",
	Origins:          "KLAUSEL_CORS_ORIGINS",
	AllowedMethods:   "KLAUSEL_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "KLAUSEL_CORS_ALLOWED_HEADERS",
	AllowCredentials: "KLAUSEL_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "KLAUSEL_CORS_MAX_AGE",
}

var paginationEnv = &pagination.ConfigEnv{
	DefaultPageSize: "KLAUSEL_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "KLAUSEL_PAGINATION_MAX_PAGE_SIZE",
}

// APIConfig controls the REST surface: base path, upload limits, CORS,
// and pagination behavior.
type APIConfig struct {
	BasePath      string                `toml:"base_path"`
	MaxUploadSize string                `toml:"max_upload_size"`
	CORS          middleware.CORSConfig `toml:"cors"`
	Pagination    pagination.Config     `toml:"pagination"`

	maxUploadBytes int64
}

func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.MaxUploadSize != "" {
		c.MaxUploadSize = overlay.MaxUploadSize
	}
	c.CORS.Merge(&overlay.CORS)
	c.Pagination.Merge(&overlay.Pagination)
}

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

// MaxUploadBytes returns the parsed upload size limit.
func (c *APIConfig) MaxUploadBytes() int64 {
	return c.maxUploadBytes
}

func (c *APIConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.MaxUploadSize == "" {
		c.MaxUploadSize = "64MB"
	}
}

func (c *APIConfig) loadEnv() {
	if v := os.Getenv(EnvAPIBasePath); v != "" {
		c.BasePath = v
	}
	if v := os.Getenv(EnvAPIMaxUploadSize); v != "" {
		c.MaxUploadSize = v
	}
}

func (c *APIConfig) validate() error {
	if !strings.HasPrefix(c.BasePath, "/") {
		return fmt.Errorf("base_path must start with /: %s", c.BasePath)
	}

	size, err := formatting.ParseBytes(c.MaxUploadSize)
	if err != nil {
		return fmt.Errorf("invalid max_upload_size: %w", err)
	}
	c.maxUploadBytes = size

	return nil
}
