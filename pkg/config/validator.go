package config

import (
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate Server config
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "server.port",
			Message: "port must be between 1 and 65535",
		})
	}

	// Validate LLM config
	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 4096 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens must be between 1 and 4096",
		})
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	if c.LLM.BaseURL != "" {
		if _, err := url.Parse(c.LLM.BaseURL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "llm.base_url",
				Message: "invalid LLM base URL",
			})
		}
	}

	// Validate Database config
	if c.Database.URL != "" {
		if _, err := url.Parse(c.Database.URL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "database.url",
				Message: "invalid database URL",
			})
		}
	}

	if c.Database.VectorDim < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.vector_dim",
			Message: "vector_dim must be positive",
		})
	}

	// Validate Scraper config
	if c.Scraper.HTTPTimeoutSeconds < 1 {
		errors = append(errors, ValidationError{
			Field:   "scraper.http_timeout_seconds",
			Message: "http_timeout_seconds must be positive",
		})
	}

	if c.Scraper.NavTimeoutSeconds < 1 {
		errors = append(errors, ValidationError{
			Field:   "scraper.nav_timeout_seconds",
			Message: "nav_timeout_seconds must be positive",
		})
	}

	if c.Scraper.SettleSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "scraper.settle_seconds",
			Message: "settle_seconds must be non-negative",
		})
	}

	if c.Scraper.BatchDelaySeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "scraper.batch_delay_seconds",
			Message: "batch_delay_seconds must be non-negative",
		})
	}

	return errors
}
