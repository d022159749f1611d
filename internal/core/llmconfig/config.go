// Package llmconfig holds the per-user LLM configuration entity
// consulted by C1's config-resolution policy (§4.1: "if user_id has an
// active LLM config and it has an api key, use it; otherwise fall back
// to system defaults").
package llmconfig

import "time"

// UserLLMConfig is a user's own provider override, if any.
type UserLLMConfig struct {
	ID        string
	UserID    string
	Provider  string
	APIKey    string
	Model     string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasOwnKey reports whether this config should be preferred over system
// defaults (§4.1).
func (c *UserLLMConfig) HasOwnKey() bool {
	return c != nil && c.Active && c.APIKey != ""
}
