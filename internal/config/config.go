// Package config provides configuration for the knowledge-base proxy and
// the kbctl gateway client. Values come from environment variables (the
// Lambda surface) or a YAML file (the CLI surface), all with hardcoded
// fallbacks so the proxy runs with zero configuration.
package config

import (
	"fmt"
	"log/slog"
)

// Config is the top-level configuration shared by kb-proxy and kbctl.
type Config struct {
	// KnowledgeBaseID is the Bedrock knowledge base queried by every tool.
	KnowledgeBaseID string `yaml:"knowledge_base_id" mapstructure:"knowledge_base_id" validate:"required"`

	// ModelARN is the default foundation model for retrieve_and_generate.
	// Callers may override per request with the model_arn argument.
	ModelARN string `yaml:"model_arn" mapstructure:"model_arn" validate:"required"`

	// Region is the AWS region for the Bedrock clients and SigV4 signing.
	Region string `yaml:"region" mapstructure:"region" validate:"required"`

	// DefaultMaxResults is the retrieval result count when the caller
	// does not pass max_results. Handlers clamp requests to 25.
	DefaultMaxResults int `yaml:"default_max_results" mapstructure:"default_max_results" validate:"min=1,max=25"`

	// DefaultMaxTokens is the generation token bound when the caller
	// does not pass max_tokens. Handlers clamp requests to 4096.
	DefaultMaxTokens int `yaml:"default_max_tokens" mapstructure:"default_max_tokens" validate:"min=1,max=4096"`

	// LogLevel sets the minimum slog level: debug, info, warn, error.
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	// AccessRules are optional CEL access-compliance rules evaluated
	// against the tool name and user context before dispatch.
	// Empty means the guard is off (every call allowed).
	AccessRules []AccessRuleConfig `yaml:"access_rules" mapstructure:"access_rules" validate:"omitempty,dive"`

	// Gateway configures the kbctl client; unused by the Lambda.
	Gateway GatewayConfig `yaml:"gateway" mapstructure:"gateway"`
}

// AccessRuleConfig is one CEL rule. Rules are evaluated in order; the
// first matching condition decides. No match means allow.
type AccessRuleConfig struct {
	// Name identifies the rule in logs and deny messages.
	Name string `yaml:"name" mapstructure:"name" validate:"required"`

	// Condition is a CEL expression over `tool` (string) and `user` (map).
	Condition string `yaml:"condition" mapstructure:"condition" validate:"required"`

	// Action is "allow" or "deny".
	Action string `yaml:"action" mapstructure:"action" validate:"required,oneof=allow deny"`
}

// GatewayConfig configures the kbctl MCP gateway client.
type GatewayConfig struct {
	// URL is the gateway MCP endpoint
	// (https://<gateway-id>.gateway.bedrock-agentcore.<region>.amazonaws.com/mcp).
	URL string `yaml:"url" mapstructure:"url" validate:"omitempty,url"`

	// TargetPrefix is the gateway target namespace prepended to tool names
	// (e.g. "KnowledgeBaseProxyTarget___").
	TargetPrefix string `yaml:"target_prefix" mapstructure:"target_prefix"`

	// Timeout is the request timeout for gateway calls (e.g. "120s").
	Timeout string `yaml:"timeout" mapstructure:"timeout" validate:"omitempty"`

	// HistoryDB is the path of the local SQLite query-history database.
	// Empty disables history.
	HistoryDB string `yaml:"history_db" mapstructure:"history_db"`
}

// Fallbacks mirrored from the deployed stack.
const (
	fallbackKnowledgeBaseID = "OYBA7PFNNQ"
	fallbackRegion          = "us-west-2"
	fallbackModel           = "anthropic.claude-3-sonnet-20240229-v1:0"
	fallbackMaxResults      = 5
	fallbackMaxTokens       = 2048
)

// SetDefaults applies the hardcoded fallbacks for every unset field.
func (c *Config) SetDefaults() {
	if c.Region == "" {
		c.Region = fallbackRegion
	}
	if c.KnowledgeBaseID == "" {
		c.KnowledgeBaseID = fallbackKnowledgeBaseID
	}
	if c.ModelARN == "" {
		c.ModelARN = fmt.Sprintf("arn:aws:bedrock:%s::foundation-model/%s", c.Region, fallbackModel)
	}
	if c.DefaultMaxResults == 0 {
		c.DefaultMaxResults = fallbackMaxResults
	}
	if c.DefaultMaxTokens == 0 {
		c.DefaultMaxTokens = fallbackMaxTokens
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Gateway.Timeout == "" {
		c.Gateway.Timeout = "120s"
	}
}

// SlogLevel maps the configured log level to a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
