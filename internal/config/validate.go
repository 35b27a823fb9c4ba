package config

import (
	"errors"
	"fmt"
	"strings"
)

var validDisplayModes = map[string]struct{}{
	"original":    {},
	"translation": {},
	"dual":        {},
}

var validLogFormats = map[string]struct{}{
	"console": {},
	"json":    {},
}

// Validate ensures the configuration is usable. The LLM API key is not
// required here because only the scrub/translate/review stages need it; use
// RequireLLM before running those.
func (c *Config) Validate() error {
	if err := c.validateTranslate(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return c.validateLogging()
}

// RequireLLM verifies the chat-completion provider is fully configured.
func (c *Config) RequireLLM() error {
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/subforge/config.toml"
		}
		return fmt.Errorf("llm.api_key is required. Set SUBFORGE_LLM_API_KEY env var or edit %s (create with 'subforge config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateTranslate() error {
	if _, ok := validDisplayModes[c.Translate.DisplayMode]; !ok {
		return fmt.Errorf("translate.display_mode must be one of original, translation, dual (got %q)", c.Translate.DisplayMode)
	}
	return nil
}

func (c *Config) validateLLM() error {
	if strings.TrimSpace(c.LLM.BaseURL) == "" {
		return errors.New("llm.base_url must be set")
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		return errors.New("llm.model must be set")
	}
	if c.LLM.TimeoutSeconds <= 0 {
		return errors.New("llm.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateRender() error {
	if c.Render.FrameRate <= 0 || c.Render.FrameRate > 240 {
		return fmt.Errorf("render.frame_rate must be between 1 and 240 (got %g)", c.Render.FrameRate)
	}
	if c.Render.ViewportWidth <= 0 || c.Render.ViewportHeight <= 0 {
		return errors.New("render.viewport dimensions must be positive")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.QueuePollInterval <= 0 {
		return errors.New("workflow.queue_poll_interval must be positive")
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if _, ok := validLogFormats[c.Logging.Format]; !ok {
		return fmt.Errorf("logging.format must be console or json (got %q)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error (got %q)", c.Logging.Level)
	}
	return nil
}
