package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateSegmenter(); err != nil {
		return err
	}
	if err := c.validateReview(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateSegmenter() error {
	if c.Segmenter.ParagraphMinChars < 1 {
		return errors.New("segmenter.paragraph_min_chars must be at least 1")
	}
	if c.Segmenter.SentenceMinChars < 1 {
		return errors.New("segmenter.sentence_min_chars must be at least 1")
	}
	return nil
}

func (c *Config) validateReview() error {
	if len(c.Review.Checklist) == 0 {
		return errors.New("review.checklist must contain at least one item")
	}
	seen := make(map[string]struct{}, len(c.Review.Checklist))
	for _, item := range c.Review.Checklist {
		if _, dup := seen[item]; dup {
			return fmt.Errorf("review.checklist item %q is duplicated", item)
		}
		seen[item] = struct{}{}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
