package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"visiontune/internal/taxonomy"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateDatasets(); err != nil {
		return err
	}
	if err := c.validateTaxonomy(); err != nil {
		return err
	}
	if err := c.validateMerge(); err != nil {
		return err
	}
	if err := c.validateTrain(); err != nil {
		return err
	}
	if err := c.validateExport(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return errors.New("fetch.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateDatasets() error {
	if len(c.Datasets) == 0 {
		return errors.New("at least one [[datasets]] entry is required")
	}
	seen := make(map[string]struct{}, len(c.Datasets))
	for i, ds := range c.Datasets {
		if ds.Name == "" {
			return fmt.Errorf("datasets[%d].name must be set", i)
		}
		if strings.ContainsAny(ds.Name, `/\`) || ds.Name == "." || ds.Name == ".." {
			return fmt.Errorf("datasets[%d].name %q must be a plain directory name", i, ds.Name)
		}
		if _, dup := seen[ds.Name]; dup {
			return fmt.Errorf("datasets[%d].name %q is duplicated", i, ds.Name)
		}
		seen[ds.Name] = struct{}{}

		parsed, err := url.Parse(ds.URL)
		if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			return fmt.Errorf("datasets[%d].url %q must be an http(s) URL", i, ds.URL)
		}
	}
	return nil
}

func (c *Config) validateTaxonomy() error {
	if _, err := taxonomy.New(c.Taxonomy.Classes, c.Taxonomy.Synonyms); err != nil {
		return fmt.Errorf("taxonomy: %w", err)
	}
	return nil
}

func (c *Config) validateMerge() error {
	switch c.Merge.SplitMode {
	case SplitModeMirror, SplitModePreserve:
		return nil
	default:
		return fmt.Errorf("merge.split_mode must be %q or %q, got %q", SplitModeMirror, SplitModePreserve, c.Merge.SplitMode)
	}
}

func (c *Config) validateTrain() error {
	if err := ensurePositiveMap(map[string]int{
		"train.epochs":     c.Train.Epochs,
		"train.image_size": c.Train.ImageSize,
		"train.batch":      c.Train.Batch,
	}); err != nil {
		return err
	}
	if err := ensureNonNegativeMap(map[string]int{
		"train.patience":      c.Train.Patience,
		"train.warmup_epochs": c.Train.WarmupEpochs,
		"train.freeze":        c.Train.Freeze,
	}); err != nil {
		return err
	}
	if c.Train.LR0 <= 0 {
		return errors.New("train.lr0 must be positive")
	}
	if c.Train.LRF <= 0 || c.Train.LRF > 1 {
		return errors.New("train.lrf must be in (0, 1]")
	}
	if strings.ContainsAny(c.Train.RunName, `/\`) {
		return fmt.Errorf("train.run_name %q must be a plain directory name", c.Train.RunName)
	}
	return nil
}

func (c *Config) validateExport() error {
	if _, ok := ExportExtensions[c.Export.Format]; !ok {
		return fmt.Errorf("export.format %q is not supported", c.Export.Format)
	}
	if c.Export.ImageSize <= 0 {
		return errors.New("export.image_size must be positive")
	}
	if c.Export.Opset <= 0 {
		return errors.New("export.opset must be positive")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.NtfyTopic == "" {
		return nil
	}
	parsed, err := url.Parse(c.Notifications.NtfyTopic)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("notifications.ntfy_topic %q must be an http(s) URL", c.Notifications.NtfyTopic)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q must be console or json", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not a known level", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

func ensureNonNegativeMap(values map[string]int) error {
	for key, value := range values {
		if value < 0 {
			return fmt.Errorf("%s must be >= 0", key)
		}
	}
	return nil
}
