package config

import (
	"fmt"
	"strings"

	"visiontune/internal/taxonomy"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeFetch()
	c.normalizeDatasets()
	c.normalizeTaxonomy()
	c.normalizeMerge()
	c.normalizeTrain()
	c.normalizeExport()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	var err error
	if c.Paths.OutputDir, err = expandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeFetch() {
	if c.Fetch.TimeoutSeconds <= 0 {
		c.Fetch.TimeoutSeconds = defaultFetchTimeout
	}
}

func (c *Config) normalizeDatasets() {
	if len(c.Datasets) == 0 {
		c.Datasets = DefaultDatasets()
		return
	}
	for i := range c.Datasets {
		c.Datasets[i].Name = strings.TrimSpace(c.Datasets[i].Name)
		c.Datasets[i].URL = strings.TrimSpace(c.Datasets[i].URL)
	}
}

func (c *Config) normalizeTaxonomy() {
	if len(c.Taxonomy.Classes) == 0 {
		c.Taxonomy.Classes = taxonomy.DefaultClasses()
	} else {
		for i, name := range c.Taxonomy.Classes {
			c.Taxonomy.Classes[i] = strings.TrimSpace(name)
		}
	}
	if len(c.Taxonomy.Synonyms) == 0 {
		c.Taxonomy.Synonyms = taxonomy.DefaultSynonyms()
	}
}

func (c *Config) normalizeMerge() {
	c.Merge.SplitMode = strings.ToLower(strings.TrimSpace(c.Merge.SplitMode))
	if c.Merge.SplitMode == "" {
		c.Merge.SplitMode = defaultSplitMode
	}
}

func (c *Config) normalizeTrain() {
	c.Train.Binary = strings.TrimSpace(c.Train.Binary)
	if c.Train.Binary == "" {
		c.Train.Binary = defaultTrainerBinary
	}
	c.Train.Device = strings.TrimSpace(c.Train.Device)
	if c.Train.Device == "" {
		c.Train.Device = defaultTrainDevice
	}
	c.Train.RunName = strings.TrimSpace(c.Train.RunName)
	if c.Train.RunName == "" {
		c.Train.RunName = defaultTrainRunName
	}
}

func (c *Config) normalizeExport() {
	c.Export.Format = strings.ToLower(strings.TrimSpace(c.Export.Format))
	if c.Export.Format == "" {
		c.Export.Format = defaultExportFormat
	}
	if c.Export.ImageSize <= 0 {
		c.Export.ImageSize = c.Train.ImageSize
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.TimeoutSeconds <= 0 {
		c.Notifications.TimeoutSeconds = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
