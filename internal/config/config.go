package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains output directory configuration.
type Paths struct {
	OutputDir string `toml:"output_dir"`
}

// Fetch contains configuration for dataset downloads.
type Fetch struct {
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// Dataset names a remote archive and the directory it is extracted into.
type Dataset struct {
	Name string `toml:"name"`
	URL  string `toml:"url"`
}

// Taxonomy contains the canonical class list and the synonym table that maps
// dataset labels onto it.
type Taxonomy struct {
	Classes  []string          `toml:"classes"`
	Synonyms map[string]string `toml:"synonyms"`
}

// Merge contains configuration for building the merged dataset.
type Merge struct {
	// SplitMode is "mirror" (every output split receives all source splits)
	// or "preserve" (train feeds train, valid and test feed valid).
	SplitMode string `toml:"split_mode"`
}

// Train contains the hyperparameters handed to the external trainer.
type Train struct {
	Binary       string  `toml:"binary"`
	Epochs       int     `toml:"epochs"`
	ImageSize    int     `toml:"image_size"`
	Batch        int     `toml:"batch"`
	Patience     int     `toml:"patience"`
	LR0          float64 `toml:"lr0"`
	LRF          float64 `toml:"lrf"`
	WarmupEpochs int     `toml:"warmup_epochs"`
	Freeze       int     `toml:"freeze"`
	Device       string  `toml:"device"`
	RunName      string  `toml:"run_name"`
}

// Export contains options for converting the best checkpoint.
type Export struct {
	Format    string `toml:"format"`
	ImageSize int    `toml:"image_size"`
	Simplify  bool   `toml:"simplify"`
	Dynamic   bool   `toml:"dynamic"`
	Opset     int    `toml:"opset"`
}

// Notifications contains the optional ntfy endpoint told about run outcomes.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for visiontune.
//
// Configuration sections by subsystem:
//   - Paths: output directory root
//   - Fetch: download timeout
//   - Datasets: archives to download and merge
//   - Taxonomy: canonical classes and label synonyms
//   - Merge: split handling for the merged dataset
//   - Train: trainer binary and hyperparameters
//   - Export: portable model export options
//   - Notifications: ntfy endpoint for run outcomes
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Fetch         Fetch         `toml:"fetch"`
	Datasets      []Dataset     `toml:"datasets"`
	Taxonomy      Taxonomy      `toml:"taxonomy"`
	Merge         Merge         `toml:"merge"`
	Train         Train         `toml:"train"`
	Export        Export        `toml:"export"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/visiontune/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		// Lists and tables from the file replace the defaults rather than
		// merging into them; normalize restores defaults left empty.
		cfg.Datasets = nil
		cfg.Taxonomy = Taxonomy{}

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("visiontune.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// SetOutputDir replaces the output root, applying the same expansion rules as
// the config file.
func (c *Config) SetOutputDir(dir string) error {
	expanded, err := expandPath(strings.TrimSpace(dir))
	if err != nil {
		return fmt.Errorf("output dir: %w", err)
	}
	if expanded == "" {
		return errors.New("output dir must not be empty")
	}
	c.Paths.OutputDir = expanded
	return nil
}

// RawDatasetsDir is where downloaded archives are extracted, one directory per dataset.
func (c *Config) RawDatasetsDir() string {
	return filepath.Join(c.Paths.OutputDir, "raw_datasets")
}

// MergedDatasetDir is the root of the merged train/valid dataset.
func (c *Config) MergedDatasetDir() string {
	return filepath.Join(c.Paths.OutputDir, "merged_dataset")
}

// MergedManifestPath is the data.yaml consumed by the trainer.
func (c *Config) MergedManifestPath() string {
	return filepath.Join(c.MergedDatasetDir(), "data.yaml")
}

// LogDir holds the persistent log file.
func (c *Config) LogDir() string {
	return filepath.Join(c.Paths.OutputDir, "logs")
}

// HistoryPath is the SQLite database recording pipeline runs.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.OutputDir, "visiontune.db")
}

// LockPath guards the output directory against concurrent runs.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.OutputDir, ".visiontune.lock")
}

// EnsureDirectories creates the output root and log directory.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.LogDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// TrainerBinary returns the trainer executable name.
func (c *Config) TrainerBinary() string {
	if binary := strings.TrimSpace(c.Train.Binary); binary != "" {
		return binary
	}
	return defaultTrainerBinary
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
