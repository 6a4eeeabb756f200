package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ManifestName is the metadata file every YOLO-format export carries.
const ManifestName = "data.yaml"

// ErrManifestNotFound reports a dataset directory without a data.yaml.
var ErrManifestNotFound = errors.New("dataset manifest not found")

// Manifest is the subset of a dataset's data.yaml needed to remap labels.
type Manifest struct {
	// Path is the location of the data.yaml file.
	Path string
	// Classes holds class names by source index. Gaps in a mapping-style
	// names table are empty strings.
	Classes []string
}

type manifestFile struct {
	Names yaml.Node `yaml:"names"`
}

// FindManifest returns the first data.yaml under dir. Each directory's own
// files are checked before its subdirectories, which are visited in lexical
// order.
func FindManifest(dir string) (string, error) {
	candidate := filepath.Join(dir, ManifestName)
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		return candidate, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrManifestNotFound
		}
		return "", fmt.Errorf("read %s: %w", dir, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		found, err := FindManifest(filepath.Join(dir, entry.Name()))
		if err == nil {
			return found, nil
		}
		if !errors.Is(err, ErrManifestNotFound) {
			return "", err
		}
	}
	return "", ErrManifestNotFound
}

// LoadManifest parses a data.yaml. The names field may be a list or a
// mapping from integer index to name; a missing names field yields no classes.
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}

	var file manifestFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest %s: %w", path, err)
	}

	classes, err := decodeNames(&file.Names)
	if err != nil {
		return Manifest{}, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return Manifest{Path: path, Classes: classes}, nil
}

func decodeNames(node *yaml.Node) ([]string, error) {
	switch node.Kind {
	case 0:
		return nil, nil
	case yaml.SequenceNode:
		var names []string
		if err := node.Decode(&names); err != nil {
			return nil, fmt.Errorf("names: %w", err)
		}
		return names, nil
	case yaml.MappingNode:
		return decodeNameMap(node)
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return nil, nil
		}
		return nil, fmt.Errorf("names: expected list or mapping, got scalar %q", node.Value)
	default:
		return nil, errors.New("names: expected list or mapping")
	}
}

// decodeNameMap reads an index-to-name mapping. Keys may be plain integers or
// quoted numeric strings.
func decodeNameMap(node *yaml.Node) ([]string, error) {
	byIndex := make(map[int]string, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if key.Kind != yaml.ScalarNode {
			return nil, errors.New("names: mapping keys must be class indexes")
		}
		idx, err := strconv.Atoi(strings.TrimSpace(key.Value))
		if err != nil {
			return nil, fmt.Errorf("names: class index %q is not an integer", key.Value)
		}
		if idx < 0 {
			return nil, fmt.Errorf("names: negative class index %d", idx)
		}
		var name string
		if err := value.Decode(&name); err != nil {
			return nil, fmt.Errorf("names[%d]: %w", idx, err)
		}
		byIndex[idx] = name
	}
	if len(byIndex) == 0 {
		return nil, nil
	}

	keys := make([]int, 0, len(byIndex))
	for k := range byIndex {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	names := make([]string, keys[len(keys)-1]+1)
	for _, k := range keys {
		names[k] = byIndex[k]
	}
	return names, nil
}
