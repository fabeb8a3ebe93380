package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/roach88/gridpred/internal/index"
	"github.com/roach88/gridpred/internal/testutil"
	"github.com/roach88/gridpred/internal/value"
)

// keyNamespace derives keys for dataset entries that do not declare one.
var keyNamespace = uuid.MustParse("6f1c3e0a-5b7d-4c2e-9a41-3d8e2f7b9c10")

// Scenario defines a predicate scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config is the path to a grid.cue file, relative to the scenario file.
	Config string `yaml:"config,omitempty"`

	// Grid is an inline grid.cue document. Mutually exclusive with Config.
	// With neither, the default single-partition grid without indexes is
	// used.
	Grid string `yaml:"grid,omitempty"`

	// Dataset lists the entries loaded before the queries run.
	Dataset []EntrySpec `yaml:"dataset,omitempty"`

	// Generate appends synthetic entries (see testutil.Grid).
	Generate *GenerateSpec `yaml:"generate,omitempty"`

	// Queries run in order against the loaded grid.
	Queries []QuerySpec `yaml:"queries"`
}

// EntrySpec is one dataset entry.
type EntrySpec struct {
	// Key identifies the entry. When empty a key is derived from the
	// scenario name and the entry position.
	Key string `yaml:"key,omitempty"`

	// Attrs holds the attribute values.
	Attrs map[string]any `yaml:"attrs"`
}

// GenerateSpec describes synthetic entries with integer attributes "n"
// and "bucket" and a string attribute "tag".
type GenerateSpec struct {
	Count   int `yaml:"count"`
	Buckets int `yaml:"buckets"`
}

// QuerySpec is one query with its expectations.
type QuerySpec struct {
	// Name identifies the query in results and errors.
	Name string `yaml:"name"`

	// Where is the filter expression (see predicate.Parse).
	Where string `yaml:"where"`

	// Expect validates the outcome. If nil, only the cross-check runs.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect specifies the expected outcome of a query.
type Expect struct {
	// Keys is the exact set of matching keys, in any order.
	Keys []string `yaml:"keys,omitempty"`

	// Count is the expected number of matches.
	Count *int `yaml:"count,omitempty"`

	// Path is the expected execution path of the indexed run: "index",
	// "scan" or "mixed".
	Path string `yaml:"path,omitempty"`

	// Error is the expected error code (e.g. TYPE_MISMATCH, PARSE_ERROR).
	// When set, the query must fail.
	Error string `yaml:"error,omitempty"`
}

// Valid expectation paths.
const (
	PathIndex = "index"
	PathScan  = "scan"
	PathMixed = "mixed"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
//
// A relative Config path is resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "query:" vs "queries:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Config != "" && !filepath.IsAbs(scenario.Config) {
		scenario.Config = filepath.Join(filepath.Dir(path), scenario.Config)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}

	return &scenario, nil
}

// LoadScenarios loads every *.yaml and *.yml file under dir, in path
// order.
func LoadScenarios(dir string) ([]*Scenario, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ext := filepath.Ext(path); !d.IsDir() && (ext == ".yaml" || ext == ".yml") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenario files found in %s", dir)
	}
	slices.Sort(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario reports every problem it finds, not only the first.
func validateScenario(s *Scenario) error {
	var result *multierror.Error
	fail := func(format string, args ...any) {
		result = multierror.Append(result, fmt.Errorf(format, args...))
	}

	if s.Name == "" {
		fail("name is required")
	}
	if s.Description == "" {
		fail("description is required")
	}
	if s.Config != "" && s.Grid != "" {
		fail("config and grid are mutually exclusive")
	}
	if s.Config != "" {
		if _, err := os.Stat(s.Config); err != nil {
			fail("config file not found: %s", s.Config)
		}
	}
	if len(s.Dataset) == 0 && s.Generate == nil {
		fail("dataset or generate is required")
	}
	if g := s.Generate; g != nil && (g.Count <= 0 || g.Buckets <= 0) {
		fail("generate: count and buckets must be positive")
	}
	if len(s.Queries) == 0 {
		fail("queries list is required and must be non-empty")
	}

	keys := make(map[string]int)
	for i, e := range s.Dataset {
		if e.Key == "" {
			continue
		}
		if j, ok := keys[e.Key]; ok {
			fail("dataset[%d]: key %q already used by dataset[%d]", i, e.Key, j)
		}
		keys[e.Key] = i
	}

	names := make(map[string]bool)
	for i, q := range s.Queries {
		if q.Name == "" {
			fail("queries[%d]: name is required", i)
		} else if names[q.Name] {
			fail("queries[%d]: duplicate name %q", i, q.Name)
		}
		names[q.Name] = true
		if strings.TrimSpace(q.Where) == "" {
			fail("queries[%d]: where is required", i)
		}
		if x := q.Expect; x != nil {
			switch x.Path {
			case "", PathIndex, PathScan, PathMixed:
			default:
				fail("queries[%d].expect: unknown path %q", i, x.Path)
			}
			if x.Error != "" && (len(x.Keys) > 0 || x.Count != nil || x.Path != "") {
				fail("queries[%d].expect: error excludes keys, count and path", i)
			}
		}
	}

	return result.ErrorOrNil()
}

// Entries converts the dataset and generated entries.
func (s *Scenario) Entries() ([]index.Entry, error) {
	entries := make([]index.Entry, 0, len(s.Dataset))
	for i, spec := range s.Dataset {
		key := spec.Key
		if key == "" {
			key = uuid.NewSHA1(keyNamespace, []byte(fmt.Sprintf("%s/%d", s.Name, i))).String()
		}
		attrs := make(value.Object, len(spec.Attrs))
		for name, raw := range spec.Attrs {
			v, err := value.FromAny(raw)
			if err != nil {
				return nil, fmt.Errorf("dataset[%d].%s: %w", i, name, err)
			}
			attrs[name] = v
		}
		entries = append(entries, index.Entry{Key: key, Attributes: attrs})
	}
	if g := s.Generate; g != nil {
		entries = append(entries, testutil.Grid(g.Count, g.Buckets)...)
	}
	return entries, nil
}
