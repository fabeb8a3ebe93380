// Package config loads grid configuration from CUE.
//
// A grid file declares the partition count, the secondary indexes built on
// every partition, and execution limits:
//
//	grid: {
//		name:       "people"
//		partitions: 4
//		indexes: {
//			age:  {attribute: "age", kind: "int"}
//			tag:  {attribute: "tag", type: "hash", kind: "string"}
//			born: {attribute: "born", backend: "sqlite", kind: "time"}
//		}
//	}
//
// The file is unified with an embedded #Grid schema that supplies defaults
// and rejects unknown fields, then decoded into a Grid.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"github.com/hashicorp/go-multierror"

	"github.com/roach88/gridpred/internal/value"
)

//go:embed schema.cue
var schemaCUE string

// Index types.
const (
	TypeOrdered = "ordered"
	TypeHash    = "hash"
)

// Index backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Grid is a decoded grid configuration.
type Grid struct {
	Name            string                 `json:"name"`
	Partitions      int                    `json:"partitions"`
	IndexesDisabled bool                   `json:"indexes_disabled"`
	MaxScan         int                    `json:"max_scan"`
	SQLitePath      string                 `json:"sqlite_path"`
	Indexes         map[string]IndexConfig `json:"indexes"`
}

// IndexConfig declares one secondary index.
type IndexConfig struct {
	Attribute string `json:"attribute"`
	Type      string `json:"type"`
	Backend   string `json:"backend"`
	Kind      string `json:"kind"`
}

// ValueKind parses Kind.
func (c IndexConfig) ValueKind() (value.Kind, error) {
	return value.ParseKind(c.Kind)
}

// IndexNames returns the configured index names in sorted order.
func (g *Grid) IndexNames() []string {
	names := make([]string, 0, len(g.Indexes))
	for name := range g.Indexes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// UsesSQLite reports whether any index is stored in SQLite.
func (g *Grid) UsesSQLite() bool {
	for _, idx := range g.Indexes {
		if idx.Backend == BackendSQLite {
			return true
		}
	}
	return false
}

// Error is a configuration error, with the CUE position when known.
type Error struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Errors flattens err into its *Error parts. Other errors, such as a
// failed read, become a single entry with field "config".
func Errors(err error) []*Error {
	if err == nil {
		return nil
	}
	parts := []error{err}
	var merr *multierror.Error
	if errors.As(err, &merr) {
		parts = merr.Errors
	}
	out := make([]*Error, 0, len(parts))
	for _, e := range parts {
		var ce *Error
		if errors.As(e, &ce) {
			out = append(out, ce)
			continue
		}
		out = append(out, &Error{Field: "config", Message: e.Error()})
	}
	return out
}

// Default returns the configuration used when no grid file is given: one
// partition, no indexes.
func Default() *Grid {
	g, err := Parse("default.cue", nil)
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults invalid: %v", err))
	}
	return g
}

// Load reads and parses the grid file at path.
func Load(path string) (*Grid, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(path, src)
}

// Parse unifies src with the #Grid schema and decodes the result. Every
// schema violation is reported, not only the first.
func Parse(filename string, src []byte) (*Grid, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	file := ctx.CompileBytes(src, cue.Filename(filename))
	if err := file.Err(); err != nil {
		return nil, convertCUEError(err, cue.Value{})
	}

	v := schema.Unify(file)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, convertCUEError(err, file)
	}

	var g Grid
	if err := v.LookupPath(cue.ParsePath("grid")).Decode(&g); err != nil {
		return nil, &Error{Field: "grid", Message: err.Error()}
	}
	if g.Indexes == nil {
		g.Indexes = map[string]IndexConfig{}
	}
	if err := g.check(); err != nil {
		return nil, err
	}
	return &g, nil
}

// check enforces the rules the schema cannot express.
func (g *Grid) check() error {
	var result *multierror.Error
	seen := make(map[string]string)
	for _, name := range g.IndexNames() {
		idx := g.Indexes[name]
		if _, err := idx.ValueKind(); err != nil {
			result = multierror.Append(result, &Error{Field: "indexes." + name + ".kind", Message: err.Error()})
		}
		key := idx.Attribute + "/" + idx.Type
		if other, ok := seen[key]; ok {
			result = multierror.Append(result, &Error{
				Field:   "indexes." + name,
				Message: fmt.Sprintf("duplicates %s: both are %s indexes over %q", other, idx.Type, idx.Attribute),
			})
			continue
		}
		seen[key] = name
	}
	return result.ErrorOrNil()
}

// convertCUEError turns CUE errors into a multierror of *Error, one per
// reported problem. file, when it exists, positions errors that carry no
// position of their own at the user's declaration.
func convertCUEError(err error, file cue.Value) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &Error{Field: "cue", Message: err.Error()}
	}

	positions := make([]token.Pos, len(errs))
	for i, e := range errs {
		positions[i] = userPosition(cueerrors.Positions(e))
	}

	var result *multierror.Error
	for i, e := range errs {
		pos := positions[i]
		if !pos.IsValid() {
			// Summaries such as "N errors in empty disjunction" carry no
			// position; borrow one from an error at or below their path.
			pos = nestedPosition(e.Path(), errs, positions)
		}
		if !pos.IsValid() && file.Exists() && len(e.Path()) > 0 {
			pos = file.LookupPath(cue.ParsePath(strings.Join(e.Path(), "."))).Pos()
		}
		result = multierror.Append(result, &Error{
			Field:   "cue",
			Message: e.Error(),
			Pos:     pos,
		})
	}
	return result.ErrorOrNil()
}

// nestedPosition returns the first valid position among errs whose path
// starts with path.
func nestedPosition(path []string, errs []cueerrors.Error, positions []token.Pos) token.Pos {
	for i, e := range errs {
		if positions[i].IsValid() && hasPathPrefix(e.Path(), path) {
			return positions[i]
		}
	}
	return token.NoPos
}

func hasPathPrefix(path, prefix []string) bool {
	return len(path) >= len(prefix) && slices.Equal(path[:len(prefix)], prefix)
}

// userPosition prefers a position in the user's file over one in the
// embedded schema.
func userPosition(positions []token.Pos) token.Pos {
	for _, p := range positions {
		if p.Filename() != "schema.cue" {
			return p
		}
	}
	if len(positions) > 0 {
		return positions[0]
	}
	return token.NoPos
}
