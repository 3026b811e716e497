// Package codelist validates controlled-vocabulary fields against the IATI
// codelists. The tables are embedded in the binary, loaded once on first
// use, and treated as immutable for the process lifetime.
package codelist

import (
	"fmt"
	"sort"
	"sync"

	"github.com/goccy/go-yaml"
)

// Codelist is one controlled vocabulary: a field name and its valid codes.
type Codelist struct {
	Field string            `yaml:"field"`
	Name  string            `yaml:"name"`
	Codes map[string]string `yaml:"codes"`
}

var (
	loadOnce sync.Once
	loadErr  error
	byField  map[string]Codelist
)

// load parses the embedded tables. Called at most once.
func load() {
	data, err := FS.ReadFile("codelists.yaml")
	if err != nil {
		loadErr = fmt.Errorf("reading embedded codelists: %w", err)
		return
	}

	var lists []Codelist
	if err := yaml.Unmarshal(data, &lists); err != nil {
		loadErr = fmt.Errorf("parsing embedded codelists: %w", err)
		return
	}

	byField = make(map[string]Codelist, len(lists))
	for _, cl := range lists {
		byField[cl.Field] = cl
	}
}

// tables returns the loaded codelist index.
func tables() (map[string]Codelist, error) {
	loadOnce.Do(load)
	return byField, loadErr
}

// Has reports whether the field is a controlled vocabulary.
func Has(field string) bool {
	t, err := tables()
	if err != nil {
		return false
	}
	_, ok := t[field]
	return ok
}

// Validate checks a code against the field's codelist. Fields without a
// codelist validate as ok: only controlled vocabularies are checked here.
// An empty code is ok too; absence is the normalizer's concern, not a
// vocabulary violation.
func Validate(field, code string) (bool, string) {
	if code == "" {
		return true, ""
	}

	t, err := tables()
	if err != nil {
		return false, err.Error()
	}

	cl, ok := t[field]
	if !ok {
		return true, ""
	}

	if _, valid := cl.Codes[code]; !valid {
		return false, fmt.Sprintf("code %q is not in the %s codelist", code, cl.Name)
	}
	return true, ""
}

// Describe returns the human-readable name for a code, or "" when the
// field has no codelist or the code is unknown.
func Describe(field, code string) string {
	t, err := tables()
	if err != nil {
		return ""
	}
	if cl, ok := t[field]; ok {
		return cl.Codes[code]
	}
	return ""
}

// Fields returns the sorted list of controlled-vocabulary field names.
func Fields() []string {
	t, err := tables()
	if err != nil {
		return nil
	}
	fields := make([]string, 0, len(t))
	for f := range t {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}
