// Package manifest resolves and rewrites the pinned upstream reference of a
// dependency in a Cargo manifest.
//
// Resolving parses the manifest as TOML. Rewriting is textual: only the pin
// of the tracked dependency is replaced, the rest of the file keeps its
// formatting so the resulting diff stays minimal.
package manifest

import (
	"fmt"
	"strings"

	"github.com/pelletier/go-toml"

	"github.com/prefix-dev/pixibump/internal/bumperr"
)

// dependencyTables are the manifest tables that may declare the tracked
// dependency.
var dependencyTables = [][]string{
	{"dependencies"},
	{"dev-dependencies"},
	{"build-dependencies"},
	{"workspace", "dependencies"},
}

// Reference is the pin of a dependency on a point in the upstream history.
// Exactly one of Tag and Rev is set.
type Reference struct {
	Tag string
	Rev string
}

// String returns the reference in the form it is used in human-readable
// texts, e.g. pull request descriptions.
func (r *Reference) String() string {
	if r.Tag != "" {
		return r.Tag
	}

	return "rev " + r.Rev
}

// Resolve returns the pinned reference of the dependency in the manifest.
// A bumperr.KindConfig error is returned when the manifest can not be
// parsed, the dependency is not declared, or its entry has neither a tag
// nor a rev key.
func Resolve(content []byte, dependency string) (*Reference, error) {
	tree, err := toml.LoadBytes(content)
	if err != nil {
		return nil, bumperr.NewConfigError(fmt.Errorf("parsing manifest failed: %w", err))
	}

	entry := lookupDependency(tree, dependency)
	if entry == nil {
		return nil, bumperr.NewConfigError(fmt.Errorf("dependency %q not found in manifest", dependency))
	}

	// When both keys are declared the tag wins, cargo tolerates the
	// combination and the tag is the reference that a release bump
	// replaces.
	if tag, ok := entry.Get("tag").(string); ok && tag != "" {
		return &Reference{Tag: tag}, nil
	}

	if rev, ok := entry.Get("rev").(string); ok && rev != "" {
		return &Reference{Rev: rev}, nil
	}

	return nil, bumperr.NewConfigError(fmt.Errorf("dependency %q declares neither a tag nor a rev", dependency))
}

func lookupDependency(tree *toml.Tree, dependency string) *toml.Tree {
	for _, table := range dependencyTables {
		path := append(append([]string{}, table...), dependency)

		entry, ok := tree.GetPath(path).(*toml.Tree)
		if ok {
			return entry
		}
	}

	return nil
}

// Rewrite returns the manifest content with the pin of the dependency
// replaced by a tag pin on targetTag. A rev pin is removed, satisfying the
// invariant that a resolved reference has exactly one of tag and rev.
//
// The replacement is scoped to the manifest region that declares the
// dependency: either its inline-table line or the lines of its
// [<table>.<dependency>] section. This keeps pins of other dependencies
// that happen to use the same tag untouched.
func Rewrite(content []byte, dependency string, current *Reference, targetTag string) ([]byte, error) {
	var oldPin, newPin string

	if current.Rev != "" {
		oldPin = fmt.Sprintf("rev = %q", current.Rev)
	} else {
		oldPin = fmt.Sprintf("tag = %q", current.Tag)
	}
	newPin = fmt.Sprintf("tag = %q", targetTag)

	lines := strings.Split(string(content), "\n")

	inSection := false
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, "["):
			inSection = isDependencySection(trimmed, dependency)
		case !inSection && !declaresDependency(trimmed, dependency):
			continue
		}

		if !strings.Contains(line, oldPin) {
			continue
		}

		lines[i] = strings.Replace(line, oldPin, newPin, 1)

		return []byte(strings.Join(lines, "\n")), nil
	}

	return nil, bumperr.NewConfigError(fmt.Errorf("pin %q of dependency %q not found in manifest", oldPin, dependency))
}

// isDependencySection reports if the table header line opens the section of
// the dependency, e.g. [dependencies.pixi_api].
func isDependencySection(header, dependency string) bool {
	name := strings.Trim(header, "[]")

	return name == dependency || strings.HasSuffix(name, "."+dependency)
}

// declaresDependency reports if the line declares the dependency as an
// inline table, e.g. pixi_api = { git = "...", tag = "..." }.
func declaresDependency(line, dependency string) bool {
	key, _, found := strings.Cut(line, "=")
	if !found {
		return false
	}

	return strings.TrimSpace(key) == dependency
}
