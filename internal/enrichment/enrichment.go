// Package enrichment parses the per-repo `.kissa` file (spec.md §6): a
// small TOML document at a repo's root carrying an owner's explicit
// identity, relationship, organization, and permission declarations that
// take precedence over anything the Classifier would otherwise infer.
package enrichment

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// FileName is the enrichment file's fixed name at a repo's root.
const FileName = ".kissa"

// Identity pins the classification axes a user has decided by hand.
type Identity struct {
	Category  string `toml:"category"`
	Ownership string `toml:"ownership"`
	Intention string `toml:"intention"`
	ManagedBy string `toml:"managed_by"`
	Label     string `toml:"label"`
	Project   string `toml:"project"`
}

// Relationship declares one explicit edge to another repo, identified by
// path, bypassing whatever the Scanner/graph would otherwise infer.
type Relationship struct {
	Path string `toml:"path"`
	Type string `toml:"type"`
}

// Organization overrides the Pattern resolver's destination for this one
// repo, independent of any matching rule.
type Organization struct {
	PathTemplate string `toml:"path_template"`
	Pinned       bool   `toml:"pinned"`
}

// Permissions overrides the Permission Gate's effective level for this
// one repo, equivalent to a `overrides` config entry but co-located with
// the repo itself.
type Permissions struct {
	Level string `toml:"level"`
}

// File is the fully-parsed contents of one `.kissa` document.
type File struct {
	Identity     Identity       `toml:"identity"`
	Relationships []Relationship `toml:"relationships"`
	Organization Organization   `toml:"organization"`
	Permissions  Permissions    `toml:"permissions"`
}

// Load reads and parses repoPath's enrichment file. A missing file is not
// an error: it returns (nil, nil), since absence just means "no
// enrichment", distinct from a malformed one.
func Load(repoPath string) (*File, error) {
	data, err := os.ReadFile(filepath.Join(repoPath, FileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var f File
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Exists reports whether repoPath carries an enrichment file, without
// parsing it — the cheap check init-dotkissa runs before scaffolding a
// new file. The Scanner does not call it.
func Exists(repoPath string) bool {
	_, err := os.Stat(filepath.Join(repoPath, FileName))
	return err == nil
}

// Write serializes f back to repoPath's enrichment file; its one caller is
// `kissa init-dotkissa`, which scaffolds a new file.
func Write(repoPath string, f *File) error {
	data, err := toml.Marshal(f)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(repoPath, FileName), data, 0o644)
}
