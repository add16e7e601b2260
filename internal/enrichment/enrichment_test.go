package enrichment

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadParsesAllSections(t *testing.T) {
	dir := t.TempDir()
	contents := `
[identity]
ownership = "work:acme"
intention = "developing"

[[relationships]]
path = "/home/user/code/sibling"
type = "DEPENDS_ON"

[organization]
path_template = "/base/pinned/{repo_name}"
pinned = true

[permissions]
level = "commit"
`
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(contents), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	f, err := Load(dir)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if f.Identity.Ownership != "work:acme" {
		t.Errorf("Identity.Ownership = %q", f.Identity.Ownership)
	}
	if len(f.Relationships) != 1 || f.Relationships[0].Type != "DEPENDS_ON" {
		t.Errorf("Relationships = %v", f.Relationships)
	}
	if !f.Organization.Pinned {
		t.Error("expected Organization.Pinned = true")
	}
	if f.Permissions.Level != "commit" {
		t.Errorf("Permissions.Level = %q", f.Permissions.Level)
	}
}

func TestLoadMissingFileReturnsNilWithoutError(t *testing.T) {
	dir := t.TempDir()
	f, err := Load(dir)
	if err != nil {
		t.Fatalf("expected no error for a missing file, got %v", err)
	}
	if f != nil {
		t.Errorf("expected nil File for a missing file, got %v", f)
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	if Exists(dir) {
		t.Error("expected Exists to be false before the file is written")
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("[identity]\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if !Exists(dir) {
		t.Error("expected Exists to be true after the file is written")
	}
}

func TestWriteRoundTrips(t *testing.T) {
	dir := t.TempDir()
	f := &File{Identity: Identity{Category: "origin", Label: "acme"}}
	if err := Write(dir, f); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}

	got, err := Load(dir)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got.Identity.Category != "origin" || got.Identity.Label != "acme" {
		t.Errorf("round-tripped Identity = %+v", got.Identity)
	}
}
