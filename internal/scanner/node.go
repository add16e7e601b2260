package scanner

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/kissa/kissa/internal/errs"
	"github.com/kissa/kissa/internal/gitprobe"
	"github.com/kissa/kissa/internal/index"
)

func cpuCount() int {
	return runtime.NumCPU()
}

// nodeFromVitals projects a gitprobe.Vitals reading into an index.Node row,
// adding the language histogram and working-tree size that the Git Probe
// itself does not compute (spec.md §3's Repo node carries both).
func nodeFromVitals(path string, v *gitprobe.Vitals, scanID int64) *index.Node {
	remotes := make([]index.Remote, 0, len(v.Remotes))
	for _, r := range v.Remotes {
		remotes = append(remotes, index.Remote{Name: r.Name, URL: r.URL})
	}
	remotesJSON, _ := json.Marshal(remotes)

	languages, size := languageHistogram(path)
	languagesJSON, _ := json.Marshal(languages)

	now := time.Now().UTC()
	return &index.Node{
		Path:              path,
		Name:              filepath.Base(path),
		RemotesJSON:       string(remotesJSON),
		DefaultBranch:     v.DefaultBranch,
		CurrentBranch:     v.CurrentBranch,
		LocalBranchCount:  v.LocalBranchCount,
		RemoteBranchCount: v.RemoteBranchCount,
		MergedBranchCount: v.MergedBranchCount,
		IsBare:            v.IsBare,
		Dirty:             v.Dirty,
		Staged:            v.Staged,
		Untracked:         v.Untracked,
		Ahead:             v.Ahead,
		Behind:            v.Behind,
		LastCommit:        v.LastCommit,
		LanguagesJSON:     string(languagesJSON),
		WorkingTreeSize:   size,
		OverridesJSON:     "{}",
		Lifecycle:         string(index.LifecycleActive),
		LastVerified:      now,
		ScanGeneration:    scanID,
	}
}

// nodeFromProbeError records a repo root the walk found but could not fully
// probe: a probe timeout is recorded as lifecycle "timeout" (spec §3's
// Lifecycle enum) so it is retried on the next tier rather than treated as
// lost; any other probe failure is logged by the caller and still indexed
// with the fields the walk itself observed, so the path isn't silently
// dropped from the catalogue.
func nodeFromProbeError(path string, scanID int64, probeErr error) *index.Node {
	lifecycle := index.LifecycleActive
	if e, ok := errs.As(probeErr); ok && e.Kind == errs.ProbeTimeout {
		lifecycle = index.LifecycleTimeout
	}
	return &index.Node{
		Path:           path,
		Name:           filepath.Base(path),
		RemotesJSON:    "[]",
		LanguagesJSON:  "{}",
		OverridesJSON:  "{}",
		Lifecycle:      string(lifecycle),
		LastVerified:   time.Now().UTC(),
		ScanGeneration: scanID,
	}
}

// languageHistogram walks a working tree (skipping .git) counting files per
// detected language, per spec.md §3's file-extension language histogram,
// and returns the total bytes of all files walked.
func languageHistogram(root string) (map[string]int, int64) {
	histogram := make(map[string]int)
	var total int64

	_ = filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if info.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		lang := detectLanguage(p)
		histogram[lang]++
		total += info.Size()
		return nil
	})
	return histogram, total
}
