package classify

import "path/filepath"

// builtinRule maps a known tool-managed location pattern to a managed_by
// label (spec §4.4 step 1: "path-glob table mapping known tool-managed
// locations").
type builtinRule struct {
	glob      string
	managedBy string
}

func (b builtinRule) match(path string) bool {
	ok, _ := filepath.Match(b.glob, path)
	if ok {
		return true
	}
	// Also match anywhere the glob appears as a path component, since
	// managed locations are usually nested arbitrarily deep under a base.
	for i := 0; i < len(path); i++ {
		if path[i] == '/' {
			if ok, _ = filepath.Match(b.glob, path[i+1:]); ok {
				return true
			}
		}
	}
	return false
}

func defaultBuiltins() []builtinRule {
	return []builtinRule{
		{glob: "*/.local/share/nvim/lazy/*", managedBy: "lazy.nvim"},
		{glob: "*/.local/share/nvim/site/pack/*", managedBy: "packer.nvim"},
		{glob: "*/.vim/plugged/*", managedBy: "vim-plug"},
		{glob: "*/.oh-my-zsh/custom/plugins/*", managedBy: "oh-my-zsh"},
		{glob: "*/.tmux/plugins/*", managedBy: "tpm"},
		{glob: "*/node_modules/*", managedBy: "npm"},
		{glob: "*/vendor/*", managedBy: "go-modules"},
		{glob: "*/.cargo/registry/src/*", managedBy: "cargo"},
		{glob: "*/site-packages/*", managedBy: "pip"},
	}
}
