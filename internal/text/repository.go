package text

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-enry/go-enry/v2"
	gitignore "github.com/sabhiram/go-gitignore"
)

// DefaultIgnorePatterns are always excluded from repository content.
var DefaultIgnorePatterns = []string{
	".git/",
	"node_modules/",
	"vendor/",
	"*.lock",
	"*.sum",
	"*.min.js",
	"*.map",
}

// SourceFile is one entry of a crawled repository tree.
type SourceFile struct {
	Path    string
	Content string
}

// RepoFilter decides which files of a repository tree carry useful text.
type RepoFilter struct {
	patterns *gitignore.GitIgnore
}

func NewRepoFilter(patterns []string) *RepoFilter {
	all := make([]string, 0, len(patterns)+len(DefaultIgnorePatterns))
	for _, p := range patterns {
		if p = strings.TrimSpace(p); p != "" && !strings.HasPrefix(p, "#") {
			all = append(all, p)
		}
	}
	all = append(all, DefaultIgnorePatterns...)
	return &RepoFilter{patterns: gitignore.CompileIgnoreLines(all...)}
}

// ShouldIgnore reports whether path is excluded by pattern, or the file is
// vendored, generated, binary or a documentation/config dotfile.
func (f *RepoFilter) ShouldIgnore(path, content string) bool {
	if f != nil && f.patterns != nil && f.patterns.MatchesPath(path) {
		return true
	}
	if enry.IsVendor(path) || enry.IsDotFile(path) {
		return true
	}
	data := []byte(content)
	if enry.IsBinary(data) || enry.IsGenerated(path, data) {
		return true
	}
	return false
}

// RenderRepository flattens the kept files into one document. Each file is
// introduced by its path and detected language.
func (f *RepoFilter) RenderRepository(files []SourceFile) string {
	var b strings.Builder
	for _, file := range files {
		if f.ShouldIgnore(file.Path, file.Content) {
			continue
		}
		body := NormalizeCode(file.Content)
		if body == "" {
			continue
		}

		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		lang := enry.GetLanguage(filepath.Base(file.Path), []byte(file.Content))
		if lang != "" {
			fmt.Fprintf(&b, "%s (%s)\n", file.Path, lang)
		} else {
			fmt.Fprintf(&b, "%s\n", file.Path)
		}
		b.WriteString(body)
	}
	return b.String()
}
