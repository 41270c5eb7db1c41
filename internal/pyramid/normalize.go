package pyramid

import (
	"path"
	"regexp"
	"strings"
)

var exampleLocation = regexp.MustCompile(`\[[^\]]*\]$`)

// Normalizer turns test and source paths into comparable keys.
type Normalizer struct {
	RepoRoot string
	Prefixes []string
	Suffixes []string
}

// Key normalizes p: leading "./", a trailing "[...]" example locator, the
// repository root, the extension, one known prefix and one test suffix are
// removed in that order.
func (n Normalizer) Key(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = exampleLocation.ReplaceAllString(p, "")

	if n.RepoRoot != "" {
		root := strings.TrimSuffix(strings.ReplaceAll(n.RepoRoot, "\\", "/"), "/") + "/"
		p = strings.TrimPrefix(p, root)
	}
	p = strings.TrimPrefix(p, "./")
	p = strings.TrimPrefix(p, "/")

	p = strings.TrimSuffix(p, path.Ext(p))

	for _, prefix := range n.Prefixes {
		if strings.HasPrefix(p, prefix) {
			p = strings.TrimPrefix(p, prefix)
			break
		}
	}
	for _, suffix := range n.Suffixes {
		if strings.HasSuffix(p, suffix) {
			p = strings.TrimSuffix(p, suffix)
			break
		}
	}
	return p
}
