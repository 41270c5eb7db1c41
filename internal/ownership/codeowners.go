// Package ownership reads CODEOWNERS and derives the owning teams of each
// feature from the files assigned to it.
package ownership

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Rule is a single CODEOWNERS line.
type Rule struct {
	Pattern    string   `json:"pattern"`
	Owners     []string `json:"owners"`
	LineNumber int      `json:"lineNumber"`

	// IsNegation marks a `!pattern` line, which clears ownership.
	IsNegation bool `json:"isNegation,omitempty"`
}

// Codeowners is a parsed CODEOWNERS file. Later rules override earlier ones.
type Codeowners struct {
	Path  string `json:"path"`
	Rules []Rule `json:"rules"`
}

// Locations are the places GitHub looks for CODEOWNERS, in order.
var Locations = []string{
	".github/CODEOWNERS",
	"CODEOWNERS",
	"docs/CODEOWNERS",
}

// Find returns the first CODEOWNERS file under repoRoot, or "".
func Find(repoRoot string) string {
	for _, loc := range Locations {
		path := filepath.Join(repoRoot, filepath.FromSlash(loc))
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path
		}
	}
	return ""
}

// Load parses the repository's CODEOWNERS. It returns nil when there is none.
func Load(repoRoot string) (*Codeowners, error) {
	path := Find(repoRoot)
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	co, err := Parse(f)
	if err != nil {
		return nil, err
	}
	co.Path = path
	return co, nil
}

// Parse reads CODEOWNERS rules. Comment lines, blank lines and rules
// without a valid owner are skipped.
func Parse(r io.Reader) (*Codeowners, error) {
	var rules []Rule
	scanner := bufio.NewScanner(r)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if rule, ok := parseLine(line, lineNumber); ok {
			rules = append(rules, rule)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return &Codeowners{Rules: rules}, nil
}

func parseLine(line string, lineNumber int) (Rule, bool) {
	if i := strings.Index(line, " #"); i >= 0 {
		line = line[:i]
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Rule{}, false
	}

	pattern := fields[0]
	if strings.HasPrefix(pattern, "!") {
		return Rule{Pattern: strings.TrimPrefix(pattern, "!"), LineNumber: lineNumber, IsNegation: true}, true
	}

	owners := make([]string, 0, len(fields)-1)
	for _, owner := range fields[1:] {
		if isValidOwner(owner) {
			owners = append(owners, owner)
		}
	}
	if len(owners) == 0 {
		return Rule{}, false
	}
	return Rule{Pattern: pattern, Owners: owners, LineNumber: lineNumber}, true
}

// isValidOwner accepts @user, @org/team and email addresses.
func isValidOwner(owner string) bool {
	if strings.HasPrefix(owner, "@") {
		return len(owner) > 1
	}
	return strings.Contains(owner, "@")
}

// OwnersFor returns the owners of a repo-relative path.
func (c *Codeowners) OwnersFor(path string) []string {
	path = filepath.ToSlash(path)
	var owners []string
	for _, rule := range c.Rules {
		if !matchPattern(rule.Pattern, path) {
			continue
		}
		if rule.IsNegation {
			owners = nil
		} else {
			owners = rule.Owners
		}
	}
	return owners
}

// TeamsByFeature returns the sorted union of owners over each feature's files.
func (c *Codeowners) TeamsByFeature(filesByFeature map[string][]string) map[string][]string {
	out := make(map[string][]string, len(filesByFeature))
	for name, files := range filesByFeature {
		seen := make(map[string]bool)
		for _, f := range files {
			for _, owner := range c.OwnersFor(f) {
				seen[owner] = true
			}
		}
		if len(seen) == 0 {
			continue
		}
		teams := make([]string, 0, len(seen))
		for owner := range seen {
			teams = append(teams, owner)
		}
		sort.Strings(teams)
		out[name] = teams
	}
	return out
}

// matchPattern applies gitignore-style anchoring: a pattern with a leading
// or inner slash is root-relative, anything else matches at any depth. A
// match on a directory covers everything below it.
func matchPattern(pattern, path string) bool {
	pattern = filepath.ToSlash(pattern)
	dirOnly := strings.HasSuffix(pattern, "/")
	anchored := strings.Contains(strings.TrimSuffix(pattern, "/"), "/")

	base := strings.Trim(pattern, "/")
	if base == "" {
		return false
	}
	if !anchored {
		base = "**/" + base
	}

	if !dirOnly {
		if ok, _ := doublestar.Match(base, path); ok {
			return true
		}
	}
	ok, _ := doublestar.Match(base+"/**", path)
	return ok
}
