package features

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"

	ferrors "featuremap/internal/errors"
	"featuremap/internal/paths"
)

var nonWord = regexp.MustCompile(`[^a-z0-9]+`)

// DefinitionFileName returns the file name used for a new definition.
func DefinitionFileName(name string) string {
	slug := strings.Trim(nonWord.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if slug == "" {
		slug = "feature"
	}
	return slug + ".toml"
}

// WriteDefinition creates a TOML definition for f under dir and returns its
// repo-relative path. An existing file is never overwritten.
func WriteDefinition(repoRoot, dir string, f *Feature) (string, error) {
	if strings.TrimSpace(f.Name) == "" {
		return "", ferrors.Newf(ferrors.ConfigInvalid, "feature name must not be empty")
	}

	absDir := paths.JoinRepoPath(repoRoot, dir)
	if err := os.MkdirAll(absDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create definitions directory: %w", err)
	}

	target := filepath.Join(absDir, DefinitionFileName(f.Name))
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return "", ferrors.Newf(ferrors.ConfigInvalid, "feature definition %s already exists", target)
		}
		return "", fmt.Errorf("failed to create definition file: %w", err)
	}
	defer func() { _ = out.Close() }()

	def := definition{
		Name:              f.Name,
		Description:       f.Description,
		DocumentationLink: f.DocumentationLink,
		CustomAttributes:  f.CustomAttributes,
		AssignedGlobs:     f.AssignedGlobs,
	}
	if err := toml.NewEncoder(out).Encode(def); err != nil {
		return "", fmt.Errorf("failed to encode definition: %w", err)
	}

	return paths.CanonicalizePath(target, repoRoot)
}
