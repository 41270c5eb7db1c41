package annotation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var lineDialects = map[string]string{
	".rb": "#", ".rake": "#", ".ru": "#", ".gemspec": "#", ".py": "#", ".sh": "#",
	".yml": "#", ".yaml": "#", ".toml": "#", ".pl": "#", ".ex": "#", ".exs": "#",
	".go": "//", ".js": "//", ".jsx": "//", ".mjs": "//", ".cjs": "//", ".ts": "//",
	".tsx": "//", ".java": "//", ".kt": "//", ".kts": "//", ".rs": "//", ".c": "//",
	".h": "//", ".cc": "//", ".cpp": "//", ".swift": "//", ".scss": "//", ".dart": "//",
	".sql": "--", ".lua": "--", ".hs": "--",
	".clj": ";", ".el": ";", ".lisp": ";",
}

var blockDialects = map[string]Block{
	".html":   {Open: "<!--", Close: "-->"},
	".erb":    {Open: "<!--", Close: "-->"},
	".md":     {Open: "<!--", Close: "-->"},
	".vue":    {Open: "<!--", Close: "-->"},
	".svelte": {Open: "<!--", Close: "-->"},
	".css":    {Open: "/*", Close: "*/"},
}

// AnnotationFor renders the annotation line for path's comment dialect.
func AnnotationFor(path, feature string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if prefix, ok := lineDialects[ext]; ok {
		return prefix + " " + Token + feature, nil
	}
	if b, ok := blockDialects[ext]; ok {
		return b.Open + " " + Token + feature + " " + b.Close, nil
	}
	return "", fmt.Errorf("no comment dialect known for %s", path)
}

// Add prepends an annotation for feature to the file at path.
func Add(path, feature string) error {
	line, err := AnnotationFor(path, feature)
	if err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	out := line + "\n"
	if len(data) > 0 {
		out += "\n" + string(data)
	}
	return os.WriteFile(path, []byte(out), info.Mode().Perm())
}

// Remove deletes every single-line annotation from the file and collapses
// the blank lines left at its top. It reports whether the file changed.
func Remove(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}

	lines := strings.SplitAfter(string(data), "\n")
	kept := make([]string, 0, len(lines))
	removed := false
	for _, l := range lines {
		if IsAnnotationLine(strings.TrimRight(l, "\r\n")) {
			removed = true
			continue
		}
		kept = append(kept, l)
	}
	if !removed {
		return false, nil
	}

	for len(kept) > 0 && strings.TrimSpace(kept[0]) == "" {
		kept = kept[1:]
	}
	return true, os.WriteFile(path, []byte(strings.Join(kept, "")), info.Mode().Perm())
}
