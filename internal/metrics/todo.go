package metrics

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const todoMarker = "TODO"

var commentOpeners = []string{"#", "//", "--", ";", "/*", "<!--", `"""`, "'''"}

// FindTodos returns file:line -> text for each comment line carrying a TODO.
// The text is what follows the marker, trimmed, with a leading colon dropped.
func FindTodos(root, file string) (map[string]string, error) {
	f, err := os.Open(filepath.Join(root, filepath.FromSlash(file)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var out map[string]string
	br := bufio.NewReader(f)
	for lineNo := 1; ; lineNo++ {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, err
		}
		if text, ok := todoText(line); ok {
			if out == nil {
				out = make(map[string]string)
			}
			out[fmt.Sprintf("%s:%d", file, lineNo)] = text
		}
		if err == io.EOF {
			return out, nil
		}
	}
}

func todoText(line string) (string, bool) {
	idx := strings.Index(line, todoMarker)
	if idx < 0 || !isComment(line[:idx]) {
		return "", false
	}
	text := strings.TrimSpace(line[idx+len(todoMarker):])
	text = strings.TrimSpace(strings.TrimPrefix(text, ":"))
	text = strings.TrimSpace(strings.TrimSuffix(strings.TrimSuffix(text, "*/"), "-->"))
	return text, true
}

// isComment reports whether the text before a marker opens a comment.
func isComment(prefix string) bool {
	trimmed := strings.TrimSpace(prefix)
	if strings.HasPrefix(trimmed, "*") {
		return true
	}
	for _, opener := range commentOpeners {
		if strings.Contains(prefix, opener) {
			return true
		}
	}
	return false
}
