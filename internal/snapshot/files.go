package snapshot

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
)

// Write stores data at path unless the file already holds exactly those
// bytes. It reports whether the file was written.
func Write(path string, data []byte) (bool, error) {
	current, err := os.ReadFile(path)
	if err == nil && bytes.Equal(current, data) {
		return false, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return false, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, err
	}
	return true, os.WriteFile(path, data, 0644)
}

// Diff is a line-level comparison of a computed document with the stored one.
type Diff struct {
	// Missing lines are expected but absent on disk.
	Missing []string `json:"missing,omitempty"`
	// Unexpected lines are on disk but not expected.
	Unexpected []string `json:"unexpected,omitempty"`
}

// Empty reports whether both sides hold the same multiset of lines.
func (d Diff) Empty() bool {
	return len(d.Missing) == 0 && len(d.Unexpected) == 0
}

// String renders the diff with "+" for missing and "-" for unexpected lines.
func (d Diff) String() string {
	var b strings.Builder
	for _, l := range d.Missing {
		b.WriteString("+ " + l + "\n")
	}
	for _, l := range d.Unexpected {
		b.WriteString("- " + l + "\n")
	}
	return b.String()
}

// DiffLines compares expected and actual line by line, keeping the order in
// which lines first appear on each side.
func DiffLines(expected, actual []byte) Diff {
	exp := splitLines(expected)
	act := splitLines(actual)

	counts := make(map[string]int, len(act))
	for _, l := range act {
		counts[l]++
	}

	var d Diff
	for _, l := range exp {
		if counts[l] > 0 {
			counts[l]--
			continue
		}
		d.Missing = append(d.Missing, l)
	}

	remaining := make(map[string]int, len(exp))
	for _, l := range exp {
		remaining[l]++
	}
	for _, l := range act {
		if remaining[l] > 0 {
			remaining[l]--
			continue
		}
		d.Unexpected = append(d.Unexpected, l)
	}
	return d
}

func splitLines(data []byte) []string {
	s := strings.TrimRight(string(data), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
