// Package annotation finds `@feature <Name>` tags in the leading comments of
// a source file and can add or remove them in place.
package annotation

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// Token introduces a feature annotation.
const Token = "@feature "

// DefaultScanLines is how many leading lines are inspected.
const DefaultScanLines = 10

// LinePrefixes are the single-line comment openers.
var LinePrefixes = []string{"#", "//", "--", ";"}

// Block is a multi-line comment dialect.
type Block struct {
	Open  string
	Close string
}

// DefaultBlocks covers C-style, HTML, triple-quote and Ruby block comments.
var DefaultBlocks = []Block{
	{Open: "/*", Close: "*/"},
	{Open: "<!--", Close: "-->"},
	{Open: `"""`, Close: `"""`},
	{Open: "'''", Close: "'''"},
	{Open: "=begin", Close: "=end"},
}

// Match is a detected annotation.
type Match struct {
	Feature   string
	Line      int
	MultiLine bool
}

// Scanner walks the leading lines of a file once, tracking whether it is
// outside or inside a multi-line comment.
type Scanner struct {
	MaxLines int
	Blocks   []Block
}

// NewScanner returns a scanner with the default dialects.
func NewScanner(maxLines int) *Scanner {
	if maxLines <= 0 {
		maxLines = DefaultScanLines
	}
	return &Scanner{MaxLines: maxLines, Blocks: DefaultBlocks}
}

// ScanFile scans a regular file. Directories, missing paths and other
// non-regular files yield (nil, nil).
func (s *Scanner) ScanFile(path string) (*Match, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	return s.Scan(f)
}

// Scan reads at most MaxLines lines from r. A single-line match anywhere in
// the window takes priority over a multi-line match, whichever comes first.
func (s *Scanner) Scan(r io.Reader) (*Match, error) {
	br := bufio.NewReader(r)
	inside := -1 // index into s.Blocks while inside a block comment
	var block *Match

	for lineNo := 1; lineNo <= s.MaxLines; lineNo++ {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, err
		}
		if line == "" && err == io.EOF {
			break
		}
		line = strings.TrimRight(line, "\r\n")

		if inside >= 0 {
			b := s.Blocks[inside]
			content := line
			if idx := strings.Index(content, b.Close); idx >= 0 {
				content = content[:idx]
				inside = -1
			}
			if block == nil {
				if name, ok := s.tokenIn(content); ok {
					block = &Match{Feature: name, Line: lineNo, MultiLine: true}
				}
			}
		} else if name, ok := s.lineComment(line); ok {
			return &Match{Feature: name, Line: lineNo}, nil
		} else if idx, rest, ok := s.openBlock(line); ok {
			b := s.Blocks[idx]
			content := rest
			if end := strings.Index(rest, b.Close); end >= 0 {
				content = rest[:end]
			} else {
				inside = idx
			}
			if block == nil {
				if name, ok := s.tokenIn(content); ok {
					block = &Match{Feature: name, Line: lineNo, MultiLine: true}
				}
			}
		}

		if err == io.EOF {
			break
		}
	}
	return block, nil
}

// lineComment reports the feature named by a single-line comment annotation.
func (s *Scanner) lineComment(line string) (string, bool) {
	trimmed := strings.TrimLeft(line, " \t")
	for _, prefix := range LinePrefixes {
		if !strings.HasPrefix(trimmed, prefix) {
			continue
		}
		rest := strings.TrimLeft(trimmed[len(prefix):], " \t")
		if !strings.HasPrefix(rest, Token) {
			return "", false
		}
		return s.cleanName(rest[len(Token):])
	}
	return "", false
}

// openBlock reports which block dialect the line opens and the text after the opener.
func (s *Scanner) openBlock(line string) (int, string, bool) {
	trimmed := strings.TrimLeft(line, " \t")
	for i, b := range s.Blocks {
		if strings.HasPrefix(trimmed, b.Open) {
			return i, trimmed[len(b.Open):], true
		}
	}
	return -1, "", false
}

func (s *Scanner) tokenIn(content string) (string, bool) {
	idx := strings.Index(content, Token)
	if idx < 0 {
		return "", false
	}
	return s.cleanName(content[idx+len(Token):])
}

// cleanName trims the captured name and strips a trailing block closer.
func (s *Scanner) cleanName(raw string) (string, bool) {
	name := strings.TrimSpace(raw)
	for _, b := range s.Blocks {
		if strings.HasSuffix(name, b.Close) {
			name = strings.TrimSpace(strings.TrimSuffix(name, b.Close))
			break
		}
	}
	return name, name != ""
}

// IsAnnotationLine reports whether line is a single-line feature annotation.
func IsAnnotationLine(line string) bool {
	_, ok := NewScanner(1).lineComment(line)
	return ok
}
