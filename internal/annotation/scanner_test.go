package annotation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanner_Scan(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		want      string
		line      int
		multiLine bool
	}{
		{name: "ruby comment", body: "# @feature Payments\nclass A; end\n", want: "Payments", line: 1},
		{name: "go comment", body: "package a\n\n// @feature Search Index  \n", want: "Search Index", line: 3},
		{name: "sql comment", body: "-- @feature Reports\nSELECT 1;\n", want: "Reports", line: 1},
		{name: "lisp comment", body: "; @feature Editor\n", want: "Editor", line: 1},
		{name: "c block one line", body: "/* @feature Billing */\nint x;\n", want: "Billing", line: 1, multiLine: true},
		{name: "html block", body: "<!--\n  @feature Onboarding\n-->\n<div/>\n", want: "Onboarding", line: 2, multiLine: true},
		{name: "closer on same line", body: "<!--\n@feature Onboarding -->\n", want: "Onboarding", line: 2, multiLine: true},
		{name: "python docstring", body: "\"\"\"\nModule docs.\n@feature Importer\n\"\"\"\n", want: "Importer", line: 3, multiLine: true},
		{name: "ruby begin end", body: "=begin\n@feature Legacy\n=end\n", want: "Legacy", line: 2, multiLine: true},
		{name: "star prefixed doc block", body: "/**\n * @feature Auth\n */\n", want: "Auth", line: 2, multiLine: true},
		{name: "no annotation", body: "# just a comment\nputs 1\n"},
		{name: "token outside comment", body: "x = '@feature Nope'\n"},
		{name: "token after block closed", body: "/* header */\n@feature Nope\n"},
		{name: "empty name", body: "# @feature   \n"},
		{name: "no trailing newline", body: "# @feature Tail", want: "Tail", line: 1},
		{name: "crlf", body: "# @feature Windows\r\n", want: "Windows", line: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewScanner(DefaultScanLines).Scan(strings.NewReader(tt.body))
			require.NoError(t, err)
			if tt.want == "" {
				assert.Nil(t, m)
				return
			}
			require.NotNil(t, m)
			assert.Equal(t, tt.want, m.Feature)
			assert.Equal(t, tt.line, m.Line)
			assert.Equal(t, tt.multiLine, m.MultiLine)
		})
	}
}

func TestScanner_SingleLineWinsOverBlock(t *testing.T) {
	body := "/*\n @feature Block\n */\n# @feature Line\n"
	m, err := NewScanner(DefaultScanLines).Scan(strings.NewReader(body))
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "Line", m.Feature)
	assert.False(t, m.MultiLine)
}

func TestScanner_ScanWindow(t *testing.T) {
	filler := func(n int) string { return strings.Repeat("puts 1\n", n) }

	onLine11 := filler(10) + "# @feature Late\n"
	m, err := NewScanner(DefaultScanLines).Scan(strings.NewReader(onLine11))
	require.NoError(t, err)
	assert.Nil(t, m)

	for preceding := 0; preceding <= 2; preceding++ {
		body := strings.Repeat("# comment\n", preceding) + filler(2-preceding) + "# @feature Early\n"
		m, err := NewScanner(DefaultScanLines).Scan(strings.NewReader(body))
		require.NoError(t, err)
		require.NotNil(t, m, "preceding=%d", preceding)
		assert.Equal(t, "Early", m.Feature)
		assert.Equal(t, 3, m.Line)
	}
}

func TestScanner_ScanFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.rb")
	require.NoError(t, os.WriteFile(file, []byte("# @feature Foo\n"), 0644))

	s := NewScanner(0)
	assert.Equal(t, DefaultScanLines, s.MaxLines)

	m, err := s.ScanFile(file)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "Foo", m.Feature)

	m, err = s.ScanFile(dir)
	require.NoError(t, err)
	assert.Nil(t, m)

	m, err = s.ScanFile(filepath.Join(dir, "missing.rb"))
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestRemove(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.rb")
	require.NoError(t, os.WriteFile(file, []byte("# @feature Foo\n\n\nclass A\n  # keep me\nend\n"), 0644))

	changed, err := Remove(file)
	require.NoError(t, err)
	assert.True(t, changed)

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "class A\n  # keep me\nend\n", string(data))

	changed, err = Remove(file)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestRemove_LeavesBlockAnnotations(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.js")
	body := "/* @feature Foo */\nconst a = 1;\n"
	require.NoError(t, os.WriteFile(file, []byte(body), 0644))

	changed, err := Remove(file)
	require.NoError(t, err)
	assert.False(t, changed)

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, body, string(data))
}

func TestAdd(t *testing.T) {
	dir := t.TempDir()

	rb := filepath.Join(dir, "a.rb")
	require.NoError(t, os.WriteFile(rb, []byte("class A; end\n"), 0644))
	require.NoError(t, Add(rb, "Payments"))
	data, err := os.ReadFile(rb)
	require.NoError(t, err)
	assert.Equal(t, "# @feature Payments\n\nclass A; end\n", string(data))

	m, err := NewScanner(DefaultScanLines).ScanFile(rb)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "Payments", m.Feature)

	html := filepath.Join(dir, "index.html")
	require.NoError(t, os.WriteFile(html, []byte("<p/>\n"), 0644))
	require.NoError(t, Add(html, "Landing"))
	m, err = NewScanner(DefaultScanLines).ScanFile(html)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "Landing", m.Feature)

	unknown := filepath.Join(dir, "blob.bin")
	require.NoError(t, os.WriteFile(unknown, []byte{0}, 0644))
	assert.Error(t, Add(unknown, "X"))
}
