//go:build cgo

package complexity

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestAnalyzeSource_Ruby(t *testing.T) {
	source := []byte(`# @feature Payments
def check(x)
  if x && x > 0
    puts "positive"
  end

  while x > 10
    x = x - 1
  end
  case x
  when 1 then :one
  when 2 then :two
  end
end
`)

	fm, err := NewAnalyzer().AnalyzeSource(context.Background(), "check.rb", source, LangRuby)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// if, &&, while, case, when, when
	if fm.Cyclomatic != 7 {
		t.Errorf("expected cyclomatic 7, got %d", fm.Cyclomatic)
	}
	if fm.ABC.Assignments != 1 {
		t.Errorf("expected 1 assignment, got %d", fm.ABC.Assignments)
	}
	if fm.ABC.Conditions != 6 {
		t.Errorf("expected 6 conditions, got %d", fm.ABC.Conditions)
	}
	if fm.LinesOfCode != 12 {
		t.Errorf("expected 12 lines of code, got %d", fm.LinesOfCode)
	}
}

func TestAnalyzeSource_RubyKeywordsCountOnce(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   int
	}{
		{"single if", "def f(x)\n  if x\n    1\n  end\nend\n", 2},
		{"until loop", "def f(x)\n  until x > 3\n    x += 1\n  end\nend\n", 2},
		{"for loop", "def f(xs)\n  for x in xs\n    puts x\n  end\nend\n", 2},
		{"begin rescue", "def f\n  begin\n    run\n  rescue StandardError\n    nil\n  end\nend\n", 2},
		{"case with one when", "def f(x)\n  case x\n  when 1 then :one\n  end\nend\n", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fm, err := NewAnalyzer().AnalyzeSource(context.Background(), "f.rb", []byte(tt.source), LangRuby)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if fm.Cyclomatic != tt.want {
				t.Errorf("expected cyclomatic %d, got %d", tt.want, fm.Cyclomatic)
			}
			if fm.ABC.Conditions != tt.want-1 {
				t.Errorf("expected %d conditions, got %d", tt.want-1, fm.ABC.Conditions)
			}
		})
	}
}

func TestAnalyzeSource_Go(t *testing.T) {
	source := []byte(`package main

// f does things.
func f(a, b bool) int {
	if a && b {
		return 1
	}
	for i := 0; i < 3; i++ {
	}
	return 0
}
`)

	fm, err := NewAnalyzer().AnalyzeSource(context.Background(), "f.go", source, LangGo)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fm.Cyclomatic != 4 {
		t.Errorf("expected cyclomatic 4, got %d", fm.Cyclomatic)
	}
	if fm.LinesOfCode != 9 {
		t.Errorf("expected 9 lines of code, got %d", fm.LinesOfCode)
	}
	if fm.ABC.Assignments != 2 {
		t.Errorf("expected 2 assignments (i := 0, i++), got %d", fm.ABC.Assignments)
	}
}

func TestAnalyzeSource_StraightLine(t *testing.T) {
	fm, err := NewAnalyzer().AnalyzeSource(context.Background(), "a.py", []byte("x = 1\nprint(x)\n"), LangPython)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fm.Cyclomatic != 1 {
		t.Errorf("expected base complexity 1, got %d", fm.Cyclomatic)
	}
	if got := fm.ABC.Size(); math.Abs(got-math.Sqrt(2)) > 1e-9 {
		t.Errorf("expected abc size sqrt(2), got %v", got)
	}
}

func TestAnalyzeFile_Unsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}

	fm, err := NewAnalyzer().AnalyzeFile(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fm != nil {
		t.Errorf("expected nil metrics for unsupported file, got %+v", fm)
	}
}

func TestABCSize(t *testing.T) {
	abc := ABC{Assignments: 3, Branches: 4}
	if abc.Size() != 5 {
		t.Errorf("expected 5, got %v", abc.Size())
	}
}

func TestLanguageFromExtension(t *testing.T) {
	tests := []struct {
		ext  string
		want Language
		ok   bool
	}{
		{".rb", LangRuby, true},
		{".rake", LangRuby, true},
		{".tsx", LangTSX, true},
		{".go", LangGo, true},
		{".txt", "", false},
	}
	for _, tt := range tests {
		got, ok := LanguageFromExtension(tt.ext)
		if got != tt.want || ok != tt.ok {
			t.Errorf("LanguageFromExtension(%q) = %q, %v", tt.ext, got, ok)
		}
	}
}
