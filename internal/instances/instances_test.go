package instances

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParse_NormalizesAndSkipsBlankLines(t *testing.T) {
	input := "i-aaa111\n\nI-BBB222\n   \n  i-CcC333  \r\ni-aaa111\n"
	ids, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	want := []string{"i-aaa111", "i-bbb222", "i-ccc333", "i-aaa111"}
	if strings.Join(ids, ",") != strings.Join(want, ",") {
		t.Errorf("Parse() = %v, want %v", ids, want)
	}
}

func TestParse_Empty(t *testing.T) {
	ids, err := Parse(strings.NewReader("\n\n"))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("expected no ids, got %v", ids)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "instances.txt")
	if err := os.WriteFile(path, []byte("i-aaa111\nI-BBB222\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	ids, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(ids) != 2 || ids[1] != "i-bbb222" {
		t.Errorf("unexpected ids %v", ids)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.txt"))
	if !errors.Is(err, ErrFileMissing) {
		t.Errorf("expected ErrFileMissing, got %v", err)
	}
}
