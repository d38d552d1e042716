package fsops_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/petasbytes/deepagent/internal/fsops"
	"github.com/petasbytes/deepagent/internal/safety"
)

func setupSandbox(t *testing.T) (*fsops.Sandbox, string) {
	t.Helper()
	dir := t.TempDir()
	sb, err := fsops.New(dir, "")
	if err != nil {
		t.Fatalf("sandbox: %v", err)
	}
	return sb, sb.ReadRoot
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got nil", code)
	}
	var te safety.ToolError
	if !errors.As(err, &te) {
		t.Fatalf("expected ToolError, got %T: %v", err, err)
	}
	if te.Code != code {
		t.Fatalf("unexpected code: %s want %s", te.Code, code)
	}
}

func TestReadFile_HappyPath(t *testing.T) {
	sb, dir := setupSandbox(t)
	want := "hello world"
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte(want), 0o644); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	got, err := sb.ReadFile("a.txt")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got != want {
		t.Fatalf("content mismatch: got %q want %q", got, want)
	}
}

func TestReadFile_DirectoryIsNotAFile(t *testing.T) {
	sb, dir := setupSandbox(t)
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	_, err := sb.ReadFile("sub")
	requireCode(t, err, safety.CodeNotAFile)
}

func TestListFiles_SortedWithDirSuffix(t *testing.T) {
	sb, dir := setupSandbox(t)
	for _, name := range []string{"b.txt", "a.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("prepare: %v", err)
		}
	}
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatalf("prepare: %v", err)
	}

	names, err := sb.ListFiles("")
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	want := []string{"a.txt", "b.txt", "sub/"}
	if len(names) != len(want) {
		t.Fatalf("got %v want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("got %v want %v", names, want)
		}
	}

	empty, err := sb.ListFiles("sub")
	if err != nil {
		t.Fatalf("ListFiles(sub): %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty subdir list, got %v", empty)
	}
}

func TestWriteFile_HappyPathNested(t *testing.T) {
	sb, dir := setupSandbox(t)
	if err := sb.WriteFile(filepath.Join("nested", "dir", "out.txt"), "hello"); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "nested", "dir", "out.txt"))
	if err != nil {
		t.Fatalf("verify read: %v", err)
	}
	if string(b) != "hello" {
		t.Fatalf("content mismatch: got %q", string(b))
	}
}

func TestWriteFile_SeparateWriteRoot(t *testing.T) {
	readDir, writeDir := t.TempDir(), t.TempDir()
	sb, err := fsops.New(readDir, writeDir)
	if err != nil {
		t.Fatalf("sandbox: %v", err)
	}
	if err := sb.WriteFile("out.txt", "x"); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := os.Stat(filepath.Join(sb.WriteRoot, "out.txt")); err != nil {
		t.Fatalf("expected file under write root: %v", err)
	}
	if _, err := os.Stat(filepath.Join(sb.ReadRoot, "out.txt")); !os.IsNotExist(err) {
		t.Fatalf("file leaked into read root: %v", err)
	}
}

func TestErrorPropagation_ReadDenylist(t *testing.T) {
	sb, dir := setupSandbox(t)
	if err := os.Mkdir(filepath.Join(dir, ".agent"), 0o755); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".agent/events.jsonl"), []byte("{}"), 0o644); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	_, err := sb.ReadFile(".agent/events.jsonl")
	requireCode(t, err, safety.CodeDeniedRead)
}

func TestErrorPropagation_WriteDenyList(t *testing.T) {
	sb, _ := setupSandbox(t)
	requireCode(t, sb.WriteFile(".git/HEAD", "ref: refs/heads/main\n"), safety.CodeDeniedWrite)
	requireCode(t, sb.WriteFile("go.mod", "module x\n"), safety.CodeDeniedWrite)
}

func TestErrorPropagation_ReadTraversal(t *testing.T) {
	sb, _ := setupSandbox(t)
	_, err := sb.ReadFile("../../x")
	requireCode(t, err, safety.CodeOutsideSandbox)
}

func TestNew_WriteRootDefaultsToReadRoot(t *testing.T) {
	dir := t.TempDir()
	sb, err := fsops.New(dir, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	want, _ := filepath.EvalSymlinks(dir)
	if sb.ReadRoot != want || sb.WriteRoot != want {
		t.Fatalf("roots = %q/%q want %q", sb.ReadRoot, sb.WriteRoot, want)
	}
}
