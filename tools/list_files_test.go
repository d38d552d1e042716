package tools_test

import (
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/petasbytes/deepagent/tools"
)

func TestListFiles_NonRecursive_Basic(t *testing.T) {
	dir := filepath.Join(sharedDir, rel(t))
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	for _, p := range []string{"a.txt", filepath.Join("sub", "nested.txt")} {
		if err := os.WriteFile(filepath.Join(dir, p), []byte(""), 0o644); err != nil {
			t.Fatalf("prepare: %v", err)
		}
	}

	out, err := call(t, tools.ListFilesDefinition(sandbox), tools.ListFilesInput{Path: rel(t)})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	got := out.([]string)
	if want := []string{"a.txt", "sub/"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestListFiles_InvalidPath_Error(t *testing.T) {
	if _, err := call(t, tools.ListFilesDefinition(sandbox), tools.ListFilesInput{Path: rel(t, "does", "not", "exist")}); err == nil {
		t.Fatal("expected error for invalid path")
	}
}

func TestListFiles_SortingAndPaging(t *testing.T) {
	dir := filepath.Join(sharedDir, rel(t))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, n := range []string{"c.txt", "a.txt", "b.txt", "z.txt", "m.txt"} {
		if err := os.WriteFile(filepath.Join(dir, n), []byte(""), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	cases := []struct {
		page int
		want []string
	}{
		{1, []string{"a.txt", "b.txt"}},
		{3, []string{"z.txt"}},
		{4, []string{}},
	}
	for _, tc := range cases {
		out, err := call(t, tools.ListFilesDefinition(sandbox), tools.ListFilesInput{Path: rel(t), Page: tc.page, PageSize: 2})
		if err != nil {
			t.Fatalf("page %d: unexpected err: %v", tc.page, err)
		}
		if got := out.([]string); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("page %d: got=%v want=%v", tc.page, got, tc.want)
		}
	}
}

func TestListFiles_HugePageIsEmpty(t *testing.T) {
	dir := filepath.Join(sharedDir, rel(t))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	for _, p := range []string{"a.txt", "b.txt", "c.txt"} {
		if err := os.WriteFile(filepath.Join(dir, p), []byte(""), 0o644); err != nil {
			t.Fatalf("prepare: %v", err)
		}
	}

	cases := []tools.ListFilesInput{
		{Path: rel(t), Page: 92233720368547758},
		{Path: rel(t), Page: math.MaxInt, PageSize: 2},
		{Path: rel(t), Page: 2, PageSize: math.MaxInt},
	}
	for _, in := range cases {
		out, err := call(t, tools.ListFilesDefinition(sandbox), in)
		if err != nil {
			t.Fatalf("%+v: unexpected err: %v", in, err)
		}
		if got := out.([]string); len(got) != 0 {
			t.Fatalf("%+v: want empty page, got %v", in, got)
		}
	}

	out, err := call(t, tools.ListFilesDefinition(sandbox), tools.ListFilesInput{Path: rel(t), PageSize: math.MaxInt})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got, want := out.([]string), []string{"a.txt", "b.txt", "c.txt"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}
