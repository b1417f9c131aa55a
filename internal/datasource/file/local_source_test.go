package file

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return p
}

func TestFileID(t *testing.T) {
	cases := map[string]string{
		"raw-data/dept01.csv":     "dept01",
		"dept01":                  "dept01",
		"/abs/tx.austin.csv":      "tx.austin",
		"raw-data/ca_oakland.CSV": "ca_oakland",
	}
	for in, want := range cases {
		if got := FileID(in); got != want {
			t.Errorf("FileID(%q) = %q, want %q", in, got, want)
		}
	}
}

// TestSourceOpen covers success, missing file, and pre-canceled context.
func TestSourceOpen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	present := writeFile(t, dir, "dept01.csv", "raw_row_number\n1\n")
	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	cases := []struct {
		name      string
		path      string
		ctx       context.Context
		wantErrIs error
		want      string
	}{
		{name: "success", path: present, ctx: context.Background(), want: "raw_row_number\n1\n"},
		{name: "missing", path: filepath.Join(dir, "nope.csv"), ctx: context.Background(), wantErrIs: os.ErrNotExist},
		{name: "canceled", path: present, ctx: canceled, wantErrIs: context.Canceled},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			rc, err := NewSource(c.path).Open(c.ctx)
			if c.wantErrIs != nil {
				if !errors.Is(err, c.wantErrIs) {
					t.Fatalf("err = %v, want %v", err, c.wantErrIs)
				}
				if rc != nil {
					t.Fatalf("got non-nil ReadCloser on error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer rc.Close()
			got, _ := io.ReadAll(rc)
			if string(got) != c.want {
				t.Fatalf("content = %q, want %q", got, c.want)
			}
		})
	}
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.csv", "")
	writeFile(t, dir, "a.csv", "")
	writeFile(t, dir, "notes.txt", "")
	if err := os.Mkdir(filepath.Join(dir, "sub.csv"), 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := Discover(dir, "*.csv")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	var ids []string
	for _, s := range got {
		ids = append(ids, s.ID)
	}
	if strings.Join(ids, ",") != "a,b" {
		t.Fatalf("ids = %v, want [a b]", ids)
	}

	if _, err := Discover(dir, "[bad"); err == nil {
		t.Fatal("expected error for malformed pattern")
	}
	if _, err := Discover(filepath.Join(dir, "missing"), "*.csv"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("missing dir err = %v", err)
	}
}

func TestReadList(t *testing.T) {
	dir := t.TempDir()
	list := writeFile(t, dir, "sources.txt", `
# comment line
dept01.csv
   # indented comment
/data/dept02.csv

`)
	got, err := ReadList(list)
	if err != nil {
		t.Fatalf("ReadList: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Path != filepath.Join(dir, "dept01.csv") || got[0].ID != "dept01" {
		t.Fatalf("got[0] = %+v", got[0])
	}
	if got[1].Path != "/data/dept02.csv" {
		t.Fatalf("got[1] = %+v", got[1])
	}
	if _, err := ReadList(filepath.Join(dir, "missing.txt")); err == nil {
		t.Fatal("expected error for missing list")
	}
}
