package blobstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"gocloud.dev/blob/memblob"

	"github.com/dl-alexandre/dbxmirror/internal/api"
	"github.com/dl-alexandre/dbxmirror/internal/errors"
	"github.com/dl-alexandre/dbxmirror/internal/types"
	"github.com/dl-alexandre/dbxmirror/internal/utils"
)

func testClient() *api.Client {
	return api.NewClient(api.ClientOptions{
		Backend:      utils.BackendBlob,
		Classifier:   errors.ClassifyBlobError,
		MaxRetries:   1,
		RetryDelayMs: 1,
	})
}

func seededStorage(t *testing.T, objects map[string]string) *Storage {
	t.Helper()
	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	for key, body := range objects {
		if err := bucket.WriteAll(ctx, key, []byte(body), nil); err != nil {
			t.Fatalf("WriteAll(%s): %v", key, err)
		}
	}
	s := NewWithBucket(bucket, testClient())
	t.Cleanup(func() { s.Close() })
	return s
}

func TestListFolder(t *testing.T) {
	s := seededStorage(t, map[string]string{
		"top.txt":          "1",
		"docs/a.txt":       "22",
		"docs/deep/b.txt":  "333",
		"empty/":           "",
		"docs/deep/c.bin":  "4444",
		"other/stuff.json": "{}",
	})
	ctx := context.Background()

	root, err := s.ListFolder(ctx, "")
	if err != nil {
		t.Fatalf("ListFolder(root) error = %v", err)
	}
	want := map[string]types.RemoteEntry{
		"/top.txt": types.NewFileEntry("/top.txt", "top.txt", 1),
		"/docs":    types.NewFolderEntry("/docs", "docs/"),
		"/empty":   types.NewFolderEntry("/empty", "empty/"),
		"/other":   types.NewFolderEntry("/other", "other/"),
	}
	if len(root) != len(want) {
		t.Fatalf("root entries = %+v", root)
	}
	for _, e := range root {
		if want[e.DisplayPath] != e {
			t.Errorf("unexpected entry %+v", e)
		}
	}

	docs, err := s.ListFolder(ctx, "/docs")
	if err != nil {
		t.Fatalf("ListFolder(docs) error = %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("docs entries = %+v", docs)
	}

	deep, err := s.ListFolder(ctx, "docs/deep/")
	if err != nil {
		t.Fatalf("ListFolder(deep) error = %v", err)
	}
	if len(deep) != 2 || deep[0].Kind != types.EntryKindFile {
		t.Errorf("deep entries = %+v", deep)
	}

	empty, err := s.ListFolder(ctx, "empty")
	if err != nil || len(empty) != 0 {
		t.Errorf("ListFolder(empty) = %+v, %v; want no entries, no error", empty, err)
	}
}

func TestListFolder_MissingPrefix(t *testing.T) {
	s := seededStorage(t, map[string]string{"a.txt": "a"})
	if _, err := s.ListFolder(context.Background(), "nope"); !utils.IsNotFound(err) {
		t.Errorf("err = %v, want FILE_NOT_FOUND", err)
	}
}

func TestDownloadFile(t *testing.T) {
	s := seededStorage(t, map[string]string{"docs/a.txt": "payload"})
	ctx := context.Background()

	rc, err := s.DownloadFile(ctx, "docs/a.txt")
	if err != nil {
		t.Fatalf("DownloadFile() error = %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "payload" {
		t.Errorf("content = %q", data)
	}

	if _, err := s.DownloadFile(ctx, "docs/missing.txt"); !utils.IsNotFound(err) {
		t.Errorf("err = %v, want FILE_NOT_FOUND", err)
	}
}

func TestOpen_FileURL(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sub", "x.txt"), []byte("xyz"), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := Open(context.Background(), "file://"+filepath.ToSlash(dir), testClient())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	entries, err := s.ListFolder(context.Background(), "sub")
	if err != nil {
		t.Fatalf("ListFolder() error = %v", err)
	}
	if len(entries) != 1 || entries[0] != types.NewFileEntry("/sub/x.txt", "sub/x.txt", 3) {
		t.Errorf("entries = %+v", entries)
	}
}

func TestOpen_BadURL(t *testing.T) {
	if _, err := Open(context.Background(), "nosuchscheme://bucket", testClient()); utils.ErrorCode(err) != utils.ErrCodeInvalidArgument {
		t.Errorf("err = %v, want INVALID_ARGUMENT", err)
	}
}

func TestNormalizePrefix(t *testing.T) {
	tests := map[string]string{"": "", "/": "", "docs": "docs/", "/docs/": "docs/", "a/b": "a/b/"}
	for in, want := range tests {
		if got := normalizePrefix(in); got != want {
			t.Errorf("normalizePrefix(%q) = %q, want %q", in, got, want)
		}
	}
}
