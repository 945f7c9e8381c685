package mocks

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/dl-alexandre/dbxmirror/internal/types"
	"github.com/dl-alexandre/dbxmirror/internal/utils"
)

func TestTreeStorage(t *testing.T) {
	s := NewTreeStorage(map[string]string{
		"/A.txt":       "aa",
		"/Docs/B.md":   "bbb",
		"/Docs/Deep/C": "c",
		"/Empty/":      "",
	})
	ctx := context.Background()

	root, err := s.ListFolder(ctx, "")
	if err != nil {
		t.Fatalf("ListFolder(root) error = %v", err)
	}
	want := []types.RemoteEntry{
		types.NewFileEntry("/A.txt", "/a.txt", 2),
		types.NewFolderEntry("/Docs", "/docs"),
		types.NewFolderEntry("/Empty", "/empty"),
	}
	if len(root) != len(want) {
		t.Fatalf("root = %+v", root)
	}
	for i := range want {
		if root[i] != want[i] {
			t.Errorf("root[%d] = %+v, want %+v", i, root[i], want[i])
		}
	}

	deep, err := s.ListFolder(ctx, "/docs/deep")
	if err != nil || len(deep) != 1 || deep[0].CanonicalPath != "/docs/deep/c" {
		t.Errorf("deep = %+v, %v", deep, err)
	}

	if _, err := s.ListFolder(ctx, "/nope"); !utils.IsNotFound(err) {
		t.Errorf("missing folder err = %v", err)
	}

	rc, err := s.DownloadFile(ctx, "/docs/b.md")
	if err != nil {
		t.Fatalf("DownloadFile() error = %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "bbb" {
		t.Errorf("content = %q", data)
	}

	if got := s.DownloadCalls(); len(got) != 1 || got[0] != "/docs/b.md" {
		t.Errorf("DownloadCalls() = %v", got)
	}
	if got := s.ListCalls(); len(got) != 3 {
		t.Errorf("ListCalls() = %v", got)
	}
}

func TestMaxInFlight(t *testing.T) {
	s := &MockStorage{Delay: 20 * time.Millisecond}
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.ListFolder(context.Background(), "")
		}()
	}
	wg.Wait()

	if s.MaxInFlight() < 2 || s.MaxInFlight() > 4 {
		t.Errorf("MaxInFlight() = %d", s.MaxInFlight())
	}
	if s.InFlight() != 0 {
		t.Errorf("InFlight() = %d after all calls returned", s.InFlight())
	}
}

func TestDownloadInFlightUntilClose(t *testing.T) {
	s := NewTreeStorage(map[string]string{"/f": "x"})
	rc, err := s.DownloadFile(context.Background(), "/f")
	if err != nil {
		t.Fatal(err)
	}
	if s.InFlight() != 1 {
		t.Errorf("InFlight() = %d before Close, want 1", s.InFlight())
	}
	rc.Close()
	rc.Close()
	if s.InFlight() != 0 {
		t.Errorf("InFlight() = %d after Close, want 0", s.InFlight())
	}
}

func TestCancelledContext(t *testing.T) {
	s := &MockStorage{Delay: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.ListFolder(ctx, ""); err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
