package storage

import (
	"context"
	"testing"

	"github.com/dl-alexandre/dbxmirror/internal/storage/blobstore"
	"github.com/dl-alexandre/dbxmirror/internal/storage/dropbox"
	"github.com/dl-alexandre/dbxmirror/internal/storage/gdrive"
	"github.com/dl-alexandre/dbxmirror/internal/utils"
)

func TestOpen(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		wantCode string
		check    func(Backend) bool
	}{
		{
			name:  "dropbox",
			opts:  Options{Backend: "dropbox", Token: "t"},
			check: func(b Backend) bool { _, ok := b.(*dropbox.Storage); return ok },
		},
		{
			name:  "default is dropbox",
			opts:  Options{Token: "t"},
			check: func(b Backend) bool { _, ok := b.(*dropbox.Storage); return ok },
		},
		{
			name:  "gdrive",
			opts:  Options{Backend: "gdrive", Token: "t"},
			check: func(b Backend) bool { _, ok := b.(*gdrive.Storage); return ok },
		},
		{
			name:  "blob",
			opts:  Options{Backend: "blob", Bucket: "mem://"},
			check: func(b Backend) bool { _, ok := b.(*blobstore.Storage); return ok },
		},
		{name: "dropbox without token", opts: Options{Backend: "dropbox"}, wantCode: utils.ErrCodeAuthRequired},
		{name: "gdrive without token", opts: Options{Backend: "gdrive"}, wantCode: utils.ErrCodeAuthRequired},
		{name: "blob without bucket", opts: Options{Backend: "blob"}, wantCode: utils.ErrCodeInvalidArgument},
		{name: "unknown backend", opts: Options{Backend: "ftp"}, wantCode: utils.ErrCodeInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend, err := Open(context.Background(), tt.opts)
			if tt.wantCode != "" {
				if code := utils.ErrorCode(err); code != tt.wantCode {
					t.Fatalf("error code = %s, want %s (err=%v)", code, tt.wantCode, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer backend.Close()
			if !tt.check(backend) {
				t.Errorf("Open() returned %T", backend)
			}
		})
	}
}
