package mapimage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

type fakeUploader struct {
	uploaded []byte
}

func (f *fakeUploader) UploadDailyMap(ctx context.Context, png []byte) error {
	f.uploaded = png
	return nil
}

func TestWriteBlockWrapsOnXAxis(t *testing.T) {
	dir := t.TempDir()
	img, err := Open(filepath.Join(dir, "map.bin"), dir, nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer img.Close()

	rgb := []byte{10, 20, 30, 40, 50, 60}
	if err := img.WriteBlock(Width-1, 0, 2, 1, rgb); err != nil {
		t.Fatalf("WriteBlock() error = %v", err)
	}

	lastPx := offset(Width-1, 0)
	if img.data[lastPx] != 10 || img.data[lastPx+1] != 20 || img.data[lastPx+2] != 30 {
		t.Fatalf("pixel at x=Width-1 = %v, want [10 20 30]", img.data[lastPx:lastPx+3])
	}

	wrappedPx := offset(0, 0)
	if img.data[wrappedPx] != 40 || img.data[wrappedPx+1] != 50 || img.data[wrappedPx+2] != 60 {
		t.Fatalf("pixel at x=0 (wrapped) = %v, want [40 50 60]", img.data[wrappedPx:wrappedPx+3])
	}
}

func TestWriteBlockRejectsUndersizedPayload(t *testing.T) {
	dir := t.TempDir()
	img, err := Open(filepath.Join(dir, "map.bin"), dir, nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer img.Close()

	if err := img.WriteBlock(0, 0, 4, 4, []byte{1, 2, 3}); err == nil {
		t.Fatal("expected an error for an undersized RGB block")
	}
}

func TestOpenReusesExistingFileSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "map.bin")

	img, err := Open(path, dir, nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := img.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	wantSize := int64(Width) * int64(Height) * planes
	if info.Size() != wantSize {
		t.Fatalf("file size = %d, want %d", info.Size(), wantSize)
	}

	img2, err := Open(path, dir, nil)
	if err != nil {
		t.Fatalf("re-Open() error = %v", err)
	}
	defer img2.Close()
}
