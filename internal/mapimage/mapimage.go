// Package mapimage manages the memory-mapped, file-backed RGB plane that
// backs MELVIN's opportunistic surface map, plus the full/thumbnail PNG
// snapshots written and uploaded by the daily export, per
// spec.md §5/§6.
package mapimage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"sync"

	"github.com/edsrzf/mmap-go"
)

// Width, Height match the toroidal map's dimensions in pixels; one pixel
// per map unit, three bytes (RGB) per pixel.
const (
	Width  = 21600
	Height = 10800
	planes = 3
)

// ThumbnailScale downsamples the full map for the cheap preview PNG.
const ThumbnailScale = 8

// Uploader posts the daily snapshot to the simulator.
type Uploader interface {
	UploadDailyMap(ctx context.Context, png []byte) error
}

// Image is the RGB plane file backed by an mmap'd region, guarded by a
// single read/write lock per spec.md §5's "writes are serialized via a
// write lock on the map image" requirement.
type Image struct {
	mu   sync.RWMutex
	f    *os.File
	data mmap.MMap

	fullPath, thumbPath string
	uploader            Uploader
}

// Open opens (creating if needed) the map.bin file at path, sized for the
// full map, and memory-maps it read/write.
func Open(path, snapshotDir string, uploader Uploader) (*Image, error) {
	size := int64(Width) * int64(Height) * planes

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("mapimage: open %s: %w", path, err)
	}
	if info, err := f.Stat(); err == nil && info.Size() != size {
		if err := f.Truncate(size); err != nil {
			f.Close()
			return nil, fmt.Errorf("mapimage: resize %s: %w", path, err)
		}
	}

	data, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mapimage: mmap %s: %w", path, err)
	}

	return &Image{
		f:         f,
		data:      data,
		fullPath:  snapshotDir + "/snapshot_full.png",
		thumbPath: snapshotDir + "/snapshot_thumb.png",
		uploader:  uploader,
	}, nil
}

// Close unmaps and closes the backing file.
func (m *Image) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.data.Unmap(); err != nil {
		return err
	}
	return m.f.Close()
}

func offset(x, y int) int64 { return (int64(y)*Width + int64(x)) * planes }

// WriteBlock writes an RGB byte block (stride w*3) into the map at
// (x, y, w, h), wrapped on both axes (modulo Width and Height) to match
// the toroidal coordinate system.
func (m *Image) WriteBlock(x, y, w, h int, rgb []byte) error {
	if len(rgb) < w*h*planes {
		return fmt.Errorf("mapimage: block too small: have %d want %d", len(rgb), w*h*planes)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for row := 0; row < h; row++ {
		py := (y + row) % Height
		for col := 0; col < w; col++ {
			px := (x + col) % Width
			src := (row*w + col) * planes
			dst := offset(px, py)
			copy(m.data[dst:dst+planes], rgb[src:src+planes])
		}
	}
	return nil
}

// toGoImage renders the full map as an *image.RGBA under a read lock.
func (m *Image) toGoImage() *image.RGBA {
	m.mu.RLock()
	defer m.mu.RUnlock()
	img := image.NewRGBA(image.Rect(0, 0, Width, Height))
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			src := offset(x, y)
			i := img.PixOffset(x, y)
			img.Pix[i] = m.data[src]
			img.Pix[i+1] = m.data[src+1]
			img.Pix[i+2] = m.data[src+2]
			img.Pix[i+3] = 255
		}
	}
	return img
}

func downsample(full *image.RGBA, scale int) *image.RGBA {
	w, h := Width/scale, Height/scale
	thumb := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			thumb.Set(x, y, full.At(x*scale, y*scale))
		}
	}
	return thumb
}

// ExportDailySnapshot renders the full map and a downsampled thumbnail,
// writes both to disk, and uploads the full snapshot via the configured
// Uploader. Called by the supervisor's daily 22:55 UTC task; no Charge
// transition triggers it.
func (m *Image) ExportDailySnapshot(ctx context.Context) error {
	full := m.toGoImage()
	thumb := downsample(full, ThumbnailScale)

	var fullBuf, thumbBuf bytes.Buffer
	if err := png.Encode(&fullBuf, full); err != nil {
		return fmt.Errorf("mapimage: encode full snapshot: %w", err)
	}
	if err := png.Encode(&thumbBuf, thumb); err != nil {
		return fmt.Errorf("mapimage: encode thumbnail: %w", err)
	}

	if err := os.WriteFile(m.fullPath, fullBuf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("mapimage: write %s: %w", m.fullPath, err)
	}
	if err := os.WriteFile(m.thumbPath, thumbBuf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("mapimage: write %s: %w", m.thumbPath, err)
	}

	if m.uploader != nil {
		if err := m.uploader.UploadDailyMap(ctx, fullBuf.Bytes()); err != nil {
			return fmt.Errorf("mapimage: upload daily map: %w", err)
		}
	}
	return nil
}
