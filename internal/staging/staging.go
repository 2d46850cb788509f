// Package staging manages scoped local temporary files for inbound uploads.
//
// A staged file exists only for the duration of one analysis request: the
// handler copies the multipart stream into the store, hands the on-disk path
// to the pipeline, and defers Close() so the file is removed on every exit
// path, including errors and cancellation in later pipeline stages.
//
// The declared size hint is untrusted; only the post-copy on-disk size is
// authoritative for the ceiling check.
package staging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrPayloadTooLarge is returned when a declared or actual upload size
// exceeds the configured ceiling.
var ErrPayloadTooLarge = errors.New("payload exceeds maximum upload size")

// DefaultMaxBytes is the upload size ceiling (50 MiB).
const DefaultMaxBytes = 50 << 20

// Store writes inbound uploads to uniquely named files under Dir and
// enforces the size ceiling.
type Store struct {
	// Dir is the directory for staged files. Empty means os.TempDir().
	Dir string
	// MaxBytes caps the upload size; values <= 0 use DefaultMaxBytes.
	MaxBytes int64
}

// NewStore constructs a Store with the default 50 MiB ceiling.
func NewStore(dir string) *Store {
	return &Store{Dir: dir, MaxBytes: DefaultMaxBytes}
}

// File is a staged upload on local disk. Close removes it; Close is
// idempotent and safe to defer alongside explicit early removal.
type File struct {
	Path string
	Size int64

	once sync.Once
}

// Close deletes the staged file from disk. A missing file is not an error:
// the goal is "absent afterwards", however that came to be.
func (f *File) Close() error {
	var err error
	f.once.Do(func() {
		if rmErr := os.Remove(f.Path); rmErr != nil && !os.IsNotExist(rmErr) {
			err = rmErr
			log.Error().Err(rmErr).Str("path", f.Path).Msg("failed to remove staged file")
			return
		}
		log.Debug().Str("path", f.Path).Msg("staged file removed")
	})
	return err
}

// Save copies r to a uniquely named file and returns the staged handle.
//
// declaredSize is the client's size hint: when it already exceeds the
// ceiling the stream is rejected before any bytes are written. After the
// copy the actual on-disk size is re-checked; an oversized file is deleted
// and ErrPayloadTooLarge returned.
func (s *Store) Save(r io.Reader, declaredSize int64) (*File, error) {
	max := s.MaxBytes
	if max <= 0 {
		max = DefaultMaxBytes
	}
	if declaredSize > max {
		return nil, ErrPayloadTooLarge
	}

	dir := s.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, "upload-"+uuid.NewString())

	dst, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create staged file: %w", err)
	}

	// Allow one extra byte past the ceiling so the post-copy check can
	// distinguish "exactly max" from "over max".
	n, copyErr := io.Copy(dst, io.LimitReader(r, max+1))
	closeErr := dst.Close()

	f := &File{Path: path, Size: n}
	if copyErr != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stage upload: %w", copyErr)
	}
	if closeErr != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stage upload: %w", closeErr)
	}
	if n > max {
		_ = f.Close()
		return nil, ErrPayloadTooLarge
	}
	return f, nil
}
