package upload

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/regsense/assistant-gateway/internal/config"
	"github.com/regsense/assistant-gateway/internal/types"
)

// StagedFile is an uploaded file spooled to disk for the lifetime of one
// request. It is owned exclusively by that request and must be released on
// every exit path; Release is idempotent.
type StagedFile struct {
	Name string // original filename
	Path string // spool location
	Ext  string
	Size int64

	mu       sync.Mutex
	released bool
}

// Release deletes the spooled file. Calling it again, or on a file whose
// spool entry has already vanished, is a no-op.
func (f *StagedFile) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.released {
		return
	}
	f.released = true
	if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to remove staged file", "path", f.Path, "error", err)
	}
}

// ReleaseAll releases every staged file in the set. Safe on nil and on
// already-released handles.
func ReleaseAll(files []*StagedFile) {
	for _, f := range files {
		f.Release()
	}
}

// ErrTooManyFiles marks a request exceeding the per-request file count cap.
// It is the only Stage failure callers should report as a client error.
var ErrTooManyFiles = errors.New("too many files per request")

// Store validates and spools multipart uploads.
type Store struct {
	dir      string
	maxSize  int64
	maxFiles int
	allowed  map[string]bool
}

func NewStore(cfg config.UploadsConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %s: %w", cfg.Dir, err)
	}
	allowed := make(map[string]bool, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		allowed[strings.ToLower(ext)] = true
	}
	return &Store{
		dir:      cfg.Dir,
		maxSize:  cfg.MaxFileSizeBytes,
		maxFiles: cfg.MaxFilesPerQuery,
		allowed:  allowed,
	}, nil
}

// Stage validates and spools the given parts. Files failing the extension
// or size checks are reported as rejections without aborting the rest.
// Exceeding the per-request file count fails the whole request.
func (s *Store) Stage(headers []*multipart.FileHeader) ([]*StagedFile, []types.FileRejection, error) {
	if len(headers) > s.maxFiles {
		return nil, nil, fmt.Errorf("%w: %d (limit %d)", ErrTooManyFiles, len(headers), s.maxFiles)
	}

	var staged []*StagedFile
	var rejected []types.FileRejection

	for _, hdr := range headers {
		ext := strings.ToLower(filepath.Ext(hdr.Filename))
		if !s.allowed[ext] {
			rejected = append(rejected, types.FileRejection{
				Filename: hdr.Filename,
				Reason:   fmt.Sprintf("file type %s not allowed", ext),
			})
			continue
		}
		if hdr.Size > s.maxSize {
			rejected = append(rejected, types.FileRejection{
				Filename: hdr.Filename,
				Reason:   fmt.Sprintf("file exceeds %d byte limit", s.maxSize),
			})
			continue
		}

		f, err := s.spool(hdr, ext)
		if err != nil {
			// A spool failure is an internal error, not a client one.
			// Release anything staged so far before bailing.
			ReleaseAll(staged)
			return nil, nil, fmt.Errorf("stage %s: %w", hdr.Filename, err)
		}
		staged = append(staged, f)
	}

	return staged, rejected, nil
}

func (s *Store) spool(hdr *multipart.FileHeader, ext string) (*StagedFile, error) {
	src, err := hdr.Open()
	if err != nil {
		return nil, fmt.Errorf("open part: %w", err)
	}
	defer src.Close()

	path := filepath.Join(s.dir, uuid.NewString()+ext)
	dst, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create spool file: %w", err)
	}

	written, err := io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("write spool file: %w", err)
	}

	return &StagedFile{
		Name: hdr.Filename,
		Path: path,
		Ext:  ext,
		Size: written,
	}, nil
}
