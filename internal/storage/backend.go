package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yndnr/tuamail-go/internal/storage/snapshot"
)

// Backend names.
const (
	BackendFile   = "file"
	BackendBadger = "badger"
)

// ErrNoSnapshot is returned by Backend.Read when nothing was ever saved.
var ErrNoSnapshot = errors.New("storage: no snapshot")

// Backend is a stable home for the snapshot blob.
type Backend interface {
	// Name identifies the backend in logs and status output.
	Name() string

	// Write durably stores blob and returns where it went.
	Write(ctx context.Context, blob []byte) (string, error)

	// Read returns the blob to restore from, or ErrNoSnapshot.
	Read(ctx context.Context) ([]byte, error)

	Close() error
}

// FileBackend stores blobs through a snapshot.Manager.
type FileBackend struct {
	mgr    *snapshot.Manager
	logger *slog.Logger
}

// NewFileBackend creates a file backend.
func NewFileBackend(cfg snapshot.Config, logger *slog.Logger) (*FileBackend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	mgr, err := snapshot.NewManager(cfg)
	if err != nil {
		return nil, err
	}
	return &FileBackend{mgr: mgr, logger: logger}, nil
}

// Name implements Backend.
func (b *FileBackend) Name() string {
	return BackendFile
}

// Write implements Backend. Old files are pruned after a successful write.
func (b *FileBackend) Write(_ context.Context, blob []byte) (string, error) {
	info, err := b.mgr.Write(blob)
	if err != nil {
		return "", err
	}

	if err := b.mgr.Prune(); err != nil {
		b.logger.Warn("snapshot cleanup failed", "error", err)
	}
	return info.Path, nil
}

// Read implements Backend. Only the newest file is considered.
func (b *FileBackend) Read(_ context.Context) ([]byte, error) {
	blob, info, err := b.mgr.Load()
	if err != nil {
		if errors.Is(err, snapshot.ErrNoSnapshots) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("load snapshot file: %w", err)
	}

	b.logger.Info("snapshot file selected", "path", info.Path, "size", info.Size)
	return blob, nil
}

// Close implements Backend.
func (b *FileBackend) Close() error {
	return nil
}
