package snapshot

import (
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

const (
	filePrefix    = "snapshot-"
	fileExtension = ".snap"
	idTimeLayout  = "20060102150405"

	DefaultRetentionCount = 5
	DefaultRetentionDays  = 7
)

// ErrNoSnapshots is returned by Load when the directory holds no snapshot file.
var ErrNoSnapshots = errors.New("snapshot: no snapshots available")

// Config configures a Manager. A zero retention value selects the default,
// a negative one disables that rule.
type Config struct {
	Dir string

	RetentionCount int
	RetentionDays  int
}

func DefaultConfig(dir string) Config {
	return Config{
		Dir:            dir,
		RetentionCount: DefaultRetentionCount,
		RetentionDays:  DefaultRetentionDays,
	}
}

// Manager stores snapshot blobs as files named
// snapshot-<yyyymmddhhmmss>-<seq>.snap, so lexical order is write order.
type Manager struct {
	cfg Config
	now func() time.Time
}

// NewManager creates cfg.Dir if needed.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Dir == "" {
		return nil, errors.New("snapshot: dir is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("snapshot: create dir: %w", err)
	}
	cfg.RetentionCount = cmp.Or(cfg.RetentionCount, DefaultRetentionCount)
	cfg.RetentionDays = cmp.Or(cfg.RetentionDays, DefaultRetentionDays)
	return &Manager{cfg: cfg, now: time.Now}, nil
}

// Info describes one snapshot file. Checksum is the SHA-256 of the whole
// file and is only filled in when the file was read or written.
type Info struct {
	ID        string    `json:"id"`
	CreatedAt int64     `json:"created_at"`
	Size      int64     `json:"size"`
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum,omitempty"`
	ModTime   time.Time `json:"-"`
}

func checksum(blob []byte) string {
	sum := sha256.Sum256(blob)
	return hex.EncodeToString(sum[:])
}

// Write stores blob as the newest snapshot. Readers never observe a partial
// file: the data is synced under a temporary name before the rename.
func (m *Manager) Write(blob []byte) (*Info, error) {
	now := m.now()
	id, err := m.nextID(now)
	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(m.cfg.Dir, id+"-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("snapshot: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	_, err = tmp.Write(blob)
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot: write %s: %w", id, err)
	}

	path := filepath.Join(m.cfg.Dir, id+fileExtension)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return nil, fmt.Errorf("snapshot: publish %s: %w", id, err)
	}

	return &Info{
		ID:        id,
		CreatedAt: now.UnixMilli(),
		Size:      int64(len(blob)),
		Path:      path,
		Checksum:  checksum(blob),
		ModTime:   now,
	}, nil
}

// Load returns the newest file as is. It never falls back to an older
// file: a newest file that fails to verify must surface as a restore fault,
// since silently restoring older state would re-arm reminders that have
// already fired. Older files stay on disk for manual recovery.
func (m *Manager) Load() ([]byte, *Info, error) {
	infos, err := m.List()
	if err != nil {
		return nil, nil, err
	}
	if len(infos) == 0 {
		return nil, nil, ErrNoSnapshots
	}

	info := infos[len(infos)-1]
	blob, err := os.ReadFile(info.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot: read %s: %w", info.ID, err)
	}
	info.Size = int64(len(blob))
	info.Checksum = checksum(blob)
	if hdr, err := ReadHeader(blob); err == nil {
		info.CreatedAt = hdr.CreatedAt
	}
	return blob, info, nil
}

// List returns the snapshot files in Dir, oldest first. A missing
// directory yields an empty list.
func (m *Manager) List() ([]*Info, error) {
	entries, err := os.ReadDir(m.cfg.Dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var infos []*Info
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileExtension) {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		infos = append(infos, &Info{
			ID:      strings.TrimSuffix(name, fileExtension),
			Path:    filepath.Join(m.cfg.Dir, name),
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
		})
	}
	slices.SortFunc(infos, func(a, b *Info) int { return strings.Compare(a.ID, b.ID) })
	return infos, nil
}

// Prune deletes files outside the retention policy: a file survives if it
// is among the newest RetentionCount or younger than RetentionDays. The
// newest file always survives.
func (m *Manager) Prune() error {
	infos, err := m.List()
	if err != nil || len(infos) <= 1 {
		return err
	}

	n := len(infos)
	var cutoff time.Time
	if m.cfg.RetentionDays > 0 {
		cutoff = m.now().AddDate(0, 0, -m.cfg.RetentionDays)
	}

	var errs []error
	for i, info := range infos {
		switch {
		case i == n-1:
		case m.cfg.RetentionCount > 0 && i >= n-m.cfg.RetentionCount:
		case !cutoff.IsZero() && info.ModTime.After(cutoff):
		default:
			if err := os.Remove(info.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// nextID numbers files written within the same second.
func (m *Manager) nextID(t time.Time) (string, error) {
	stamp := filePrefix + t.Format(idTimeLayout) + "-"
	entries, err := os.ReadDir(m.cfg.Dir)
	if err != nil {
		return "", fmt.Errorf("snapshot: scan dir: %w", err)
	}
	seq := 1
	for _, e := range entries {
		if name := e.Name(); strings.HasPrefix(name, stamp) && strings.HasSuffix(name, fileExtension) {
			seq++
		}
	}
	return fmt.Sprintf("%s%04d", stamp, seq), nil
}
