package persist

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rmtavares/splitbook/internal/domain"
)

const (
	ledgerFilename  = "ledger.json"
	syncKeyFilename = "sync_key"
)

// FileStore keeps each record in its own file under a data directory. Writes
// go through a temp file plus rename so a crashed write never leaves a
// half-written record behind.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("NewFileStore: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) LoadLedger(_ context.Context) (domain.Ledger, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, ledgerFilename))
	if os.IsNotExist(err) {
		return domain.Ledger{}, ErrNoSnapshot
	}
	if err != nil {
		// An existing record that cannot be read (permissions, I/O) is not
		// the same as no record: falling back to an empty ledger here would
		// let the next save overwrite intact data.
		return domain.Ledger{}, fmt.Errorf("LoadLedger: %w", err)
	}

	l, err := DecodeLedger(data)
	if err != nil {
		return domain.Ledger{}, fmt.Errorf("LoadLedger: %s: %w", err, ErrNoSnapshot)
	}
	return l, nil
}

func (s *FileStore) SaveLedger(_ context.Context, l domain.Ledger) error {
	data, err := EncodeLedger(l)
	if err != nil {
		return fmt.Errorf("SaveLedger: %w", err)
	}
	if err := s.writeAtomic(ledgerFilename, data); err != nil {
		return fmt.Errorf("SaveLedger: %w", err)
	}
	return nil
}

func (s *FileStore) LoadSyncKey(_ context.Context) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, syncKeyFilename))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("LoadSyncKey: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *FileStore) SaveSyncKey(_ context.Context, key string) error {
	if err := s.writeAtomic(syncKeyFilename, []byte(key+"\n")); err != nil {
		return fmt.Errorf("SaveSyncKey: %w", err)
	}
	return nil
}

func (s *FileStore) ClearSyncKey(_ context.Context) error {
	err := os.Remove(filepath.Join(s.dir, syncKeyFilename))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ClearSyncKey: %w", err)
	}
	return nil
}

func (s *FileStore) writeAtomic(name string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(s.dir, name))
}
