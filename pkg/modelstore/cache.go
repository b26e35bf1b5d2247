package modelstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// manifestRecord is the msgpack-encoded value stored per fetched file,
// rather than a bare presence flag, so Resolve can detect a local file
// that was truncated or replaced after the manifest recorded it as
// fetched.
type manifestRecord struct {
	Size int64 `msgpack:"size"`
}

// Bundle is the set of local file paths a FastConformer backend needs
// at Initialize: the acoustic model, the token vocabulary, and
// optionally CMVN statistics.
type Bundle struct {
	ModelPath string
	VocabPath string
	CmvnPath  string // "" if the bundle carries no CMVN stats
}

const (
	modelFileName = "model.onnx"
	vocabFileName = "tokens.txt"
	cmvnFileName  = "global_cmvn.stats"
)

// Manager resolves named model bundles from a remote FileStore into
// local files under cacheDir, recording in a BadgerDB manifest which
// files have already been fetched so a restart doesn't re-download
// every bundle from the object store it just downloaded them from.
type Manager struct {
	remote   FileStore
	cacheDir string
	manifest *badger.DB
}

// NewManager opens (or creates) the manifest database under
// filepath.Join(cacheDir, "manifest") and returns a Manager that
// resolves bundles from remote into cacheDir.
func NewManager(remote FileStore, cacheDir string) (*Manager, error) {
	abs, err := filepath.Abs(cacheDir)
	if err != nil {
		return nil, fmt.Errorf("modelstore: resolve cache dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("modelstore: create cache dir: %w", err)
	}

	opts := badger.DefaultOptions(filepath.Join(abs, "manifest")).WithLogger(quietLogger{})
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("modelstore: open manifest: %w", err)
	}
	return &Manager{remote: remote, cacheDir: abs, manifest: db}, nil
}

// Close releases the manifest database. It does not touch cached model
// files on disk.
func (m *Manager) Close() error { return m.manifest.Close() }

// Resolve ensures bundleName's files are present under cacheDir and
// returns their local paths, fetching from remote only for files not
// already recorded as fetched in the manifest.
func (m *Manager) Resolve(ctx context.Context, bundleName string) (Bundle, error) {
	localDir := filepath.Join(m.cacheDir, bundleName)
	if err := os.MkdirAll(localDir, 0o755); err != nil {
		return Bundle{}, fmt.Errorf("modelstore: create bundle dir: %w", err)
	}

	modelPath, err := m.ensureFile(ctx, bundleName, modelFileName, localDir, true)
	if err != nil {
		return Bundle{}, err
	}
	vocabPath, err := m.ensureFile(ctx, bundleName, vocabFileName, localDir, true)
	if err != nil {
		return Bundle{}, err
	}
	cmvnPath, err := m.ensureFile(ctx, bundleName, cmvnFileName, localDir, false)
	if err != nil {
		return Bundle{}, err
	}

	return Bundle{ModelPath: modelPath, VocabPath: vocabPath, CmvnPath: cmvnPath}, nil
}

// ensureFile fetches remotePath (bundleName/fileName) into
// localDir/fileName if the manifest doesn't already mark it fetched.
// When required is false and the remote file doesn't exist, it returns
// ("", nil) rather than an error, matching CMVN's opt-in-only status.
func (m *Manager) ensureFile(ctx context.Context, bundleName, fileName, localDir string, required bool) (string, error) {
	remotePath := bundleName + "/" + fileName
	localPath := filepath.Join(localDir, fileName)
	manifestKey := []byte("fetched:" + remotePath)

	if record, err := m.fetchedRecord(manifestKey); err != nil {
		return "", err
	} else if record != nil {
		if info, statErr := os.Stat(localPath); statErr == nil && info.Size() == record.Size {
			return localPath, nil
		}
		// The manifest recorded a fetch but the file is gone or its
		// size no longer matches — treat it as not-fetched and
		// re-download rather than handing back a truncated file.
	}

	exists, err := m.remote.Exists(ctx, remotePath)
	if err != nil {
		return "", fmt.Errorf("modelstore: check %s: %w", remotePath, err)
	}
	if !exists {
		if required {
			return "", fmt.Errorf("modelstore: required file %s not found in remote store", remotePath)
		}
		return "", nil
	}

	if err := m.download(ctx, remotePath, localPath); err != nil {
		return "", err
	}
	info, err := os.Stat(localPath)
	if err != nil {
		return "", fmt.Errorf("modelstore: stat downloaded %s: %w", localPath, err)
	}
	if err := m.markFetched(manifestKey, info.Size()); err != nil {
		return "", err
	}
	return localPath, nil
}

func (m *Manager) download(ctx context.Context, remotePath, localPath string) error {
	src, err := m.remote.Read(ctx, remotePath)
	if err != nil {
		return fmt.Errorf("modelstore: read %s: %w", remotePath, err)
	}
	defer src.Close()

	dst, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("modelstore: create %s: %w", localPath, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("modelstore: copy %s: %w", remotePath, err)
	}
	return nil
}

func (m *Manager) fetchedRecord(key []byte) (*manifestRecord, error) {
	var record *manifestRecord
	err := m.manifest.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var r manifestRecord
			if err := msgpack.Unmarshal(val, &r); err != nil {
				return fmt.Errorf("modelstore: decode manifest record: %w", err)
			}
			record = &r
			return nil
		})
	})
	return record, err
}

func (m *Manager) markFetched(key []byte, size int64) error {
	val, err := msgpack.Marshal(manifestRecord{Size: size})
	if err != nil {
		return fmt.Errorf("modelstore: encode manifest record: %w", err)
	}
	return m.manifest.Update(func(txn *badger.Txn) error {
		return txn.Set(key, val)
	})
}

// quietLogger suppresses BadgerDB's info/debug chatter, surfacing only
// errors and warnings through the standard logger.
type quietLogger struct{}

func (quietLogger) Errorf(f string, v ...interface{})   { log.Printf("[badger] ERROR: "+f, v...) }
func (quietLogger) Warningf(f string, v ...interface{}) { log.Printf("[badger] WARN: "+f, v...) }
func (quietLogger) Infof(string, ...interface{})        {}
func (quietLogger) Debugf(string, ...interface{})       {}
