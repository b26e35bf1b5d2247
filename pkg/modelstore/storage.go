// Package modelstore resolves a named model bundle (model.onnx,
// tokens.txt, and optionally global_cmvn.stats) from a [FileStore] —
// local disk or S3 — into local paths a [stt.FastConformerBackend] can
// hand to Initialize, copying fetched files into a local cache directory
// and recording each file's size in a BadgerDB-backed manifest so a
// remote bundle isn't re-downloaded on every process restart.
package modelstore

import (
	"context"
	"io"
)

// FileStore is a minimal file-oriented storage abstraction so model
// bundles can live on local disk during development or in an object
// store in production without the resolver caring which.
//
// Paths are forward-slash separated and relative to the store root.
// Implementations must be safe for concurrent use.
type FileStore interface {
	// Read opens the named file for reading. The caller must close the
	// returned ReadCloser. Returns an error wrapping os.ErrNotExist if
	// the file does not exist.
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Write opens the named file for writing, truncating it if it
	// already exists. Parent directories are created automatically.
	Write(ctx context.Context, path string) (io.WriteCloser, error)

	// Exists reports whether the named file exists.
	Exists(ctx context.Context, path string) (bool, error)
}
