package mutate

import (
	"os"
	"path/filepath"

	"github.com/cerberus-code/cerberus/internal/cerrors"
)

// backup copies the file's original bytes into a content-addressed
// directory beside the index, named after the file's pre-mutation hash —
// the same temp-file-then-rename atomicity the vector store's Save uses,
// so a crash mid-backup never leaves a half-written copy behind.
func backup(backupDir, relPath string, content []byte) (string, error) {
	dir := filepath.Join(backupDir, hashBytes(content))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", cerrors.StoreWriteError("failed to create backup directory", err)
	}

	dest := filepath.Join(dir, filepath.Base(relPath))
	tmp := dest + ".tmp"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return "", cerrors.StoreWriteError("failed to write backup", err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return "", cerrors.StoreWriteError("failed to finalize backup", err)
	}
	return dest, nil
}

// atomicWrite writes content to a temp file in path's directory, fsyncs
// it, and renames it over path — so a reader never observes a partially
// written file, matching the spec's "fsync; rename over the original".
func atomicWrite(path string, content []byte) error {
	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, ".cerberus-mutate-"+filepath.Base(path)+".tmp")

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return cerrors.StoreWriteError("failed to create temp file for mutation", err)
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		os.Remove(tmp)
		return cerrors.StoreWriteError("failed to write temp file for mutation", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return cerrors.StoreWriteError("failed to fsync temp file for mutation", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return cerrors.StoreWriteError("failed to close temp file for mutation", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return cerrors.StoreWriteError("failed to rename temp file over original", err)
	}
	return nil
}
