package filesystem

import (
	"io"
	"os"
	"path/filepath"

	"emperror.dev/errors"
)

// Filesystem provides folder and file operations that are confined to a single
// storage root directory. It holds no state about the tree it manages: every
// operation re-reads the disk, which is the source of truth.
type Filesystem struct {
	// The storage root directory path that all operations are confined to.
	root string

	// Whether name sorting in directory listings folds case. This mirrors the
	// collation of the panel frontends consuming the API and is an explicit
	// configuration choice rather than whatever the host filesystem does.
	caseInsensitiveSort bool
}

// New creates a new Filesystem instance confined to the given root directory.
// The root does not need to exist yet; call Ensure before serving traffic.
func New(root string, caseInsensitiveSort bool) *Filesystem {
	return &Filesystem{
		root:                filepath.Clean(root),
		caseInsensitiveSort: caseInsensitiveSort,
	}
}

// Path returns the root path for the Filesystem instance.
func (fs *Filesystem) Path() string {
	return fs.root
}

// CreateDirectory creates a directory, including any missing parents, at the
// given path inside the storage root. The call is idempotent: a directory that
// already exists reports created=false and no error. A file occupying the
// target path is a conflict.
func (fs *Filesystem) CreateDirectory(p string) (created bool, err error) {
	cleaned, err := fs.SafePath(p)
	if err != nil {
		return false, err
	}

	if st, err := os.Lstat(cleaned); err == nil {
		if st.IsDir() {
			return false, nil
		}
		return false, newFilesystemError(ErrCodeConflict, nil)
	} else if !os.IsNotExist(err) {
		return false, WrapError(err, p)
	}

	if err := os.MkdirAll(cleaned, 0o755); err != nil {
		return false, WrapError(err, p)
	}
	return true, nil
}

// DeleteDirectory removes a directory and all of its contents from the storage
// root. The root itself can never be deleted through this call, and a file at
// the target path is refused so that file and folder deletion stay distinct
// operations. There is no undo.
func (fs *Filesystem) DeleteDirectory(p string) error {
	// Deliberately not resolving symlinks here: a symlink inside the tree is
	// deleted as the link entry itself, never by following it.
	cleaned, err := fs.lexicalSafePath(p)
	if err != nil {
		return err
	}

	// Block any whoopsies: the storage root must survive the process.
	if cleaned == fs.Path() {
		return NewBadPathResolution(p, cleaned)
	}

	st, err := os.Lstat(cleaned)
	if err != nil {
		if os.IsNotExist(err) {
			return newFilesystemError(ErrCodeNotExist, nil)
		}
		return WrapError(err, p)
	}
	if !st.IsDir() {
		return newFilesystemError(ErrCodeNotDirectory, nil)
	}

	if err := os.RemoveAll(cleaned); err != nil {
		return WrapError(err, p)
	}
	return nil
}

// WriteFile stores the bytes from r as a file named name inside the folder at
// the given path. The folder must already exist; uploads never create folders,
// so a typo in the folder path cannot silently grow the tree. When a file of
// the same name exists it is only replaced with overwrite set.
//
// The incoming bytes are written to a temporary file in the target folder and
// renamed into place once fully flushed, so a concurrent reader never observes
// a partially written file and a crash mid-upload leaves any previous content
// intact. Concurrent writers to the same name race on the final rename and the
// later one wins whole.
func (fs *Filesystem) WriteFile(folder string, name string, r io.Reader, overwrite bool) (*Stat, error) {
	cleaned, err := fs.SafePath(folder)
	if err != nil {
		return nil, err
	}
	if err := checkFilename(name); err != nil {
		return nil, err
	}

	st, err := os.Lstat(cleaned)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, newFilesystemError(ErrCodeNotExist, nil)
		}
		return nil, WrapError(err, folder)
	}
	if !st.IsDir() {
		return nil, newFilesystemError(ErrCodeNotDirectory, nil)
	}

	target := filepath.Join(cleaned, name)
	if st, err := os.Lstat(target); err == nil {
		if st.IsDir() {
			return nil, newFilesystemError(ErrCodeIsDirectory, nil)
		}
		if !overwrite {
			return nil, newFilesystemError(ErrCodeConflict, nil)
		}
	} else if !os.IsNotExist(err) {
		return nil, WrapError(err, folder)
	}

	if err := fs.writeFileStreamAtomic(cleaned, target, r); err != nil {
		return nil, WrapError(err, folder)
	}

	out, err := fs.unsafeStat(target)
	if err != nil {
		return nil, WrapError(err, folder)
	}
	return out, nil
}

// writeFileStreamAtomic copies r into a temporary file inside dir and renames
// it over target once the bytes have hit the disk.
func (fs *Filesystem) writeFileStreamAtomic(dir string, target string, r io.Reader) error {
	f, err := os.CreateTemp(dir, ".storaged-upload-*")
	if err != nil {
		return errors.Wrap(err, "filesystem: failed to create temporary upload file")
	}
	tmp := f.Name()
	defer func() {
		// A successful rename makes this a no-op; any failure path leaves the
		// temporary file behind for us to clean up here.
		_ = os.Remove(tmp)
	}()

	buf := make([]byte, 1024*4)
	if _, err := io.CopyBuffer(f, r, buf); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "filesystem: failed to stream upload to disk")
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "filesystem: failed to sync upload to disk")
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "filesystem: failed to close upload file")
	}
	// CreateTemp opens with 0600; stored files follow the normal creation mode.
	if err := os.Chmod(tmp, 0o644); err != nil {
		return errors.Wrap(err, "filesystem: failed to chmod upload file")
	}
	return os.Rename(tmp, target)
}

// DeleteFile removes a single file from the storage root. Directories are
// refused; use DeleteDirectory for those. A symlink is removed as the link
// itself, its target is never touched.
func (fs *Filesystem) DeleteFile(p string) error {
	cleaned, err := fs.lexicalSafePath(p)
	if err != nil {
		return err
	}

	st, err := os.Lstat(cleaned)
	if err != nil {
		if os.IsNotExist(err) {
			return newFilesystemError(ErrCodeNotExist, nil)
		}
		return WrapError(err, p)
	}
	if st.IsDir() {
		return newFilesystemError(ErrCodeIsDirectory, nil)
	}

	if err := os.Remove(cleaned); err != nil {
		return WrapError(err, p)
	}
	return nil
}
