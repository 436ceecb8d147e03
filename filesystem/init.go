package filesystem

import (
	"os"
	"path/filepath"

	"emperror.dev/errors"
)

// InitReport describes what Ensure found and did on the storage root. The
// caller logs it at boot so operators can see that existing data survived a
// redeploy.
type InitReport struct {
	// The resolved absolute path of the storage root.
	Root string
	// Number of top level items found in the root, defaults included.
	ItemCount int
	// Default folders that were created by this call.
	Created []string
	// Default folders that were already present and left untouched.
	Existing []string
}

// Ensure creates the storage root directory and the configured set of default
// folders if they are missing. Nothing that already exists is ever modified or
// removed: user data in the root persists across restarts and redeploys, so
// this call is safe to run on every process start. A default folder the user
// deleted at runtime stays absent until the next start recreates it, which is
// a legitimate state and not an error.
//
// The root is resolved through filepath.EvalSymlinks afterwards and the
// Filesystem pins that resolved location for its whole lifetime; every later
// confinement check compares against it.
//
// A failure here means the process cannot safely serve traffic and the caller
// must treat it as fatal.
func (fs *Filesystem) Ensure(defaultFolders []string) (*InitReport, error) {
	if err := os.MkdirAll(fs.root, 0o755); err != nil {
		return nil, errors.Wrap(err, "filesystem: failed to create storage root directory")
	}

	resolved, err := filepath.EvalSymlinks(fs.root)
	if err != nil {
		return nil, errors.Wrap(err, "filesystem: failed to resolve storage root directory")
	}
	fs.root = resolved

	// Confirm the root is actually writable now rather than on the first
	// upload that comes in.
	probe, err := os.CreateTemp(fs.root, ".storaged-probe-*")
	if err != nil {
		return nil, errors.Wrap(err, "filesystem: storage root directory is not writable")
	}
	_ = probe.Close()
	_ = os.Remove(probe.Name())

	rep := &InitReport{Root: fs.root, Created: []string{}, Existing: []string{}}
	for _, name := range defaultFolders {
		cleaned, err := fs.SafePath(name)
		if err != nil {
			return nil, errors.WithMessage(err, "filesystem: invalid default folder name")
		}
		if _, err := os.Lstat(cleaned); err == nil {
			// Present in whatever form the user left it, even if that is a
			// file by now. Leave it alone.
			rep.Existing = append(rep.Existing, name)
			continue
		} else if !os.IsNotExist(err) {
			return nil, errors.Wrap(err, "filesystem: failed to stat default folder")
		}
		if err := os.MkdirAll(cleaned, 0o755); err != nil {
			return nil, errors.Wrap(err, "filesystem: failed to create default folder")
		}
		rep.Created = append(rep.Created, name)
	}

	entries, err := os.ReadDir(fs.root)
	if err != nil {
		return nil, errors.Wrap(err, "filesystem: failed to read storage root directory")
	}
	rep.ItemCount = len(entries)

	return rep, nil
}
