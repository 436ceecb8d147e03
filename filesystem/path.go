package filesystem

import (
	"os"
	"path/filepath"
	"strings"

	"emperror.dev/errors"
)

// SafePath normalizes a caller provided relative path and ensures it cannot be
// used to escape from the storage root. The empty string and "." both address
// the root itself.
//
// Unlike a plain filepath.Clean, any ".." segment in the input is rejected
// outright rather than being lexically cancelled. A path such as
// "foo/../bar" would stay inside the root after cleaning, but if "foo" is a
// symlink pointing elsewhere the kernel would resolve the ".." against the
// link target. Rejecting the segment closes that hole entirely. After joining
// onto the root the result is additionally run through a symlink resolution
// and the resolved location is verified to still live under the root.
func (fs *Filesystem) SafePath(p string) (string, error) {
	if err := checkPathInput(p); err != nil {
		return "", err
	}

	// Start with a cleaned up path before checking the more complex bits.
	r := fs.unsafeFilePath(p)

	// At the same time, evaluate the symlink status and determine where this
	// file or folder is truly pointing to.
	ep, err := filepath.EvalSymlinks(r)
	if err != nil && !os.IsNotExist(err) {
		return "", errors.Wrap(err, "filesystem: failed to evaluate symlink")
	} else if os.IsNotExist(err) {
		// The requested location doesn't exist, so iterate up the path chain
		// until a directory that does exist is found and can be validated.
		parts := strings.Split(filepath.Dir(r), "/")

		var nonExistentPathResolution string
		for k := range parts {
			try := strings.Join(parts[:(len(parts)-k)], "/")

			if !fs.unsafeIsInDataDirectory(try) {
				break
			}

			t, err := filepath.EvalSymlinks(try)
			if err == nil {
				nonExistentPathResolution = t
				break
			}
		}

		// If the first existing ancestor resolves outside the storage root
		// there is an escape attempt going on, refuse to resolve the path.
		if nonExistentPathResolution != "" && !fs.unsafeIsInDataDirectory(nonExistentPathResolution) {
			return "", NewBadPathResolution(p, nonExistentPathResolution)
		}

		// The path requested does not exist but everything that does exist in
		// its ancestry lives in the storage root, so the joined path is safe to
		// hand to a create style operation.
		return r, nil
	}

	// If the requested location resolved by EvalSymlinks still begins with the
	// storage root directory it is safe to operate on.
	if fs.unsafeIsInDataDirectory(ep) {
		return ep, nil
	}

	return "", NewBadPathResolution(p, ep)
}

// lexicalSafePath validates the path input the same way SafePath does but
// skips symlink resolution on the result. Deletion goes through this variant:
// resolving first would turn "delete the symlink" into "delete whatever the
// symlink points at", which is never what the caller asked for.
func (fs *Filesystem) lexicalSafePath(p string) (string, error) {
	if err := checkPathInput(p); err != nil {
		return "", err
	}
	r := fs.unsafeFilePath(p)
	if !fs.unsafeIsInDataDirectory(r) {
		return "", NewBadPathResolution(p, r)
	}
	return r, nil
}

// checkPathInput rejects the raw path inputs that are never acceptable
// regardless of what is on disk: NUL bytes, absolute paths and any ".."
// traversal segment.
func checkPathInput(p string) error {
	if strings.ContainsRune(p, 0x00) {
		return NewBadPathResolution(p, "")
	}
	if isAbsolute(p) {
		return NewBadPathResolution(p, "")
	}
	for _, s := range splitSegments(p) {
		if s == ".." {
			return NewBadPathResolution(p, "")
		}
	}
	return nil
}

// unsafeFilePath joins a cleaned up relative path onto the storage root. This
// DOES NOT guarantee that the result resolves within the root; callers must
// confirm with fs.unsafeIsInDataDirectory.
func (fs *Filesystem) unsafeFilePath(p string) string {
	return filepath.Clean(filepath.Join(fs.Path(), p))
}

// unsafeIsInDataDirectory checks that the path string starts with the storage
// root. It DOES NOT account for symlinks inside the path resolving elsewhere.
func (fs *Filesystem) unsafeIsInDataDirectory(p string) bool {
	return strings.HasPrefix(strings.TrimSuffix(p, "/")+"/", strings.TrimSuffix(fs.Path(), "/")+"/")
}

// isAbsolute reports whether the raw input denotes an absolute location: a
// leading path separator on unix style paths, or a Windows drive letter or UNC
// style prefix. Relative paths only, per the API contract.
func isAbsolute(p string) bool {
	if strings.HasPrefix(p, "/") || strings.HasPrefix(p, "\\") {
		return true
	}
	if len(p) >= 2 && p[1] == ':' {
		c := p[0]
		return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
	}
	return false
}

// splitSegments splits the raw input on both separator styles so that a ".."
// smuggled in with backslashes on a unix host is still caught.
func splitSegments(p string) []string {
	return strings.FieldsFunc(p, func(r rune) bool {
		return r == '/' || r == '\\'
	})
}

// checkFilename validates a name that will become a single path segment, such
// as the filename supplied with an upload. Separators, traversal segments and
// NUL bytes are all rejected since the name is joined onto a directory path.
func checkFilename(name string) error {
	if name == "" || name == "." || name == ".." {
		return NewBadPathResolution(name, "")
	}
	if strings.ContainsAny(name, "/\\") || strings.ContainsRune(name, 0x00) {
		return NewBadPathResolution(name, "")
	}
	return nil
}
