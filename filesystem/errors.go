package filesystem

import (
	"fmt"

	"emperror.dev/errors"
	"github.com/apex/log"
)

type ErrorCode string

const (
	ErrCodeIsDirectory    ErrorCode = "E_ISDIR"
	ErrCodeNotDirectory   ErrorCode = "E_NOTDIR"
	ErrCodeNotExist       ErrorCode = "E_NOTEXIST"
	ErrCodeConflict       ErrorCode = "E_CONFLICT"
	ErrCodePathResolution ErrorCode = "E_BADPATH"
	ErrCodeUnknownError   ErrorCode = "E_UNKNOWN"
)

type Error struct {
	code ErrorCode
	// The underlying error that triggered this one, if one exists.
	err error
	// The user-provided path that caused the error, and the location it
	// resolved to on the host when that is relevant to the failure.
	path     string
	resolved string
}

// newFilesystemError returns a new error instance with a stack trace associated
// with it at the point this function was called.
func newFilesystemError(code ErrorCode, err error) error {
	if err != nil {
		return errors.WithStackDepth(&Error{code: code, err: err}, 1)
	}
	return errors.WithStackDepth(&Error{code: code}, 1)
}

// NewBadPathResolution returns a new BadPathResolution error for the given path
// and the location it truly resolved to.
func NewBadPathResolution(path string, resolved string) error {
	return errors.WithStackDepth(&Error{code: ErrCodePathResolution, path: path, resolved: resolved}, 1)
}

func (e *Error) Code() ErrorCode {
	return e.code
}

func (e *Error) Error() string {
	switch e.code {
	case ErrCodeIsDirectory:
		return "filesystem: is a directory"
	case ErrCodeNotDirectory:
		return "filesystem: is not a directory"
	case ErrCodeNotExist:
		return "filesystem: does not exist"
	case ErrCodeConflict:
		return "filesystem: item already exists"
	case ErrCodePathResolution:
		r := e.resolved
		if r == "" {
			r = "<empty>"
		}
		return fmt.Sprintf("filesystem: storage path [%s] resolves to a location outside the storage root: %s", e.path, r)
	case ErrCodeUnknownError:
		fallthrough
	default:
		return fmt.Sprintf("filesystem: an error occurred: %s", e.Cause())
	}
}

// Cause returns the underlying cause of this filesystem error, or nil.
func (e *Error) Cause() error {
	return e.err
}

func (e *Error) Unwrap() error {
	return e.err
}

// IsErrorCode checks if the given error is a filesystem error and, if so, that
// it carries the provided error code.
func IsErrorCode(err error, code ErrorCode) bool {
	fserr := &Error{}
	if err != nil && errors.As(err, &fserr) {
		return fserr.code == code
	}
	return false
}

// WrapError wraps any non-filesystem error as an unknown filesystem error,
// attaching the offending path for the logs. Filesystem errors pass through
// untouched so their codes survive for the caller.
func WrapError(err error, path string) error {
	if err == nil || IsFilesystemError(err) {
		return err
	}
	return errors.WithStackDepth(&Error{code: ErrCodeUnknownError, err: err, path: path}, 1)
}

// IsFilesystemError checks if the given error is one of the Error type.
func IsFilesystemError(err error) bool {
	e := &Error{}
	return err != nil && errors.As(err, &e)
}

// Generates an error logger instance with some basic information.
func (fs *Filesystem) error(err error) *log.Entry {
	return log.WithField("subsystem", "filesystem").WithField("root", fs.root).WithField("error", err)
}
