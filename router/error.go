package router

import (
	"fmt"
	"net/http"
	"os"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/artera/storaged/filesystem"
)

type RequestError struct {
	err     error
	uuid    string
	message string
}

// NewTrackedError generates a new tracked error, which simply tracks the
// specific error that is being passed in, and also assigns a UUID to the error
// so that it can be cross referenced in the logs.
func NewTrackedError(err error) *RequestError {
	return &RequestError{
		err:  err,
		uuid: uuid.Must(uuid.NewRandom()).String(),
	}
}

func (e *RequestError) logger() *log.Entry {
	return log.WithField("error_id", e.uuid)
}

// SetMessage sets the output message to display to the user in the error.
func (e *RequestError) SetMessage(msg string) *RequestError {
	e.message = msg
	return e
}

// AbortWithStatus aborts the request with the given status code and responds
// with the error. Filesystem failure kinds are translated to their proper
// statuses before the fallback status applies. Responses for unclassified
// errors include the error UUID so a report can be linked to the full detail
// in the logs; the detail itself never leaves the process.
func (e *RequestError) AbortWithStatus(status int, c *gin.Context) {
	// In instances where the status has already been set just use that
	// existing status since we cannot change it at this point.
	if c.Writer.Status() != 200 {
		status = c.Writer.Status()
	}

	// A filesystem error is a normal outcome the caller can fix on their end;
	// map it onto the right status without any of the tracking noise.
	if st, msg := e.asFilesystemError(); st != 0 {
		c.AbortWithStatusJSON(st, gin.H{"error": msg})
		return
	}

	if status >= 500 {
		e.logger().WithField("error", e.err).Error("unexpected error while handling HTTP request")
	} else {
		e.logger().WithField("error", e.err).Debug("non-server error encountered while handling HTTP request")
	}

	if e.message == "" {
		e.message = "An unexpected error was encountered while processing this request."
	}

	c.AbortWithStatusJSON(status, gin.H{"error": e.message, "error_id": e.uuid})
}

// Abort aborts with an internal server error. This is generally the response
// from most errors encountered by the API.
func (e *RequestError) Abort(c *gin.Context) {
	e.AbortWithStatus(http.StatusInternalServerError, c)
}

// asFilesystemError looks at the wrapped error and determines if it is a
// specific filesystem failure kind that can be returned differently for the
// user.
func (e *RequestError) asFilesystemError() (int, string) {
	err := e.err
	if err == nil {
		return 0, ""
	}
	if filesystem.IsErrorCode(err, filesystem.ErrCodePathResolution) {
		return http.StatusBadRequest, "The requested path is invalid: only relative paths that stay inside the storage root are accepted."
	}
	if filesystem.IsErrorCode(err, filesystem.ErrCodeNotExist) || errors.Is(err, os.ErrNotExist) {
		return http.StatusNotFound, "The requested resource was not found on the system."
	}
	if filesystem.IsErrorCode(err, filesystem.ErrCodeConflict) {
		return http.StatusConflict, "An item already exists at the requested location."
	}
	if filesystem.IsErrorCode(err, filesystem.ErrCodeIsDirectory) {
		return http.StatusBadRequest, "The requested path is a folder, not a file."
	}
	if filesystem.IsErrorCode(err, filesystem.ErrCodeNotDirectory) {
		return http.StatusBadRequest, "The requested path is not a folder."
	}
	return 0, ""
}

// Error formats the error to a string and includes the UUID.
func (e *RequestError) Error() string {
	return fmt.Sprintf("%v (uuid: %s)", e.err, e.uuid)
}
