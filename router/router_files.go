package router

import (
	"net/http"
	"path"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Accepts a multipart upload and stores it in an existing folder inside the
// storage root. The target folder is never created implicitly; a missing
// folder is a 404 so that a typo cannot silently grow the tree. By default an
// existing file of the same name is replaced; pass overwrite=false to get a
// 409 instead.
func (h *Handler) postUploadFile(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error": "The request did not include a file to upload.",
		})
		return
	}

	if limit := int64(h.cfg.Api.UploadLimit) * 1024 * 1024; header.Size > limit {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": "The uploaded file exceeds the maximum size permitted by this instance.",
		})
		return
	}

	folder := c.PostForm("folder_path")
	overwrite := true
	if v := c.PostForm("overwrite"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			overwrite = b
		}
	}

	f, err := header.Open()
	if err != nil {
		NewTrackedError(err).Abort(c)
		return
	}
	defer f.Close()

	st, err := h.fs.WriteFile(folder, header.Filename, f, overwrite)
	if err != nil {
		NewTrackedError(err).Abort(c)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "File uploaded successfully: " + st.Name(),
		"path":    path.Join(folder, st.Name()),
		"item":    st,
	})
}

// Deletes a single file from the storage root.
func (h *Handler) deleteFile(c *gin.Context) {
	p := c.Query("file_path")
	if p == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error": "A file_path query parameter must be provided.",
		})
		return
	}

	if err := h.fs.DeleteFile(p); err != nil {
		NewTrackedError(err).Abort(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "File deleted successfully: " + p,
		"path":    p,
	})
}

// Lists the contents of a directory, the storage root when no path is given.
// Recursive by default, matching the consumers of this API; pass
// recursive=false for direct children only.
func (h *Handler) getListDirectory(c *gin.Context) {
	recursive := true
	if v := c.Query("recursive"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			recursive = b
		}
	}

	items, err := h.fs.ListDirectory(c.Query("path"), recursive)
	if err != nil {
		NewTrackedError(err).Abort(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items":       items,
		"total_count": len(items),
	})
}

// Returns the nested tree view of a directory along with file and folder
// totals for the whole subtree.
func (h *Handler) getTree(c *gin.Context) {
	t, err := h.fs.Tree(c.Query("path"))
	if err != nil {
		NewTrackedError(err).Abort(c)
		return
	}

	c.JSON(http.StatusOK, t)
}
