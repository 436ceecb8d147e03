package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Creates a folder, including any missing parents, inside the storage root.
// Responds 201 when the folder was created and 200 when it already existed,
// since re-creating an existing folder is a success and not a conflict.
func (h *Handler) postCreateFolder(c *gin.Context) {
	var data struct {
		Path string `json:"path" binding:"required"`
	}
	if err := c.BindJSON(&data); err != nil {
		return
	}

	created, err := h.fs.CreateDirectory(data.Path)
	if err != nil {
		NewTrackedError(err).Abort(c)
		return
	}

	if !created {
		c.JSON(http.StatusOK, gin.H{
			"message": "Folder already exists: " + data.Path,
			"path":    data.Path,
		})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Folder created successfully: " + data.Path,
		"path":    data.Path,
	})
}

// Deletes a folder and everything below it. Destructive and final.
func (h *Handler) deleteFolder(c *gin.Context) {
	var data struct {
		Path string `json:"path" binding:"required"`
	}
	if err := c.BindJSON(&data); err != nil {
		return
	}

	if err := h.fs.DeleteDirectory(data.Path); err != nil {
		NewTrackedError(err).Abort(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Folder deleted successfully: " + data.Path,
		"path":    data.Path,
	})
}
