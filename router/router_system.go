package router

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/artera/storaged/system"
)

// Returns basic information about this daemon instance and its configuration.
func (h *Handler) getSystemInformation(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":      "Artera Storage Daemon",
		"status":       "running",
		"version":      system.Version,
		"storage_root": h.fs.Path(),
		"configuration": gin.H{
			"host":         h.cfg.Api.Host,
			"port":         h.cfg.Api.Port,
			"upload_limit": h.cfg.Api.UploadLimit,
		},
	})
}

// Health check: verifies the storage root is still present and reachable.
func (h *Handler) getHealth(c *gin.Context) {
	status := "healthy"
	exists := true
	if st, err := os.Lstat(h.fs.Path()); err != nil || !st.IsDir() {
		status = "degraded"
		exists = false
	}

	code := http.StatusOK
	if !exists {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":              status,
		"storage_root":        h.fs.Path(),
		"storage_root_exists": exists,
	})
}
