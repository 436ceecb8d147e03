package router

import (
	"github.com/gin-gonic/gin"

	"github.com/artera/storaged/config"
	"github.com/artera/storaged/filesystem"
)

// Handler holds the dependencies the HTTP layer dispatches into. Nothing here
// is global: the configuration and filesystem are constructed once at boot and
// passed in.
type Handler struct {
	cfg *config.Configuration
	fs  *filesystem.Filesystem
}

// Configure sets up the routing infrastructure for this daemon instance.
func Configure(cfg *config.Configuration, fs *filesystem.Filesystem) *gin.Engine {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	router.Use(CORS(cfg.Api.CORSOrigins))

	h := &Handler{cfg: cfg, fs: fs}

	router.GET("/api", h.getSystemInformation)
	router.GET("/health", h.getHealth)

	folders := router.Group("/api/folders")
	{
		folders.POST("/create", h.postCreateFolder)
		folders.DELETE("/delete", h.deleteFolder)
	}

	files := router.Group("/api/files")
	{
		files.POST("/upload", h.postUploadFile)
		files.DELETE("/delete", h.deleteFile)
		files.GET("/list", h.getListDirectory)
		files.GET("/tree", h.getTree)
	}

	return router
}
