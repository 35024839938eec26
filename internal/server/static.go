package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// mountStatic serves the board frontend from staticDir. Unknown non-API paths
// fall back to index.html so client-side routes resolve.
func (s *Server) mountStatic() {
	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
	})

	if s.staticDir == "" {
		s.logger.Warn("static directory not configured, serving API only")
		return
	}
	if info, err := os.Stat(s.staticDir); err != nil || !info.IsDir() {
		s.logger.Warn("static directory missing", "path", s.staticDir, "error", err)
		return
	}

	for _, name := range []string{"favicon.ico", "manifest.json"} {
		if path := filepath.Join(s.staticDir, name); fileExists(path) {
			s.engine.StaticFile("/"+name, path)
		}
	}
	if assets := filepath.Join(s.staticDir, "assets"); fileExists(assets) {
		s.engine.StaticFS("/assets", gin.Dir(assets, false))
	}

	index := filepath.Join(s.staticDir, "index.html")
	if !fileExists(index) {
		s.logger.Warn("index.html not found", "path", index)
		return
	}
	s.engine.GET("/", func(c *gin.Context) {
		c.File(index)
	})
	s.engine.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") || c.Request.Method != http.MethodGet {
			c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
			return
		}
		c.File(index)
	})
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
