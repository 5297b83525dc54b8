package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const pingTimeout = 2 * time.Second

func (s *GalleryAPIServer) mongoConnected(c *gin.Context) bool {
	ctx, cancel := context.WithTimeout(c, pingTimeout)
	defer cancel()

	return s.store.Ping(ctx) == nil
}

// Root reports that the server is up
func (s *GalleryAPIServer) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":          "Server is running",
		"mongoConnection": s.mongoConnected(c),
	})
}

func (s *GalleryAPIServer) Health(c *gin.Context) {
	now := time.Now()

	c.JSON(http.StatusOK, gin.H{
		"uptime":          now.Sub(s.startedAt).Seconds(),
		"timestamp":       now.UnixMilli(),
		"mongoConnection": s.mongoConnected(c),
		"message":         "OK",
		"date":            now.UTC(),
	})
}
