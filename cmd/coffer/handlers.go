package main

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/coffer-io/coffer/internal/storage"
	"github.com/coffer-io/coffer/pkg/types"
)

// requestIDMiddleware assigns every request an ID, echoed in the
// X-Request-ID response header and in the response envelope.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", c.GetString("request_id")).
			Msg("request handled")
	}
}

func handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, types.APIResponse{
			Success: true,
			Message: "ok",
		})
	}
}

func handleUpload(client *storage.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := objectPath(c)
		if path == "" {
			respondError(c, http.StatusBadRequest, "object path is required")
			return
		}
		overwrite := c.Query("overwrite") == "true"

		ref, err := client.SaveObject(c.Request.Context(), c.Request.Body, path, overwrite)
		if err != nil {
			respondError(c, statusFromError(err), err.Error())
			return
		}

		c.JSON(http.StatusCreated, types.APIResponse{
			Success:   true,
			Message:   "object stored",
			RequestID: c.GetString("request_id"),
			Data:      ref,
		})
	}
}

func handleDownload(client *storage.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := objectPath(c)
		data, err := client.ReadAll(c.Request.Context(), path)
		if err != nil {
			respondError(c, statusFromError(err), err.Error())
			return
		}
		c.Data(http.StatusOK, "application/octet-stream", data)
	}
}

func handleExists(client *storage.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := objectPath(c)
		exists, err := client.Exists(c.Request.Context(), path)
		if err != nil {
			c.Status(http.StatusBadGateway)
			return
		}
		if !exists {
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusOK)
	}
}

func handleDelete(client *storage.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := objectPath(c)
		gone, err := client.DeleteObject(c.Request.Context(), path)
		if err != nil {
			respondError(c, statusFromError(err), err.Error())
			return
		}

		c.JSON(http.StatusOK, types.APIResponse{
			Success:   true,
			Message:   "object deleted",
			RequestID: c.GetString("request_id"),
			Data:      gin.H{"gone": gone},
		})
	}
}

func handleStat(client *storage.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := objectPath(c)
		size, err := client.Size(c.Request.Context(), path)
		if err != nil {
			respondError(c, statusFromError(err), err.Error())
			return
		}

		c.JSON(http.StatusOK, types.APIResponse{
			Success:   true,
			RequestID: c.GetString("request_id"),
			Data:      types.ObjectInfo{Path: path, Size: size},
		})
	}
}

func handleList(client *storage.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		prefix := c.Query("prefix")
		paths, err := client.List(c.Request.Context(), prefix)
		if err != nil {
			respondError(c, statusFromError(err), err.Error())
			return
		}

		c.JSON(http.StatusOK, types.APIResponse{
			Success:   true,
			RequestID: c.GetString("request_id"),
			Data:      paths,
		})
	}
}

func objectPath(c *gin.Context) string {
	return strings.TrimPrefix(c.Param("path"), "/")
}

func statusFromError(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrAlreadyExists):
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

func respondError(c *gin.Context, status int, msg string) {
	c.JSON(status, types.APIResponse{
		Success:   false,
		Error:     msg,
		RequestID: c.GetString("request_id"),
	})
}
