// Package handlers contains the REST request handlers.
package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/apperr"
)

// writeError maps an engine error to an HTTP response. Storage failures are
// logged with their cause but surfaced generically.
func writeError(c *gin.Context, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		log.Printf("unclassified error on %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	switch appErr.Kind {
	case apperr.KindValidation:
		body := gin.H{"error": appErr.Msg}
		if len(appErr.Fields) > 0 {
			body["fields"] = appErr.Fields
		}
		c.JSON(http.StatusBadRequest, body)
	case apperr.KindUnsupportedProvider:
		c.JSON(http.StatusBadRequest, gin.H{"error": appErr.Msg})
	case apperr.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": appErr.Msg})
	case apperr.KindForbidden:
		c.JSON(http.StatusForbidden, gin.H{"error": appErr.Msg})
	case apperr.KindInvalidState:
		c.JSON(http.StatusConflict, gin.H{"error": appErr.Msg})
	case apperr.KindStorage:
		log.Printf("storage error on %s %s: %v", c.Request.Method, c.FullPath(), appErr)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	default:
		log.Printf("unmapped error kind %d on %s %s: %v", appErr.Kind, c.Request.Method, c.FullPath(), appErr)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
