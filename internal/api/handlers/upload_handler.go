package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/api/middleware"
	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/storage"
	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/tasks"
)

// IAsynqClient abstracts the asynq client so handler tests can mock
// enqueueing.
type IAsynqClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// RestUploadHandler hands out presigned image upload URLs and queues the
// processing task once the client reports the upload complete.
type RestUploadHandler struct {
	storageService storage.IS3Storage
	taskClient     IAsynqClient
}

// NewRestUploadHandler creates a new RestUploadHandler.
func NewRestUploadHandler(storageService storage.IS3Storage, taskClient IAsynqClient) *RestUploadHandler {
	return &RestUploadHandler{storageService: storageService, taskClient: taskClient}
}

type uploadURLRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

// CreateUploadURL handles POST /v1/uploads.
func (h *RestUploadHandler) CreateUploadURL(c *gin.Context) {
	var req uploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Filename == "" || !strings.HasPrefix(req.ContentType, "image/") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "An image filename and image/* content type are required"})
		return
	}

	ownerID, _ := middleware.CallerIdentity(c)
	uploadURL, objectKey, err := h.storageService.GeneratePresignedPutURL(c.Request.Context(), ownerID, req.Filename, req.ContentType)
	if err != nil {
		log.Printf("failed to generate upload URL for user %s: %v", ownerID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate upload URL"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": gin.H{
		"upload_url": uploadURL,
		"object_key": objectKey,
		"image_url":  h.storageService.PublicURL(objectKey),
	}})
}

type completeUploadRequest struct {
	ObjectKey string `json:"object_key"`
	ListingID int64  `json:"listing_id"`
}

// CompleteUpload handles POST /v1/uploads/complete: the client has PUT the
// object, so queue normalization and attachment to the listing.
func (h *RestUploadHandler) CompleteUpload(c *gin.Context) {
	var req completeUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ObjectKey == "" || req.ListingID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "object_key and listing_id are required"})
		return
	}

	payload, err := json.Marshal(tasks.ImageTaskPayload{
		S3Key:     req.ObjectKey,
		ListingID: req.ListingID,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue image processing"})
		return
	}

	task := asynq.NewTask(tasks.TypeImageProcess, payload)
	if _, err := h.taskClient.EnqueueContext(c.Request.Context(), task, asynq.Queue("images")); err != nil {
		log.Printf("failed to enqueue image processing for listing %d: %v", req.ListingID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue image processing"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"success": true})
}
