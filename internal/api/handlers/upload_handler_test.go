package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/api/handlers"
	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/models"
	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/tasks"
)

func newUploadRouter(storageSvc *MockS3Storage, client *MockAsynqClient) *gin.Engine {
	r := gin.New()
	h := handlers.NewRestUploadHandler(storageSvc, client)
	r.Use(identity("user-1", models.RoleUser))
	r.POST("/uploads", h.CreateUploadURL)
	r.POST("/uploads/complete", h.CompleteUpload)
	return r
}

func TestCreateUploadURL_Created(t *testing.T) {
	storageSvc := new(MockS3Storage)
	client := new(MockAsynqClient)
	router := newUploadRouter(storageSvc, client)

	storageSvc.On("GeneratePresignedPutURL", mock.Anything, "user-1", "photo.jpg", "image/jpeg").
		Return("https://bucket.s3.amazonaws.com/presigned", "listings/user-1/abc_photo.jpg", nil)
	storageSvc.On("PublicURL", "listings/user-1/abc_photo.jpg").
		Return("https://cdn.example.com/listings/user-1/abc_photo.jpg")

	w := doJSON(router, http.MethodPost, "/uploads", gin.H{
		"filename":     "photo.jpg",
		"content_type": "image/jpeg",
	})

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "presigned")
	assert.Contains(t, w.Body.String(), "cdn.example.com")
	storageSvc.AssertExpectations(t)
}

func TestCreateUploadURL_RejectsNonImage(t *testing.T) {
	storageSvc := new(MockS3Storage)
	client := new(MockAsynqClient)
	router := newUploadRouter(storageSvc, client)

	w := doJSON(router, http.MethodPost, "/uploads", gin.H{
		"filename":     "malware.exe",
		"content_type": "application/octet-stream",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	storageSvc.AssertNotCalled(t, "GeneratePresignedPutURL", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCompleteUpload_EnqueuesImageTask(t *testing.T) {
	storageSvc := new(MockS3Storage)
	client := new(MockAsynqClient)
	router := newUploadRouter(storageSvc, client)

	client.On("EnqueueContext", mock.Anything, mock.MatchedBy(func(task *asynq.Task) bool {
		if task.Type() != tasks.TypeImageProcess {
			return false
		}
		var payload tasks.ImageTaskPayload
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return false
		}
		return payload.S3Key == "listings/user-1/abc_photo.jpg" && payload.ListingID == 42
	}), mock.Anything).Return(&asynq.TaskInfo{}, nil)

	w := doJSON(router, http.MethodPost, "/uploads/complete", gin.H{
		"object_key": "listings/user-1/abc_photo.jpg",
		"listing_id": 42,
	})

	require.Equal(t, http.StatusAccepted, w.Code)
	client.AssertExpectations(t)
}

func TestCompleteUpload_MissingFields(t *testing.T) {
	storageSvc := new(MockS3Storage)
	client := new(MockAsynqClient)
	router := newUploadRouter(storageSvc, client)

	w := doJSON(router, http.MethodPost, "/uploads/complete", gin.H{"object_key": ""})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	client.AssertNotCalled(t, "EnqueueContext", mock.Anything, mock.Anything, mock.Anything)
}
