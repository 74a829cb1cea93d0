// Package tasks wires the background workers: moderation emails, listing
// image processing, and the two expiry sweeps.
package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hibiken/asynq"
	"github.com/nfnt/resize"
	"github.com/redis/go-redis/v9"

	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/config"
	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/email"
	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/metrics"
	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/models"
	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/services"
)

// Task types handled by the background workers.
const (
	TypeModerationEmail = "email:moderation"
	TypeImageProcess    = "image:process"
	TypeListingSweep    = "listing:sweep"
	TypePaymentSweep    = "payment:sweep"
)

// NewClient creates an asynq client sharing the application's Redis settings.
func NewClient(rdb *redis.Client) *asynq.Client {
	clientOpt := asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	}
	return asynq.NewClient(clientOpt)
}

// TaskProcessor handles the processing of tasks. It holds the dependencies
// needed by task handlers.
type TaskProcessor struct {
	cfg            *config.Config
	emailSender    email.Sender
	listingService services.IListingService
	paymentService services.IPaymentService
	userService    services.IUserService
	s3Client       *s3.Client
}

// NewTaskProcessor creates a TaskProcessor.
func NewTaskProcessor(
	cfg *config.Config,
	emailSender email.Sender,
	listingService services.IListingService,
	paymentService services.IPaymentService,
	userService services.IUserService,
	s3Client *s3.Client,
) *TaskProcessor {
	return &TaskProcessor{
		cfg:            cfg,
		emailSender:    emailSender,
		listingService: listingService,
		paymentService: paymentService,
		userService:    userService,
		s3Client:       s3Client,
	}
}

// SetupServer configures and runs an Asynq server. Blocks until the server
// stops; callers run it in a goroutine and Shutdown it on exit.
func SetupServer(rdb *redis.Client, processor *TaskProcessor, isBgWorker, isImageWorker bool) *asynq.Server {
	serverOpt := asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	}

	srv := asynq.NewServer(
		serverOpt,
		asynq.Config{
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
				"images":   5,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Printf("[Asynq Error] Task Type: %s, Payload: %s, Error: %v", task.Type(), string(task.Payload()), err)
			}),
		},
	)

	mux := asynq.NewServeMux()

	if isBgWorker {
		mux.HandleFunc(TypeModerationEmail, processor.HandleModerationEmailTask)
		mux.HandleFunc(TypeListingSweep, processor.HandleListingSweepTask)
		mux.HandleFunc(TypePaymentSweep, processor.HandlePaymentSweepTask)
		log.Println("Registered background task handlers (emails & sweeps).")
	}

	if isImageWorker {
		mux.HandleFunc(TypeImageProcess, processor.HandleImageProcessTask)
		log.Println("Registered image processing task handlers.")
	}

	if !isBgWorker && !isImageWorker {
		log.Println("Running in API mode, no task server started.")
		return nil
	}

	go func() {
		if err := srv.Run(mux); err != nil {
			log.Fatalf("Could not run Asynq server: %v", err)
		}
	}()

	return srv
}

// SetupScheduler registers the periodic sweep entries and starts the
// scheduler. Returns the scheduler so callers can Shutdown it on exit.
func SetupScheduler(rdb *redis.Client, cfg *config.Config) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{
			Addr:     rdb.Options().Addr,
			Password: rdb.Options().Password,
			DB:       rdb.Options().DB,
		},
		&asynq.SchedulerOpts{},
	)

	if _, err := scheduler.Register(
		fmt.Sprintf("@every %s", cfg.ListingSweepInterval),
		asynq.NewTask(TypeListingSweep, nil),
	); err != nil {
		return nil, fmt.Errorf("failed to register listing sweep schedule: %w", err)
	}
	if _, err := scheduler.Register(
		fmt.Sprintf("@every %s", cfg.PaymentSweepInterval),
		asynq.NewTask(TypePaymentSweep, nil),
	); err != nil {
		return nil, fmt.Errorf("failed to register payment sweep schedule: %w", err)
	}

	go func() {
		if err := scheduler.Run(); err != nil {
			log.Fatalf("Could not run Asynq scheduler: %v", err)
		}
	}()

	return scheduler, nil
}

// ModerationEmailPayload carries the data for a moderation notification.
// The listing is snapshotted at enqueue time so the email reflects the state
// that triggered it, even if the listing changes again before delivery.
type ModerationEmailPayload struct {
	OwnerID string         `json:"owner_id"`
	Listing models.Listing `json:"listing"`
}

// HandleModerationEmailTask sends a moderation decision email to the listing
// owner.
func (p *TaskProcessor) HandleModerationEmailTask(ctx context.Context, t *asynq.Task) error {
	var payload ModerationEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal moderation email payload: %v: %w", err, asynq.SkipRetry)
	}

	user, err := p.userService.FindByID(ctx, payload.OwnerID)
	if err != nil {
		log.Printf("Owner %s not found for moderation email (listing %d): %v", payload.OwnerID, payload.Listing.ID, err)
		return fmt.Errorf("listing owner not found: %w", asynq.SkipRetry)
	}

	subject, rawMessage := email.BuildModerationEmail(p.cfg.EmailFromAddress, user.Email, &payload.Listing)
	if err := p.emailSender.Send(ctx, []string{user.Email}, subject, rawMessage); err != nil {
		log.Printf("Moderation email sending failed for listing %d (will retry): %v", payload.Listing.ID, err)
		return err
	}
	return nil
}

// ImageTaskPayload carries the data for image normalization.
type ImageTaskPayload struct {
	S3Key     string `json:"s3_key"`
	ListingID int64  `json:"listing_id"`
}

// HandleImageProcessTask downloads an uploaded listing image, enforces the
// size limit, resizes oversized images, re-uploads, and attaches the key to
// the listing.
func (p *TaskProcessor) HandleImageProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload ImageTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal image task payload: %v: %w", err, asynq.SkipRetry)
	}

	log.Printf("Processing image task: S3Key=%s, ListingID=%d", payload.S3Key, payload.ListingID)

	getObjectOutput, err := p.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.cfg.AwsS3Bucket),
		Key:    aws.String(payload.S3Key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			log.Printf("S3 object %s not found, likely upload failed or key incorrect.", payload.S3Key)
			return fmt.Errorf("s3 object not found: %w", asynq.SkipRetry)
		}
		return fmt.Errorf("failed to download image from S3: %w", err)
	}
	defer getObjectOutput.Body.Close()

	imgData, err := io.ReadAll(getObjectOutput.Body)
	if err != nil {
		return fmt.Errorf("failed to read image data for key %s: %w", payload.S3Key, err)
	}

	maxSizeBytes := int64(p.cfg.ImageMaxSizeMB) * 1024 * 1024
	if int64(len(imgData)) > maxSizeBytes {
		log.Printf("Image %s exceeds max size (%d > %d bytes). Skipping.", payload.S3Key, len(imgData), maxSizeBytes)
		return fmt.Errorf("image exceeds max size: %w", asynq.SkipRetry)
	}

	img, format, err := image.Decode(bytes.NewReader(imgData))
	if err != nil {
		log.Printf("Error decoding image for key %s: %v", payload.S3Key, err)
		return fmt.Errorf("unsupported image format or corrupt image: %w", asynq.SkipRetry)
	}
	log.Printf("Decoded image %s, format: %s, size: %dx%d", payload.S3Key, format, img.Bounds().Dx(), img.Bounds().Dy())

	maxDim := uint(p.cfg.ImageMaxDimension)
	needsResize := uint(img.Bounds().Dx()) > maxDim || uint(img.Bounds().Dy()) > maxDim

	processedImageData := imgData
	contentType := aws.ToString(getObjectOutput.ContentType)

	if needsResize {
		resizedImg := resize.Thumbnail(maxDim, maxDim, img, resize.Lanczos3)
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, resizedImg, &jpeg.Options{Quality: 85}); err != nil {
			return fmt.Errorf("failed to re-encode resized image %s: %w", payload.S3Key, err)
		}
		processedImageData = buf.Bytes()
		contentType = "image/jpeg"
		log.Printf("Resized image %s to %dx%d", payload.S3Key, resizedImg.Bounds().Dx(), resizedImg.Bounds().Dy())

		if int64(len(processedImageData)) > maxSizeBytes {
			log.Printf("Resized image %s still exceeds max size. Skipping.", payload.S3Key)
			return fmt.Errorf("resized image still exceeds max size: %w", asynq.SkipRetry)
		}
	}

	_, err = p.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.cfg.AwsS3Bucket),
		Key:         aws.String(payload.S3Key),
		Body:        bytes.NewReader(processedImageData),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload processed image %s: %w", payload.S3Key, err)
	}

	if err := p.listingService.AttachImage(ctx, payload.ListingID, payload.S3Key); err != nil {
		return fmt.Errorf("failed to attach image %s to listing %d: %w", payload.S3Key, payload.ListingID, err)
	}

	log.Printf("Image task processed successfully: Key=%s, ListingID=%d", payload.S3Key, payload.ListingID)
	return nil
}

// HandleListingSweepTask runs the listing expiry sweep.
func (p *TaskProcessor) HandleListingSweepTask(ctx context.Context, t *asynq.Task) error {
	count, err := p.listingService.SweepExpired(ctx)
	if err != nil {
		return fmt.Errorf("listing sweep failed: %w", err)
	}
	metrics.SweepExpiredTotal.WithLabelValues("listing").Add(float64(count))
	return nil
}

// HandlePaymentSweepTask runs the payment expiry sweep.
func (p *TaskProcessor) HandlePaymentSweepTask(ctx context.Context, t *asynq.Task) error {
	count, err := p.paymentService.SweepExpired(ctx)
	if err != nil {
		return fmt.Errorf("payment sweep failed: %w", err)
	}
	metrics.SweepExpiredTotal.WithLabelValues("payment").Add(float64(count))
	return nil
}
