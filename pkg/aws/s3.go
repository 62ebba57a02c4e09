package aws

import (
	"bytes"
	"context"
	"fmt"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type uploaderAPI interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Archiver stores raw verified webhook payloads for later replay and audit.
type S3Archiver struct {
	uploader uploaderAPI
	bucket   string
	now      func() time.Time
}

// NewS3Archiver returns an archiver writing into bucket.
func NewS3Archiver(cfg sdkaws.Config, bucket string) *S3Archiver {
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		// LocalStack only serves path-style requests
		o.UsePathStyle = EndpointOverride() != ""
	})
	return &S3Archiver{
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		now:      time.Now,
	}
}

// ArchiveKey builds webhooks/<yyyy>/<mm>/<dd>/<event id>.json.
func ArchiveKey(at time.Time, eventID string) string {
	return fmt.Sprintf("webhooks/%s/%s.json", at.UTC().Format("2006/01/02"), eventID)
}

// Archive uploads payload under the key derived from eventID and the current date.
func (a *S3Archiver) Archive(ctx context.Context, eventID, eventType string, payload []byte) error {
	if eventID == "" {
		return fmt.Errorf("empty event id")
	}
	key := ArchiveKey(a.now(), eventID)
	_, err := a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      sdkaws.String(a.bucket),
		Key:         sdkaws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: sdkaws.String("application/json"),
		Metadata:    map[string]string{"event-type": eventType},
	})
	if err != nil {
		return fmt.Errorf("failed to archive event %s to s3://%s/%s: %w", eventID, a.bucket, key, err)
	}
	return nil
}
