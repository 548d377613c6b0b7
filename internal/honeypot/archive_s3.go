package honeypot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the subset of the S3 client used by S3ReportArchive.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3ReportArchive exports delivered reports as JSON objects, one per session,
// partitioned by delivery date.
type S3ReportArchive struct {
	bucket string
	client S3API
	now    func() time.Time
}

// NewS3ReportArchive creates an archive writing to bucket.
func NewS3ReportArchive(client S3API, bucket string) *S3ReportArchive {
	return &S3ReportArchive{bucket: bucket, client: client, now: time.Now}
}

func (a *S3ReportArchive) Archive(ctx context.Context, payload CallbackPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("honeypot: marshal report: %w", err)
	}
	key := a.objectKey(payload.SessionID)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("honeypot: s3 put %s: %w", key, err)
	}
	return nil
}

func (a *S3ReportArchive) objectKey(sessionID string) string {
	now := a.now().UTC()
	return fmt.Sprintf("reports/v1/by-date/%d/%02d/%02d/%s.json", now.Year(), now.Month(), now.Day(), sessionID)
}

// MultiArchive copies each report to every archive. One failing archive does
// not stop the others.
type MultiArchive []ReportArchive

func (m MultiArchive) Archive(ctx context.Context, payload CallbackPayload) error {
	var errs []error
	for _, archive := range m {
		if err := archive.Archive(ctx, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ ReportArchive = (*S3ReportArchive)(nil)
	_ ReportArchive = MultiArchive(nil)
)
