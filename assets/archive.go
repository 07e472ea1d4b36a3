package assets

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"cloud.google.com/go/storage"
	"github.com/krishkalaria12/snap-edit/apperrors"
	"google.golang.org/api/option"
)

// Archiver keeps a copy of uploaded originals and returns a URL the media
// service can ingest from.
type Archiver interface {
	Archive(ctx context.Context, file io.Reader, filename string) (string, error)
}

// GCSArchiver stores originals in a public Google Cloud Storage bucket.
type GCSArchiver struct {
	cl         *storage.Client
	bucketName string
	uploadPath string
	timeout    time.Duration
}

// NewGCSArchiver uses application default credentials. When projectID is
// set, requests are billed to that project.
func NewGCSArchiver(ctx context.Context, projectID, bucketName string, timeout time.Duration) (*GCSArchiver, error) {
	client, err := storage.NewClient(ctx, clientOptions(projectID)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSArchiver{
		cl:         client,
		bucketName: bucketName,
		uploadPath: "originals/",
		timeout:    timeout,
	}, nil
}

func clientOptions(projectID string) []option.ClientOption {
	if projectID == "" {
		return nil
	}
	return []option.ClientOption{option.WithQuotaProject(projectID)}
}

func (a *GCSArchiver) Archive(ctx context.Context, file io.Reader, filename string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	timestamp := strconv.FormatInt(time.Now().UnixNano(), 10)
	objectPath := a.uploadPath + timestamp + "_" + filename

	wc := a.cl.Bucket(a.bucketName).Object(objectPath).NewWriter(ctx)
	if _, err := io.Copy(wc, file); err != nil {
		_ = wc.Close()
		return "", apperrors.External("gcs", "archive", fmt.Errorf("io.Copy: %w", err))
	}
	if err := wc.Close(); err != nil {
		return "", apperrors.External("gcs", "archive", fmt.Errorf("Writer.Close: %w", err))
	}

	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", a.bucketName, objectPath), nil
}

func (a *GCSArchiver) Close() error {
	return a.cl.Close()
}
