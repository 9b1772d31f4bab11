package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const notebookContentType = "application/x-ipynb+json"

// Publisher copies the executed notebook out of the workspace.
type Publisher struct {
	objects ClientSource
}

func NewPublisher(objects ClientSource) *Publisher {
	return &Publisher{objects: objects}
}

// Publish copies localPath to dest, an s3:// URI or a filesystem path
// (optionally file://). It returns the location written.
func (p *Publisher) Publish(ctx context.Context, localPath, dest string) (string, error) {
	var (
		location string
		err      error
	)
	if IsS3URI(dest) {
		location, err = p.putS3(ctx, localPath, dest)
	} else {
		location, err = copyLocal(localPath, strings.TrimPrefix(dest, "file://"))
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPublish, err)
	}
	return location, nil
}

func (p *Publisher) putS3(ctx context.Context, localPath, dest string) (string, error) {
	bucket, key, err := ParseS3URI(dest)
	if err != nil {
		return "", err
	}
	if p.objects == nil {
		return "", fmt.Errorf("no S3 client configured")
	}
	client, err := p.objects(ctx)
	if err != nil {
		return "", err
	}

	f, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(notebookContentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	return fmt.Sprintf("s3://%s/%s", bucket, key), nil
}

func copyLocal(localPath, dest string) (string, error) {
	if dest == "" {
		return "", fmt.Errorf("%w: empty destination", ErrInvalidURI)
	}
	src, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	out, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return dest, nil
}
