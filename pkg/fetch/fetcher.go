// Package fetch downloads the notebook a job runs.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"nbrunner/pkg/storage"
)

// ErrFetch covers bad statuses and transport failures alike.
var ErrFetch = errors.New("failed to download notebook")

type Fetcher struct {
	client  *http.Client
	objects storage.ClientSource
}

// NewFetcher returns a Fetcher for http(s):// URIs and, when objects is
// non-nil, s3:// URIs.
func NewFetcher(client *http.Client, objects storage.ClientSource) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{client: client, objects: objects}
}

// Fetch writes the document at uri to dest, replacing any existing file.
func (f *Fetcher) Fetch(ctx context.Context, uri, dest string) error {
	var (
		body io.ReadCloser
		err  error
	)
	if storage.IsS3URI(uri) {
		body, err = f.openS3(ctx, uri)
	} else {
		body, err = f.openHTTP(ctx, uri)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer body.Close()

	if err := writeFile(dest, body); err != nil {
		return fmt.Errorf("%w: %v", ErrFetch, err)
	}
	return nil
}

func (f *Fetcher) openHTTP(ctx context.Context, uri string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %s for url: %s", resp.Status, uri)
	}
	return resp.Body, nil
}

func (f *Fetcher) openS3(ctx context.Context, uri string) (io.ReadCloser, error) {
	bucket, key, err := storage.ParseS3URI(uri)
	if err != nil {
		return nil, err
	}
	if f.objects == nil {
		return nil, errors.New("no S3 client configured")
	}
	client, err := f.objects(ctx)
	if err != nil {
		return nil, err
	}
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s from S3: %w", uri, err)
	}
	return out.Body, nil
}

func writeFile(dest string, r io.Reader) error {
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		os.Remove(dest)
		return err
	}
	return out.Close()
}
