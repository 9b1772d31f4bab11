package fetch

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nbrunner/pkg/storage"
)

const notebookBody = `{"cells": [], "metadata": {}, "nbformat": 4, "nbformat_minor": 5}`

func TestFetch_HTTPWritesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Write([]byte(notebookBody))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "notebook.ipynb")
	require.NoError(t, os.WriteFile(dest, []byte("stale content that is longer than the new body, stale stale stale stale"), 0644))

	err := NewFetcher(srv.Client(), nil).Fetch(context.Background(), srv.URL+"/nb.ipynb", dest)

	require.NoError(t, err)
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, notebookBody, string(data))
}

func TestFetch_HTTPNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "notebook.ipynb")
	err := NewFetcher(srv.Client(), nil).Fetch(context.Background(), srv.URL+"/missing.ipynb", dest)

	assert.ErrorIs(t, err, ErrFetch)
	assert.Contains(t, err.Error(), "404")
	assert.NoFileExists(t, dest)
}

func TestFetch_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := NewFetcher(nil, nil).Fetch(context.Background(), url+"/nb.ipynb", filepath.Join(t.TempDir(), "nb.ipynb"))

	assert.ErrorIs(t, err, ErrFetch)
}

func TestFetch_InvalidURL(t *testing.T) {
	err := NewFetcher(nil, nil).Fetch(context.Background(), "://nope", filepath.Join(t.TempDir(), "nb.ipynb"))

	assert.ErrorIs(t, err, ErrFetch)
}

type getOnly struct {
	objects map[string]string
	err     error
}

func (g getOnly) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if g.err != nil {
		return nil, g.err
	}
	body, ok := g.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewBufferString(body))}, nil
}

func (g getOnly) PutObject(context.Context, *s3.PutObjectInput, ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	return nil, errors.New("read only")
}

func source(api storage.ObjectAPI) storage.ClientSource {
	return func(context.Context) (storage.ObjectAPI, error) { return api, nil }
}

func TestFetch_S3(t *testing.T) {
	api := getOnly{objects: map[string]string{"notebooks/etl/daily.ipynb": notebookBody}}
	dest := filepath.Join(t.TempDir(), "notebook.ipynb")

	err := NewFetcher(nil, source(api)).Fetch(context.Background(), "s3://notebooks/etl/daily.ipynb", dest)

	require.NoError(t, err)
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, notebookBody, string(data))
}

func TestFetch_S3Errors(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "notebook.ipynb")

	err := NewFetcher(nil, source(getOnly{})).Fetch(context.Background(), "s3://notebooks/missing.ipynb", dest)
	assert.ErrorIs(t, err, ErrFetch)
	assert.Contains(t, err.Error(), "NoSuchKey")

	err = NewFetcher(nil, nil).Fetch(context.Background(), "s3://notebooks/etl/daily.ipynb", dest)
	assert.ErrorIs(t, err, ErrFetch)

	failing := func(context.Context) (storage.ObjectAPI, error) { return nil, errors.New("no credentials") }
	err = NewFetcher(nil, failing).Fetch(context.Background(), "s3://notebooks/etl/daily.ipynb", dest)
	assert.ErrorIs(t, err, ErrFetch)
	assert.Contains(t, err.Error(), "no credentials")

	err = NewFetcher(nil, source(getOnly{})).Fetch(context.Background(), "s3://bucket-only", dest)
	assert.ErrorIs(t, err, ErrFetch)
}
