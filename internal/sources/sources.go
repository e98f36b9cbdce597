// Package sources resolves a document to submit (local file, byte stream,
// S3 object) into bytes plus a detected content type.
package sources

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
)

// Document is a fully resolved submission payload.
type Document struct {
	Data        []byte
	ContentType string
	Filename    string
}

// FromFile reads a local file and detects its content type from magic
// bytes rather than the filename.
func FromFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return &Document{
		Data:        data,
		ContentType: mimetype.Detect(data).String(),
		Filename:    filepath.Base(path),
	}, nil
}

// FromReader buffers a stream fully and detects its content type.
func FromReader(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read document stream: %w", err)
	}
	return &Document{
		Data:        data,
		ContentType: mimetype.Detect(data).String(),
	}, nil
}

// FromS3 downloads an object using the ambient AWS credential chain.
func FromS3(ctx context.Context, bucket, key string) (*Document, error) {
	cfg, err := awscfg.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	cli := s3.NewFromConfig(cfg)
	buf := manager.NewWriteAtBuffer([]byte{})
	dl := manager.NewDownloader(cli)
	if _, err := dl.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}); err != nil {
		return nil, fmt.Errorf("download s3://%s/%s: %w", bucket, key, err)
	}

	data := buf.Bytes()
	return &Document{
		Data:        data,
		ContentType: mimetype.Detect(data).String(),
		Filename:    filepath.Base(key),
	}, nil
}
