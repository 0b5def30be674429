// Package archive stores fetched food detail documents in an S3-compatible
// bucket, next to the copy kept in the database.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/fdcsync/internal/fdc"
)

// Archiver stores one detail document under key.
type Archiver interface {
	Put(ctx context.Context, key string, body []byte) error
}

// DetailKey is the object key of a food detail document.
func DetailKey(dataType fdc.DataType, fdcID int64) string {
	return "fdc/" + dataType.Slug() + "/" + strconv.FormatInt(fdcID, 10) + ".json"
}

// Nop discards everything. It is used when no bucket is configured.
type Nop struct{}

func (Nop) Put(context.Context, string, []byte) error { return nil }

// S3Config holds the connection settings of the archive bucket.
type S3Config struct {
	Region       string
	AccessKey    string
	SecretKey    string
	BaseEndpoint string
	Bucket       string
	UsePathStyle bool
}

type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) putObjectAPI {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// S3Archiver writes documents with PutObject.
type S3Archiver struct {
	client putObjectAPI
	bucket string
}

// NewS3Archiver builds an S3 client from static credentials. An empty
// BaseEndpoint uses the AWS endpoint of the region.
func NewS3Archiver(ctx context.Context, c S3Config) (*S3Archiver, error) {
	if c.Bucket == "" {
		return nil, errors.New("archive bucket is not set")
	}
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(c.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.AccessKey,
			c.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if c.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(c.BaseEndpoint)
		}
		o.UsePathStyle = c.UsePathStyle
	})
	return &S3Archiver{client: client, bucket: c.Bucket}, nil
}

func (a *S3Archiver) Put(ctx context.Context, key string, body []byte) error {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}
