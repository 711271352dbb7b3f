package blob

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const defaultPresignTTL = time.Hour

// S3Config points the client at an S3-compatible endpoint. Path-style
// addressing is always used so MinIO deployments work out of the box.
type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
}

// S3Store implements Store against any S3-compatible object store.
type S3Store struct {
	client  *s3.Client
	presign *s3.PresignClient
}

var _ Store = (*S3Store)(nil)

// NewS3Store builds the S3 client from static credentials.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("object store endpoint is required")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithBaseEndpoint(cfg.Endpoint),
		awsconfig.WithCredentialsProvider(credentials.StaticCredentialsProvider{
			Value: aws.Credentials{
				AccessKeyID:     cfg.AccessKey,
				SecretAccessKey: cfg.SecretKey,
			},
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("load object store config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) { o.UsePathStyle = true })
	return &S3Store{
		client:  client,
		presign: s3.NewPresignClient(client),
	}, nil
}

func (s *S3Store) Upload(ctx context.Context, bucket, directory, filename, contentType string, body []byte) (ObjectInfo, error) {
	key, err := randomObjectPath(directory, filename)
	if err != nil {
		return ObjectInfo{}, err
	}
	input := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return ObjectInfo{}, fmt.Errorf("upload object %s/%s: %w", bucket, key, err)
	}
	return ObjectInfo{
		BucketName: bucket,
		Path:       key,
		SizeInByte: int64(len(body)),
		Mimetype:   contentType,
	}, nil
}

func (s *S3Store) PresignedPutURL(ctx context.Context, bucket, requestedPath string, ttl time.Duration) (PresignedUpload, error) {
	if ttl <= 0 {
		ttl = defaultPresignTTL
	}
	key, err := randomObjectPath("", requestedPath)
	if err != nil {
		return PresignedUpload{}, err
	}
	request, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return PresignedUpload{}, fmt.Errorf("presign put %s/%s: %w", bucket, key, err)
	}
	return PresignedUpload{
		URL:       request.URL,
		Path:      key,
		ExpiresAt: time.Now().UTC().Add(ttl),
	}, nil
}

func (s *S3Store) PresignedGetURL(ctx context.Context, bucket, objectPath string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = defaultPresignTTL
	}
	request, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(objectPath),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("presign get %s/%s: %w", bucket, objectPath, err)
	}
	return request.URL, nil
}
