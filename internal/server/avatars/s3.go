// Package avatars stores user avatar images in an S3-compatible object
// store and resolves their public URLs.
package avatars

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Store persists avatar images. Upload returns the public URL of the stored
// object; Delete removes a previously uploaded object by that URL.
type Store interface {
	Upload(ctx context.Context, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, avatarURL string) error
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// S3Store implements Store over an S3-compatible backend (MinIO in dev).
type S3Store struct {
	user         string
	password     string
	bucket       string
	region       string
	baseEndpoint string
}

func NewS3Store(user, password, bucket, region, baseEndpoint string) *S3Store {
	return &S3Store{
		user:         user,
		password:     password,
		bucket:       bucket,
		region:       region,
		baseEndpoint: strings.TrimSuffix(baseEndpoint, "/"),
	}
}

func randomStorageKey() string {
	d := time.Now()
	return fmt.Sprintf("avatars/%d/%d/%d/%v", d.Year(), d.Month(), d.Day(), uuid.New())
}

func (s *S3Store) getClient(ctx context.Context) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.user,
			s.password,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.baseEndpoint)
		o.UsePathStyle = true
	})

	return client, nil
}

func (s *S3Store) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	client, err := s.getClient(ctx)
	if err != nil {
		return "", err
	}

	key := randomStorageKey()

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put error: %w", err)
	}

	return fmt.Sprintf("%s/%s/%s", s.baseEndpoint, s.bucket, key), nil
}

func (s *S3Store) Delete(ctx context.Context, avatarURL string) error {
	key, err := s.keyFromURL(avatarURL)
	if err != nil {
		return err
	}

	client, err := s.getClient(ctx)
	if err != nil {
		return err
	}

	_, err = client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete error: %w", err)
	}
	return nil
}

// keyFromURL extracts the object key from a path-style URL produced by
// Upload.
func (s *S3Store) keyFromURL(avatarURL string) (string, error) {
	u, err := url.Parse(avatarURL)
	if err != nil {
		return "", fmt.Errorf("invalid avatar url: %w", err)
	}

	prefix := "/" + s.bucket + "/"
	if !strings.HasPrefix(u.Path, prefix) {
		return "", fmt.Errorf("avatar url %q is not in bucket %q", avatarURL, s.bucket)
	}
	return strings.TrimPrefix(u.Path, prefix), nil
}
