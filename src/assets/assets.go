package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"

	"git.handmade.network/hmn/syllabus/src/config"
	"git.handmade.network/hmn/syllabus/src/oops"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// Storage talks to the bucket that holds syllabus files. Objects are private;
// the website streams them to viewers who pass the access check.
type Storage struct {
	client *s3.Client
	bucket string
}

func NewStorage(cfg config.StorageConfig) (*Storage, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.Key, cfg.Secret, ""),
		),
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithEndpointResolver(aws.EndpointResolverFunc(func(service, region string) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL: cfg.Endpoint,
			}, nil
		})),
	)
	if err != nil {
		return nil, oops.New(err, "failed to load storage config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	return &Storage{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

var ErrNoSuchObject = errors.New("no such object in storage")

func isAPIError(err error, code string) bool {
	var apiError smithy.APIError
	return errors.As(err, &apiError) && apiError.ErrorCode() == code
}

// Uploads an object, creating the bucket first if it does not exist yet.
func (s *Storage) PutObject(ctx context.Context, key string, content []byte, contentType string) error {
	upload := func() error {
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      &s.bucket,
			Key:         &key,
			Body:        bytes.NewReader(content),
			ContentType: &contentType,
		})
		return err
	}

	err := upload()
	if err != nil {
		if isAPIError(err, "NoSuchBucket") {
			_, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{
				Bucket: &s.bucket,
			})
			if err != nil {
				return oops.New(err, "failed to create bucket %s", s.bucket)
			}

			err = upload()
			if err != nil {
				return oops.New(err, "failed to upload object")
			}
		} else {
			return oops.New(err, "failed to upload object")
		}
	}

	return nil
}

func (s *Storage) GetObject(ctx context.Context, key string) (io.ReadCloser, error) {
	res, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		if isAPIError(err, "NoSuchKey") || isAPIError(err, "NoSuchBucket") {
			return nil, ErrNoSuchObject
		}
		return nil, oops.New(err, "failed to get object %s", key)
	}
	return res.Body, nil
}

func (s *Storage) DeleteObject(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		return oops.New(err, "failed to delete object %s", key)
	}
	return nil
}

var REIllegalFilenameChars = regexp.MustCompile(`[^\w\-.]`)

func SanitizeFilename(filename string) string {
	if filename == "" {
		return "unnamed"
	}
	return REIllegalFilenameChars.ReplaceAllString(filename, "_")
}

func AssetKey(id, filename string) string {
	return fmt.Sprintf("%s/%s", id, filename)
}
