package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// R2Config holds the settings for the R2 snapshot archive.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Region          string
}

// R2Archiver stores snapshots in Cloudflare R2. R2 is S3-compatible, so we
// use the AWS SDK v2 with custom endpoint configuration.
type R2Archiver struct {
	client     *s3.Client
	bucketName string
	logger     *slog.Logger
}

// NewR2Archiver creates an R2Archiver.
//
// The R2 endpoint URL is constructed from the account ID.
func NewR2Archiver(cfg R2Config, logger *slog.Logger) (*R2Archiver, error) {
	// Default region for R2
	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	// Format: https://{account_id}.r2.cloudflarestorage.com
	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)

	creds := credentials.NewStaticCredentialsProvider(
		cfg.AccessKeyID,
		cfg.SecretAccessKey,
		"", // session token not needed for R2
	)

	customResolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:           endpoint,
				SigningRegion: region,
			}, nil
		},
	)

	awsCfg := aws.Config{
		Region:                      region,
		Credentials:                 creds,
		EndpointResolverWithOptions: customResolver,
	}

	client := s3.NewFromConfig(awsCfg)

	logger.Info("initialized R2 snapshot archive",
		"bucket", cfg.BucketName,
		"endpoint", endpoint,
	)

	return &R2Archiver{
		client:     client,
		bucketName: cfg.BucketName,
		logger:     logger,
	}, nil
}

// Put stores a snapshot, refusing to overwrite an existing one.
func (a *R2Archiver) Put(ctx context.Context, key string, data []byte) error {
	exists, err := a.exists(ctx, key)
	if err != nil {
		return &ArchiveError{Op: "put", Key: key, Err: err}
	}
	if exists {
		return &ArchiveError{Op: "put", Key: key, Err: errors.New("snapshot already exists")}
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return &ArchiveError{Op: "put", Key: key, Err: err}
	}
	return nil
}

// Get retrieves a stored snapshot.
func (a *R2Archiver) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, &ArchiveError{Op: "get", Key: key, Err: err}
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, &ArchiveError{Op: "get", Key: key, Err: err}
	}
	return data, nil
}

// List returns the snapshot keys under a prefix, oldest first. Object keys
// embed their timestamp, so S3's lexical listing order is chronological.
func (a *R2Archiver) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string

	paginator := s3.NewListObjectsV2Paginator(a.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(a.bucketName),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, &ArchiveError{Op: "list", Key: prefix, Err: err}
		}
		for _, obj := range page.Contents {
			if obj.Key != nil {
				keys = append(keys, *obj.Key)
			}
		}
	}
	return keys, nil
}

func (a *R2Archiver) exists(ctx context.Context, key string) (bool, error) {
	_, err := a.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// isNotFound classifies S3 "missing object" errors.
func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
