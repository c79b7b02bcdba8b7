package gateway

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/chainstash/internal/client/models"
	"github.com/google/uuid"
)

// cidMetadataKey is the object metadata key under which S3-compatible
// pinning services report the content id.
const cidMetadataKey = "cid"

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// objectStore is the subset of *s3.Client used for pinning.
type objectStore interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Config locates an S3-compatible pinning bucket.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

// S3Strategy publishes by uploading to an S3-compatible bucket whose service
// pins objects to IPFS and returns the content id as object metadata.
type S3Strategy struct {
	store    objectStore
	bucket   string
	endpoint string
}

// NewS3Strategy builds an S3 client for cfg.
func NewS3Strategy(ctx context.Context, cfg S3Config) (*S3Strategy, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("error loading s3 config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})

	return &S3Strategy{store: client, bucket: cfg.Bucket, endpoint: cfg.Endpoint}, nil
}

func (s *S3Strategy) Name() string {
	return "s3://" + s.bucket
}

func (s *S3Strategy) Publish(ctx context.Context, src models.FileSource) (string, error) {
	rc, err := src.Open()
	if err != nil {
		return "", fmt.Errorf("error opening %s: %w", src.Name, err)
	}
	defer rc.Close()

	key := uuid.NewString() + "/" + filepath.Base(src.Name)

	_, err = s.store.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          rc,
		ContentLength: aws.Int64(src.Size),
	})
	if err != nil {
		return "", fmt.Errorf("error uploading to %s: %w", s.endpoint, err)
	}

	head, err := s.store.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("error reading object metadata: %w", err)
	}

	id := head.Metadata[cidMetadataKey]
	if id == "" {
		return "", errors.New("bucket did not report a content id")
	}
	return id, nil
}
