package client

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/makeasinger/genqueue/internal/config"
)

const r2Scheme = "r2://"

// signedURLExpiry is how long a presigned audio link stays valid.
const signedURLExpiry = 15 * time.Minute

// R2Store implements AudioStore on Cloudflare R2 through the S3 API.
//
// With a public URL configured, references are CDN URLs. Without one they
// are r2://key and Locate presigns a GET.
type R2Store struct {
	s3Client   *s3.Client
	presigner  *s3.PresignClient
	bucketName string
	publicURL  string
}

// NewR2Store creates a new R2 audio store
func NewR2Store(cfg *config.R2Config) (*R2Store, error) {
	if cfg.AccountID == "" || cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("R2 configuration incomplete")
	}
	if cfg.BucketName == "" {
		return nil, fmt.Errorf("R2 bucket name is required")
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)

	r2Resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: endpoint,
		}, nil
	})

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithEndpointResolverWithOptions(r2Resolver),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg)

	return &R2Store{
		s3Client:   s3Client,
		presigner:  s3.NewPresignClient(s3Client),
		bucketName: cfg.BucketName,
		publicURL:  cfg.PublicURL,
	}, nil
}

// Put uploads body under key
func (s *R2Store) Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	}

	if _, err := s.s3Client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload to R2: %w", err)
	}

	return s.refFor(key), nil
}

// Delete removes the object behind ref
func (s *R2Store) Delete(ctx context.Context, ref string) error {
	key, ok := s.keyOf(ref)
	if !ok {
		return fmt.Errorf("not an R2 audio reference: %s", ref)
	}

	input := &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	}

	if _, err := s.s3Client.DeleteObject(ctx, input); err != nil {
		return fmt.Errorf("failed to delete from R2: %w", err)
	}

	return nil
}

// Locate returns a public URL as-is and presigns private keys
func (s *R2Store) Locate(ctx context.Context, ref string) (string, error) {
	if !strings.HasPrefix(ref, r2Scheme) {
		return ref, nil
	}
	key, _ := s.keyOf(ref)

	input := &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	}

	presignedReq, err := s.presigner.PresignGetObject(ctx, input, s3.WithPresignExpires(signedURLExpiry))
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return presignedReq.URL, nil
}

func (s *R2Store) refFor(key string) string {
	if s.publicURL != "" {
		return fmt.Sprintf("%s/%s", s.publicURL, key)
	}
	return r2Scheme + key
}

func (s *R2Store) keyOf(ref string) (string, bool) {
	if strings.HasPrefix(ref, r2Scheme) {
		return strings.TrimPrefix(ref, r2Scheme), true
	}
	if s.publicURL != "" && strings.HasPrefix(ref, s.publicURL+"/") {
		return strings.TrimPrefix(ref, s.publicURL+"/"), true
	}
	return "", false
}
