// Package storage issues presigned upload URLs for post images stored in an
// S3-compatible bucket (Cloudflare R2 in production).
package storage

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/ErlanBelekov/blog-cms/internal/domain"
)

// UploadURLTTL is how long a presigned PUT stays usable.
const UploadURLTTL = 60 * time.Second

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Presigner is the part of *s3.PresignClient the uploader needs.
type Presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

type Config struct {
	AccountID       string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	PublicBaseURL   string
}

// Upload is returned to the client: it PUTs the file to UploadURL and then
// references it by PublicURL.
type Upload struct {
	UploadURL string `json:"uploadUrl"`
	PublicURL string `json:"publicUrl"`
	Key       string `json:"key"`
}

type Uploader struct {
	presigner  Presigner
	bucket     string
	publicBase string
	now        func() time.Time
	newID      func() string
}

func NewUploader(presigner Presigner, bucket, publicBaseURL string) *Uploader {
	return &Uploader{
		presigner:  presigner,
		bucket:     bucket,
		publicBase: strings.TrimRight(publicBaseURL, "/"),
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// NewR2Uploader builds an Uploader backed by an R2 (or any S3-compatible)
// endpoint. Endpoint defaults to the account's R2 URL.
func NewR2Uploader(ctx context.Context, cfg Config) (*Uploader, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})

	return NewUploader(s3.NewPresignClient(client), cfg.Bucket, cfg.PublicBaseURL), nil
}

// PresignPut returns a short-lived PUT URL for a new object named after
// filename. A nil Uploader reports domain.ErrStorageNotConfigured.
func (u *Uploader) PresignPut(ctx context.Context, filename, contentType string) (*Upload, error) {
	if u == nil {
		return nil, domain.ErrStorageNotConfigured
	}

	key := u.objectKey(filename)
	req, err := u.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(UploadURLTTL))
	if err != nil {
		return nil, fmt.Errorf("presign put: %w", err)
	}

	return &Upload{
		UploadURL: req.URL,
		PublicURL: u.publicBase + "/" + key,
		Key:       key,
	}, nil
}

func (u *Uploader) objectKey(filename string) string {
	name := unsafeKeyChars.ReplaceAllString(path.Base(strings.ReplaceAll(filename, `\`, "/")), "-")
	name = strings.Trim(name, "-.")
	if name == "" {
		name = "upload"
	}
	return fmt.Sprintf("%d-%s-%s", u.now().UnixMilli(), u.newID(), name)
}
