package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/jpeg"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/hundred-days/config"
	"github.com/rpupo63/hundred-days/errs"
)

const s3JPEGQuality = 85

// s3PutObjectAPI is satisfied by *s3.Client.
type s3PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader crops images locally and stores them in a bucket that is
// served publicly from baseURL.
type S3Uploader struct {
	client  s3PutObjectAPI
	bucket  string
	baseURL string
	newKey  func() string
	logger  zerolog.Logger
}

func NewS3Uploader(client s3PutObjectAPI, bucket, baseURL string) *S3Uploader {
	return &S3Uploader{
		client:  client,
		bucket:  bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
		newKey: func() string {
			return fmt.Sprintf("%s/%s.jpg", MediaFolder, uuid.NewString())
		},
		logger: log.With().Str("service", "s3").Logger(),
	}
}

// NewS3UploaderFromConfig needs MEDIA_S3_BUCKET and MEDIA_PUBLIC_BASE_URL.
// Credentials and region come from the default AWS chain.
func NewS3UploaderFromConfig(ctx context.Context, cfg map[string]string) (*S3Uploader, error) {
	bucket := config.GetString(cfg, "MEDIA_S3_BUCKET", "")
	if bucket == "" {
		return nil, errs.NewConfigError("MEDIA_S3_BUCKET", errors.New("MEDIA_S3_BUCKET is required for the s3 media backend"))
	}
	baseURL := config.GetString(cfg, "MEDIA_PUBLIC_BASE_URL", "")
	if baseURL == "" {
		return nil, errs.NewConfigError("MEDIA_PUBLIC_BASE_URL", errors.New("MEDIA_PUBLIC_BASE_URL is required for the s3 media backend"))
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if region := config.GetString(cfg, "AWS_REGION", ""); region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errs.NewConfigError("AWS_REGION", fmt.Errorf("load aws config: %w", err))
	}

	return NewS3Uploader(s3.NewFromConfig(awsCfg), bucket, baseURL), nil
}

func (u *S3Uploader) Upload(ctx context.Context, filename string, image io.Reader) (string, error) {
	img, err := imaging.Decode(image, imaging.AutoOrientation(true))
	if err != nil {
		return "", errs.NewUploadError("s3", fmt.Errorf("decode %s: %w", filename, err))
	}
	cropped := imaging.Fill(img, MediaImageWidth, MediaImageHeight, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, cropped, &jpeg.Options{Quality: s3JPEGQuality}); err != nil {
		return "", errs.NewUploadError("s3", fmt.Errorf("encode %s: %w", filename, err))
	}

	key := u.newKey()
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(buf.Bytes()),
		ContentType:   aws.String("image/jpeg"),
		ContentLength: aws.Int64(int64(buf.Len())),
	})
	if err != nil {
		return "", errs.NewUploadError("s3", err)
	}

	u.logger.Info().Str("filename", filename).Str("key", key).Msg("Uploaded image to S3")
	return u.baseURL + "/" + key, nil
}
