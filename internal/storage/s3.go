package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ledgerbill/invoice-service/internal/config"
)

// Archive stores rendered invoice documents in an S3 bucket so the exact
// bytes a customer was sent remain retrievable later.
type Archive struct {
	client *s3.Client
	bucket string
	log    *logrus.Logger
}

// NewArchive builds the S3 client from static credentials. A custom
// endpoint switches on path-style addressing for MinIO-compatible stores.
func NewArchive(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*Archive, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKey,
			cfg.S3SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Archive{client: client, bucket: cfg.S3Bucket, log: log}, nil
}

// StoreInvoicePDF uploads one rendered invoice and returns its object
// key. The key carries a fresh UUID so re-renders never overwrite what
// was previously sent out.
func (a *Archive) StoreInvoicePDF(ctx context.Context, userID int64, number string, data []byte) (string, error) {
	key := fmt.Sprintf("invoices/%d/%s_%s.pdf", userID, number, uuid.NewString())

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/pdf"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to archive invoice %s: %w", number, err)
	}

	a.log.Infof("Invoice %s archived as %s", number, key)
	return key, nil
}
