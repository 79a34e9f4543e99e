package s3

import (
	"bytes"
	"context"
	"fmt"
	qr "github.com/Badsnus/qr-studio/pkg/qrcode"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"strings"
	"time"
)

const requestTimeout = 30 * time.Second

type Options struct {
	Endpoint        string // S3 compatible endpoint, empty for AWS
	Region          string
	Bucket          string
	Prefix          string // Key prefix of exported files
	AccessKeyID     string
	SecretAccessKey string
	PublicURL       string // Base URL objects are served from, if any
}

// Storage keeps exported QR code files in an S3 compatible bucket.
type Storage struct {
	client *s3.Client
	opts   Options
}

func NewStorage(opts Options) (*Storage, error) {
	if opts.Region == "" {
		opts.Region = "auto"
	}
	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKeyID,
			opts.SecretAccessKey,
			"",
		)),
		config.WithRegion(opts.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &Storage{client: client, opts: opts}, nil
}

func (s *Storage) key(name string) string {
	if s.opts.Prefix == "" {
		return name
	}
	return strings.TrimRight(s.opts.Prefix, "/") + "/" + name
}

// Save uploads file and returns where it can be fetched.
func (s *Storage) Save(file *qr.File) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	key := s.key(file.Name)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.opts.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(file.Data),
		ContentLength: aws.Int64(int64(len(file.Data))),
		ContentType:   aws.String(file.Format.MIME()),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	if s.opts.PublicURL != "" {
		return strings.TrimRight(s.opts.PublicURL, "/") + "/" + key, nil
	}
	return fmt.Sprintf("s3://%s/%s", s.opts.Bucket, key), nil
}

// Delete removes every exported format of the QR code id.
func (s *Storage) Delete(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	for _, format := range qr.Formats {
		_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.opts.Bucket),
			Key:    aws.String(s.key(qr.FileName(id, format))),
		})
		if err != nil {
			return err
		}
	}
	return nil
}
