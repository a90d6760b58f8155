package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/saransh1220/notification-service/internal/modules/notification/domain"
)

// ArchiveConfig points the archive at AWS S3 or, with Endpoint set, MinIO.
type ArchiveConfig struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// S3Archive writes every event as a JSON object, one per event id.
type S3Archive struct {
	client *s3.Client
	cfg    ArchiveConfig
}

var _ domain.EventSink = (*S3Archive)(nil)

func NewS3Archive(ctx context.Context, cfg ArchiveConfig) (*S3Archive, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	var awsCfg aws.Config
	var err error
	if cfg.Endpoint != "" {
		awsCfg, err = config.LoadDefaultConfig(ctx,
			config.WithRegion(cfg.Region),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		)
	} else {
		awsCfg, err = config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			endpoint := cfg.Endpoint
			if !cfg.UseSSL && !hasHTTPPrefix(endpoint) {
				endpoint = "http://" + endpoint
			}
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Archive{client: client, cfg: cfg}, nil
}

// ObjectKey lays events out as <prefix>/<topic>/yyyy/mm/dd/<event id>.json.
func (a *S3Archive) ObjectKey(topic string, e domain.Event) string {
	day := e.OccurredAt.UTC().Format("2006/01/02")
	return path.Join(a.cfg.Prefix, topic, day, e.EventID+".json")
}

func (a *S3Archive) Publish(ctx context.Context, topic string, event domain.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.cfg.Bucket),
		Key:         aws.String(a.ObjectKey(topic, event)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to archive event: %w", err)
	}
	return nil
}

func hasHTTPPrefix(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
