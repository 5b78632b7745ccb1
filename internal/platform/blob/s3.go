package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/phrazzld/inkpipe/internal/config"
	"github.com/phrazzld/inkpipe/internal/generation"
	"github.com/phrazzld/inkpipe/internal/platform/logger"
	"github.com/phrazzld/inkpipe/internal/task"
)

// MaxObjectBytes caps the size of a downloaded image.
const MaxObjectBytes = 25 << 20

var (
	// ErrObjectNotFound is returned when the key does not exist in the bucket.
	ErrObjectNotFound = errors.New("blob object not found")

	// ErrObjectTooLarge is returned when an object exceeds MaxObjectBytes.
	ErrObjectTooLarge = errors.New("blob object too large")
)

// objectGetter is the part of *s3.Client the store needs.
type objectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Store downloads ink images and implements task.ImageSource.
type S3Store struct {
	client       objectGetter
	bucket       string
	timeout      time.Duration
	maxImageEdge int
	logger       *slog.Logger
}

var _ task.ImageSource = (*S3Store)(nil)

// NewS3Store builds an S3 client from the default AWS credential chain and
// cfg. A custom endpoint selects an S3-compatible service such as MinIO.
func NewS3Store(ctx context.Context, cfg config.BlobConfig, logger *slog.Logger) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return newS3Store(client, cfg, logger), nil
}

func newS3Store(client objectGetter, cfg config.BlobConfig, logger *slog.Logger) *S3Store {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.DownloadTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	maxEdge := cfg.MaxImageEdge
	if maxEdge <= 0 {
		maxEdge = DefaultMaxImageEdge
	}
	return &S3Store{
		client:       client,
		bucket:       cfg.Bucket,
		timeout:      timeout,
		maxImageEdge: maxEdge,
		logger:       logger.With(slog.String("component", "blob_store")),
	}
}

// Get downloads the object at key and returns its bytes and content type.
func (s *S3Store) Get(ctx context.Context, key string) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, "", fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return nil, "", fmt.Errorf("get object %s: %w", key, err)
	}
	defer func() { _ = out.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(out.Body, MaxObjectBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read object %s: %w", key, err)
	}
	if len(body) > MaxObjectBytes {
		return nil, "", fmt.Errorf("%w: %s exceeds %d bytes", ErrObjectTooLarge, key, MaxObjectBytes)
	}
	return body, aws.ToString(out.ContentType), nil
}

// FetchImage implements task.ImageSource: it downloads key and downscales
// the image so its longest edge fits the configured maximum.
func (s *S3Store) FetchImage(ctx context.Context, key string) (generation.Image, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	data, _, err := s.Get(ctx, key)
	if err != nil {
		return generation.Image{}, err
	}
	img, err := Downscale(data, s.maxImageEdge)
	if err != nil {
		return generation.Image{}, fmt.Errorf("prepare image %s: %w", key, err)
	}

	log.Debug("ink image fetched",
		slog.String("key", key),
		slog.Int("source_bytes", len(data)),
		slog.Int("image_bytes", len(img.Data)))
	return img, nil
}
