package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/FACorreiaa/go-trip-planner/internal/api/places"

	"github.com/minio/minio-go/v7"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var _ Service = (*ServiceImpl)(nil)

// Service relays place photos from the places directory into durable object
// storage. Every failure here is non-fatal to callers: a missing photo must
// never block itinerary creation, so callers convert errors to "no image".
type Service interface {
	// RelayPhoto streams a photo for the named place, sized to the given
	// bounds, into storage under a fresh collision-resistant key and returns
	// the public URL. keyPrefix distinguishes banner/place/hotel uploads.
	RelayPhoto(ctx context.Context, name string, maxWidth, maxHeight int, keyPrefix string) (string, error)
	// RelayStream drains an already-open stream into storage. Uploads are not
	// idempotent; a reused key fails as a duplicate, so callers must pass a
	// fresh key per attempt.
	RelayStream(ctx context.Context, stream io.Reader, key, contentType string) (string, error)
}

// Uploader is the slice of the storage client the relay needs; *minio.Client
// satisfies it.
type Uploader interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

type ServiceImpl struct {
	logger        *slog.Logger
	places        places.Service
	uploader      Uploader
	bucket        string
	publicBaseURL string
}

func NewServiceImpl(placesSvc places.Service, uploader Uploader, bucket, publicBaseURL string, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:        logger,
		places:        placesSvc,
		uploader:      uploader,
		bucket:        bucket,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
	}
}

func (s *ServiceImpl) RelayPhoto(ctx context.Context, name string, maxWidth, maxHeight int, keyPrefix string) (string, error) {
	ctx, span := otel.Tracer("MediaService").Start(ctx, "RelayPhoto", trace.WithAttributes(
		attribute.String("place.name", name),
		attribute.String("key.prefix", keyPrefix),
	))
	defer span.End()

	stream, contentType, err := s.places.PhotoStream(ctx, name, maxWidth, maxHeight)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Photo stream failed")
		return "", fmt.Errorf("photo stream for %q failed: %w", name, err)
	}
	defer stream.Close()

	key := BuildObjectKey(keyPrefix, name)
	return s.RelayStream(ctx, stream, key, contentType)
}

func (s *ServiceImpl) RelayStream(ctx context.Context, stream io.Reader, key, contentType string) (string, error) {
	ctx, span := otel.Tracer("MediaService").Start(ctx, "RelayStream", trace.WithAttributes(
		attribute.String("object.key", key),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "RelayStream"), slog.String("key", key))

	// Fully drain before uploading so a broken stream fails here, not halfway
	// through the object write.
	buf, err := io.ReadAll(stream)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Stream drain failed")
		return "", fmt.Errorf("failed to drain photo stream: %w", err)
	}

	_, err = s.uploader.PutObject(ctx, s.bucket, key, bytes.NewReader(buf), int64(len(buf)), minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "max-age=3600",
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Storage upload failed")
		return "", fmt.Errorf("storage upload failed: %w", err)
	}

	publicURL := fmt.Sprintf("%s/%s/%s", s.publicBaseURL, s.bucket, key)
	l.InfoContext(ctx, "Photo relayed to storage", slog.Int("bytes", len(buf)), slog.String("url", publicURL))
	span.SetStatus(codes.Ok, "Photo relayed")
	return publicURL, nil
}

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9]`)

// BuildObjectKey derives a collision-resistant storage key from an identifying
// name, a timestamp, and sanitization of non-alphanumeric characters.
func BuildObjectKey(prefix, name string) string {
	sanitized := nonAlphanumeric.ReplaceAllString(name, "_")
	if len(sanitized) > 30 {
		sanitized = sanitized[:30]
	}
	return fmt.Sprintf("%s_%s_%d.jpg", prefix, sanitized, time.Now().UnixMilli())
}
