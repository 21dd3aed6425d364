package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/foodgram-project/backend/config"
)

const imagePrefix = "recipes/images"

// ImageService decodes base64 data-URI uploads and persists them,
// either to S3 or to a local media directory.
type ImageService struct {
	s3Config  *config.S3Config
	mediaRoot string
	mediaURL  string
}

// NewImageService creates a new ImageService instance. s3Config may be
// nil, in which case images are written under mediaRoot and served at
// mediaURL.
func NewImageService(s3Config *config.S3Config, mediaRoot, mediaURL string) *ImageService {
	return &ImageService{
		s3Config:  s3Config,
		mediaRoot: mediaRoot,
		mediaURL:  mediaURL,
	}
}

// SaveDataURI decodes a "data:image/<ext>;base64,<payload>" value,
// stores the bytes under a generated filename and returns the public
// URL. Values that are already URLs pass through unchanged, so updates
// can resend the stored representation.
func (s *ImageService) SaveDataURI(ctx context.Context, value string) (string, error) {
	if !strings.HasPrefix(value, "data:") {
		return value, nil
	}

	ext, data, err := decodeDataURI(value)
	if err != nil {
		return "", err
	}

	fileName := fmt.Sprintf("%s/%s.%s", imagePrefix, uuid.New().String(), ext)

	if s.s3Config != nil {
		return s.uploadToS3(ctx, data, fileName, ext)
	}
	return s.writeLocal(data, fileName)
}

func (s *ImageService) uploadToS3(ctx context.Context, data []byte, fileName, ext string) (string, error) {
	_, err := s.s3Config.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.s3Config.BucketName),
		Key:         aws.String(fileName),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("image/" + ext),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	return s.s3Config.ObjectURL(fileName), nil
}

func (s *ImageService) writeLocal(data []byte, fileName string) (string, error) {
	fullPath := filepath.Join(s.mediaRoot, filepath.FromSlash(fileName))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create media directory: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	return path.Join(s.mediaURL, fileName), nil
}

func decodeDataURI(value string) (ext string, data []byte, err error) {
	rest := strings.TrimPrefix(value, "data:")
	header, payload, found := strings.Cut(rest, ",")
	if !found {
		return "", nil, newValidationError("image", "malformed data URI")
	}

	mediaType, _, _ := strings.Cut(header, ";")
	if !strings.HasPrefix(mediaType, "image/") || !strings.HasSuffix(header, "base64") {
		return "", nil, newValidationError("image", "expected a base64-encoded image data URI")
	}
	ext = strings.TrimPrefix(mediaType, "image/")
	if ext == "" {
		ext = "png"
	}

	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, newValidationError("image", "invalid base64 payload")
	}
	return ext, data, nil
}
