package util

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"path"
	"path/filepath"
	"strings"

	"wishlist/internal/config"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
)

// MaxImageSize is the largest upload accepted for avatars and wish images
const MaxImageSize = 5 << 20

// ErrInvalidImage marks uploads rejected before reaching storage
var ErrInvalidImage = errors.New("invalid image")

type CloudinaryClient struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinaryClient(cfg *config.Config) (*CloudinaryClient, error) {
	if !cfg.CloudinaryEnabled() {
		return nil, fmt.Errorf("cloudinary credentials not configured")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return &CloudinaryClient{
		cld:    cld,
		folder: cfg.CloudinaryFolder,
	}, nil
}

// UploadImage compresses the image and uploads it under folder/subdir,
// returning the public URL
func (c *CloudinaryClient) UploadImage(ctx context.Context, data []byte, filename, subdir string) (string, error) {
	body, err := CompressImage(data, filename)
	if err != nil {
		return "", err
	}

	result, err := c.cld.Upload.Upload(ctx, bytes.NewReader(body), uploader.UploadParams{
		Folder:         path.Join(c.folder, subdir),
		PublicID:       uuid.New().String(),
		Transformation: "q_auto,f_webp,w_512",
		ResourceType:   "image",
	})
	if err != nil {
		return "", fmt.Errorf("error uploading to cloudinary: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("cloudinary rejected upload: %s", result.Error.Message)
	}

	return result.SecureURL, nil
}

// CompressImage re-encodes JPEG and PNG images as JPEG at quality 80.
// WebP and GIF are passed through untouched.
func CompressImage(data []byte, filename string) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidImage)
	}
	if len(data) > MaxImageSize {
		return nil, fmt.Errorf("%w: larger than %d bytes", ErrInvalidImage, MaxImageSize)
	}

	var (
		img image.Image
		err error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		img, err = jpeg.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: cannot decode JPEG: %v", ErrInvalidImage, err)
		}
	case ".png":
		img, err = png.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: cannot decode PNG: %v", ErrInvalidImage, err)
		}
	case ".webp", ".gif":
		return data, nil
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrInvalidImage, filepath.Ext(filename))
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		return nil, fmt.Errorf("error encoding compressed image: %w", err)
	}
	return buf.Bytes(), nil
}
