// internal/services/storage_service.go
package services

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/sirupsen/logrus"

	"github.com/stellara/stellara-backend/internal/config"
	"github.com/stellara/stellara-backend/internal/utils"
)

// StorageService uploads clothing artwork and metadata documents to S3 and
// hands back the URLs the registry stores. Without AWS credentials it falls
// back to local disk so development works offline.
type StorageService struct {
	cfg      *config.Config
	s3Client *s3.S3
}

type UploadOptions struct {
	Folder       string
	MaxSize      int64
	AllowedTypes []string
}

type UploadResult struct {
	URL         string `json:"url"`
	Key         string `json:"key"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
	// ContentHash is the sha256 of the file body, usable as a stable
	// metadata pointer component.
	ContentHash string `json:"content_hash"`
}

func NewStorageService(cfg *config.Config) *StorageService {
	svc := &StorageService{cfg: cfg}

	if cfg.AWS.AccessKeyID != "" && cfg.AWS.SecretAccessKey != "" {
		sess, err := session.NewSession(&aws.Config{
			Region: aws.String(cfg.AWS.Region),
			Credentials: credentials.NewStaticCredentials(
				cfg.AWS.AccessKeyID,
				cfg.AWS.SecretAccessKey,
				"",
			),
		})
		if err != nil {
			logrus.WithError(err).Warn("Failed to create AWS session, using local storage")
		} else {
			svc.s3Client = s3.New(sess)
		}
	} else {
		logrus.Info("AWS credentials not configured, using local storage")
	}

	return svc
}

func (s *StorageService) UploadFile(file *multipart.FileHeader, options *UploadOptions) (*UploadResult, error) {
	if options == nil {
		options = DefaultUploadOptions("clothing")
	}

	if file.Size > options.MaxSize {
		return nil, fmt.Errorf("file size %d exceeds maximum of %d bytes", file.Size, options.MaxSize)
	}

	contentType := file.Header.Get("Content-Type")
	if !s.typeAllowed(contentType, options.AllowedTypes) {
		return nil, fmt.Errorf("file type %s is not allowed", contentType)
	}

	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if strings.HasPrefix(contentType, "image/") {
		if err := validateImageBytes(data, contentType); err != nil {
			return nil, err
		}
	}

	key, err := s.objectKey(options.Folder, file.Filename)
	if err != nil {
		return nil, err
	}

	var url string
	if s.s3Client != nil {
		url, err = s.uploadToS3(key, data, contentType)
	} else {
		url, err = s.uploadToLocal(key, data)
	}
	if err != nil {
		return nil, err
	}

	return &UploadResult{
		URL:         url,
		Key:         key,
		Size:        file.Size,
		ContentType: contentType,
		ContentHash: utils.HashFileContent(data),
	}, nil
}

func (s *StorageService) DeleteFile(key string) error {
	if s.s3Client != nil {
		_, err := s.s3Client.DeleteObject(&s3.DeleteObjectInput{
			Bucket: aws.String(s.cfg.AWS.S3Bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return fmt.Errorf("failed to delete from S3: %w", err)
		}
		return nil
	}

	localPath := filepath.Join("uploads", key)
	if err := os.Remove(localPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete local file: %w", err)
	}
	return nil
}

// PresignedURL returns a short-lived direct link for a private object.
func (s *StorageService) PresignedURL(key string, expiry time.Duration) (string, error) {
	if s.s3Client == nil {
		return "/uploads/" + key, nil
	}

	req, _ := s.s3Client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.cfg.AWS.S3Bucket),
		Key:    aws.String(key),
	})
	url, err := req.Presign(expiry)
	if err != nil {
		return "", fmt.Errorf("failed to presign url: %w", err)
	}
	return url, nil
}

func DefaultUploadOptions(kind string) *UploadOptions {
	switch kind {
	case "metadata":
		return &UploadOptions{
			Folder:       "metadata",
			MaxSize:      1 << 20, // 1MB
			AllowedTypes: []string{"application/json"},
		}
	case "avatars":
		return &UploadOptions{
			Folder:       "avatars",
			MaxSize:      2 << 20, // 2MB
			AllowedTypes: []string{"image/jpeg", "image/png", "image/webp"},
		}
	default:
		return &UploadOptions{
			Folder:       "clothing",
			MaxSize:      10 << 20, // 10MB
			AllowedTypes: []string{"image/jpeg", "image/png", "image/gif", "image/webp"},
		}
	}
}

func (s *StorageService) uploadToS3(key string, data []byte, contentType string) (string, error) {
	_, err := s.s3Client.PutObject(&s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.AWS.S3Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	if s.cfg.AWS.CloudFrontURL != "" {
		return fmt.Sprintf("%s/%s", strings.TrimRight(s.cfg.AWS.CloudFrontURL, "/"), key), nil
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.AWS.S3Bucket, s.cfg.AWS.Region, key), nil
}

func (s *StorageService) uploadToLocal(key string, data []byte) (string, error) {
	localPath := filepath.Join("uploads", key)
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}
	if err := os.WriteFile(localPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write local file: %w", err)
	}
	return "/uploads/" + key, nil
}

func (s *StorageService) objectKey(folder, filename string) (string, error) {
	random, err := utils.GenerateRandomString(16)
	if err != nil {
		return "", err
	}
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("%s/%d_%s%s", folder, time.Now().Unix(), random, ext), nil
}

func (s *StorageService) typeAllowed(contentType string, allowed []string) bool {
	for _, t := range allowed {
		if t == contentType {
			return true
		}
	}
	return false
}

// validateImageBytes checks magic bytes so a mislabelled upload cannot pass
// as an image.
func validateImageBytes(data []byte, contentType string) error {
	if len(data) < 12 {
		return fmt.Errorf("file too small to be a valid image")
	}

	valid := false
	switch contentType {
	case "image/jpeg":
		valid = bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF})
	case "image/png":
		valid = bytes.HasPrefix(data, []byte{0x89, 0x50, 0x4E, 0x47})
	case "image/gif":
		valid = bytes.HasPrefix(data, []byte("GIF8"))
	case "image/webp":
		valid = bytes.HasPrefix(data, []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP"))
	default:
		return fmt.Errorf("unsupported image type %s", contentType)
	}

	if !valid {
		return fmt.Errorf("file content does not match declared type %s", contentType)
	}
	return nil
}
