package services

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/chachabrian/unipool-backend/internal/config"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ImageStore keeps uploaded images. Refs are what gets persisted on the user row.
type ImageStore interface {
	Upload(file *multipart.FileHeader, folder string) (string, error)
	Delete(ref string) error
	URL(ref string) string
}

// Storage writes to S3 when AWS is configured and to the local upload
// directory otherwise.
type Storage struct {
	s3Client  *s3.S3
	uploader  *s3manager.Uploader
	bucket    string
	region    string
	useS3     bool
	uploadDir string
	baseURL   string
}

// InitStorage initializes either S3 or local storage based on configuration
func InitStorage(cfg *config.Config) (*Storage, error) {
	if cfg.S3Enabled() {
		sess, err := session.NewSession(&aws.Config{
			Region: aws.String(cfg.AWSRegion),
			Credentials: credentials.NewStaticCredentials(
				cfg.AWSAccessKeyID,
				cfg.AWSSecretAccessKey,
				"",
			),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create AWS session: %w", err)
		}

		logrus.WithField("bucket", cfg.AWSS3Bucket).Info("AWS S3 storage initialized")
		return &Storage{
			s3Client: s3.New(sess),
			uploader: s3manager.NewUploader(sess),
			bucket:   cfg.AWSS3Bucket,
			region:   cfg.AWSRegion,
			useS3:    true,
		}, nil
	}

	logrus.Warn("AWS S3 not configured. Using local file storage")
	return NewLocalStorage(cfg.UploadDir, cfg.BaseURL)
}

func NewLocalStorage(uploadDir, baseURL string) (*Storage, error) {
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &Storage{
		uploadDir: uploadDir,
		baseURL:   strings.TrimRight(baseURL, "/"),
	}, nil
}

func (s *Storage) UsingS3() bool {
	return s.useS3
}

func (s *Storage) UploadDir() string {
	return s.uploadDir
}

// Upload stores the file under folder with a generated name.
func (s *Storage) Upload(file *multipart.FileHeader, folder string) (string, error) {
	fileName := uuid.NewString() + strings.ToLower(filepath.Ext(file.Filename))
	if s.useS3 {
		return s.uploadToS3(file, folder+"/"+fileName)
	}
	return s.uploadLocally(file, folder, fileName)
}

func (s *Storage) uploadToS3(file *multipart.FileHeader, key string) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer src.Close()

	buffer := bytes.NewBuffer(nil)
	if _, err := io.Copy(buffer, src); err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	_, err = s.uploader.Upload(&s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buffer.Bytes()),
		ContentType: aws.String(http.DetectContentType(buffer.Bytes())),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key), nil
}

func (s *Storage) uploadLocally(file *multipart.FileHeader, folder, fileName string) (string, error) {
	folderPath := filepath.Join(s.uploadDir, folder)
	if err := os.MkdirAll(folderPath, 0755); err != nil {
		return "", fmt.Errorf("failed to create folder directory: %w", err)
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(folderPath, fileName))
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	return filepath.ToSlash(filepath.Join(folder, fileName)), nil
}

// URL returns the public address of a stored image. S3 refs already are URLs;
// local refs are served under /uploads.
func (s *Storage) URL(ref string) string {
	if ref == "" || s.useS3 {
		return ref
	}
	return fmt.Sprintf("%s/uploads/%s", s.baseURL, filepath.ToSlash(ref))
}

func (s *Storage) Delete(ref string) error {
	if ref == "" {
		return nil
	}
	if s.useS3 {
		return s.deleteFromS3(ref)
	}
	return s.deleteLocally(ref)
}

func (s *Storage) deleteFromS3(ref string) error {
	key, err := s3KeyFromURL(ref)
	if err != nil {
		return err
	}
	_, err = s.s3Client.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

func (s *Storage) deleteLocally(ref string) error {
	clean := filepath.Clean(filepath.FromSlash(ref))
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return fmt.Errorf("refusing to delete %q outside the upload directory", ref)
	}
	err := os.Remove(filepath.Join(s.uploadDir, clean))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// s3KeyFromURL turns https://bucket.s3.region.amazonaws.com/cars/x.jpg into cars/x.jpg.
func s3KeyFromURL(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid S3 URL %q: %w", ref, err)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", fmt.Errorf("invalid S3 URL %q: empty key", ref)
	}
	return key, nil
}
