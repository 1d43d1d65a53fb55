package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"quiz_arena_backend/internal/config"
	"quiz_arena_backend/internal/util"
	"quiz_arena_backend/pkg/logger"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

const imagePrefix = "images/"

// StorageProvider 存储对象并返回可公开访问的地址
type StorageProvider interface {
	Upload(ctx context.Context, filename string, reader io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, filename string) error
	GetURL(filename string) string
}

type LocalStorageProvider struct {
	Config *config.StorageConfig
}

func (p *LocalStorageProvider) Upload(ctx context.Context, filename string, reader io.Reader, size int64, contentType string) (string, error) {
	dst := filepath.Join(p.Config.LocalPath, filepath.FromSlash(filename))
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", err
	}

	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, reader); err != nil {
		return "", err
	}
	return p.GetURL(filename), nil
}

func (p *LocalStorageProvider) Delete(ctx context.Context, filename string) error {
	err := os.Remove(filepath.Join(p.Config.LocalPath, filepath.FromSlash(filename)))
	if errors.Is(err, os.ErrNotExist) {
		return util.ErrImageNotFound
	}
	return err
}

func (p *LocalStorageProvider) GetURL(filename string) string {
	base := strings.TrimSuffix(p.Config.PublicBaseURL, "/")
	return base + "/uploads/" + filename
}

type MinioStorageProvider struct {
	Config *config.StorageConfig
	Client *minio.Client
}

func NewMinioStorageProvider(cfg *config.StorageConfig) (*MinioStorageProvider, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: cfg.MinioSecure,
	})
	if err != nil {
		return nil, err
	}
	return &MinioStorageProvider{Config: cfg, Client: client}, nil
}

func (p *MinioStorageProvider) Upload(ctx context.Context, filename string, reader io.Reader, size int64, contentType string) (string, error) {
	_, err := p.Client.PutObject(ctx, p.Config.MinioBucket, filename, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return p.GetURL(filename), nil
}

func (p *MinioStorageProvider) Delete(ctx context.Context, filename string) error {
	return p.Client.RemoveObject(ctx, p.Config.MinioBucket, filename, minio.RemoveObjectOptions{})
}

func (p *MinioStorageProvider) GetURL(filename string) string {
	if p.Config.PublicBaseURL != "" {
		return strings.TrimSuffix(p.Config.PublicBaseURL, "/") + "/" + p.Config.MinioBucket + "/" + filename
	}
	scheme := "http"
	if p.Config.MinioSecure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, p.Config.MinioEndpoint, p.Config.MinioBucket, filename)
}

type OSSStorageProvider struct {
	Config *config.StorageConfig
	Client *oss.Client
}

func NewOSSStorageProvider(cfg *config.StorageConfig) (*OSSStorageProvider, error) {
	client, err := oss.New(cfg.OSSEndpoint, cfg.OSSAccessKey, cfg.OSSSecretKey)
	if err != nil {
		return nil, err
	}
	return &OSSStorageProvider{Config: cfg, Client: client}, nil
}

func (p *OSSStorageProvider) Upload(ctx context.Context, filename string, reader io.Reader, size int64, contentType string) (string, error) {
	bucket, err := p.Client.Bucket(p.Config.OSSBucket)
	if err != nil {
		return "", err
	}
	if err := bucket.PutObject(filename, reader, oss.ContentType(contentType)); err != nil {
		return "", err
	}
	return p.GetURL(filename), nil
}

func (p *OSSStorageProvider) Delete(ctx context.Context, filename string) error {
	bucket, err := p.Client.Bucket(p.Config.OSSBucket)
	if err != nil {
		return err
	}
	return bucket.DeleteObject(filename)
}

func (p *OSSStorageProvider) GetURL(filename string) string {
	return fmt.Sprintf("https://%s.%s/%s", p.Config.OSSBucket, p.Config.OSSEndpoint, filename)
}

// StorageService 题目图片的存储服务
type StorageService struct {
	Provider StorageProvider
	MaxBytes int64
}

func NewStorageService(cfg *config.Config) *StorageService {
	var provider StorageProvider
	switch cfg.Storage.Type {
	case util.StorageMinio:
		p, err := NewMinioStorageProvider(&cfg.Storage)
		if err != nil {
			logger.Log.Error("MinIO provider unavailable, falling back to local storage", zap.Error(err))
		} else {
			provider = p
		}
	case util.StorageOSS:
		p, err := NewOSSStorageProvider(&cfg.Storage)
		if err != nil {
			logger.Log.Error("OSS provider unavailable, falling back to local storage", zap.Error(err))
		} else {
			provider = p
		}
	}

	if provider == nil {
		provider = &LocalStorageProvider{Config: &cfg.Storage}
	}

	maxMB := cfg.Storage.MaxImageMB
	if maxMB <= 0 {
		maxMB = 5
	}
	return &StorageService{Provider: provider, MaxBytes: int64(maxMB) << 20}
}

// UploadImage 校验上传的图片并以新文件名保存
func (s *StorageService) UploadImage(ctx context.Context, header *multipart.FileHeader) (string, error) {
	if header.Size > s.MaxBytes {
		return "", util.Invalid(fmt.Sprintf("image exceeds %d MB", s.MaxBytes>>20))
	}
	ext, ok := util.ImageExtension(header.Filename)
	if !ok {
		return "", util.Invalid("only jpg, jpeg, png, gif and webp images are allowed")
	}

	file, err := header.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()

	contentType, err := util.ValidateMimeType(file, []string{util.MimeImage})
	if err != nil {
		return "", util.Invalid(err.Error())
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	name := imagePrefix + uuid.NewString() + ext
	url, err := s.Provider.Upload(ctx, name, file, header.Size, contentType)
	if err != nil {
		return "", util.Unavailable(err)
	}
	logger.Log.Info("Image uploaded", zap.String("object", name), zap.Int64("size", header.Size))
	return url, nil
}

// DeleteImage 删除 UploadImage 保存的图片
func (s *StorageService) DeleteImage(ctx context.Context, filename string) error {
	name := path.Base(filename)
	if name == "." || name == "/" || name == ".." || name != filename {
		return util.Invalid("invalid filename")
	}
	if err := s.Provider.Delete(ctx, imagePrefix+name); err != nil {
		if errors.Is(err, util.ErrImageNotFound) {
			return err
		}
		return util.Unavailable(err)
	}
	return nil
}
