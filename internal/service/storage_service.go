package service

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"edu_portal_backend/internal/config"
	"edu_portal_backend/internal/model"
	"edu_portal_backend/internal/util"
	"edu_portal_backend/pkg/logger"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// StorageProvider 课件文件的存储后端
type StorageProvider interface {
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error)
	PutFile(ctx context.Context, key, localPath, contentType string) (string, error)
	Remove(ctx context.Context, key string) error
	URL(key string) string
}

// LocalProvider 本地磁盘存储,开发环境默认
type LocalProvider struct {
	Root string
}

func (p *LocalProvider) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	dst := filepath.Join(p.Root, key)
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
	return p.URL(key), nil
}

func (p *LocalProvider) PutFile(ctx context.Context, key, localPath, contentType string) (string, error) {
	dst := filepath.Join(p.Root, key)
	if localPath == dst {
		return p.URL(key), nil
	}

	src, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer src.Close()
	return p.Put(ctx, key, src, -1, contentType)
}

func (p *LocalProvider) Remove(ctx context.Context, key string) error {
	return os.Remove(filepath.Join(p.Root, key))
}

func (p *LocalProvider) URL(key string) string {
	return "/uploads/" + key
}

// MinioProvider MinIO 对象存储
type MinioProvider struct {
	bucket string
	client *minio.Client
}

func NewMinioProvider(cfg *config.StorageConfig) (*MinioProvider, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: false,
	})
	if err != nil {
		return nil, err
	}
	return &MinioProvider{bucket: cfg.MinioBucket, client: client}, nil
}

func (p *MinioProvider) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	_, err := p.client.PutObject(ctx, p.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return p.URL(key), nil
}

func (p *MinioProvider) PutFile(ctx context.Context, key, localPath, contentType string) (string, error) {
	_, err := p.client.FPutObject(ctx, p.bucket, key, localPath, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return p.URL(key), nil
}

func (p *MinioProvider) Remove(ctx context.Context, key string) error {
	return p.client.RemoveObject(ctx, p.bucket, key, minio.RemoveObjectOptions{})
}

func (p *MinioProvider) URL(key string) string {
	return "/" + p.bucket + "/" + key
}

// OSSProvider 阿里云 OSS 存储
type OSSProvider struct {
	endpoint string
	bucket   string
	client   *oss.Client
}

func NewOSSProvider(cfg *config.StorageConfig) (*OSSProvider, error) {
	client, err := oss.New(cfg.OSSEndpoint, cfg.OSSAccessKey, cfg.OSSSecretKey)
	if err != nil {
		return nil, err
	}
	return &OSSProvider{endpoint: cfg.OSSEndpoint, bucket: cfg.OSSBucket, client: client}, nil
}

func (p *OSSProvider) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	bucket, err := p.client.Bucket(p.bucket)
	if err != nil {
		return "", err
	}
	if err := bucket.PutObject(key, reader); err != nil {
		return "", err
	}
	return p.URL(key), nil
}

func (p *OSSProvider) PutFile(ctx context.Context, key, localPath, contentType string) (string, error) {
	bucket, err := p.client.Bucket(p.bucket)
	if err != nil {
		return "", err
	}
	if err := bucket.PutObjectFromFile(key, localPath); err != nil {
		return "", err
	}
	return p.URL(key), nil
}

func (p *OSSProvider) Remove(ctx context.Context, key string) error {
	bucket, err := p.client.Bucket(p.bucket)
	if err != nil {
		return err
	}
	return bucket.DeleteObject(key)
}

func (p *OSSProvider) URL(key string) string {
	return fmt.Sprintf("https://%s.%s/%s", p.bucket, p.endpoint, key)
}

// StorageService 负责课件上传:对象键带 uuid 前缀避免覆盖同名文件,
// 视频文件上传前先探测时长写入素材元数据。
type StorageService struct {
	Provider StorageProvider
}

func NewStorageService(cfg *config.Config) *StorageService {
	var provider StorageProvider
	switch cfg.Storage.Type {
	case "minio":
		p, err := NewMinioProvider(&cfg.Storage)
		if err != nil {
			logger.Log.Warn("MinIO 初始化失败,回退到本地存储", zap.Error(err))
		} else {
			provider = p
		}
	case "oss":
		p, err := NewOSSProvider(&cfg.Storage)
		if err != nil {
			logger.Log.Warn("OSS 初始化失败,回退到本地存储", zap.Error(err))
		} else {
			provider = p
		}
	}
	if provider == nil {
		provider = &LocalProvider{Root: cfg.Storage.LocalPath}
	}
	return &StorageService{Provider: provider}
}

// UploadMaterial 保存一份课件素材并返回其元数据
func (s *StorageService) UploadMaterial(ctx context.Context, lessonID string, file *multipart.FileHeader) (*model.LessonMaterial, error) {
	contentType := file.Header.Get("Content-Type")
	key := fmt.Sprintf("lessons/%s/%s-%s", lessonID, uuid.New().String(), filepath.Base(file.Filename))

	material := &model.LessonMaterial{
		Name:        file.Filename,
		ContentType: contentType,
		Size:        file.Size,
	}

	if util.IsVideoContentType(contentType) {
		// 视频先落盘探测时长,再从临时文件上传
		tmp, err := s.spool(file)
		if err != nil {
			return nil, err
		}
		defer os.Remove(tmp)

		if probe, err := util.ProbeMedia(tmp); err != nil {
			logger.Log.Warn("视频时长探测失败", zap.String("file", file.Filename), zap.Error(err))
		} else {
			material.Duration = probe.Duration
		}

		url, err := s.Provider.PutFile(ctx, key, tmp, contentType)
		if err != nil {
			return nil, err
		}
		material.URL = url
		return material, nil
	}

	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	url, err := s.Provider.Put(ctx, key, src, file.Size, contentType)
	if err != nil {
		return nil, err
	}
	material.URL = url
	return material, nil
}

func (s *StorageService) Delete(ctx context.Context, key string) error {
	return s.Provider.Remove(ctx, key)
}

func (s *StorageService) spool(file *multipart.FileHeader) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "material-*"+filepath.Ext(file.Filename))
	if err != nil {
		return "", err
	}
	defer tmp.Close()

	if _, err := io.Copy(tmp, src); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}
