package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"BeatStudio/config"
	"BeatStudio/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const maxObjectBytes = 200 << 20

var (
	minioClient *minio.Client
	bucketName  string
)

// InitMinio 初始化 MinIO 客户端，存储桶不存在时创建
func InitMinio(cfg *config.Config) error {
	logger.Info("正在连接 MinIO 服务器...",
		logger.String("endpoint", cfg.MinioEndpoint),
		logger.String("bucket", cfg.MinioBucket))

	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return fmt.Errorf("创建 MinIO 客户端失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return fmt.Errorf("检查存储桶失败: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{Region: cfg.MinioRegion}); err != nil {
			return fmt.Errorf("创建存储桶失败: %w", err)
		}
		logger.Info("成功创建存储桶", logger.String("bucket", cfg.MinioBucket))
	}

	minioClient = client
	bucketName = cfg.MinioBucket
	logger.Info("MinIO 客户端初始化成功")
	return nil
}

// GetMinioClient 获取 MinIO 客户端实例
func GetMinioClient() *minio.Client {
	return minioClient
}

// Store reads and writes editor assets in one bucket.
type Store struct {
	client *minio.Client
	bucket string
}

// NewStore 使用全局客户端创建存储
func NewStore() *Store {
	return &Store{client: minioClient, bucket: bucketName}
}

// GetObjectBytes 读取对象全部内容
func (s *Store) GetObjectBytes(ctx context.Context, key string) ([]byte, error) {
	if s.client == nil {
		return nil, fmt.Errorf("MinIO 客户端未初始化")
	}
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("获取对象失败 %s: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(io.LimitReader(obj, maxObjectBytes+1))
	if err != nil {
		return nil, fmt.Errorf("读取对象失败 %s: %w", key, err)
	}
	if len(data) > maxObjectBytes {
		return nil, fmt.Errorf("对象 %s 超过 %d 字节上限", key, maxObjectBytes)
	}
	return data, nil
}

// OpenObject opens key for ranged reads. The caller closes the object.
func (s *Store) OpenObject(ctx context.Context, key string) (*minio.Object, minio.ObjectInfo, error) {
	if s.client == nil {
		return nil, minio.ObjectInfo{}, fmt.Errorf("MinIO 客户端未初始化")
	}
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, minio.ObjectInfo{}, fmt.Errorf("获取对象失败 %s: %w", key, err)
	}
	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, minio.ObjectInfo{}, fmt.Errorf("对象不存在 %s: %w", key, err)
	}
	return obj, info, nil
}

// PutObjectBytes 上传对象
func (s *Store) PutObjectBytes(ctx context.Context, key string, data []byte, contentType string) error {
	if s.client == nil {
		return fmt.Errorf("MinIO 客户端未初始化")
	}
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("上传对象失败 %s: %w", key, err)
	}
	return nil
}

// BeatmapKey 谱面文件在存储桶中的路径
func BeatmapKey(songID int64, difficulty string) string {
	return fmt.Sprintf("beatmaps/%d/%s.json", songID, difficulty)
}
