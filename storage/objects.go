package storage

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
)

// BucketStats 存储桶统计信息
type BucketStats struct {
	TotalObjects int64
	TotalSize    int64
	LastModified time.Time
}

// ObjectInfo 文件信息
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	Kind         string
}

// ListObjects 列出前缀下的对象并统计，按 key 排序
func (s *Store) ListObjects(ctx context.Context, prefix string, recursive bool) ([]ObjectInfo, *BucketStats, error) {
	if s.client == nil {
		return nil, nil, fmt.Errorf("MinIO 客户端未初始化")
	}

	stats := &BucketStats{}
	var objects []ObjectInfo

	for object := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: recursive,
	}) {
		if object.Err != nil {
			return nil, nil, fmt.Errorf("列出对象时出错: %w", object.Err)
		}
		objects = append(objects, ObjectInfo{
			Key:          object.Key,
			Size:         object.Size,
			LastModified: object.LastModified,
			Kind:         InferKind(object.Key),
		})
	}

	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	summarize(objects, stats)
	return objects, stats, nil
}

func summarize(objects []ObjectInfo, stats *BucketStats) {
	for _, o := range objects {
		stats.TotalObjects++
		stats.TotalSize += o.Size
		if o.LastModified.After(stats.LastModified) {
			stats.LastModified = o.LastModified
		}
	}
}

// Usage 按文件类型统计大小
func Usage(objects []ObjectInfo) map[string]int64 {
	usage := make(map[string]int64)
	for _, o := range objects {
		usage[o.Kind] += o.Size
	}
	return usage
}

// InferKind 从文件名推断资源类型
func InferKind(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".mp3", ".wav", ".flac", ".ogg", ".m4a":
		return "audio"
	case ".json":
		return "beatmap"
	case ".toml":
		return "catalog"
	default:
		return "other"
	}
}

// FormatSize 格式化文件大小
func FormatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

// DeletePrefix 删除前缀下的所有对象，返回删除数量
func (s *Store) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	if s.client == nil {
		return 0, fmt.Errorf("MinIO 客户端未初始化")
	}
	if strings.Trim(prefix, "/") == "" {
		return 0, fmt.Errorf("拒绝删除整个存储桶")
	}

	objectsCh := make(chan minio.ObjectInfo)
	listErr := make(chan error, 1)
	count := 0
	go func() {
		defer close(objectsCh)
		for object := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
			if object.Err != nil {
				listErr <- object.Err
				return
			}
			count++
			objectsCh <- object
		}
		listErr <- nil
	}()

	var firstErr error
	for rerr := range s.client.RemoveObjects(ctx, s.bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		if firstErr == nil {
			firstErr = fmt.Errorf("删除对象 %s 失败: %w", rerr.ObjectName, rerr.Err)
		}
	}
	if err := <-listErr; err != nil {
		return 0, fmt.Errorf("列出对象时出错: %w", err)
	}
	if firstErr != nil {
		return 0, firstErr
	}
	return count, nil
}
