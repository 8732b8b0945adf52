package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"strings"
	"sync"
	"time"

	"creativesync-api/middlewares"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
)

// MaxImageSize 单张图片上限 5 MiB
const MaxImageSize = 5 << 20

var (
	ErrInvalidFile = errors.New("only image files are allowed")
	ErrTooLarge    = errors.New("image exceeds the 5MB size limit")
)

// ImageStore 封装Cloudinary上传/删除。删除是尽力而为：
// 主操作已经成功或独立，删除失败只记日志不影响请求结果。
type ImageStore struct {
	cld *cloudinary.Cloudinary
}

func NewImageStore(cloudURL string) (*ImageStore, error) {
	cld, err := cloudinary.NewFromURL(cloudURL)
	if err != nil {
		return nil, fmt.Errorf("cloudinary init: %w", err)
	}
	return &ImageStore{cld: cld}, nil
}

// Upload 校验大小与类型后上传，返回公开URL。
// PublicID带时间戳和随机后缀，Overwrite=false，撞名直接失败而不是覆盖。
func (s *ImageStore) Upload(ctx context.Context, fh *multipart.FileHeader, folder string) (string, error) {
	if err := ValidateImage(fh); err != nil {
		return "", err
	}

	file, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	publicID := fmt.Sprintf("%s/%d-%s", folder, time.Now().UnixNano(), uuid.NewString()[:8])

	result, err := s.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		PublicID:  publicID,
		Overwrite: api.Bool(false),
	})
	if err != nil {
		middlewares.RecordImageUpload(false)
		return "", fmt.Errorf("upload image: %w", err)
	}

	middlewares.RecordImageUpload(true)
	return result.SecureURL, nil
}

// ValidateImage 检查大小与Content-Type，在任何外部调用之前执行
func ValidateImage(fh *multipart.FileHeader) error {
	if fh.Size > MaxImageSize {
		return ErrTooLarge
	}
	contentType := fh.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return ErrInvalidFile
	}
	return nil
}

// Delete 按公开URL删除，失败只记日志。nil接收者为空操作。
func (s *ImageStore) Delete(ctx context.Context, url string) {
	if s == nil {
		return
	}
	publicID, err := publicIDFromURL(url)
	if err != nil {
		log.Printf("image delete: %v", err)
		return
	}
	if _, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID}); err != nil {
		log.Printf("image delete %s: %v", publicID, err)
	}
}

// DeleteMany 并发删除一组URL，去重，不传播失败。nil接收者为空操作。
func (s *ImageStore) DeleteMany(ctx context.Context, urls []string) {
	if s == nil {
		return
	}
	seen := make(map[string]struct{}, len(urls))
	var wg sync.WaitGroup
	for _, url := range urls {
		if url == "" {
			continue
		}
		if _, ok := seen[url]; ok {
			continue
		}
		seen[url] = struct{}{}

		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			s.Delete(ctx, u)
		}(url)
	}
	wg.Wait()
}

// publicIDFromURL 从Cloudinary URL解析public ID：
// https://res.cloudinary.com/<cloud>/image/upload/v123/products/xyz.jpg -> products/xyz
func publicIDFromURL(url string) (string, error) {
	idx := strings.Index(url, "/upload/")
	if idx < 0 {
		return "", fmt.Errorf("not a storage URL: %s", url)
	}
	path := url[idx+len("/upload/"):]

	// 跳过版本段 v<digits>/
	if len(path) > 1 && path[0] == 'v' {
		if slash := strings.Index(path, "/"); slash > 1 && isDigits(path[1:slash]) {
			path = path[slash+1:]
		}
	}
	if path == "" {
		return "", fmt.Errorf("empty storage path: %s", url)
	}

	if dot := strings.LastIndex(path, "."); dot > strings.LastIndex(path, "/") {
		path = path[:dot]
	}
	return path, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
