package controllers

import (
	"context"
	"mime/multipart"
	"time"

	"creativesync-api/storage"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

// 外部调用统一加超时，挂起的上游不能拖死请求
var (
	dbTimeout     = 10 * time.Second
	uploadTimeout = 60 * time.Second
)

func dbCtx(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), dbTimeout)
}

func uploadCtx(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), uploadTimeout)
}

// validateAll 任何上传动作之前先整体校验，避免半截失败
func validateAll(files []*multipart.FileHeader) error {
	for _, fh := range files {
		if err := storage.ValidateImage(fh); err != nil {
			return err
		}
	}
	return nil
}

// uploadAll 并发上传一批文件。任一失败视为整批失败，
// 已成功的部分尽力清理后返回错误。
func uploadAll(ctx context.Context, images *storage.ImageStore, files []*multipart.FileHeader, folder string) ([]string, error) {
	urls := make([]string, len(files))
	g, gctx := errgroup.WithContext(ctx)
	for i, fh := range files {
		i, fh := i, fh
		g.Go(func() error {
			url, err := images.Upload(gctx, fh, folder)
			if err != nil {
				return err
			}
			urls[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
		defer cancel()
		images.DeleteMany(cleanupCtx, urls)
		return nil, err
	}
	return urls, nil
}
