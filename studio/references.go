package studio

import (
	"context"
	"errors"
	"fmt"

	"github.com/BaSui01/brandforge/internal/mediastore"
	"github.com/BaSui01/brandforge/llm"
	"github.com/BaSui01/brandforge/project"
	"go.uber.org/zap"
)

// SetReference 把参考图写入媒体存储，项目里只记录媒体 URL。dataURL 为空时清除。
// 替换成功后旧参考图随即删除。
func (s *Studio) SetReference(ctx context.Context, projectID string, stage project.Stage, dataURL string) (project.Project, error) {
	if !stage.AcceptsReference() {
		return project.Project{}, fmt.Errorf("%w: %s", project.ErrReferenceNotAllowed, stage)
	}
	cur, err := s.store.Get(projectID)
	if err != nil {
		return project.Project{}, err
	}

	var url string
	if dataURL != "" {
		d, ok := llm.ParseDataURL(dataURL)
		if !ok {
			return project.Project{}, validationError(msgReferenceInvalid)
		}
		data, err := d.Bytes()
		if err != nil {
			return project.Project{}, validationError(msgReferenceInvalid)
		}
		if url, err = s.blobs.Put(ctx, d.MIMEType, data); err != nil {
			return project.Project{}, fmt.Errorf("store reference: %w", err)
		}
		s.recordMedia("reference", len(data))
	}

	p, err := s.store.Dispatch(projectID, project.ReferenceImageSet{Stage: stage, URL: url})
	if err != nil {
		s.discard(url)
		return project.Project{}, err
	}
	if old := cur.Reference(stage); old != url {
		s.discard(old)
	}

	s.logger.Debug("reference updated",
		zap.String("project_id", projectID),
		zap.String("stage", string(stage)),
		zap.Bool("cleared", url == ""))
	return p, nil
}

// ReleaseProject 释放已移除项目的 Key 与参考图。
// 由 project.WithRemoveObserver 在删除与过期回收时调用。
func (s *Studio) ReleaseProject(p project.Project) {
	s.keys.ClearKey(p.ID)
	for _, url := range p.References {
		s.discard(url)
	}
}

// openReference 把参考图 URL 还原为 data URL 交给模型，url 为空时返回空串
func (s *Studio) openReference(ctx context.Context, url string) (string, error) {
	if url == "" {
		return "", nil
	}
	blob, err := s.blobs.Open(ctx, url)
	if errors.Is(err, mediastore.ErrNotFound) {
		return "", validationError(msgReferenceExpired)
	}
	if err != nil {
		return "", fmt.Errorf("open reference: %w", err)
	}
	return llm.FormatDataURL(blob.MIMEType, blob.Data), nil
}

func (s *Studio) discard(url string) {
	if url == "" {
		return
	}
	if err := s.blobs.Remove(context.Background(), url); err != nil {
		s.logger.Warn("media remove failed", zap.String("url", url), zap.Error(err))
	}
}
