package mediasvc

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kelasku/kelasku/core"
)

// DummyService records uploads and deletions without talking to any
// storage backend. It stands in for cloudinary in development and tests.
type DummyService struct {
	mu      sync.Mutex
	Uploads []core.MediaUpload
	Deleted []string
}

var _ core.MediaService = (*DummyService)(nil)

func NewDummyService() *DummyService {
	return &DummyService{}
}

func (svc *DummyService) Upload(_ context.Context, path string) (core.MediaUpload, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	name := filepath.Base(path)
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	resType := "raw"
	switch strings.ToLower(ext) {
	case "jpg", "jpeg", "png", "gif", "webp":
		resType = "image"
	}
	up := core.MediaUpload{
		URL:          fmt.Sprintf("https://media.local/%s/%s", resType, name),
		PublicID:     fmt.Sprintf("uploads/%d-%s", len(svc.Uploads)+1, name),
		Format:       ext,
		ResourceType: resType,
	}
	svc.Uploads = append(svc.Uploads, up)
	return up, nil
}

func (svc *DummyService) Delete(_ context.Context, publicID, _ string) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.Deleted = append(svc.Deleted, publicID)
	return nil
}
