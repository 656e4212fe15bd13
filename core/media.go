package core

import "context"

// MediaUpload is the stable reference returned by the media delegate.
// Only this reference is ever persisted, never the file bytes.
type MediaUpload struct {
	URL          string `json:"url"`
	PublicID     string `json:"publicId"`
	Format       string `json:"format"`
	ResourceType string `json:"resourceType"`
}

// MediaService is any object-storage/CDN service that can persist uploaded files
// and hand back stable references.
type MediaService interface {
	// Upload sends the file at path to the remote store, auto-detecting its
	// resource type.
	Upload(ctx context.Context, path string) (MediaUpload, error)
	// Delete removes the remote object. resourceType defaults to "image" when empty.
	Delete(ctx context.Context, publicID, resourceType string) error
}
