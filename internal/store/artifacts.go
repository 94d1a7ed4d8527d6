// Package store is the artifact store client: it lists and downloads a
// user's uploaded blobs and classifies them for routing to the extractors.
package store

import (
	"context"
	"fmt"
	"mime"
	"path"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/url"

	"github.com/openclaims/claimlens/internal/logger"
	"github.com/openclaims/claimlens/internal/model"
)

// userPrefix is the key layout root for per-user uploads.
const userPrefix = "users"

// Client lists and downloads claim artifacts from a key-addressable blob
// store. The store is addressed by an afs base URL, so s3://, gs://, file://
// and mem:// all work through the same client.
type Client struct {
	fs      afs.Service
	baseURL string
	log     *logger.Logger
}

// NewClient creates an artifact store client rooted at baseURL.
func NewClient(log *logger.Logger, baseURL string) *Client {
	return &Client{
		fs:      afs.New(),
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log.With("component", "store"),
	}
}

// List returns every artifact under users/{userID}/, classified for routing.
// A user folder that does not exist is an empty list, not an error — the
// caller decides whether that is fatal.
func (c *Client) List(ctx context.Context, userID string) ([]model.Artifact, error) {
	location := url.Join(c.baseURL, userPrefix, userID)

	ok, err := c.fs.Exists(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("probe artifact folder %s: %w", location, err)
	}
	if !ok {
		return []model.Artifact{}, nil
	}

	objects, err := c.fs.List(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("list artifacts %s: %w", location, err)
	}

	artifacts := make([]model.Artifact, 0, len(objects))
	for _, obj := range objects {
		if obj.IsDir() {
			continue
		}
		name := obj.Name()
		// afs object listings carry no content type, so it is derived from
		// the extension here. The content-type branch of Classify only
		// matters for callers that bring a real one.
		contentType := mime.TypeByExtension(path.Ext(name))
		artifacts = append(artifacts, model.Artifact{
			Key:          path.Join(userPrefix, userID, name),
			Name:         name,
			Size:         obj.Size(),
			LastModified: obj.ModTime(),
			ContentType:  contentType,
			Kind:         Classify(name, contentType),
		})
	}

	c.log.Debug("listed artifacts", "user_id", userID, "count", len(artifacts))
	return artifacts, nil
}

// Download returns the raw bytes for one artifact key. A missing blob or a
// truncated transfer surfaces as an error; it is not retried here.
func (c *Client) Download(ctx context.Context, key string) ([]byte, error) {
	location := url.Join(c.baseURL, key)
	data, err := c.fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("retrieve artifact %s: %w", key, err)
	}
	return data, nil
}

var (
	imageExtensions = map[string]bool{
		".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
		".webp": true, ".bmp": true, ".heic": true,
	}
	documentExtensions = map[string]bool{
		".pdf": true, ".txt": true, ".md": true, ".csv": true,
		".doc": true, ".docx": true, ".rtf": true, ".json": true,
	}
)

// Classify infers the artifact kind from the file extension first, with the
// content type as a secondary signal. Unsupported artifacts are recorded but
// never extracted.
func Classify(name, contentType string) model.ArtifactKind {
	ext := strings.ToLower(path.Ext(name))
	switch {
	case imageExtensions[ext]:
		return model.ArtifactKindImage
	case documentExtensions[ext]:
		return model.ArtifactKindDocument
	}

	ct := strings.ToLower(strings.TrimSpace(contentType))
	switch {
	case strings.HasPrefix(ct, "image/"):
		return model.ArtifactKindImage
	case strings.HasPrefix(ct, "text/"), ct == "application/pdf", ct == "application/json":
		return model.ArtifactKindDocument
	}
	return model.ArtifactKindUnsupported
}
