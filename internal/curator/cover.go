package curator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/khanglvm/game-curator/internal/logging"
	"github.com/khanglvm/game-curator/internal/provider"
	"github.com/khanglvm/game-curator/internal/routing"
	"github.com/khanglvm/game-curator/internal/storage"
)

// coverSize is the requested cover resolution.
const coverSize = "1024x1024"

// ImageStore saves generated images and returns their public URL.
type ImageStore interface {
	Save(ctx context.Context, name string, data []byte, mediaType string) (string, error)
}

// FileImageStore writes images into a directory.
type FileImageStore struct {
	dir     string
	baseURL string
}

// NewFileImageStore creates a store rooted at dir. URLs are baseURL plus the
// file name, or a file:// URL when baseURL is empty.
func NewFileImageStore(dir, baseURL string) *FileImageStore {
	return &FileImageStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}
}

// Save writes data to dir/name plus an extension derived from mediaType.
func (f *FileImageStore) Save(ctx context.Context, name string, data []byte, mediaType string) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty image")
	}
	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create cover directory: %w", err)
	}

	file := filepath.Base(name) + extensionFor(mediaType)
	path := filepath.Join(f.dir, file)

	// Write through a temp file so readers never see a partial image.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write cover: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to save cover: %w", err)
	}

	if f.baseURL == "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		return "file://" + filepath.ToSlash(abs), nil
	}
	return f.baseURL + "/" + file, nil
}

func extensionFor(mediaType string) string {
	switch mediaType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

// CoverResult is the result of GenerateCollectionCover.
type CoverResult struct {
	ImageURL string  `json:"imageUrl"`
	Cost     float64 `json:"cost"`
	Model    string  `json:"model"`
}

// GenerateCollectionCover draws cover art for one of the user's collections
// and stores its URL on the collection.
func (s *Service) GenerateCollectionCover(ctx context.Context, userID, name, description, collectionID string) (result CoverResult, err error) {
	ctx = logging.WithCorrelationID(ctx)
	op := s.startOp(userID, ActionGenerateCover)
	defer func() { op.finish(ctx, err) }()
	op.details["collection_id"] = collectionID

	sess, err := s.begin(ctx, userID)
	if err != nil {
		return CoverResult{}, err
	}

	if _, err := s.store.GetCollection(ctx, userID, collectionID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return CoverResult{}, &NotFoundError{Resource: "collection", ID: collectionID}
		}
		return CoverResult{}, fmt.Errorf("load collection: %w", err)
	}

	route := routing.SelectModel(routing.TaskCoverImage, sess.settings, s.availableModels(ctx, sess.generator))
	op.model = route.Model

	img, err := sess.generator.GenerateImage(ctx, provider.ImageRequest{
		Model:  route.Model,
		Prompt: coverPrompt(name, description),
		Size:   coverSize,
	})
	if err != nil {
		return CoverResult{}, &ProviderError{Op: "generate cover", Model: route.Model, Err: err}
	}
	op.cost = routing.EstimateImageCost(route.Model, 1)

	url, err := s.images.Save(ctx, collectionID, img.Data, img.MediaType)
	if err != nil {
		return CoverResult{}, fmt.Errorf("store cover: %w", err)
	}
	if err := s.store.SetCollectionCover(ctx, userID, collectionID, url); err != nil {
		return CoverResult{}, fmt.Errorf("save cover url: %w", err)
	}

	return CoverResult{ImageURL: url, Cost: op.cost, Model: route.Model}, nil
}
