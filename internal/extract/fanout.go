package extract

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/openclaims/claimlens/internal/logger"
	"github.com/openclaims/claimlens/internal/model"
)

// Downloader fetches artifact bytes by key.
type Downloader interface {
	Download(ctx context.Context, key string) ([]byte, error)
}

// FanOut runs extraction over the artifact set with unordered concurrency:
// all images in parallel, all documents in parallel, and the two groups in
// parallel with each other. The aggregate is a set; result order carries no
// meaning. Unsupported artifacts are skipped. A download or extraction
// failure yields the empty record for that artifact and nothing else.
type FanOut struct {
	log      *logger.Logger
	store    Downloader
	vision   *VisionExtractor
	document *DocumentExtractor
}

// NewFanOut wires the extraction fan-out.
func NewFanOut(log *logger.Logger, store Downloader, vision *VisionExtractor, document *DocumentExtractor) *FanOut {
	return &FanOut{
		log:      log.With("component", "extract.fanout"),
		store:    store,
		vision:   vision,
		document: document,
	}
}

// Run extracts every supported artifact concurrently and returns the
// aggregated records. It never fails: per-artifact errors are already
// absorbed into empty records by the extractors.
func (f *FanOut) Run(ctx context.Context, artifacts []model.Artifact) ([]model.VisionRecord, []model.DocumentRecord) {
	var (
		mu        sync.Mutex
		visions   []model.VisionRecord
		documents []model.DocumentRecord
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, artifact := range artifacts {
		switch artifact.Kind {
		case model.ArtifactKindImage:
			g.Go(func() error {
				record := f.extractVision(ctx, artifact)
				mu.Lock()
				visions = append(visions, record)
				mu.Unlock()
				return nil
			})
		case model.ArtifactKindDocument:
			g.Go(func() error {
				record := f.extractDocument(ctx, artifact)
				mu.Lock()
				documents = append(documents, record)
				mu.Unlock()
				return nil
			})
		default:
			f.log.Info("skipping unsupported artifact", "key", artifact.Key)
		}
	}
	_ = g.Wait() // workers only ever return nil; errors are absorbed per artifact

	return visions, documents
}

func (f *FanOut) extractVision(ctx context.Context, artifact model.Artifact) model.VisionRecord {
	data, err := f.store.Download(ctx, artifact.Key)
	if err != nil {
		f.log.Warn("artifact download failed", "key", artifact.Key, "error", err)
		return model.EmptyVisionRecord(artifact.Key)
	}
	return f.vision.Extract(ctx, data, artifact.ContentType, artifact.Key)
}

func (f *FanOut) extractDocument(ctx context.Context, artifact model.Artifact) model.DocumentRecord {
	data, err := f.store.Download(ctx, artifact.Key)
	if err != nil {
		f.log.Warn("artifact download failed", "key", artifact.Key, "error", err)
		return model.EmptyDocumentRecord(artifact.Key)
	}
	return f.document.Extract(ctx, data, artifact.ContentType, artifact.Key)
}
