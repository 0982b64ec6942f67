// Package ingest loads markdown documents into the vector store:
// parse frontmatter, chunk, embed, insert. Runs offline, outside the
// request path.
package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/oceanward/reefguide/internal/chunk"
	"github.com/oceanward/reefguide/internal/embed"
	"github.com/oceanward/reefguide/internal/log"
	"github.com/oceanward/reefguide/internal/vectorstore"
)

// Store is the vector-store surface the pipeline needs.
type Store interface {
	Insert(ctx context.Context, chunks []vectorstore.EmbeddedChunk) error
	DeleteByPath(ctx context.Context, contentPath string) (int64, error)
	HasPath(ctx context.Context, contentPath string) (bool, error)
}

// Result summarizes one ingestion run.
type Result struct {
	FilesAdded   int
	FilesSkipped int
	FilesFailed  int
	ChunksAdded  int
	Duration     time.Duration
}

// Pipeline ingests documents.
type Pipeline struct {
	embedder  embed.Provider
	store     Store
	chunkOpts chunk.Options
	logger    log.Logger
}

// New creates an ingestion pipeline.
func New(embedder embed.Provider, store Store, chunkOpts chunk.Options, logger log.Logger) *Pipeline {
	return &Pipeline{
		embedder:  embedder,
		store:     store,
		chunkOpts: chunkOpts,
		logger:    logger,
	}
}

// Run ingests every .md file under fsys. Ingestion is idempotent by
// content path: already-ingested files are skipped unless force is
// set, in which case their chunks are replaced. One failing file does
// not stop the run.
func (p *Pipeline) Run(ctx context.Context, fsys fs.FS, force bool) (*Result, error) {
	start := time.Now()
	result := &Result{}

	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".md") {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		added, err := p.ingestFile(ctx, fsys, path, force)
		switch {
		case err != nil:
			result.FilesFailed++
			p.logger.Error("failed to ingest file", "path", path, "error", err)
		case added < 0:
			result.FilesSkipped++
		default:
			result.FilesAdded++
			result.ChunksAdded += added
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk content directory: %w", err)
	}

	result.Duration = time.Since(start)
	p.logger.Info("ingestion finished",
		"added", result.FilesAdded,
		"skipped", result.FilesSkipped,
		"failed", result.FilesFailed,
		"chunks", result.ChunksAdded,
		"duration", result.Duration)
	return result, nil
}

// ingestFile processes one document. Returns -1 when the file was
// skipped as already ingested.
func (p *Pipeline) ingestFile(ctx context.Context, fsys fs.FS, path string, force bool) (int, error) {
	contentPath := filepath.ToSlash(path)

	exists, err := p.store.HasPath(ctx, contentPath)
	if err != nil {
		return 0, fmt.Errorf("check existing chunks: %w", err)
	}
	if exists {
		if !force {
			p.logger.Debug("skipping already-ingested file", "path", contentPath)
			return -1, nil
		}
		if _, err := p.store.DeleteByPath(ctx, contentPath); err != nil {
			return 0, fmt.Errorf("replace existing chunks: %w", err)
		}
	}

	raw, err := fs.ReadFile(fsys, path)
	if err != nil {
		return 0, fmt.Errorf("read file: %w", err)
	}

	fm, body, err := parseFrontmatter(string(raw))
	if err != nil {
		return 0, err
	}

	chunks := chunk.Split(body, contentPath, fm.Map(), p.chunkOpts)
	if len(chunks) == 0 {
		p.logger.Warn("document produced no chunks", "path", contentPath)
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed chunks: %w", err)
	}

	embedded := make([]vectorstore.EmbeddedChunk, len(chunks))
	for i, c := range chunks {
		embedded[i] = vectorstore.EmbeddedChunk{
			Content:     c.Text,
			ContentPath: c.Metadata.ContentPath,
			ChunkIndex:  c.Metadata.ChunkIndex,
			Embedding:   vectors[i],
			Metadata:    c.Metadata.Map(),
		}
	}
	if err := p.store.Insert(ctx, embedded); err != nil {
		return 0, fmt.Errorf("insert chunks: %w", err)
	}

	return len(embedded), nil
}
