// Document ingestion.
//
// Information Hiding:
// - File discovery and format conversion hidden
// - Concurrent batch embedding hidden

package cli

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/prachwal/rag07/internal/textproc"
	"github.com/prachwal/rag07/llm"
	"github.com/prachwal/rag07/storage"
)

// IndexOptions controls ingestion.
type IndexOptions struct {
	ChunkSize int
	Overlap   int
	Workers   int
	BatchSize int
}

// DefaultIndexOptions returns the ingestion defaults.
func DefaultIndexOptions() IndexOptions {
	return IndexOptions{
		ChunkSize: textproc.DefaultChunkSize,
		Overlap:   textproc.DefaultOverlap,
		Workers:   4,
		BatchSize: 16,
	}
}

// IndexStats reports what Index stored.
type IndexStats struct {
	Files      int
	Chunks     int
	Duplicates int
	IDs        []string
}

type chunk struct {
	text   string
	source string
	index  int
}

// Index reads files (directories are walked), chunks them and stores the
// embedded chunks in the app's collection with their source path.
func Index(ctx context.Context, app *App, paths []string, opts IndexOptions) (IndexStats, error) {
	defaults := DefaultIndexOptions()
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = defaults.ChunkSize
	}
	if opts.Workers <= 0 {
		opts.Workers = defaults.Workers
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaults.BatchSize
	}

	files, err := collectFiles(paths)
	if err != nil {
		return IndexStats{}, err
	}
	if len(files) == 0 {
		return IndexStats{}, fmt.Errorf("no supported files found (%v)", textproc.SupportedExtensions)
	}

	stats := IndexStats{Files: len(files)}
	seen := make(map[uint64]bool)
	var chunks []chunk
	for _, path := range files {
		text, err := textproc.ReadDocument(path)
		if err != nil {
			return stats, fmt.Errorf("failed to read %s: %w", path, err)
		}
		pieces := textproc.Chunk(text, opts.ChunkSize, opts.Overlap)
		unique := textproc.Dedup(pieces, seen)
		stats.Duplicates += len(pieces) - len(unique)
		for i, p := range unique {
			chunks = append(chunks, chunk{text: p, source: path, index: i})
		}
		app.Logger.Debug().Str("file", path).Int("chunks", len(unique)).Msg("document_chunked")
	}
	if len(chunks) == 0 {
		return stats, nil
	}

	gen, err := app.Generator()
	if err != nil {
		return stats, err
	}
	vectors, err := embedChunks(app.Context(ctx), gen, chunks, opts)
	if err != nil {
		return stats, err
	}
	if app.Dimension > 0 && len(vectors[0]) != app.Dimension {
		return stats, fmt.Errorf("%w: %s/%s embeds %d dimensions, vector store is configured for %d",
			storage.ErrDimensionMismatch, gen.Name(), gen.Model(), len(vectors[0]), app.Dimension)
	}

	texts := make([]string, len(chunks))
	metadata := make([]map[string]any, len(chunks))
	for i, c := range chunks {
		texts[i] = c.text
		metadata[i] = map[string]any{"source": c.source, "chunk": c.index}
	}
	ids, err := app.Store.AddVectors(ctx, app.Collection, vectors, texts, metadata)
	if err != nil {
		return stats, err
	}

	stats.Chunks = len(ids)
	stats.IDs = ids
	app.Logger.Info().
		Str("collection", app.Collection).
		Int("files", stats.Files).
		Int("chunks", stats.Chunks).
		Int("duplicates", stats.Duplicates).
		Msg("documents_indexed")
	return stats, nil
}

// embedChunks embeds batches concurrently; vectors keep chunk order.
func embedChunks(ctx context.Context, gen llm.TextGenerator, chunks []chunk, opts IndexOptions) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for start := 0; start < len(chunks); start += opts.BatchSize {
		end := min(start+opts.BatchSize, len(chunks))
		g.Go(func() error {
			texts := make([]string, 0, end-start)
			for _, c := range chunks[start:end] {
				texts = append(texts, c.text)
			}
			embedded, err := gen.GenerateEmbeddings(ctx, texts, "")
			if err != nil {
				return fmt.Errorf("failed to embed chunks %d-%d: %w", start, end-1, err)
			}
			if len(embedded) != len(texts) {
				return &llm.ProviderError{Provider: gen.Name(), Message: fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(embedded))}
			}
			copy(vectors[start:end], embedded)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// collectFiles expands directories into their supported files.
func collectFiles(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && textproc.Supported(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}
