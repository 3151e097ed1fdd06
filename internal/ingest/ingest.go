// Package ingest loads curriculum content into the vector store.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/abhisek/mentorloop/internal/llm"
	"github.com/abhisek/mentorloop/internal/store"
	"github.com/abhisek/mentorloop/internal/tasks"
	"github.com/abhisek/mentorloop/internal/vectorstore"
	"gopkg.in/yaml.v3"
)

// Config tunes ingestion.
type Config struct {
	MaxChars    int `yaml:"max_chars"`
	Concurrency int `yaml:"concurrency"`
}

// DefaultConfig returns the default ingestion settings.
func DefaultConfig() Config {
	return Config{MaxChars: DefaultMaxChars, Concurrency: 4}
}

// Stats summarizes one ingestion run.
type Stats struct {
	Sources   int
	Chunks    int
	Embedded  int
	Unchanged int
	Removed   int
	Failed    int
}

func (s *Stats) add(o Stats) {
	s.Sources += o.Sources
	s.Chunks += o.Chunks
	s.Embedded += o.Embedded
	s.Unchanged += o.Unchanged
	s.Removed += o.Removed
	s.Failed += o.Failed
}

// Ingester embeds new or changed chunks and drops chunks that disappeared
// from their source. Chunks whose content hash is unchanged are left alone.
type Ingester struct {
	embedder llm.Embedder
	vectors  *vectorstore.Store
	chunks   store.ChunkRepo
	cfg      Config
	logger   *slog.Logger
}

// New creates an Ingester.
func New(embedder llm.Embedder, vectors *vectorstore.Store, chunks store.ChunkRepo, cfg Config, logger *slog.Logger) *Ingester {
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = DefaultMaxChars
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingester{
		embedder: embedder,
		vectors:  vectors,
		chunks:   chunks,
		cfg:      cfg,
		logger:   logger.With("component", "ingest"),
	}
}

// IngestPaths ingests files and directory trees. Directories are walked for
// .md, .markdown, .txt, .yaml and .yml files.
func (in *Ingester) IngestPaths(ctx context.Context, paths []string) (Stats, error) {
	var total Stats
	for _, root := range paths {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !supported(path) {
				return nil
			}
			st, err := in.IngestFile(ctx, path)
			if err != nil {
				return err
			}
			total.add(st)
			return nil
		})
		if err != nil {
			return total, fmt.Errorf("ingest %s: %w", root, err)
		}
	}
	return total, nil
}

func supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown", ".txt", ".yaml", ".yml":
		return true
	}
	return false
}

// IngestFile ingests a single file. YAML files are read as chunk bundles.
func (in *Ingester) IngestFile(ctx context.Context, path string) (Stats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Stats{}, fmt.Errorf("read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		bundle, err := ParseBundle(data)
		if err != nil {
			return Stats{}, fmt.Errorf("parse %s: %w", path, err)
		}
		if bundle.Source == "" {
			bundle.Source = filepath.ToSlash(path)
		}
		return in.IngestSource(ctx, bundle.Source, bundle.pieces())
	case ".txt":
		return in.IngestSource(ctx, filepath.ToSlash(path), SplitText(string(data), in.cfg.MaxChars))
	default:
		return in.IngestSource(ctx, filepath.ToSlash(path), SplitMarkdown(string(data), in.cfg.MaxChars))
	}
}

type pending struct {
	id    string
	hash  string
	piece Piece
}

// IngestSource replaces the stored chunks of source with pieces.
func (in *Ingester) IngestSource(ctx context.Context, source string, pieces []Piece) (Stats, error) {
	st := Stats{Sources: 1, Chunks: len(pieces)}

	existing, err := in.chunks.Hashes(ctx, source)
	if err != nil {
		return st, err
	}

	keep := make(map[string]bool, len(pieces))
	var todo []pending
	for i, p := range pieces {
		id := ChunkID(source, i)
		hash := ContentHash(p)
		keep[id] = true
		if existing[id] == hash {
			st.Unchanged++
			continue
		}
		todo = append(todo, pending{id: id, hash: hash, piece: p})
	}

	results := tasks.Map(ctx, in.cfg.Concurrency, todo, func(ctx context.Context, p pending) (struct{}, error) {
		vec, err := in.embedder.Embed(ctx, embeddingText(p.piece))
		if err != nil {
			return struct{}{}, err
		}
		return struct{}{}, in.vectors.Put(ctx, vectorstore.Payload{
			ID:      p.id,
			Content: p.piece.Content,
			Source:  source,
			Type:    p.piece.Type,
		}, p.hash, vec)
	})
	for i, r := range results {
		if r.Err != nil {
			st.Failed++
			in.logger.Warn("chunk not ingested", "chunk", todo[i].id, "error", r.Err)
			continue
		}
		st.Embedded++
	}

	var stale []string
	for id := range existing {
		if !keep[id] {
			stale = append(stale, id)
		}
	}
	if err := in.chunks.Delete(ctx, stale...); err != nil {
		return st, err
	}
	st.Removed = len(stale)

	in.logger.Info("source ingested", "source", source,
		"chunks", st.Chunks, "embedded", st.Embedded, "unchanged", st.Unchanged,
		"removed", st.Removed, "failed", st.Failed)
	return st, nil
}

// ChunkID is stable for the i-th chunk of a source.
func ChunkID(source string, i int) string {
	return fmt.Sprintf("%s#%d", source, i)
}

// ContentHash fingerprints everything that feeds a piece's stored record and
// embedding: type, heading and content.
func ContentHash(p Piece) string {
	sum := sha256.Sum256([]byte(p.Type + "\x00" + p.Heading + "\x00" + p.Content))
	return hex.EncodeToString(sum[:])
}

func embeddingText(p Piece) string {
	if p.Heading == "" || strings.Contains(p.Content, p.Heading) {
		return p.Content
	}
	return p.Heading + "\n\n" + p.Content
}

// Bundle is a YAML file of pre-cut chunks.
type Bundle struct {
	Source string        `yaml:"source"`
	Chunks []BundleChunk `yaml:"chunks"`
}

// BundleChunk is one chunk of a Bundle.
type BundleChunk struct {
	Heading string `yaml:"heading"`
	Type    string `yaml:"type"`
	Content string `yaml:"content"`
}

// ParseBundle decodes a chunk bundle.
func ParseBundle(data []byte) (*Bundle, error) {
	var b Bundle
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (b *Bundle) pieces() []Piece {
	out := make([]Piece, 0, len(b.Chunks))
	for _, c := range b.Chunks {
		content := strings.TrimSpace(c.Content)
		if content == "" {
			continue
		}
		typ := c.Type
		if typ == "" {
			typ = classifyHeading(c.Heading)
		}
		out = append(out, Piece{Heading: c.Heading, Type: typ, Content: content})
	}
	return out
}
