// Package archive stores raw ladder snapshots as zstd blobs named by the
// sha256 of their uncompressed content. Writing the same content twice
// leaves exactly one blob on disk.
package archive

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"tetra-tracker/internal/config"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const blobSuffix = ".json.zst"

var (
	ErrNotFound    = errors.New("archive not found")
	ErrCorrupt     = errors.New("archive corrupt")
	ErrInvalidHash = errors.New("invalid archive hash")
)

type Store struct {
	dir     string
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	writes  singleflight.Group
	logger  zerolog.Logger
}

func NewStore(cfg *config.Config, logger zerolog.Logger) (*Store, error) {
	return Open(cfg.ArchiveDir, logger)
}

func Open(dir string, logger zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive dir: %w", err)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	logger.Info().Str("dir", dir).Msg("archive store opened")
	return &Store{
		dir:     dir,
		encoder: encoder,
		decoder: decoder,
		logger:  logger.With().Str("component", "archive").Logger(),
	}, nil
}

func (s *Store) Close() error {
	s.decoder.Close()
	return s.encoder.Close()
}

// Hash returns the content address of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func validHash(hash string) bool {
	if len(hash) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(hash)
	return err == nil
}

func (s *Store) path(hash string) string {
	return filepath.Join(s.dir, hash[:2], hash+blobSuffix)
}

func (s *Store) Has(hash string) (bool, error) {
	if !validHash(hash) {
		return false, ErrInvalidHash
	}
	_, err := os.Stat(s.path(hash))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Put stores data under its hash. created reports whether this call, or an
// identical call it was collapsed with, wrote a new blob.
func (s *Store) Put(ctx context.Context, data []byte) (hash string, created bool, err error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	hash = Hash(data)
	v, err, shared := s.writes.Do(hash, func() (any, error) {
		return s.write(hash, data)
	})
	if err != nil {
		return "", false, err
	}

	created = v.(bool)
	s.logger.Debug().
		Str("hash", hash).
		Bool("created", created).
		Bool("shared", shared).
		Int("bytes", len(data)).
		Msg("archive put")
	return hash, created, nil
}

func (s *Store) write(hash string, data []byte) (bool, error) {
	final := s.path(hash)
	if _, err := os.Stat(final); err == nil {
		return false, nil
	}

	shard := filepath.Dir(final)
	if err := os.MkdirAll(shard, 0o755); err != nil {
		return false, fmt.Errorf("failed to create shard dir: %w", err)
	}

	tmp, err := os.CreateTemp(shard, hash+".*.tmp")
	if err != nil {
		return false, fmt.Errorf("failed to create temp blob: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(s.encoder.EncodeAll(data, nil)); err != nil {
		tmp.Close()
		return false, fmt.Errorf("failed to write blob: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return false, fmt.Errorf("failed to sync blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return false, fmt.Errorf("failed to close blob: %w", err)
	}

	// link fails if another process committed the same hash first
	if err := os.Link(tmp.Name(), final); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to commit blob: %w", err)
	}
	return true, nil
}

func (s *Store) Get(ctx context.Context, hash string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !validHash(hash) {
		return nil, ErrInvalidHash
	}

	compressed, err := os.ReadFile(s.path(hash))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, hash)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read archive %s: %w", hash, err)
	}

	data, err := s.decoder.DecodeAll(compressed, nil)
	if err != nil {
		s.logger.Error().Err(err).Str("hash", hash).Msg("archive failed to decompress")
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, hash, err)
	}
	if Hash(data) != hash {
		return nil, fmt.Errorf("%w: %s: content hash mismatch", ErrCorrupt, hash)
	}
	return data, nil
}
