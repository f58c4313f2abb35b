// Package beatmapstore implements the filesystem beatmap store (C6):
// content-hash-keyed .osu files, startup preload into the parsed-beatmap
// cache, and a rehash sweep.
package beatmapstore

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pp-server/pp-server/internal/domain"
)

// preloadWarnThreshold mirrors the original's `> 9000` memory warning.
const preloadWarnThreshold = 9000

// Store reads and writes .osu files under dir, keyed by content hash, and
// fronts them with a BeatmapCache. Grounded on utils/common.rs
// (listing_osu_files, preload_osu_files, calc_file_md5,
// recalculate_osu_file_md5) and objects/calculator.rs's local-file lookup.
type Store struct {
	dir    string
	cache  domain.BeatmapCache
	parser domain.Parser
	log    zerolog.Logger
}

// New builds a Store rooted at dir, fronting cache and using parser to turn
// raw bytes into ParsedBeatmap handles.
func New(dir string, cache domain.BeatmapCache, parser domain.Parser, log zerolog.Logger) *Store {
	return &Store{
		dir:    dir,
		cache:  cache,
		parser: parser,
		log:    log.With().Str("component", "beatmapstore").Logger(),
	}
}

func (s *Store) path(hash string) string {
	return filepath.Join(s.dir, hash+".osu")
}

// Get checks the cache first; on miss it reads, parses, and caches the
// local file. Returns domain.ErrFileNotFound if the file is absent.
func (s *Store) Get(hash string) (domain.ParsedBeatmap, error) {
	if b, ok := s.cache.Get(hash); ok {
		return b, nil
	}

	raw, err := os.ReadFile(s.path(hash))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.NewApiError(domain.ErrFileNotFound, hash)
		}
		return nil, domain.NewApiError(domain.ErrFileNotFound, err.Error())
	}

	beatmap, err := s.parser.Parse(raw)
	if err != nil {
		return nil, domain.NewApiError(domain.ErrParseFailed, err.Error())
	}
	s.cache.Put(hash, beatmap)
	return beatmap, nil
}

// Write best-effort persists raw bytes under <dir>/<hash>.osu; failures are
// logged, not propagated.
func (s *Store) Write(raw []byte, hash string) {
	if err := os.WriteFile(s.path(hash), raw, 0o644); err != nil {
		s.log.Warn().Err(err).Str("hash", hash).Msg("failed to write .osu file to disk")
	}
}

func (s *Store) listOsuFiles() ([]os.DirEntry, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	out := make([]os.DirEntry, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(e.Name(), ".osu") {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Preload fills the cache up to maxLoad entries from files on disk, keyed
// by the filename stem (assumed to equal the content hash).
func (s *Store) Preload(maxLoad int) {
	entries, err := s.listOsuFiles()
	if err != nil {
		s.log.Warn().Err(err).Msg("could not list .osu files for preload")
		return
	}
	total := len(entries)
	s.log.Info().Int("total", total).Msg(".osu directory listed")

	if total > preloadWarnThreshold && maxLoad > preloadWarnThreshold {
		s.log.Warn().Msg("preloading over 9000 beatmaps; this may exhaust memory")
	}

	success := 0
	for _, e := range entries {
		if success >= maxLoad {
			break
		}
		hash := strings.TrimSuffix(e.Name(), ".osu")
		raw, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			continue
		}
		beatmap, err := s.parser.Parse(raw)
		if err != nil {
			continue
		}
		s.cache.Put(hash, beatmap)
		success++
	}
	s.log.Info().Int("success", success).Int("total", total).Int("max_load", maxLoad).Msg("preload done")
}

// Rehash recomputes the md5 of every .osu file and renames it to
// <md5>.osu. Per-entry errors are counted but do not abort the sweep.
func (s *Store) Rehash() {
	entries, err := s.listOsuFiles()
	if err != nil {
		s.log.Warn().Err(err).Msg("could not list .osu files for rehash")
		return
	}

	var renamed, done, failed int
	for _, e := range entries {
		done++
		path := filepath.Join(s.dir, e.Name())
		hash, err := fileMD5(path)
		if err != nil {
			failed++
			continue
		}
		if err := os.Rename(path, s.path(hash)); err != nil {
			failed++
			continue
		}
		renamed++
	}
	s.log.Info().Int("renamed", renamed).Int("done", done).Int("errors", failed).Msg("rehash sweep done")
}

func fileMD5(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
