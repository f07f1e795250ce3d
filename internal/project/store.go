package project

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/keagan/reelcut/internal/timeline"
	"github.com/keagan/reelcut/pkg/util"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Store reads and writes project files.
type Store struct {
	logger zerolog.Logger
	opts   timeline.Options
}

// NewStore creates a store; opts configures every loaded timeline.
func NewStore(logger zerolog.Logger, opts timeline.Options) *Store {
	return &Store{
		logger: logger.With().Str("component", "project").Logger(),
		opts:   opts,
	}
}

// Encode writes reg as YAML.
func Encode(w io.Writer, reg *timeline.Registry) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(FromRegistry(reg)); err != nil {
		return fmt.Errorf("encode project: %w", err)
	}
	return enc.Close()
}

// Decode reads a YAML document.
func Decode(r io.Reader) (*Document, error) {
	var doc Document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%w: empty file", ErrInvalidDocument)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return &doc, nil
}

// Save writes reg to path atomically, creating the directory if needed.
func (s *Store) Save(path string, reg *timeline.Registry) error {
	var buf bytes.Buffer
	if err := Encode(&buf, reg); err != nil {
		return err
	}
	if err := util.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("create project directory: %w", err)
	}
	if err := util.WriteFileAtomic(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write project: %w", err)
	}

	s.logger.Info().
		Str("path", path).
		Int("timelines", len(reg.Timelines())).
		Int("bytes", buf.Len()).
		Msg("project saved")
	return nil
}

// Load reads path and rebuilds its timelines.
func (s *Store) Load(path string) (*timeline.Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	reg, err := doc.ToRegistry(s.opts)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	s.logger.Info().
		Str("path", path).
		Int("timelines", len(reg.Timelines())).
		Int("clips", len(reg.Main().Clips())).
		Msg("project loaded")
	return reg, nil
}
