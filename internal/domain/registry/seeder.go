package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/PatternLab/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/PatternLab/backend/internal/shared/types"
)

// DefaultGlob matches every supported content file
const DefaultGlob = "**/*.{yaml,yml,toml,json}"

// Seeder loads exercise content from a directory tree
type Seeder struct {
	manager *Manager
	dir     string
	glob    string
	strict  bool
	log     *logging.Logger
}

// SeedResult summarizes one seeding pass
type SeedResult struct {
	Files     int
	Loaded    int
	Failed    int
	Failures  map[string]error
	Exercises []*types.Exercise
}

// NewSeeder creates a seeder. An empty glob uses DefaultGlob. In strict
// mode any unreadable file fails the whole pass.
func NewSeeder(manager *Manager, dir, glob string, strict bool, log *logging.Logger) *Seeder {
	if glob == "" {
		glob = DefaultGlob
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Seeder{
		manager: manager,
		dir:     dir,
		glob:    glob,
		strict:  strict,
		log:     log.Named("seeder"),
	}
}

// Seed walks the content directory and replaces the registry contents with
// everything that parsed
func (s *Seeder) Seed() (*SeedResult, error) {
	result, err := s.Load()
	if err != nil {
		return nil, err
	}
	if err := s.manager.Replace(result.Exercises); err != nil {
		return nil, err
	}
	s.log.Info("Seeding complete",
		zap.String("dir", s.dir),
		zap.Int("files", result.Files),
		zap.Int("loaded", result.Loaded),
		zap.Int("failed", result.Failed))
	return result, nil
}

// Load parses content without touching the registry
func (s *Seeder) Load() (*SeedResult, error) {
	if !doublestar.ValidatePattern(s.glob) {
		return nil, fmt.Errorf("invalid content glob %q", s.glob)
	}
	if _, err := os.Stat(s.dir); err != nil {
		if errors.Is(err, os.ErrNotExist) && !s.strict {
			s.log.Warn("Content directory not found", zap.String("dir", s.dir))
			return &SeedResult{Failures: map[string]error{}}, nil
		}
		return nil, fmt.Errorf("content directory: %w", err)
	}

	paths, err := s.match()
	if err != nil {
		return nil, err
	}

	result := &SeedResult{Files: len(paths), Failures: make(map[string]error)}
	for _, path := range paths {
		exercises, err := s.loadFile(path)
		if err != nil {
			if s.strict {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			s.log.Warn("Failed to load content file", zap.String("path", path), zap.Error(err))
			result.Failures[path] = err
			result.Failed++
			continue
		}
		result.Exercises = append(result.Exercises, exercises...)
		result.Loaded += len(exercises)
	}
	return result, nil
}

// match returns content paths in lexical order so duplicate detection is
// deterministic
func (s *Seeder) match() ([]string, error) {
	var (
		mu    sync.Mutex
		paths []string
	)
	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, s.dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.dir, p)
		if err != nil {
			return nil
		}
		ok, err := doublestar.Match(s.glob, filepath.ToSlash(rel))
		if err != nil || !ok {
			return nil
		}
		mu.Lock()
		paths = append(paths, p)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk content: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

func (s *Seeder) loadFile(path string) ([]*types.Exercise, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, format, s.dir)
}
