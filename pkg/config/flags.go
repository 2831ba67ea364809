package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/teamgate/pkg/observability"
)

// FlagValues is the on-disk form of the flags file. Absent keys leave the
// current value unchanged.
type FlagValues struct {
	ExtraMessagingBackendsEnabled *bool `yaml:"extra_messaging_backends_enabled"`
}

// Flags holds live feature flags. Reads are lock free and each value is
// replaced wholesale, so a reader always sees either the old or the new value.
type Flags struct {
	extraMessagingBackends atomic.Bool
}

// NewFlags creates flags seeded from configuration
func NewFlags(cfg FeaturesConfig) *Flags {
	f := &Flags{}
	f.extraMessagingBackends.Store(cfg.ExtraMessagingBackendsEnabled)
	return f
}

// ExtraMessagingBackendsEnabled reports whether non-default messaging backends are visible
func (f *Flags) ExtraMessagingBackendsEnabled() bool {
	return f.extraMessagingBackends.Load()
}

// SetExtraMessagingBackendsEnabled changes the flag
func (f *Flags) SetExtraMessagingBackendsEnabled(enabled bool) {
	f.extraMessagingBackends.Store(enabled)
}

// Apply stores every value present in v
func (f *Flags) Apply(v FlagValues) {
	if v.ExtraMessagingBackendsEnabled != nil {
		f.extraMessagingBackends.Store(*v.ExtraMessagingBackendsEnabled)
	}
}

// LoadFlagsFile parses a YAML flags file
func LoadFlagsFile(path string) (FlagValues, error) {
	var v FlagValues

	data, err := os.ReadFile(path)
	if err != nil {
		return v, fmt.Errorf("failed to read flags file: %w", err)
	}
	if err := yaml.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("failed to parse flags file %s: %w", path, err)
	}

	return v, nil
}

// Reload reads path and applies it
func (f *Flags) Reload(path string) error {
	v, err := LoadFlagsFile(path)
	if err != nil {
		return err
	}
	f.Apply(v)
	return nil
}

// Watch reloads the flags file whenever it changes until ctx is done.
// The parent directory is watched so editors that replace the file are picked up.
// A file that fails to parse is logged and the previous values are kept.
func (f *Flags) Watch(ctx context.Context, path string, logger *observability.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := f.Reload(target); err != nil {
				logger.WithError(err).Warn("Failed to reload feature flags")
				continue
			}
			logger.WithField("extra_messaging_backends_enabled", f.ExtraMessagingBackendsEnabled()).
				Info("Feature flags reloaded")
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.WithError(err).Warn("Flags watcher error")
		}
	}
}
