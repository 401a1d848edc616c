package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/pluginlint/pkg/logger"
	"github.com/jingkaihe/pluginlint/pkg/presenter"
)

// WatchConfig holds configuration for the watch command
type WatchConfig struct {
	IgnoreDirs   []string
	Rules        []string
	DebounceTime int
}

// NewWatchConfig creates a new WatchConfig with default values
func NewWatchConfig() *WatchConfig {
	return &WatchConfig{
		IgnoreDirs:   []string{".git", "node_modules"},
		DebounceTime: 500,
	}
}

// Validate validates the WatchConfig and returns an error if invalid
func (c *WatchConfig) Validate() error {
	if c.DebounceTime < 0 {
		return errors.Errorf("debounce time cannot be negative: %d", c.DebounceTime)
	}
	return nil
}

// FileEvent represents a file system event with additional metadata
type FileEvent struct {
	Path string
	Op   fsnotify.Op
	Time time.Time
}

var watchCmd = &cobra.Command{
	Use:   "watch [bundle-root]",
	Short: "Re-validate a bundle whenever its files change",
	Long: `Watch a plugin bundle and re-run validation after each burst of writes.

Directories such as .git and node_modules are ignored. Stop with Ctrl+C.`,
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{annotationRootArg: "true"},
	Run: func(cmd *cobra.Command, args []string) {
		config := getWatchConfigFromFlags(cmd)
		if err := config.Validate(); err != nil {
			presenter.Error(err, "Invalid configuration")
			os.Exit(1)
		}

		if err := runWatchMode(cmd.Context(), bundleRoot(args), config); err != nil {
			presenter.Error(err, "Watch failed")
			os.Exit(1)
		}
	},
}

func init() {
	defaults := NewWatchConfig()
	watchCmd.Flags().StringSliceP("ignore", "i", defaults.IgnoreDirs, "Directory names to ignore")
	watchCmd.Flags().StringSliceP("rule", "r", defaults.Rules, "Only run the named rules (repeatable)")
	watchCmd.Flags().IntP("debounce", "d", defaults.DebounceTime, "Debounce time in milliseconds for file change events")
}

func getWatchConfigFromFlags(cmd *cobra.Command) *WatchConfig {
	config := NewWatchConfig()

	if ignoreDirs, err := cmd.Flags().GetStringSlice("ignore"); err == nil {
		config.IgnoreDirs = ignoreDirs
	}
	if rules, err := cmd.Flags().GetStringSlice("rule"); err == nil {
		config.Rules = rules
	}
	if debounceTime, err := cmd.Flags().GetInt("debounce"); err == nil {
		config.DebounceTime = debounceTime
	}

	return config
}

func runWatchMode(ctx context.Context, root string, config *WatchConfig) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create file watcher")
	}
	defer watcher.Close()

	if err := addWatchDirs(ctx, watcher, root, config.IgnoreDirs); err != nil {
		return err
	}

	events := make(chan FileEvent)
	debouncedEvents := make(chan FileEvent)
	go debounceFileEvents(ctx, events, debouncedEvents, time.Duration(config.DebounceTime)*time.Millisecond)

	revalidate := func() {
		presenter.Separator()
		report, err := validateBundle(ctx, root, config.Rules)
		if err != nil {
			presenter.Error(err, "Validation could not run")
			return
		}
		presenter.Findings(report)
	}
	revalidate()
	presenter.Info("Watching for file changes... Press Ctrl+C to stop")

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ignoredPath(root, event.Name, config.IgnoreDirs) {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addWatchDirs(ctx, watcher, event.Name, config.IgnoreDirs); err != nil {
						logger.G(ctx).WithError(err).WithField("directory", event.Name).Warn("failed to watch new directory")
					}
				}
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			// Debounce per bundle so a burst of writes triggers one run.
			select {
			case events <- FileEvent{Path: root, Op: event.Op, Time: time.Now()}:
			case <-ctx.Done():
				return nil
			}
			logger.G(ctx).WithField("file", event.Name).WithField("operation", event.Op.String()).Debug("file change detected")
		case event, ok := <-debouncedEvents:
			if !ok {
				return nil
			}
			presenter.Info(fmt.Sprintf("Change detected at %s", event.Time.Format(time.TimeOnly)))
			revalidate()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.G(ctx).WithError(err).Error("error watching files")
		case <-ctx.Done():
			return nil
		}
	}
}

func addWatchDirs(ctx context.Context, watcher *fsnotify.Watcher, dir string, ignoreDirs []string) error {
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && isIgnoredDir(d.Name(), ignoreDirs) {
			logger.G(ctx).WithField("directory", path).Debug("skipping ignored directory")
			return filepath.SkipDir
		}
		logger.G(ctx).WithField("directory", path).Debug("adding directory to watcher")
		return watcher.Add(path)
	})
	return errors.Wrapf(err, "failed to watch %s", dir)
}

func isIgnoredDir(name string, ignoreDirs []string) bool {
	for _, ignore := range ignoreDirs {
		if name == ignore {
			return true
		}
	}
	return false
}

// ignoredPath reports whether any directory between root and path is ignored.
func ignoredPath(root, path string, ignoreDirs []string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	for dir := filepath.Dir(rel); dir != "." && dir != string(filepath.Separator); dir = filepath.Dir(dir) {
		if isIgnoredDir(filepath.Base(dir), ignoreDirs) {
			return true
		}
	}
	return isIgnoredDir(filepath.Base(rel), ignoreDirs)
}

// debounceFileEvents forwards the last event per path once no newer event for
// that path has arrived within delay.
func debounceFileEvents(ctx context.Context, input <-chan FileEvent, output chan<- FileEvent, delay time.Duration) {
	pending := make(map[string]*time.Timer)
	stopAll := func() {
		for _, timer := range pending {
			timer.Stop()
		}
	}

	for {
		select {
		case event, ok := <-input:
			if !ok {
				stopAll()
				return
			}
			if timer, exists := pending[event.Path]; exists {
				timer.Stop()
			}

			eventCopy := event
			pending[event.Path] = time.AfterFunc(delay, func() {
				select {
				case output <- eventCopy:
				case <-ctx.Done():
				}
			})
		case <-ctx.Done():
			stopAll()
			return
		}
	}
}
