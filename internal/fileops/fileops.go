package fileops

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dooshek/duologue/internal/logger"
	"github.com/google/uuid"
)

// ErrConfigNotFound is returned when a configuration file does not exist
var ErrConfigNotFound = errors.New("configuration file not found")

// FileOps interface defines operations for managing files in the duologue config directory
type FileOps interface {
	// GetConfigDir returns the full path to the duologue config directory
	GetConfigDir() string

	// GetStatsPath returns the path of the usage statistics file
	GetStatsPath() string

	// SaveConfig saves data to a file in the config directory
	SaveConfig(filename string, data []byte) error

	// LoadConfig loads data from a file in the config directory
	LoadConfig(filename string) ([]byte, error)

	// EnsureDirectories creates necessary directories if they don't exist
	EnsureDirectories() error

	// NewWorkDir creates a scoped scratch directory for one pipeline run.
	// The returned release func removes it and everything inside.
	NewWorkDir() (string, func(), error)
}

// DefaultFileOps implements FileOps interface
type DefaultFileOps struct {
	configDir string
	tempRoot  string
}

// NewDefaultFileOps creates a new DefaultFileOps instance rooted at ~/.config/duologue
func NewDefaultFileOps() (*DefaultFileOps, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	return NewFileOps(filepath.Join(homeDir, ".config", "duologue"), os.TempDir()), nil
}

// NewFileOps creates a FileOps for an explicit config dir and temp root
func NewFileOps(configDir, tempRoot string) *DefaultFileOps {
	if tempRoot == "" {
		tempRoot = os.TempDir()
	}
	return &DefaultFileOps{configDir: configDir, tempRoot: tempRoot}
}

func (f *DefaultFileOps) GetConfigDir() string {
	return f.configDir
}

func (f *DefaultFileOps) GetStatsPath() string {
	return filepath.Join(f.configDir, "stats.json")
}

func (f *DefaultFileOps) SaveConfig(filename string, data []byte) error {
	path := filepath.Join(f.configDir, filename)
	return WriteFileAtomic(path, data, 0o600)
}

func (f *DefaultFileOps) LoadConfig(filename string) ([]byte, error) {
	path := filename
	if !filepath.IsAbs(path) {
		path = filepath.Join(f.configDir, filename)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, ErrConfigNotFound
	}
	return os.ReadFile(path)
}

func (f *DefaultFileOps) EnsureDirectories() error {
	if err := os.MkdirAll(f.configDir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return nil
}

func (f *DefaultFileOps) NewWorkDir() (string, func(), error) {
	dir := filepath.Join(f.tempRoot, "duologue-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", func() {}, fmt.Errorf("failed to create work directory: %w", err)
	}

	release := func() {
		if err := os.RemoveAll(dir); err != nil {
			logger.Error("Failed to remove work directory", err)
			return
		}
		logger.Debugf("Removed work directory %s", dir)
	}
	return dir, release, nil
}

// WriteFileAtomic writes data next to path and renames it into place, so a
// reader never sees a partially written file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	return ReplaceFile(path, perm, func(f *os.File) error {
		_, err := f.Write(data)
		return err
	})
}

// ReplaceFile creates missing parent directories, lets write fill a temporary
// file in the destination directory, then renames it over path. On any
// failure the temporary file is removed and path is left untouched.
func ReplaceFile(path string, perm os.FileMode, write func(f *os.File) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".partial-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpName)
		}
	}()

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	committed = true
	return nil
}
