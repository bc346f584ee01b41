package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the intake home directory.
	DefaultDirName = ".intake"

	// ScratchDirName holds per-request temporary files (uploads, rendered pages).
	ScratchDirName = "scratch"

	// PromptsDirName holds prompt template overrides.
	PromptsDirName = "prompts"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"

	// EnvFileName is the optional dotenv file loaded at startup.
	EnvFileName = ".env"
)

// Dir represents the intake home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.intake).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// ScratchPath returns the path to the scratch directory.
func (d *Dir) ScratchPath() string {
	return filepath.Join(d.path, ScratchDirName)
}

// PromptsPath returns the default prompt override directory.
func (d *Dir) PromptsPath() string {
	return filepath.Join(d.path, PromptsDirName)
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// EnvPath returns the path to the home dotenv file.
func (d *Dir) EnvPath() string {
	return filepath.Join(d.path, EnvFileName)
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	// Create scratch directory (this also creates the parent)
	if err := os.MkdirAll(d.ScratchPath(), 0o755); err != nil {
		return fmt.Errorf("failed to create scratch directory: %w", err)
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}

// PromptsExist returns true if the prompt override directory exists.
func (d *Dir) PromptsExist() bool {
	info, err := os.Stat(d.PromptsPath())
	return err == nil && info.IsDir()
}

// NewScratchDir creates a private temporary directory under the scratch
// path. The caller removes it when done.
func (d *Dir) NewScratchDir(prefix string) (string, error) {
	if err := d.EnsureExists(); err != nil {
		return "", err
	}
	dir, err := os.MkdirTemp(d.ScratchPath(), prefix)
	if err != nil {
		return "", fmt.Errorf("failed to create scratch dir: %w", err)
	}
	return dir, nil
}
