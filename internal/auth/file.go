package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/shopadmin/internal/constants"
)

type tokenFile struct {
	Token string `yaml:"token"`
}

// FileBackend keeps the token in a YAML file readable only by the owner.
type FileBackend struct {
	path string
}

// NewFileBackend creates a backend writing to path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Path returns the file location.
func (b *FileBackend) Path() string {
	return b.path
}

// Load reads the token. A missing file means no token.
func (b *FileBackend) Load() (string, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}

		return "", fmt.Errorf("reading token file: %w", err)
	}

	var file tokenFile

	err = yaml.Unmarshal(data, &file)
	if err != nil {
		return "", fmt.Errorf("parsing token file: %w", err)
	}

	return file.Token, nil
}

// Save writes the token, creating the parent directory if needed.
func (b *FileBackend) Save(token string) error {
	err := os.MkdirAll(filepath.Dir(b.path), constants.ConfigDirPerm)
	if err != nil {
		return fmt.Errorf("creating token directory: %w", err)
	}

	data, err := yaml.Marshal(&tokenFile{Token: token})
	if err != nil {
		return fmt.Errorf("encoding token file: %w", err)
	}

	err = os.WriteFile(b.path, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}

	return nil
}

// Delete removes the file. A missing file is not an error.
func (b *FileBackend) Delete() error {
	err := os.Remove(b.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing token file: %w", err)
	}

	return nil
}
