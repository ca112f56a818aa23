package promptstore

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/apex/log"
	"gopkg.in/yaml.v3"

	"github.com/lucasrcosta20/IA-Cadastro/internal/domain"
)

// FileStore keeps the prompt configuration in a YAML document
type FileStore struct {
	path string
}

// New creates a store for the document at path
func New(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the document location
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the prompt configuration.
// A missing file returns domain.ErrPromptsNotFound.
func (s *FileStore) Load() (domain.PromptSet, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.PromptSet{}, fmt.Errorf("%w: %s", domain.ErrPromptsNotFound, s.path)
		}
		return domain.PromptSet{}, err
	}
	defer f.Close()

	log.WithField("file", s.path).Debug("loading prompt configuration")
	return Decode(f)
}

// Decode reads a prompt document. Both fields must be present.
func Decode(r io.Reader) (domain.PromptSet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return domain.PromptSet{}, err
	}

	var doc struct {
		Template  *string   `yaml:"template"`
		System    *string   `yaml:"system"`
		UpdatedAt time.Time `yaml:"updated_at"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return domain.PromptSet{}, fmt.Errorf("invalid prompt document: %w", err)
	}
	if doc.Template == nil || doc.System == nil {
		return domain.PromptSet{}, errors.New("invalid prompt document: template and system are required")
	}

	set := domain.PromptSet{
		Template:  *doc.Template,
		System:    *doc.System,
		UpdatedAt: doc.UpdatedAt,
	}
	return set, nil
}

// Save overwrites the document, creating its directory when needed
func (s *FileStore) Save(set domain.PromptSet) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return err
	}

	data, err := yaml.Marshal(set)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return err
	}

	log.WithField("file", s.path).Info("prompt configuration saved")
	return nil
}
