// Package session holds the viewer and display language of one client.
// It is created by the caller and passed to whatever needs it.
package session

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/utafrali/fitvibe/internal/domain"
)

// Languages supported by the storefront. The first is the default.
var Languages = []string{"en", "tr"}

// DefaultLanguage is used when nothing valid was stored.
const DefaultLanguage = "en"

// LanguageStore persists the chosen language between runs.
type LanguageStore interface {
	Load() (string, error)
	Save(lang string) error
}

// FileLanguageStore keeps the language in a small text file.
type FileLanguageStore struct {
	Path string
}

// Load returns the stored language, or "" when nothing was stored yet.
func (s FileLanguageStore) Load() (string, error) {
	b, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read language: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

// Save writes lang, creating the parent directory when needed.
func (s FileLanguageStore) Save(lang string) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return fmt.Errorf("save language: %w", err)
	}
	if err := os.WriteFile(s.Path, []byte(lang+"\n"), 0o644); err != nil {
		return fmt.Errorf("save language: %w", err)
	}
	return nil
}

// Session is safe for concurrent use.
type Session struct {
	mu     sync.RWMutex
	viewer domain.Viewer
	lang   string
	store  LanguageStore
	logger *slog.Logger
}

// New creates a session for viewer. store may be nil, in which case
// language changes are not persisted.
func New(viewer domain.Viewer, store LanguageStore, logger *slog.Logger) *Session {
	return &Session{viewer: viewer, lang: DefaultLanguage, store: store, logger: logger}
}

// Initialize applies a previously stored language. Unsupported or empty
// values leave the default in place.
func (s *Session) Initialize(storedLang string) {
	lang := normalize(storedLang)
	s.mu.Lock()
	defer s.mu.Unlock()
	if slices.Contains(Languages, lang) {
		s.lang = lang
	} else {
		s.lang = DefaultLanguage
	}
}

// Restore reads the language from the store and applies it.
func (s *Session) Restore() error {
	if s.store == nil {
		s.Initialize("")
		return nil
	}
	lang, err := s.store.Load()
	if err != nil {
		s.Initialize("")
		return err
	}
	s.Initialize(lang)
	return nil
}

// ChangeLanguage switches and persists the language. A failed save is
// logged; the switch still takes effect.
func (s *Session) ChangeLanguage(lang string) error {
	lang = normalize(lang)
	if !slices.Contains(Languages, lang) {
		return fmt.Errorf("unsupported language %q", lang)
	}

	s.mu.Lock()
	s.lang = lang
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.Save(lang); err != nil {
			s.logger.Warn("failed to persist language",
				slog.String("language", lang),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// Language is the active display language.
func (s *Session) Language() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lang
}

// Viewer is the signed-in user, or the zero value for a visitor.
func (s *Session) Viewer() domain.Viewer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewer
}

// SetViewer replaces the viewer after sign-in or sign-out.
func (s *Session) SetViewer(v domain.Viewer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewer = v
}

func normalize(lang string) string {
	return strings.ToLower(strings.TrimSpace(lang))
}
