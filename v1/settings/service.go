package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/Aleph-Alpha/vectorinspector/v1/embedding"
	"github.com/Aleph-Alpha/vectorinspector/v1/logger"
	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

// Logger is the logging interface used by the settings service.
//
//go:generate mockgen -source=service.go -destination=mock_logger.go -package=settings
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Debug(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
}

// ChangeFunc is called after a setting was written.
type ChangeFunc func(key string, value any)

// Service persists user preferences in a JSON file. Every write is saved
// immediately. It is safe for concurrent use.
type Service struct {
	path   string
	logger Logger
	now    func() time.Time

	mu        sync.RWMutex
	v         *viper.Viper
	bindings  []ModelBinding
	custom    []CustomModel
	listeners []ChangeFunc
}

var _ vectordb.ModelLookup = (*Service)(nil)

// New loads the settings file at cfg.Path. A missing file yields defaults.
// An unreadable file is logged and replaced by defaults on the next write.
func New(cfg Config, log Logger) (*Service, error) {
	if log == nil {
		log = logger.NewNop()
	}
	path := cfg.Path
	if path == "" {
		path = DefaultPath()
	}
	s := &Service{path: path, logger: log, now: time.Now}
	s.v = s.newViper()

	if _, err := os.Stat(path); err == nil {
		if err := s.v.ReadInConfig(); err != nil {
			s.logger.Error("Failed to load settings", err, map[string]interface{}{"path": path})
			s.v = s.newViper()
			return s, nil
		}
		if err := s.v.UnmarshalKey(keyEmbeddingModels, &s.bindings); err != nil {
			s.logger.Warn("Ignoring malformed embedding model settings", err, nil)
			s.bindings = nil
		}
		if err := s.v.UnmarshalKey(keyCustomModels, &s.custom); err != nil {
			s.logger.Warn("Ignoring malformed custom model settings", err, nil)
			s.custom = nil
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("settings: stat %s: %w", path, err)
	}
	return s, nil
}

func (s *Service) newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigFile(s.path)
	v.SetConfigType("json")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for k, val := range defaults() {
		v.SetDefault(k, val)
	}
	return v
}

// Path returns the settings file location.
func (s *Service) Path() string { return s.path }

// OnChange registers fn to be called after every Set.
func (s *Service) OnChange(fn ChangeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Get returns a setting, or nil when it is unset and has no default.
func (s *Service) Get(key string) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.Get(key)
}

// Set writes a setting, saves the file and notifies listeners.
func (s *Service) Set(key string, value any) error {
	s.mu.Lock()
	s.v.Set(key, value)
	err := s.saveLocked()
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	if err != nil {
		return err
	}
	for _, fn := range listeners {
		fn(key, value)
	}
	return nil
}

// Clear resets every setting to its default and saves the file.
func (s *Service) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v = s.newViper()
	s.bindings = nil
	s.custom = nil
	return s.saveLocked()
}

func (s *Service) CacheEnabled() bool {
	return s.getBool(KeyCacheEnabled)
}

func (s *Service) SetCacheEnabled(enabled bool) error {
	return s.Set(KeyCacheEnabled, enabled)
}

func (s *Service) TelemetryEnabled() bool {
	return s.getBool(KeyTelemetryEnabled)
}

func (s *Service) SetTelemetryEnabled(enabled bool) error {
	return s.Set(KeyTelemetryEnabled, enabled)
}

// DefaultNResults is the result count pre-filled in search forms.
func (s *Service) DefaultNResults() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.GetInt(KeyDefaultNResults)
}

func (s *Service) SetDefaultNResults(n int) error {
	return s.Set(KeyDefaultNResults, n)
}

// AutoGenerateEmbeddings reports whether missing embeddings are computed on insert.
func (s *Service) AutoGenerateEmbeddings() bool {
	return s.getBool(KeyAutoGenerateEmbeddings)
}

func (s *Service) SetAutoGenerateEmbeddings(enabled bool) error {
	return s.Set(KeyAutoGenerateEmbeddings, enabled)
}

func (s *Service) BreadcrumbEnabled() bool {
	return s.getBool(KeyBreadcrumbEnabled)
}

func (s *Service) SetBreadcrumbEnabled(enabled bool) error {
	return s.Set(KeyBreadcrumbEnabled, enabled)
}

// BreadcrumbElideMode is "left" or "middle".
func (s *Service) BreadcrumbElideMode() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.GetString(KeyBreadcrumbElideMode)
}

// SetBreadcrumbElideMode stores mode; anything but "middle" is stored as "left".
func (s *Service) SetBreadcrumbElideMode(mode string) error {
	if mode != "middle" {
		mode = "left"
	}
	return s.Set(KeyBreadcrumbElideMode, mode)
}

func (s *Service) getBool(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.GetBool(key)
}

// SaveEmbeddingModel binds model to (profile, collection). An empty typ is
// stored as ModelTypeUserConfigured.
func (s *Service) SaveEmbeddingModel(profile, collection, model, typ string) error {
	if typ == "" {
		typ = ModelTypeUserConfigured
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	b := ModelBinding{
		Profile:    profile,
		Collection: collection,
		Model:      model,
		Type:       typ,
		Timestamp:  s.timestamp(),
	}
	if i := s.bindingIndex(profile, collection); i >= 0 {
		s.bindings[i] = b
	} else {
		s.bindings = append(s.bindings, b)
	}
	return s.saveLocked()
}

// EmbeddingModelBinding returns the full binding for (profile, collection).
func (s *Service) EmbeddingModelBinding(profile, collection string) (ModelBinding, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.bindingIndex(profile, collection); i >= 0 {
		return s.bindings[i], true
	}
	return ModelBinding{}, false
}

// EmbeddingModel implements vectordb.ModelLookup.
func (s *Service) EmbeddingModel(profile, collection string) (string, bool) {
	b, ok := s.EmbeddingModelBinding(profile, collection)
	if !ok || b.Model == "" {
		return "", false
	}
	return b.Model, true
}

func (s *Service) RemoveEmbeddingModel(profile, collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.bindingIndex(profile, collection)
	if i < 0 {
		return nil
	}
	s.bindings = slices.Delete(s.bindings, i, i+1)
	return s.saveLocked()
}

// RemoveProfileSettings drops every binding of a deleted profile and reports
// how many were removed.
func (s *Service) RemoveProfileSettings(profile string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.bindings)
	s.bindings = slices.DeleteFunc(s.bindings, func(b ModelBinding) bool { return b.Profile == profile })
	removed := before - len(s.bindings)
	if removed == 0 {
		return 0, nil
	}
	s.logger.Info("Removed embedding model settings for profile", nil, map[string]interface{}{
		"profile": profile,
		"removed": removed,
	})
	return removed, s.saveLocked()
}

// AddCustomModel adds a model to the user's list, or refreshes the entry
// with the same name and dimension.
func (s *Service) AddCustomModel(name string, dimension int, typ, description string) error {
	if typ == "" {
		typ = embedding.DefaultModelType
	}
	if description == "" {
		description = "Custom model"
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.timestamp()
	for i := range s.custom {
		if s.custom[i].Name == name && s.custom[i].Dimension == dimension {
			s.custom[i].Type = typ
			s.custom[i].Description = description
			s.custom[i].LastUsed = now
			return s.saveLocked()
		}
	}
	s.custom = append(s.custom, CustomModel{
		Name:        name,
		Dimension:   dimension,
		Type:        typ,
		Description: description,
		Added:       now,
		LastUsed:    now,
	})
	return s.saveLocked()
}

// CustomModels returns the user's models of the given dimension, or all of
// them when dimension is zero.
func (s *Service) CustomModels(dimension int) []CustomModel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if dimension == 0 {
		return slices.Clone(s.custom)
	}
	var out []CustomModel
	for _, m := range s.custom {
		if m.Dimension == dimension {
			out = append(out, m)
		}
	}
	return out
}

func (s *Service) RemoveCustomModel(name string, dimension int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.custom = slices.DeleteFunc(s.custom, func(m CustomModel) bool {
		return m.Name == name && m.Dimension == dimension
	})
	return s.saveLocked()
}

// ModelsForDimension lists the registry's models of a dimension followed by
// the user's custom models of that dimension.
func (s *Service) ModelsForDimension(reg *embedding.Registry, dimension int) []embedding.ModelInfo {
	var out []embedding.ModelInfo
	if reg != nil {
		out = reg.ByDimension(dimension)
	}
	for _, m := range s.CustomModels(dimension) {
		out = append(out, embedding.ModelInfo{
			Name:        m.Name,
			Type:        m.Type,
			Dimension:   m.Dimension,
			Description: m.Description + " (custom)",
			Source:      "custom",
		})
	}
	return out
}

func (s *Service) bindingIndex(profile, collection string) int {
	return slices.IndexFunc(s.bindings, func(b ModelBinding) bool {
		return b.Profile == profile && b.Collection == collection
	})
}

func (s *Service) timestamp() string {
	return s.now().Format(time.RFC3339)
}

// saveLocked writes the file. Bindings and custom models are kept as lists
// so that case-sensitive profile and collection names survive the
// case-insensitive key handling of viper.
func (s *Service) saveLocked() error {
	s.v.Set(keyEmbeddingModels, s.bindings)
	s.v.Set(keyCustomModels, s.custom)

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		s.logger.Error("Failed to save settings", err, map[string]interface{}{"path": s.path})
		return fmt.Errorf("settings: %w", err)
	}
	if err := s.v.WriteConfigAs(s.path); err != nil {
		s.logger.Error("Failed to save settings", err, map[string]interface{}{"path": s.path})
		return fmt.Errorf("settings: %w", err)
	}
	return nil
}
