package service

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"circuitflow/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// Settings — key/value rows in app_settings
// ─────────────────────────────────────────────────────────────
//
// Holds the main window size between sessions and the id of the workflow
// the desktop app last had open.

// WindowSize holds the saved window dimensions.
type WindowSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// SettingsService persists small app settings.
type SettingsService struct {
	db *storage.DB
}

// NewSettingsService creates a SettingsService.
func NewSettingsService(db *storage.DB) *SettingsService {
	return &SettingsService{db: db}
}

const (
	settingWindowWidth     = "window_width"
	settingWindowHeight    = "window_height"
	settingCurrentWorkflow = "current_workflow"
	defaultWindowWidth     = 1440
	defaultWindowHeight    = 900
)

// LoadWindowSize returns the saved window dimensions, or sensible defaults.
func (s *SettingsService) LoadWindowSize() WindowSize {
	w, h := defaultWindowWidth, defaultWindowHeight
	if s.db == nil {
		return WindowSize{Width: w, Height: h}
	}
	if v, err := s.get(settingWindowWidth); err == nil {
		if n, err := strconv.Atoi(v); err == nil {
			w = n
		}
	}
	if v, err := s.get(settingWindowHeight); err == nil {
		if n, err := strconv.Atoi(v); err == nil {
			h = n
		}
	}
	if w < 800 {
		w = defaultWindowWidth
	}
	if h < 600 {
		h = defaultWindowHeight
	}
	return WindowSize{Width: w, Height: h}
}

// SaveWindowSize persists the current window dimensions.
func (s *SettingsService) SaveWindowSize(width, height int) error {
	if s.db == nil {
		return fmt.Errorf("window settings: no db")
	}
	if err := s.set(settingWindowWidth, strconv.Itoa(width)); err != nil {
		return err
	}
	return s.set(settingWindowHeight, strconv.Itoa(height))
}

// CurrentWorkflowID returns the last opened workflow, or "".
func (s *SettingsService) CurrentWorkflowID() string {
	if s.db == nil {
		return ""
	}
	v, _ := s.get(settingCurrentWorkflow)
	return v
}

// SetCurrentWorkflowID records the open workflow.
func (s *SettingsService) SetCurrentWorkflowID(id string) error {
	if s.db == nil {
		return nil
	}
	return s.set(settingCurrentWorkflow, id)
}

func (s *SettingsService) get(key string) (string, error) {
	var v string
	err := s.db.Conn().QueryRow(`SELECT value FROM app_settings WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", err
	}
	return v, err
}

func (s *SettingsService) set(key, value string) error {
	_, err := s.db.Conn().Exec(
		`INSERT INTO app_settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("save setting %s: %w", key, err)
	}
	return nil
}
