package wizard

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/noah-isme/sma-admission-api/internal/dto"
)

// persistedState is the whitelist of wizard state written to disk. Transient
// flags (submit latch, last error, success marker) never survive a restart.
type persistedState struct {
	VerifiedAdmission *dto.VerifiedAdmission       `json:"verifiedAdmission"`
	RegistrationData  dto.RegisterAdmissionRequest `json:"registrationData"`
	CurrentStep       int                          `json:"currentStep"`
}

// Store reads and writes wizard state to a JSON file.
type Store struct {
	path string
}

// NewStore creates a Store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the persisted state. A missing file yields (nil, nil) so a fresh
// wizard starts clean.
func (s *Store) Load() (*persistedState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read wizard state: %w", err)
	}

	var state persistedState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode wizard state: %w", err)
	}
	return &state, nil
}

// Save writes the state atomically via a temp file rename.
func (s *Store) Save(state persistedState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode wizard state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".wizard-*.json")
	if err != nil {
		return fmt.Errorf("create temp state: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()          //nolint:errcheck
		os.Remove(tmpName)   //nolint:errcheck
		return fmt.Errorf("write wizard state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return fmt.Errorf("close wizard state: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return fmt.Errorf("persist wizard state: %w", err)
	}
	return nil
}

// Clear removes the persisted state file.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear wizard state: %w", err)
	}
	return nil
}
