package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mkerrigan/triagent/internal/assistant"
)

// Store persists triage results as timestamped JSON files.
type Store struct {
	Dir string
}

// NewStore creates a result store rooted at dir, defaulting to
// ~/.local/share/triagent/results.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(home, ".local", "share", "triagent", "results")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Store{Dir: dir}, nil
}

// Save writes the full result record (final answer, execution log, validation
// report, round count) and returns the file path.
func (s *Store) Save(result *assistant.TriageResult) (string, error) {
	name := fmt.Sprintf("triage-%s.json", time.Now().Format("20060102-150405"))
	path := filepath.Join(s.Dir, name)
	if err := s.SaveTo(path, result); err != nil {
		return "", err
	}
	return path, nil
}

// SaveTo writes the result record to an explicit path.
func (s *Store) SaveTo(path string, result *assistant.TriageResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing result file: %w", err)
	}
	return nil
}
