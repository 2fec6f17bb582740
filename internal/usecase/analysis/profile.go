package analysis

import (
	"fmt"
	"os"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/mosaicpm/mosaic/internal/errs"
	"github.com/mosaicpm/mosaic/internal/infrastructure/llm"
)

// Profile is the operator-tunable analysis configuration, loaded from a TOML
// file and hot-reloaded on change. Everything has a usable default so the
// engine runs without a profile file at all.
type Profile struct {
	Model                string              `toml:"model"`
	Temperature          float64             `toml:"temperature"`
	MaxDiffSize          int                 `toml:"max_diff_size"`
	MinorChangeThreshold int                 `toml:"minor_change_threshold"`
	RoleAliases          map[string][]string `toml:"role_aliases"`
}

func DefaultProfile() Profile {
	return Profile{
		Model:                "gpt-4o-mini",
		Temperature:          0.2,
		MaxDiffSize:          20000,
		MinorChangeThreshold: 5,
		RoleAliases: map[string][]string{
			"engineer": {"developer", "dev", "programmer"},
			"designer": {"design", "ux"},
		},
	}
}

// LoadProfile reads a profile file, layering it over the defaults so partial
// files are valid.
func LoadProfile(path string) (Profile, error) {
	profile := DefaultProfile()

	raw, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, errs.Wrap(err, "read profile")
	}
	if err := toml.Unmarshal(raw, &profile); err != nil {
		return Profile{}, errs.Wrap(err, "parse profile")
	}
	if err := profile.validate(); err != nil {
		return Profile{}, err
	}
	return profile, nil
}

func (p Profile) validate() error {
	if p.Model == "" {
		return fmt.Errorf("profile: model must not be empty")
	}
	if p.Temperature < 0 || p.Temperature > 2 {
		return fmt.Errorf("profile: temperature %v out of range [0, 2]", p.Temperature)
	}
	if p.MaxDiffSize <= 0 {
		return fmt.Errorf("profile: max_diff_size must be positive")
	}
	if p.MinorChangeThreshold < 0 {
		return fmt.Errorf("profile: minor_change_threshold must not be negative")
	}
	return nil
}

// ProfileStore holds the active profile behind a lock so readers always see a
// consistent snapshot while the watcher swaps in reloaded values.
type ProfileStore struct {
	mu      sync.RWMutex
	profile Profile
}

var _ llm.SettingsSource = (*ProfileStore)(nil)

func NewProfileStore() *ProfileStore {
	return &ProfileStore{profile: DefaultProfile()}
}

// LoadFrom replaces the active profile with the file's contents. A missing
// file keeps the current profile and reports the error; the caller decides
// whether that is fatal.
func (s *ProfileStore) LoadFrom(path string) error {
	profile, err := LoadProfile(path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.profile = profile
	s.mu.Unlock()
	return nil
}

func (s *ProfileStore) Current() Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

func (s *ProfileStore) ModelSettings() llm.ModelSettings {
	p := s.Current()
	return llm.ModelSettings{
		Model:       p.Model,
		Temperature: p.Temperature,
		MaxDiffSize: p.MaxDiffSize,
	}
}

func (s *ProfileStore) MinorChangeThreshold() int {
	return s.Current().MinorChangeThreshold
}

func (s *ProfileStore) RoleAliases() map[string][]string {
	return s.Current().RoleAliases
}
