// internal/session/session.go
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zalando/go-keyring"

	"github.com/campaignpulse/pulse/pkg/models"
)

const (
	// KeyringService is the service name for keyring storage
	KeyringService = "pulse-cli"
	// FallbackDir is the directory for file-based session storage (when keyring fails)
	FallbackDir = ".pulse/sessions"
)

// Cookie represents a browser cookie
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

// Data is the stored authentication state for one platform.
type Data struct {
	Platform  models.Platform `json:"platform"`
	Cookies   []Cookie        `json:"cookies"`
	UserAgent string          `json:"user_agent,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt time.Time       `json:"expires_at,omitempty"`
}

// requiredCookies names the cookie each platform's authenticated endpoints
// refuse to work without. Platforms absent from the map work anonymously.
var requiredCookies = map[models.Platform][]string{
	models.PlatformXiaohongshu: {"web_session"},
	models.PlatformInstagram:   {"sessionid"},
	models.PlatformFacebook:    {"c_user", "xs"},
}

// RequiredCookies returns the cookie names platform needs for an
// authenticated crawl. An empty slice means anonymous access works.
func RequiredCookies(platform models.Platform) []string {
	return requiredCookies[platform]
}

// HasRequiredCookies reports whether the session carries every cookie the
// platform demands.
func (d *Data) HasRequiredCookies() bool {
	need := RequiredCookies(d.Platform)
	for _, name := range need {
		found := false
		for _, c := range d.Cookies {
			if c.Name == name && c.Value != "" {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// MergeCookieMap folds plain name→value pairs (for example cookies pasted
// from a browser extension export) into the session, overwriting values for
// names that already exist.
func (d *Data) MergeCookieMap(cookies map[string]string, domain string) {
	for name, value := range cookies {
		replaced := false
		for i := range d.Cookies {
			if d.Cookies[i].Name == name {
				d.Cookies[i].Value = value
				replaced = true
				break
			}
		}
		if !replaced {
			d.Cookies = append(d.Cookies, Cookie{
				Name:   name,
				Value:  value,
				Domain: domain,
				Path:   "/",
			})
		}
	}
}

// Store persists per-platform sessions to the OS keyring, with a plain-file
// fallback for environments where no keyring is reachable (CI, Codespaces,
// headless servers).
type Store struct {
	dir       string
	fileBased *bool
}

// NewStore creates a session store rooted at the user's home directory.
func NewStore() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return &Store{dir: filepath.Join(home, FallbackDir)}, nil
}

// NewFileStore creates a store that always uses file storage under dir.
func NewFileStore(dir string) *Store {
	fileBased := true
	return &Store{dir: dir, fileBased: &fileBased}
}

// useFileBasedStorage checks if we should use file-based storage.
// Cached after the first probe to avoid repeated keyring round-trips.
func (s *Store) useFileBasedStorage() bool {
	if s.fileBased != nil {
		return *s.fileBased
	}

	if os.Getenv("CODESPACES") != "" || os.Getenv("CI") != "" {
		result := true
		s.fileBased = &result
		return true
	}

	testKey := "_test_keyring_access_"
	err := keyring.Set(KeyringService, testKey, "test")
	result := (err != nil)
	s.fileBased = &result

	if !result {
		keyring.Delete(KeyringService, testKey)
	}
	return result
}

func (s *Store) sessionPath(platform models.Platform) (string, error) {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, string(platform)+".json"), nil
}

// Save persists a platform session.
func (s *Store) Save(data *Data) error {
	if data.Platform == "" {
		return fmt.Errorf("session platform cannot be empty")
	}
	if data.CreatedAt.IsZero() {
		data.CreatedAt = time.Now()
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to serialize session: %w", err)
	}

	if s.useFileBasedStorage() {
		path, err := s.sessionPath(data.Platform)
		if err != nil {
			return fmt.Errorf("failed to get session path: %w", err)
		}
		if err := os.WriteFile(path, raw, 0600); err != nil {
			return fmt.Errorf("failed to save session file: %w", err)
		}
		return nil
	}

	if err := keyring.Set(KeyringService, string(data.Platform), string(raw)); err != nil {
		return fmt.Errorf("failed to save to keyring: %w", err)
	}
	return nil
}

// Load retrieves the stored session for a platform. Expired sessions are
// reported as errors so callers fall back to a fresh login.
func (s *Store) Load(platform models.Platform) (*Data, error) {
	if platform == "" {
		return nil, fmt.Errorf("session platform cannot be empty")
	}

	var raw string
	if s.useFileBasedStorage() {
		path, err := s.sessionPath(platform)
		if err != nil {
			return nil, fmt.Errorf("failed to get session path: %w", err)
		}
		fileData, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load session file: %w", err)
		}
		raw = string(fileData)
	} else {
		var err error
		raw, err = keyring.Get(KeyringService, string(platform))
		if err != nil {
			return nil, fmt.Errorf("failed to load from keyring: %w", err)
		}
	}

	var data Data
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("failed to deserialize session: %w", err)
	}
	if !data.ExpiresAt.IsZero() && time.Now().After(data.ExpiresAt) {
		return nil, fmt.Errorf("session expired")
	}
	return &data, nil
}

// Delete removes the stored session for a platform.
func (s *Store) Delete(platform models.Platform) error {
	if platform == "" {
		return fmt.Errorf("session platform cannot be empty")
	}

	if s.useFileBasedStorage() {
		path, err := s.sessionPath(platform)
		if err != nil {
			return fmt.Errorf("failed to get session path: %w", err)
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete session file: %w", err)
		}
		return nil
	}

	if err := keyring.Delete(KeyringService, string(platform)); err != nil {
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return nil
}

// List returns the platforms with a stored session.
func (s *Store) List() ([]models.Platform, error) {
	if s.useFileBasedStorage() {
		entries, err := os.ReadDir(s.dir)
		if err != nil {
			if os.IsNotExist(err) {
				return []models.Platform{}, nil
			}
			return nil, err
		}
		var platforms []models.Platform
		for _, entry := range entries {
			if !entry.IsDir() && filepath.Ext(entry.Name()) == ".json" {
				name := strings.TrimSuffix(entry.Name(), ".json")
				if p, ok := models.ParsePlatform(name); ok {
					platforms = append(platforms, p)
				}
			}
		}
		return platforms, nil
	}

	var platforms []models.Platform
	for _, p := range models.AllPlatforms {
		if _, err := keyring.Get(KeyringService, string(p)); err == nil {
			platforms = append(platforms, p)
		}
	}
	return platforms, nil
}
