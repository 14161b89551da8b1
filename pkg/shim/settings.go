package shim

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ClientSettings are the per-provider client credentials supplied by a
// settings file.
type ClientSettings struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// SettingsFile is a YAML catalog of provider client credentials, keyed by
// shim key:
//
//	shims:
//	  fitbit:
//	    client_id: abc
//	    client_secret: def
//
// It complements environment-based configuration for deployments that manage
// many providers in one file.
type SettingsFile struct {
	Shims map[string]ClientSettings `yaml:"shims"`
}

// LoadSettingsFile reads and parses a provider settings catalog.
func LoadSettingsFile(path string) (*SettingsFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings file: %w", err)
	}
	var f SettingsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse settings file: %w", err)
	}
	return &f, nil
}

// Credentials returns the client credentials for a shim key, if present.
func (f *SettingsFile) Credentials(key string) (clientID, clientSecret string, ok bool) {
	if f == nil {
		return "", "", false
	}
	s, ok := f.Shims[key]
	return s.ClientID, s.ClientSecret, ok
}
