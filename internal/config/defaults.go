package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ClaimDefaults holds operator overrides for rank requirements and claim
// settings. Keys are permission and setting names as stored in the database.
type ClaimDefaults struct {
	Ranks    map[string]string          `yaml:"ranks"`
	Settings map[string]SettingDefaults `yaml:"settings"`
}

// SettingDefaults leaves a field nil when the file does not override it.
type SettingDefaults struct {
	Wilderness *bool `yaml:"wilderness"`
	Claim      *bool `yaml:"claim"`
}

// LoadClaimDefaults reads the YAML file at path. An empty path yields no
// overrides.
func LoadClaimDefaults(path string) (ClaimDefaults, error) {
	var d ClaimDefaults
	if path == "" {
		return d, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return d, err
	}
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return d, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// SettingOverrides splits the per-setting entries into wilderness and claim
// maps, leaving out fields the file did not set.
func (d ClaimDefaults) SettingOverrides() (wilderness, claim map[string]bool) {
	wilderness = make(map[string]bool)
	claim = make(map[string]bool)
	for name, s := range d.Settings {
		if s.Wilderness != nil {
			wilderness[name] = *s.Wilderness
		}
		if s.Claim != nil {
			claim[name] = *s.Claim
		}
	}
	return wilderness, claim
}
