package site

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Loader reads a site profile overlay from a YAML file.
type Loader struct {
	filePath string
}

// NewLoader creates a new profile loader
func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
	}
}

// Load reads the YAML file on top of the default profile and validates the result.
// An empty path yields the validated default profile.
func (l *Loader) Load() (Profile, error) {
	profile := Default()

	if l.filePath != "" {
		data, err := os.ReadFile(l.filePath)
		if err != nil {
			return Profile{}, fmt.Errorf("failed to read profile file: %w", err)
		}

		// Expand ${VAR} references so domains can be templated per deployment
		data = []byte(os.ExpandEnv(string(data)))

		if err := yaml.Unmarshal(data, &profile); err != nil {
			return Profile{}, fmt.Errorf("failed to parse profile yaml: %w", err)
		}
	}

	if err := profile.Validate(); err != nil {
		return Profile{}, err
	}
	return profile, nil
}
