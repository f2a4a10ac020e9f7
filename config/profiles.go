package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fieldlink/adapter-sdk/model"
)

// LoadProfiles scans dir for profile definition files (*.yaml, *.yml) and
// parses each into a DeviceProfile. A profile file with a parse error is
// reported but does not abort the scan of the remaining files; the caller
// decides whether any errors are fatal.
func LoadProfiles(dir string) ([]*model.DeviceProfile, []error) {
	var profiles []*model.DeviceProfile
	var errs []error

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, []error{fmt.Errorf("config: failed to read profiles dir %s: %w", dir, err)}
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}

		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("config: failed to read profile %s: %w", path, err))
			continue
		}

		profile := new(model.DeviceProfile)
		if err := yaml.Unmarshal(data, profile); err != nil {
			errs = append(errs, fmt.Errorf("config: failed to parse profile %s: %w", path, err))
			continue
		}
		profiles = append(profiles, profile)
	}

	return profiles, errs
}
