package rules

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/audiolink/audiolinkd/pkg/logging"
)

// SystemConfigPath is the system-wide rule file.
const SystemConfigPath = "/etc/audiolinkd/link-rules.conf"

// UserConfigPath returns the per-user rule file, or "" when no user config
// directory can be determined.
func UserConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "audiolinkd", "link-rules.conf")
}

// LoadFile loads and validates rules from one JSON document (an ordered list
// of LinkRule objects).
func LoadFile(path string) ([]LinkRule, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule file %s: %w", path, err)
	}

	var list []LinkRule
	if err := json.Unmarshal(content, &list); err != nil {
		return nil, fmt.Errorf("parse rule file %s: %w", path, err)
	}
	if err := ValidateAll(list); err != nil {
		return nil, fmt.Errorf("rule file %s: %w", path, err)
	}
	return list, nil
}

// LoadAll loads rules from every path in order, appending them into one list.
// Missing files are skipped silently, broken files are logged and skipped; an
// empty result is allowed.
func LoadAll(logger logging.Logger, paths ...string) []LinkRule {
	var all []LinkRule
	for _, path := range paths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			logger.Debug("rule file not present", logging.Path(path))
			continue
		}
		list, err := LoadFile(path)
		if err != nil {
			logger.Warn("skipping rule file", logging.Path(path), logging.Error(err))
			continue
		}
		logger.Info("loaded link rules", logging.Path(path), logging.Count(len(list)))
		all = append(all, list...)
	}
	if len(all) == 0 {
		logger.Info("no link rules loaded from config files")
	}
	return all
}
