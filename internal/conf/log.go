package conf

import (
	"fmt"
	"slices"
)

// Log configures internal/flog's minimum level.
type Log struct {
	Level string `yaml:"level"`
}

var validLogLevels = []string{"debug", "info", "warn", "error"}

func (l *Log) setDefaults() {
	if l.Level == "" {
		l.Level = "info"
	}
}

func (l *Log) validate() []error {
	if !slices.Contains(validLogLevels, l.Level) {
		return []error{fmt.Errorf("log.level must be one of %v", validLogLevels)}
	}
	return nil
}
