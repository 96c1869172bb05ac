package config

import (
	"fmt"
)

// KeyInfo describes a config key for display purposes.
type KeyInfo struct {
	Key    string
	EnvVar string
	Value  string
}

// ShowAll returns all config key/value pairs from the current config.
// Secret values are masked.
func ShowAll(cfg Config) []KeyInfo {
	var result []KeyInfo
	for _, s := range specs {
		v := fmt.Sprintf("%v", s.extract(cfg))
		if s.secret {
			v = mask(v)
		}
		result = append(result, KeyInfo{
			Key:    s.key,
			EnvVar: s.env,
			Value:  v,
		})
	}
	return result
}

func mask(v string) string {
	switch {
	case v == "":
		return "(not set)"
	case len(v) <= 8:
		return "********"
	default:
		return v[:4] + "..." + v[len(v)-4:]
	}
}

// SetKey writes a config key to the config file. Secret keys are written to
// the owner-only secrets file instead.
func SetKey(key, value string) error {
	return setKeyWith(newFileBackend(configFilePath()), secretsFile{path: secretsFilePath()}, key, value)
}

type secretWriter interface {
	Set(name, value string) error
}

func setKeyWith(b ConfigBackend, secrets secretWriter, key, value string) error {
	for _, s := range specs {
		if s.key != key {
			continue
		}
		if s.secret {
			return secrets.Set(apiKeyName, value)
		}
		v, err := parseValue(s.typ, value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
		switch s.typ {
		case kInt, kFloat:
			return b.Store(key, v)
		default:
			return b.Store(key, value)
		}
	}

	return fmt.Errorf("unknown config key: %q", key)
}

// ValidKeys returns the list of config key names accepted by SetKey.
func ValidKeys() []string {
	keys := make([]string, 0, len(specs))
	for _, s := range specs {
		keys = append(keys, s.key)
	}
	return keys
}
