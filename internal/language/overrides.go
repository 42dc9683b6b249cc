package language

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Overrides is the YAML document that extends the extension table:
//
//	extensions:
//	  vue: html
//	  .mjs: javascript
type Overrides struct {
	Extensions map[string]string `yaml:"extensions"`
}

// LoadOverrides reads an overrides file from disk.
func LoadOverrides(path string) (*Overrides, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ParseOverrides(file)
}

// ParseOverrides parses overrides from an io.Reader.
func ParseOverrides(r io.Reader) (*Overrides, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var o Overrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parsing language overrides: %w", err)
	}

	for ext, tag := range o.Extensions {
		if normalizeExtension(ext) == "" {
			return nil, fmt.Errorf("empty extension in language overrides")
		}
		if tag == "" {
			return nil, fmt.Errorf("empty language tag for extension %q", ext)
		}
	}

	return &o, nil
}
