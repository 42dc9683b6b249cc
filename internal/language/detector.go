package language

import "strings"

// Detector resolves language tags from file names.
type Detector struct {
	table map[string]string
}

var defaultDetector = NewDetector(nil)

// NewDetector creates a detector from the built-in table plus overrides.
// Override keys may carry a leading dot and any case; entries with an empty
// tag are skipped so the detector never returns an empty tag.
func NewDetector(overrides map[string]string) *Detector {
	table := DefaultTable()
	for ext, tag := range overrides {
		ext = normalizeExtension(ext)
		tag = strings.TrimSpace(tag)
		if ext == "" || tag == "" {
			continue
		}
		table[ext] = tag
	}
	return &Detector{table: table}
}

// Detect returns the tag for name, or Fallback when the name has no
// extension or the extension is unknown.
func (d *Detector) Detect(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return Fallback
	}
	ext := strings.ToLower(name[idx+1:])
	if tag, ok := d.table[ext]; ok {
		return tag
	}
	return Fallback
}

// Tags returns the closed set of tags this detector can produce, sorted.
func (d *Detector) Tags() []string {
	return sortedTags(d.table)
}

// Table returns a copy of the effective extension table.
func (d *Detector) Table() map[string]string {
	out := make(map[string]string, len(d.table))
	for ext, tag := range d.table {
		out[ext] = tag
	}
	return out
}

// Detect resolves name with the built-in table.
func Detect(name string) string {
	return defaultDetector.Detect(name)
}

func normalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	return strings.TrimPrefix(ext, ".")
}
