// Package models contains domain types for the code explorer.
package models

import "time"

// FileRecord represents one uploaded source file.
// Records are values; a registry copies them in and out so a record never
// changes after it is created.
type FileRecord struct {
	ID         string    `json:"id" msgpack:"id"`
	Name       string    `json:"name" msgpack:"name"`
	Content    string    `json:"content" msgpack:"content"`
	Language   string    `json:"language" msgpack:"language"`
	UploadedAt time.Time `json:"uploadedAt" msgpack:"uploadedAt"`
}

// Size returns the content length in bytes.
func (r FileRecord) Size() int64 {
	return int64(len(r.Content))
}

// Summary returns the list representation of the record.
func (r FileRecord) Summary(selected bool) FileSummary {
	return FileSummary{
		ID:         r.ID,
		Name:       r.Name,
		Language:   r.Language,
		UploadedAt: r.UploadedAt,
		Size:       r.Size(),
		Selected:   selected,
	}
}

// FileSummary is a record without its content.
type FileSummary struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Language   string    `json:"language"`
	UploadedAt time.Time `json:"uploadedAt"`
	Size       int64     `json:"size"`
	Selected   bool      `json:"selected"`
}
