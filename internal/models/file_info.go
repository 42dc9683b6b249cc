package models

import "time"

// SpoolFile describes an assembled chunked upload waiting to be read.
type SpoolFile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}
