// Package view prepares the file list and viewer pane for rendering.
package view

import (
	"html/template"
	"strings"
	"time"

	"github.com/code-explorer/backend/internal/highlight"
	"github.com/code-explorer/backend/internal/models"
)

// TimeLayout formats upload times in the file list.
const TimeLayout = "2006-01-02 15:04:05"

// EmptyTitle and EmptyHint are shown when no file is selected.
const (
	EmptyTitle = "No file selected"
	EmptyHint  = "Select a file from the list to view its content"
)

// EmptyListMessage is shown when the registry has no records.
const EmptyListMessage = "No files uploaded yet. Upload a file to see it here."

// ListItem is one row of the file list.
type ListItem struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Language   string    `json:"language"`
	UploadedAt time.Time `json:"uploadedAt"`
	Uploaded   string    `json:"uploaded"`
	Size       int64     `json:"size"`
	Selected   bool      `json:"selected"`
}

// FileList returns one row per record in insertion order.
func FileList(snapshot models.RegistrySnapshot) []ListItem {
	items := make([]ListItem, 0, len(snapshot.Files))
	for _, f := range snapshot.Files {
		items = append(items, ListItem{
			ID:         f.ID,
			Name:       f.Name,
			Language:   f.Language,
			UploadedAt: f.UploadedAt,
			Uploaded:   f.UploadedAt.Local().Format(TimeLayout),
			Size:       f.Size,
			Selected:   f.Selected,
		})
	}
	return items
}

// Pane is the viewer content for the selected record.
type Pane struct {
	Empty    bool          `json:"empty"`
	Title    string        `json:"title,omitempty"`
	Hint     string        `json:"hint,omitempty"`
	FileID   string        `json:"fileId,omitempty"`
	FileName string        `json:"fileName,omitempty"`
	Language string        `json:"language,omitempty"`
	Lines    int           `json:"lines"`
	Styled   bool          `json:"styled"`
	HTML     template.HTML `json:"html,omitempty"`
	Raw      string        `json:"raw"`
}

// Viewer renders the selected record through a highlighter.
type Viewer struct {
	highlighter highlight.Highlighter
}

// NewViewer creates a Viewer. A nil highlighter renders every file unstyled.
func NewViewer(h highlight.Highlighter) *Viewer {
	return &Viewer{highlighter: h}
}

// Render returns the empty state for nil, otherwise the highlighted content.
// Highlighting failures fall back to escaped raw text.
func (v *Viewer) Render(record *models.FileRecord) Pane {
	if record == nil {
		return Pane{Empty: true, Title: EmptyTitle, Hint: EmptyHint}
	}

	rendered := highlight.Render(v.highlighter, record.Content, record.Language)
	return Pane{
		FileID:   record.ID,
		FileName: record.Name,
		Language: record.Language,
		Lines:    lineCount(record.Content),
		Styled:   rendered.Styled,
		HTML:     rendered.HTML,
		Raw:      record.Content,
	}
}

func lineCount(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}
