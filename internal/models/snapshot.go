package models

// RegistrySnapshot is a point-in-time copy of a registry for rendering.
type RegistrySnapshot struct {
	Files      []FileSummary `json:"files"`
	SelectedID string        `json:"selectedId,omitempty"`
}

// UploadStatus reports the uploader state shown next to the drop target.
type UploadStatus struct {
	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`
}

// WorkspaceState combines everything one screen renders.
type WorkspaceState struct {
	ID       string           `json:"id"`
	Registry RegistrySnapshot `json:"registry"`
	Upload   UploadStatus     `json:"upload"`
}
