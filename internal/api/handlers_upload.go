// handlers_upload.go - File upload operation handlers
package api

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"

	"github.com/code-explorer/backend/internal/models"
	"github.com/code-explorer/backend/internal/storage"
	"github.com/code-explorer/backend/internal/upload"
	"github.com/code-explorer/backend/internal/workspace"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// UploadHandlerImpl implements the UploadHandler interface
type UploadHandlerImpl struct {
	workspaces WorkspaceStore
	store      storage.Store
	log        zerolog.Logger
}

// NewUploadHandler creates a new upload handler instance
func NewUploadHandler(workspaces WorkspaceStore, store storage.Store, log zerolog.Logger) UploadHandler {
	return &UploadHandlerImpl{
		workspaces: workspaces,
		store:      store,
		log:        log,
	}
}

// HandleUploadFiles accepts a multipart selection. Only the first file is used.
func (h *UploadHandlerImpl) HandleUploadFiles(c echo.Context) error {
	ws, err := lookupWorkspace(h.workspaces, c)
	if err != nil {
		return err
	}

	var sources []upload.Source
	if form, err := c.MultipartForm(); err == nil {
		sources = upload.FormFileSources(form.File["file"])
	}

	return h.upload(c, ws, sources)
}

// HandleUploadBase64 accepts a file as base64 JSON
func (h *UploadHandlerImpl) HandleUploadBase64(c echo.Context) error {
	ws, err := lookupWorkspace(h.workspaces, c)
	if err != nil {
		return err
	}

	var req uploadFileRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if err := req.validate(); err != nil {
		return err
	}

	decoded, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		return NewBadRequestError("invalid base64 data", err)
	}

	return h.upload(c, ws, []upload.Source{upload.BytesSource{FileName: req.Name, Data: decoded}})
}

// HandleUploadChunk accepts a single chunk of a chunked upload
// (multipart fields uploadId, chunkIndex and file)
func (h *UploadHandlerImpl) HandleUploadChunk(c echo.Context) error {
	ws, err := lookupWorkspace(h.workspaces, c)
	if err != nil {
		return err
	}

	uploadID := c.FormValue("uploadId")
	if !storage.ValidUploadID(uploadID) {
		return NewValidationError("uploadId")
	}
	chunkIndex, err := strconv.Atoi(c.FormValue("chunkIndex"))
	if err != nil || chunkIndex < 0 {
		return NewValidationError("chunkIndex")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return NewBadRequestError("no chunk data provided", err)
	}
	src, err := file.Open()
	if err != nil {
		return NewInternalError("failed to open chunk", err)
	}
	defer src.Close()

	if err := h.store.SaveChunk(spoolUploadID(ws.ID, uploadID), chunkIndex, src); err != nil {
		if errors.Is(err, storage.ErrInvalidUploadID) {
			return NewValidationError("uploadId")
		}
		return NewInternalError("failed to save chunk", err)
	}

	return c.NoContent(http.StatusAccepted)
}

// HandleCompleteUpload assembles a chunked upload and feeds it to the uploader
func (h *UploadHandlerImpl) HandleCompleteUpload(c echo.Context) error {
	ws, err := lookupWorkspace(h.workspaces, c)
	if err != nil {
		return err
	}

	var req completeUploadRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if err := req.validate(); err != nil {
		return err
	}

	spooled, err := h.store.CompleteChunkedUpload(spoolUploadID(ws.ID, req.UploadID), req.Name, req.TotalChunks)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidUploadID) {
			return NewValidationError("uploadId")
		}
		return NewBadRequestError("failed to assemble upload", err)
	}
	defer func() {
		if err := h.store.Delete(spooled.ID); err != nil {
			h.log.Warn().Err(err).Str("spool", spooled.ID).Msg("failed to delete spool file")
		}
	}()

	return h.upload(c, ws, []upload.Source{upload.SpoolSource{
		Spool:    h.store,
		ID:       spooled.ID,
		FileName: spooled.Name,
		Encoding: req.Encoding,
	}})
}

// spoolUploadID scopes a client upload id to its workspace so one workspace
// cannot complete another's chunks.
func spoolUploadID(wsID, uploadID string) string {
	return wsID + "_" + uploadID
}

func (h *UploadHandlerImpl) upload(c echo.Context, ws *workspace.Workspace, sources []upload.Source) error {
	record, err := ws.Upload(sources)
	if err != nil {
		return mapDomainError(err)
	}

	snapshot := ws.Snapshot()
	return c.JSON(http.StatusCreated, uploadResponse{
		File:     record.Summary(snapshot.SelectedID == record.ID),
		Registry: snapshot,
	})
}

// Request/Response types

type uploadFileRequest struct {
	Name string `json:"name"`
	Data string `json:"data"` // Base64-encoded content
}

func (r *uploadFileRequest) validate() error {
	if r.Name == "" {
		return NewValidationError("name")
	}
	return nil
}

type completeUploadRequest struct {
	UploadID    string `json:"uploadId"`
	Name        string `json:"name"`
	TotalChunks int    `json:"totalChunks"`
	Encoding    string `json:"encoding"` // "gzip" or empty
}

func (r *completeUploadRequest) validate() error {
	if !storage.ValidUploadID(r.UploadID) {
		return NewValidationError("uploadId")
	}
	if r.Name == "" {
		return NewValidationError("name")
	}
	if r.TotalChunks <= 0 {
		return NewBadRequestError("totalChunks must be positive", nil)
	}
	return nil
}

type uploadResponse struct {
	File     models.FileSummary      `json:"file"`
	Registry models.RegistrySnapshot `json:"registry"`
}
