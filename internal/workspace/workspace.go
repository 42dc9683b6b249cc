// Package workspace holds the per-screen state of the code explorer.
package workspace

import (
	"sync"
	"time"

	"github.com/code-explorer/backend/internal/models"
	"github.com/code-explorer/backend/internal/registry"
	"github.com/code-explorer/backend/internal/upload"
	"github.com/rs/zerolog"
)

// subscriberBuffer is the number of snapshots queued per subscriber before
// older events are dropped.
const subscriberBuffer = 8

// Workspace owns one registry and the uploader that feeds it.
type Workspace struct {
	ID        string
	CreatedAt time.Time

	registry *registry.Registry
	uploader *upload.Uploader
	log      zerolog.Logger

	mu           sync.Mutex
	lastAccessed time.Time
	subscribers  map[int]chan models.RegistrySnapshot
	nextSub      int
}

func newWorkspace(id string, now time.Time, reg *registry.Registry, uploadOpts []upload.Option, log zerolog.Logger) *Workspace {
	w := &Workspace{
		ID:           id,
		CreatedAt:    now,
		registry:     reg,
		log:          log,
		lastAccessed: now,
		subscribers:  make(map[int]chan models.RegistrySnapshot),
	}
	opts := append([]upload.Option{upload.WithLogger(log)}, uploadOpts...)
	w.uploader = upload.New(reg.Add, opts...)
	return w
}

// Upload adds the first of files to the registry and selects it.
func (w *Workspace) Upload(files []upload.Source) (models.FileRecord, error) {
	record, err := w.uploader.Upload(files)
	if err != nil {
		return models.FileRecord{}, err
	}
	w.publish()
	return record, nil
}

// Select selects id. Unknown ids leave the workspace unchanged.
func (w *Workspace) Select(id string) bool {
	if !w.registry.Select(id) {
		return false
	}
	w.publish()
	return true
}

// Remove deletes id. Unknown ids leave the workspace unchanged.
func (w *Workspace) Remove(id string) bool {
	if !w.registry.Remove(id) {
		return false
	}
	w.log.Debug().Str("id", id).Msg("file removed")
	w.publish()
	return true
}

// Get returns the record with id.
func (w *Workspace) Get(id string) (models.FileRecord, bool) {
	return w.registry.Get(id)
}

// Selected returns the selected record, if any.
func (w *Workspace) Selected() (models.FileRecord, bool) {
	return w.registry.Selected()
}

// Snapshot returns the current registry snapshot.
func (w *Workspace) Snapshot() models.RegistrySnapshot {
	return w.registry.Snapshot()
}

// Status returns the uploader status.
func (w *Workspace) Status() models.UploadStatus {
	return w.uploader.Status()
}

// State returns everything the screen renders.
func (w *Workspace) State() models.WorkspaceState {
	return models.WorkspaceState{
		ID:       w.ID,
		Registry: w.registry.Snapshot(),
		Upload:   w.uploader.Status(),
	}
}

// LastAccessed returns the time of the last Touch.
func (w *Workspace) LastAccessed() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastAccessed
}

func (w *Workspace) touch(now time.Time) {
	w.mu.Lock()
	w.lastAccessed = now
	w.mu.Unlock()
}

// Subscribe returns a channel that receives a snapshot after every mutation
// and a function that cancels the subscription.
func (w *Workspace) Subscribe() (<-chan models.RegistrySnapshot, func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := w.nextSub
	w.nextSub++
	ch := make(chan models.RegistrySnapshot, subscriberBuffer)
	w.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			if sub, ok := w.subscribers[id]; ok {
				delete(w.subscribers, id)
				close(sub)
			}
		})
	}
}

// Subscribers returns the number of active subscriptions.
func (w *Workspace) Subscribers() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.subscribers)
}

func (w *Workspace) publish() {
	snapshot := w.registry.Snapshot()

	w.mu.Lock()
	defer w.mu.Unlock()
	for id, ch := range w.subscribers {
		select {
		case ch <- snapshot:
		default:
			w.log.Warn().Int("subscriber", id).Msg("subscriber too slow, dropping snapshot")
		}
	}
}

// close ends every subscription.
func (w *Workspace) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for id, ch := range w.subscribers {
		close(ch)
		delete(w.subscribers, id)
	}
}
