// Package upload turns one user-supplied file into a FileRecord.
package upload

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/code-explorer/backend/internal/ident"
	"github.com/code-explorer/backend/internal/language"
	"github.com/code-explorer/backend/internal/models"
	"github.com/rs/zerolog"
)

// ReadFailureMessage is shown to the user when a file cannot be read.
const ReadFailureMessage = "Failed to read file. Please try again."

// DefaultMaxSize bounds the bytes read from a single file.
const DefaultMaxSize int64 = 10 << 20

var (
	// ErrNoFile is returned for an empty selection.
	ErrNoFile = errors.New("no file provided")
	// ErrBusy is returned when a read is already in progress.
	ErrBusy = errors.New("an upload is already in progress")
	// ErrTooLarge means the file exceeds the configured size limit.
	ErrTooLarge = errors.New("file exceeds size limit")
)

// ReadError reports that the content of a file could not be obtained.
type ReadError struct {
	Name string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("reading %s: %v", e.Name, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// Sink receives each successfully built record.
type Sink func(models.FileRecord)

// Uploader reads one file per action and emits a record to its sink.
// While a read is outstanding the uploader is loading and refuses a second
// upload instead of interleaving it.
type Uploader struct {
	sink     Sink
	detector *language.Detector
	ids      ident.Generator
	now      func() time.Time
	maxSize  int64
	log      zerolog.Logger

	mu      sync.Mutex
	loading bool
	lastErr string
}

// Option configures an Uploader.
type Option func(*Uploader)

// WithDetector sets the language detector.
func WithDetector(d *language.Detector) Option {
	return func(u *Uploader) { u.detector = d }
}

// WithIDGenerator sets the record id generator.
func WithIDGenerator(g ident.Generator) Option {
	return func(u *Uploader) { u.ids = g }
}

// WithClock sets the time source for uploadedAt.
func WithClock(now func() time.Time) Option {
	return func(u *Uploader) { u.now = now }
}

// WithMaxSize sets the per-file byte limit. Non-positive values keep the default.
func WithMaxSize(n int64) Option {
	return func(u *Uploader) {
		if n > 0 {
			u.maxSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(u *Uploader) { u.log = log }
}

// New creates an Uploader that hands records to sink.
func New(sink Sink, opts ...Option) *Uploader {
	u := &Uploader{
		sink:     sink,
		detector: language.NewDetector(nil),
		ids:      ident.Random{},
		now:      time.Now,
		maxSize:  DefaultMaxSize,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Upload processes the first file of files. Additional files are ignored.
// On success exactly one record is emitted to the sink and returned.
func (u *Uploader) Upload(files []Source) (models.FileRecord, error) {
	if len(files) == 0 || files[0] == nil {
		return models.FileRecord{}, ErrNoFile
	}
	if len(files) > 1 {
		u.log.Debug().Int("ignored", len(files)-1).Msg("only the first file of a selection is uploaded")
	}

	record, err := u.process(files[0])
	if err != nil {
		return models.FileRecord{}, err
	}

	u.log.Info().
		Str("id", record.ID).
		Str("file", record.Name).
		Str("language", record.Language).
		Int64("size", record.Size()).
		Msg("file uploaded")
	return record, nil
}

// Status returns the loading flag and the last user-visible error.
func (u *Uploader) Status() models.UploadStatus {
	u.mu.Lock()
	defer u.mu.Unlock()
	return models.UploadStatus{Loading: u.loading, Error: u.lastErr}
}

// process holds the loading gate for the duration of the read and the
// emission of the record.
func (u *Uploader) process(src Source) (models.FileRecord, error) {
	if !u.begin() {
		return models.FileRecord{}, ErrBusy
	}
	defer u.finish()

	content, err := u.read(src)
	if err != nil {
		u.fail()
		u.log.Warn().Err(err).Str("file", src.Name()).Msg("failed to read uploaded file")
		return models.FileRecord{}, &ReadError{Name: src.Name(), Err: err}
	}

	record := models.FileRecord{
		ID:         u.ids.NewID(),
		Name:       src.Name(),
		Content:    content,
		Language:   u.detector.Detect(src.Name()),
		UploadedAt: u.now().UTC(),
	}
	u.sink(record)
	return record, nil
}

func (u *Uploader) read(src Source) (string, error) {
	rc, err := src.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	raw, err := io.ReadAll(io.LimitReader(rc, u.maxSize+1))
	if err != nil {
		return "", err
	}
	if int64(len(raw)) > u.maxSize {
		return "", ErrTooLarge
	}

	return decodeText(raw)
}

func (u *Uploader) begin() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.loading {
		return false
	}
	u.loading = true
	u.lastErr = ""
	return true
}

func (u *Uploader) fail() {
	u.mu.Lock()
	u.lastErr = ReadFailureMessage
	u.mu.Unlock()
}

func (u *Uploader) finish() {
	u.mu.Lock()
	u.loading = false
	u.mu.Unlock()
}
