package upload

import (
	"bytes"
	"compress/gzip"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/code-explorer/backend/internal/ident"
	"github.com/code-explorer/backend/internal/models"
	"github.com/code-explorer/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	records []models.FileRecord
}

func (r *recorder) sink(rec models.FileRecord) { r.records = append(r.records, rec) }

func TestUploader_Upload(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rec := &recorder{}
	u := New(rec.sink, WithClock(func() time.Time { return fixed }))

	got, err := u.Upload([]Source{BytesSource{FileName: "a.py", Data: []byte("print(1)")}})
	require.NoError(t, err)

	assert.Equal(t, "a.py", got.Name)
	assert.Equal(t, "print(1)", got.Content)
	assert.Equal(t, "python", got.Language)
	assert.Len(t, got.ID, ident.Length)
	assert.Equal(t, fixed, got.UploadedAt)

	require.Len(t, rec.records, 1)
	assert.Equal(t, got, rec.records[0])
	assert.Equal(t, models.UploadStatus{}, u.Status())
}

func TestUploader_LanguageDetection(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"main.go", "go"},
		{"App.TSX", "tsx"},
		{"README", "plaintext"},
		{"notes.unknownext", "plaintext"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := New(func(models.FileRecord) {})
			got, err := u.Upload([]Source{BytesSource{FileName: tt.name, Data: []byte("x")}})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Language)
		})
	}
}

func TestUploader_NoFile(t *testing.T) {
	rec := &recorder{}
	u := New(rec.sink)

	_, err := u.Upload(nil)
	assert.ErrorIs(t, err, ErrNoFile)

	_, err = u.Upload([]Source{})
	assert.ErrorIs(t, err, ErrNoFile)

	assert.Empty(t, rec.records)
	assert.Equal(t, models.UploadStatus{}, u.Status())
}

func TestUploader_OnlyFirstFile(t *testing.T) {
	rec := &recorder{}
	u := New(rec.sink)

	got, err := u.Upload([]Source{
		BytesSource{FileName: "first.rs", Data: []byte("fn main() {}")},
		BytesSource{FileName: "second.rb", Data: []byte("puts 1")},
	})
	require.NoError(t, err)

	assert.Equal(t, "first.rs", got.Name)
	assert.Equal(t, "rust", got.Language)
	assert.Len(t, rec.records, 1)
}

func TestUploader_ReadFailure(t *testing.T) {
	tests := []struct {
		name string
		src  Source
	}{
		{"fails during read", testutil.FailingSource{FileName: "broken.js"}},
		{"fails at open", testutil.FailingSource{FileName: "broken.js", FailOpen: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			u := New(rec.sink)

			_, err := u.Upload([]Source{tt.src})
			require.Error(t, err)

			var readErr *ReadError
			require.True(t, errors.As(err, &readErr))
			assert.Equal(t, "broken.js", readErr.Name)
			assert.ErrorIs(t, err, testutil.ErrSimulatedRead)

			assert.Empty(t, rec.records)
			status := u.Status()
			assert.False(t, status.Loading)
			assert.Equal(t, ReadFailureMessage, status.Error)
		})
	}
}

func TestUploader_ErrorClearedOnNextUpload(t *testing.T) {
	u := New(func(models.FileRecord) {})

	_, err := u.Upload([]Source{testutil.FailingSource{FileName: "x.c"}})
	require.Error(t, err)
	require.NotEmpty(t, u.Status().Error)

	_, err = u.Upload([]Source{BytesSource{FileName: "x.c", Data: []byte("int main;")}})
	require.NoError(t, err)
	assert.Empty(t, u.Status().Error)
}

func TestUploader_BusyWhileLoading(t *testing.T) {
	rec := &recorder{}
	u := New(rec.sink)
	blocking := testutil.NewBlockingSource("slow.go", []byte("package main"))

	done := make(chan error, 1)
	go func() {
		_, err := u.Upload([]Source{blocking})
		done <- err
	}()

	<-blocking.Opened
	assert.True(t, u.Status().Loading)

	_, err := u.Upload([]Source{BytesSource{FileName: "fast.go", Data: []byte("package fast")}})
	assert.ErrorIs(t, err, ErrBusy)

	close(blocking.Release)
	require.NoError(t, <-done)

	require.Len(t, rec.records, 1)
	assert.Equal(t, "slow.go", rec.records[0].Name)
	assert.False(t, u.Status().Loading)
}

func TestUploader_EmitsWhileLoading(t *testing.T) {
	var u *Uploader
	var during models.UploadStatus
	var nestedErr error
	u = New(func(models.FileRecord) {
		during = u.Status()
		_, nestedErr = u.Upload([]Source{BytesSource{FileName: "b.go", Data: []byte("package b")}})
	})

	_, err := u.Upload([]Source{BytesSource{FileName: "a.go", Data: []byte("package a")}})
	require.NoError(t, err)

	assert.True(t, during.Loading, "record is emitted before the gate is released")
	assert.ErrorIs(t, nestedErr, ErrBusy)
	assert.False(t, u.Status().Loading)
}

func TestUploader_TooLarge(t *testing.T) {
	rec := &recorder{}
	u := New(rec.sink, WithMaxSize(8))

	_, err := u.Upload([]Source{BytesSource{FileName: "big.txt", Data: []byte("0123456789")}})
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.Empty(t, rec.records)

	got, err := u.Upload([]Source{BytesSource{FileName: "ok.txt", Data: []byte("01234567")}})
	require.NoError(t, err)
	assert.Equal(t, "01234567", got.Content)
}

func TestUploader_TextDecoding(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		want    string
		wantErr error
	}{
		{
			name: "plain utf-8",
			data: []byte("héllo"),
			want: "héllo",
		},
		{
			name: "utf-8 bom stripped",
			data: append([]byte{0xEF, 0xBB, 0xBF}, []byte("x = 1")...),
			want: "x = 1",
		},
		{
			name: "utf-16le with bom",
			data: []byte{0xFF, 0xFE, 'h', 0, 'i', 0},
			want: "hi",
		},
		{
			name: "utf-16be with bom",
			data: []byte{0xFE, 0xFF, 0, 'h', 0, 'i'},
			want: "hi",
		},
		{
			name:    "binary",
			data:    []byte{0x7f, 'E', 'L', 'F', 0, 0, 0, 1, 2, 3},
			wantErr: ErrBinaryContent,
		},
		{
			name:    "invalid utf-8",
			data:    []byte{'a', 0xC3, 0x28, 'b'},
			wantErr: ErrNotText,
		},
		{
			name: "empty file",
			data: []byte{},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := New(func(models.FileRecord) {})
			got, err := u.Upload([]Source{BytesSource{FileName: "f.txt", Data: tt.data}})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, ReadFailureMessage, u.Status().Error)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Content)
		})
	}
}

func TestUploader_SequentialIDs(t *testing.T) {
	u := New(func(models.FileRecord) {}, WithIDGenerator(ident.NewSequence("f")))

	first, err := u.Upload([]Source{BytesSource{FileName: "a.md", Data: []byte("# a")}})
	require.NoError(t, err)
	second, err := u.Upload([]Source{BytesSource{FileName: "a.md", Data: []byte("# a")}})
	require.NoError(t, err)

	assert.Equal(t, "f-1", first.ID)
	assert.Equal(t, "f-2", second.ID)
}

func TestSpoolSource(t *testing.T) {
	var compressed bytes.Buffer
	zw := gzip.NewWriter(&compressed)
	_, err := zw.Write([]byte("SELECT 1;"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	tests := []struct {
		name     string
		data     []byte
		encoding string
		want     string
	}{
		{"plain", []byte("SELECT 1;"), "", "SELECT 1;"},
		{"gzip", compressed.Bytes(), "gzip", "SELECT 1;"},
		{"gzip requested but plain data", []byte("SELECT 1;"), "gzip", "SELECT 1;"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spool := testutil.NewMockStorage()
			require.NoError(t, spool.SaveChunk("up-1", 0, bytes.NewReader(tt.data)))
			file, err := spool.CompleteChunkedUpload("up-1", "query.sql", 1)
			require.NoError(t, err)

			u := New(func(models.FileRecord) {})
			got, err := u.Upload([]Source{SpoolSource{Spool: spool, ID: file.ID, FileName: file.Name, Encoding: tt.encoding}})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Content)
			assert.Equal(t, "sql", got.Language)
		})
	}
}

func TestSpoolSource_Missing(t *testing.T) {
	u := New(func(models.FileRecord) {})
	_, err := u.Upload([]Source{SpoolSource{Spool: testutil.NewMockStorage(), ID: "nope", FileName: "x.sql"}})

	var readErr *ReadError
	assert.True(t, errors.As(err, &readErr))
	assert.True(t, strings.Contains(err.Error(), "x.sql"))
}
