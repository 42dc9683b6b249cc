package upload

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"io"
	"mime/multipart"
)

// Source is one user-supplied file: a name and a way to read its bytes.
type Source interface {
	Name() string
	Open() (io.ReadCloser, error)
}

// BytesSource is a file already held in memory (JSON and websocket uploads).
type BytesSource struct {
	FileName string
	Data     []byte
}

// Name implements Source.
func (s BytesSource) Name() string { return s.FileName }

// Open implements Source.
func (s BytesSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.Data)), nil
}

// FormFileSource wraps a multipart form file.
type FormFileSource struct {
	Header *multipart.FileHeader
}

// Name implements Source.
func (s FormFileSource) Name() string { return s.Header.Filename }

// Open implements Source.
func (s FormFileSource) Open() (io.ReadCloser, error) {
	return s.Header.Open()
}

// FormFileSources converts form files to sources, preserving order.
func FormFileSources(headers []*multipart.FileHeader) []Source {
	sources := make([]Source, 0, len(headers))
	for _, h := range headers {
		sources = append(sources, FormFileSource{Header: h})
	}
	return sources
}

// Spool defines what the uploader needs from the chunk spool.
type Spool interface {
	Open(id string) (io.ReadCloser, error)
}

// SpoolSource reads an assembled chunked upload. When Encoding is "gzip" the
// content is decompressed on the fly; data without the gzip magic is passed
// through unchanged.
type SpoolSource struct {
	Spool    Spool
	ID       string
	FileName string
	Encoding string
}

// Name implements Source.
func (s SpoolSource) Name() string { return s.FileName }

// Open implements Source.
func (s SpoolSource) Open() (io.ReadCloser, error) {
	rc, err := s.Spool.Open(s.ID)
	if err != nil {
		return nil, err
	}
	if s.Encoding != "gzip" {
		return rc, nil
	}

	br := bufio.NewReader(rc)
	magic, err := br.Peek(2)
	if err != nil || magic[0] != 0x1f || magic[1] != 0x8b {
		return readCloser{Reader: br, closer: rc}, nil
	}

	gz, err := gzip.NewReader(br)
	if err != nil {
		rc.Close()
		return nil, err
	}
	return readCloser{Reader: gz, closer: multiCloser{gz, rc}}, nil
}

type readCloser struct {
	io.Reader
	closer io.Closer
}

func (r readCloser) Close() error { return r.closer.Close() }

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var first error
	for _, c := range m {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
