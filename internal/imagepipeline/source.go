package imagepipeline

import (
	"fmt"
	"io"
	"mime/multipart"

	"cabinet_tracker/pkg/apperrors"
)

// SourceKind tells which upload path produced a candidate.
type SourceKind string

const (
	SourceMultipart SourceKind = "multipart"
	SourceBase64    SourceKind = "base64"
)

// Candidate is the untrusted input to the pipeline. Exactly one of Raw and
// Encoded is set.
type Candidate struct {
	Raw          []byte
	Encoded      *EncodedPayload
	DeclaredType string
	OriginalName string
	// SizeHint is the size known before reading the body, used to reject
	// oversized payloads early.
	SizeHint int64
}

// Source adapts one upload shape to a Candidate. readLimit is the most
// bytes an adapter needs to buffer to decide whether a payload is too large.
type Source interface {
	Kind() SourceKind
	Candidate(readLimit int64) (*Candidate, error)
}

// FileHeaderSource adapts a parsed multipart file.
type FileHeaderSource struct {
	Header *multipart.FileHeader
}

func (s FileHeaderSource) Kind() SourceKind { return SourceMultipart }

func (s FileHeaderSource) Candidate(readLimit int64) (*Candidate, error) {
	if s.Header == nil {
		return nil, apperrors.ErrNoFileProvided()
	}
	cand := &Candidate{
		DeclaredType: s.Header.Header.Get("Content-Type"),
		OriginalName: s.Header.Filename,
		SizeHint:     s.Header.Size,
	}
	if readLimit > 0 && s.Header.Size > readLimit {
		return cand, nil
	}

	f, err := s.Header.Open()
	if err != nil {
		return nil, fmt.Errorf("open uploaded file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if readLimit > 0 {
		r = io.LimitReader(f, readLimit)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read uploaded file: %w", err)
	}
	cand.Raw = data
	return cand, nil
}

// BytesSource adapts an already buffered payload, e.g. a file read by the CLI.
type BytesSource struct {
	Data         []byte
	DeclaredType string
	OriginalName string
}

func (s BytesSource) Kind() SourceKind { return SourceMultipart }

func (s BytesSource) Candidate(int64) (*Candidate, error) {
	if s.Data == nil {
		return nil, apperrors.ErrNoFileProvided()
	}
	return &Candidate{
		Raw:          s.Data,
		DeclaredType: s.DeclaredType,
		OriginalName: s.OriginalName,
		SizeHint:     int64(len(s.Data)),
	}, nil
}

// Base64Source adapts a base64 string with an optional data URL prefix.
type Base64Source struct {
	Payload      string
	OriginalName string
}

func (s Base64Source) Kind() SourceKind { return SourceBase64 }

func (s Base64Source) Candidate(int64) (*Candidate, error) {
	if s.Payload == "" {
		return nil, apperrors.ErrNoFileProvided()
	}
	enc, err := ParseEncoded(s.Payload)
	if err != nil {
		return nil, apperrors.ErrMalformedEncoding(err)
	}
	return &Candidate{
		Encoded:      &enc,
		DeclaredType: enc.PrefixType,
		OriginalName: s.OriginalName,
		SizeHint:     EstimatedSize(len(enc.Body)),
	}, nil
}
