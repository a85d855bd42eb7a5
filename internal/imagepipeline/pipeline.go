// Package imagepipeline validates uploaded images and names them for storage.
//
// Both upload shapes, multipart files and base64 strings, enter through a
// Source adapter and run the same stages:
//
//	Received -> Sniffed -> SizeValidated -> TypeResolved -> FilenameAssigned -> Assembled
//
// A failure at Received, Sniffed or SizeValidated ends the run in Rejected.
// Every failure is an *apperrors.AppError; unexpected faults, panics
// included, surface as VALIDATION_ERROR.
package imagepipeline

import (
	"fmt"
	"strings"

	"cabinet_tracker/pkg/apperrors"

	"github.com/gabriel-vasile/mimetype"
)

// State is a pipeline stage.
type State int

const (
	StateReceived State = iota
	StateSniffed
	StateSizeValidated
	StateTypeResolved
	StateFilenameAssigned
	StateAssembled
	StateRejected
)

var stateNames = [...]string{
	StateReceived:         "received",
	StateSniffed:          "sniffed",
	StateSizeValidated:    "size_validated",
	StateTypeResolved:     "type_resolved",
	StateFilenameAssigned: "filename_assigned",
	StateAssembled:        "assembled",
	StateRejected:         "rejected",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Options configures a Pipeline.
type Options struct {
	// MaxBytes is the size ceiling; zero means DefaultMaxBytes.
	MaxBytes int64
	// RejectUnknownTypes fails declared types outside the supported set
	// instead of passing them through unchecked.
	RejectUnknownTypes bool
	// Seed feeds the filename token source; zero seeds from the clock.
	Seed int64
}

// Pipeline is safe for concurrent use.
type Pipeline struct {
	sniffer   *Sniffer
	validator *Validator
	namer     *Namer
}

func New(opts Options) *Pipeline {
	return &Pipeline{
		sniffer:   NewSniffer(opts.RejectUnknownTypes),
		validator: NewValidator(opts.MaxBytes),
		namer:     NewNamer(opts.Seed),
	}
}

// Namer exposes the filename generator, e.g. to swap its clock.
func (p *Pipeline) Namer() *Namer {
	return p.namer
}

func (p *Pipeline) MaxBytes() int64 {
	return p.validator.MaxBytes()
}

// Result is a validated, named upload.
type Result struct {
	Kind         SourceKind
	Filename     string
	OriginalName string
	MIMEType     string
	Category     string
	Size         int64
	// Body holds the decoded bytes for both paths.
	Body []byte
	// Encoded is the base64 body without prefix; empty on the multipart path.
	Encoded string
	// Trail lists the states the run went through, ending in Rejected on failure.
	Trail []State
}

// Record builds the persistence description once storage has assigned a URL.
func (r *Result) Record(url string) StoredImage {
	return StoredImage{
		Filename:     r.Filename,
		OriginalName: r.OriginalName,
		MIMEType:     r.MIMEType,
		Category:     r.Category,
		Size:         r.Size,
		URL:          url,
	}
}

// AssembleUpload builds the multipart response and marks the run Assembled.
func (r *Result) AssembleUpload(url string) UploadResult {
	r.Trail = append(r.Trail, StateAssembled)
	return AssembleUpload(r.Record(url))
}

// AssembleProcessed builds the base64 response and marks the run Assembled.
func (r *Result) AssembleProcessed() ProcessedImage {
	r.Trail = append(r.Trail, StateAssembled)
	return AssembleProcessed(r.Record(""), r.Encoded)
}

// LastState is the most recent state of the run.
func (r *Result) LastState() State {
	if len(r.Trail) == 0 {
		return StateReceived
	}
	return r.Trail[len(r.Trail)-1]
}

// Process runs src through every stage. On failure it returns the error and
// a Result whose Trail ends in StateRejected; other fields are then unset.
func (p *Pipeline) Process(src Source, category string) (res *Result, err error) {
	res = &Result{Category: SanitizeCategory(category)}
	if src != nil {
		res.Kind = src.Kind()
	}

	defer func() {
		if r := recover(); r != nil {
			err = apperrors.ErrImageValidation(fmt.Errorf("panic: %v", r))
		}
		if err != nil {
			if _, ok := apperrors.AsAppError(err); !ok {
				err = apperrors.ErrImageValidation(err)
			}
			res = &Result{Kind: res.Kind, Category: res.Category, Trail: append(res.Trail, StateRejected)}
		}
	}()

	if src == nil {
		return res, apperrors.ErrNoFileProvided()
	}

	cand, declared, err := p.receive(src)
	if err != nil {
		return res, err
	}
	res.Trail = append(res.Trail, StateReceived)
	res.OriginalName = cand.OriginalName

	trusted, err := p.sniff(cand, declared)
	if err != nil {
		return res, err
	}
	res.Trail = append(res.Trail, StateSniffed)

	size := int64(len(cand.Raw))
	if cand.Encoded != nil {
		size = EstimatedSize(len(cand.Encoded.Body))
	}
	if err := p.validator.CheckSize(size); err != nil {
		return res, err
	}
	res.Trail = append(res.Trail, StateSizeValidated)

	res.MIMEType = trusted
	res.Body = cand.Raw
	res.Size = int64(len(cand.Raw))
	if cand.Encoded != nil {
		res.Encoded = cand.Encoded.Body
	}
	res.Trail = append(res.Trail, StateTypeResolved)

	fallback := DefaultExtension
	if cand.Encoded != nil {
		if ext := CanonicalExtension(trusted); ext != "" {
			fallback = ext
		}
	}
	res.Filename = p.namer.Generate(res.Category, ExtensionOf(cand.OriginalName, fallback))
	res.Trail = append(res.Trail, StateFilenameAssigned)

	return res, nil
}

// receive materialises the candidate and decides the declared type.
func (p *Pipeline) receive(src Source) (*Candidate, string, error) {
	limit := p.validator.MaxBytes()

	cand, err := src.Candidate(limit + 1)
	if err != nil {
		return nil, "", err
	}
	if err := p.validator.CheckSize(cand.SizeHint); err != nil {
		return nil, "", err
	}

	if cand.Encoded != nil {
		declared, err := p.validator.ResolveType(cand.Encoded.PrefixType, cand.OriginalName)
		if err != nil {
			return nil, "", err
		}
		raw, err := cand.Encoded.Decode()
		if err != nil {
			return nil, "", apperrors.ErrMalformedEncoding(err)
		}
		if len(raw) == 0 {
			return nil, "", apperrors.ErrMalformedEncoding(errEmptyPayload)
		}
		cand.Raw = raw
		return cand, declared, nil
	}

	declared := NormalizeType(cand.DeclaredType)
	if declared == "" || declared == "application/octet-stream" {
		if t := TypeFromFilename(cand.OriginalName); t != "" {
			declared = t
		}
	}
	return cand, declared, nil
}

func (p *Pipeline) sniff(cand *Candidate, declared string) (string, error) {
	trusted, err := p.sniffer.Sniff(cand.Raw, declared)
	if err != nil {
		return "", err
	}
	if trusted == "" || trusted == "application/octet-stream" {
		// pass-through with nothing declared: name what the bytes look like
		trusted = NormalizeType(mimetype.Detect(cand.Raw).String())
	}
	return trusted, nil
}

// Outcome is the structured verdict of a run.
type Outcome struct {
	IsValid       bool                `json:"isValid"`
	FailureReason apperrors.ErrorCode `json:"failureReason,omitempty"`
	Message       string              `json:"message,omitempty"`
	ResolvedMIME  string              `json:"resolvedMimeType,omitempty"`
	SizeBytes     int64               `json:"sizeBytes,omitempty"`
	Trail         []string            `json:"trail"`
}

// Validate runs the pipeline and reports the verdict without returning an error.
func (p *Pipeline) Validate(src Source, category string) Outcome {
	res, err := p.Process(src, category)
	out := Outcome{Trail: TrailNames(res.Trail)}
	if err != nil {
		appErr, _ := apperrors.AsAppError(err)
		out.FailureReason = appErr.Code
		out.Message = appErr.Message
		return out
	}
	out.IsValid = true
	out.ResolvedMIME = res.MIMEType
	out.SizeBytes = res.Size
	return out
}

// TrailNames renders a trail for logs and JSON.
func TrailNames(trail []State) []string {
	names := make([]string, len(trail))
	for i, s := range trail {
		names[i] = s.String()
	}
	return names
}

// String is a compact trail rendering, e.g. "received>sniffed>rejected".
func (r *Result) String() string {
	return strings.Join(TrailNames(r.Trail), ">")
}
