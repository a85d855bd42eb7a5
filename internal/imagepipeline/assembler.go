package imagepipeline

// StoredImage describes a validated image handed to persistence. It is not
// modified by this package after creation.
type StoredImage struct {
	Filename     string
	OriginalName string
	MIMEType     string
	Category     string
	Size         int64
	URL          string
}

// UploadResult is the response contract of the multipart path.
type UploadResult struct {
	URL          string `json:"url"`
	Filename     string `json:"filename"`
	OriginalName string `json:"originalName"`
	Size         int64  `json:"size"`
	MIMEType     string `json:"mimetype"`
	Type         string `json:"type"`
}

// ProcessedImage is the response contract of the base64 path. Data is the
// base64 body without its data URL prefix.
type ProcessedImage struct {
	Filename     string `json:"filename"`
	OriginalName string `json:"originalName"`
	MIMEType     string `json:"mimeType"`
	Size         int64  `json:"size"`
	Data         string `json:"data"`
}

func AssembleUpload(rec StoredImage) UploadResult {
	return UploadResult{
		URL:          rec.URL,
		Filename:     rec.Filename,
		OriginalName: rec.OriginalName,
		Size:         rec.Size,
		MIMEType:     rec.MIMEType,
		Type:         rec.Category,
	}
}

func AssembleProcessed(rec StoredImage, data string) ProcessedImage {
	return ProcessedImage{
		Filename:     rec.Filename,
		OriginalName: rec.OriginalName,
		MIMEType:     rec.MIMEType,
		Size:         rec.Size,
		Data:         data,
	}
}
