package domain

import (
	"path/filepath"
	"strings"
)

// AttachmentKind is the file format of an uploaded attachment.
type AttachmentKind string

const (
	KindUnknown AttachmentKind = ""
	KindPDF     AttachmentKind = "pdf"
	KindDOCX    AttachmentKind = "docx"
	KindXLSX    AttachmentKind = "xlsx"
	KindJPEG    AttachmentKind = "jpeg"
	KindPNG     AttachmentKind = "png"
)

var mimeKinds = map[string]AttachmentKind{
	"application/pdf": KindPDF,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": KindDOCX,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       KindXLSX,
	"image/jpeg": KindJPEG,
	"image/png":  KindPNG,
}

var extKinds = map[string]AttachmentKind{
	".pdf":  KindPDF,
	".docx": KindDOCX,
	".xlsx": KindXLSX,
	".jpg":  KindJPEG,
	".jpeg": KindJPEG,
	".png":  KindPNG,
}

// KindFromMIME maps a MIME type to an allowed kind, or KindUnknown.
func KindFromMIME(mime string) AttachmentKind {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	return mimeKinds[mime]
}

// KindFromFileName maps a file extension to an allowed kind, or KindUnknown.
func KindFromFileName(name string) AttachmentKind {
	return extKinds[strings.ToLower(filepath.Ext(name))]
}

// Allowed reports whether the kind may be attached to a submission.
func (k AttachmentKind) Allowed() bool {
	switch k {
	case KindPDF, KindDOCX, KindXLSX, KindJPEG, KindPNG:
		return true
	}
	return false
}

// Ext returns the canonical file extension, including the dot.
func (k AttachmentKind) Ext() string {
	switch k {
	case KindJPEG:
		return ".jpg"
	case KindUnknown:
		return ""
	}
	return "." + string(k)
}

// Attachment references a file the user sent. Ref is transport specific
// (a Telegram file id, a local path for the console shell).
type Attachment struct {
	Ref      string         `json:"ref"`
	Kind     AttachmentKind `json:"kind"`
	FileName string         `json:"file_name,omitempty"`
	MIMEType string         `json:"mime_type,omitempty"`
}
