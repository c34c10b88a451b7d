// Package upload turns local files into the data URLs the backend stores in
// data_file, user_img and base64_file, and back.
package upload

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"reqdesk/internal/logging"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultMaxBytes bounds a single upload.
const DefaultMaxBytes int64 = 10 << 20

var (
	ErrTooLarge    = errors.New("file too large")
	ErrUnsupported = errors.New("unsupported file type")
	ErrNotDataURL  = errors.New("not a base64 data URL")
)

// documentTypes maps accepted document extensions to the MIME type used when
// content sniffing only finds a container format.
var documentTypes = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// DocumentExtensions lists accepted document extensions.
func DocumentExtensions() []string {
	return []string{".pdf", ".doc", ".docx", ".xls", ".xlsx"}
}

// Encoder reads files and encodes them as data URLs.
type Encoder struct {
	MaxBytes int64
}

// New returns an encoder limited to maxBytes; non-positive means the default.
func New(maxBytes int64) *Encoder {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Encoder{MaxBytes: maxBytes}
}

func (e *Encoder) read(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > e.MaxBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes (limit %d)", ErrTooLarge, filepath.Base(path), info.Size(), e.MaxBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// Document encodes a .pdf, .doc, .docx, .xls or .xlsx file.
func (e *Encoder) Document(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	fallback, ok := documentTypes[ext]
	if !ok {
		return "", fmt.Errorf("%w: %s (accepted: %s)", ErrUnsupported, ext, strings.Join(DocumentExtensions(), " "))
	}
	data, err := e.read(path)
	if err != nil {
		return "", err
	}

	detected := mimetype.Detect(data)
	mime := baseType(detected.String())
	switch {
	case detected.Is(fallback):
	case detected.Is("application/zip"), detected.Is("application/x-ole-storage"), detected.Is("application/octet-stream"):
		mime = fallback
	case detected.Is("text/plain"):
		return "", fmt.Errorf("%w: %s content is plain text", ErrUnsupported, ext)
	}

	logging.Get(logging.CategoryUpload).Debug("encoded %s as %s (%d bytes)", filepath.Base(path), mime, len(data))
	return DataURL(mime, data), nil
}

// Image encodes any image/* file.
func (e *Encoder) Image(path string) (string, error) {
	data, err := e.read(path)
	if err != nil {
		return "", err
	}
	mime := baseType(mimetype.Detect(data).String())
	if !strings.HasPrefix(mime, "image/") {
		return "", fmt.Errorf("%w: %s is %s, want an image", ErrUnsupported, filepath.Base(path), mime)
	}
	logging.Get(logging.CategoryUpload).Debug("encoded %s as %s (%d bytes)", filepath.Base(path), mime, len(data))
	return DataURL(mime, data), nil
}

// DataURL builds data:<mime>;base64,<payload>.
func DataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Decode splits a base64 data URL into its MIME type and bytes.
func Decode(dataURL string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return "", nil, ErrNotDataURL
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrNotDataURL
	}
	mime, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return "", nil, ErrNotDataURL
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode payload: %w", err)
	}
	return baseType(mime), data, nil
}

// Extension suggests a file extension for a MIME type.
func Extension(mime string) string {
	for ext, m := range documentTypes {
		if m == mime {
			return ext
		}
	}
	if m := mimetype.Lookup(mime); m != nil {
		return m.Extension()
	}
	return ""
}

func baseType(mime string) string {
	base, _, _ := strings.Cut(mime, ";")
	return strings.TrimSpace(base)
}
