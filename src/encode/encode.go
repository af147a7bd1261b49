// Package encode turns user-supplied image files into base64 data URLs for
// preview, and back into raw bytes + MIME type for transport to a model API.
package encode

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Attachment is a lightweight in-memory file ready to send to a model.
type Attachment struct {
	Name string
	MIME string
	Data []byte
}

var extMIMEMap = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".heic": "image/heic",
	".svg":  "image/svg+xml",
}

var mimeAliasMap = map[string]string{
	"image/jpg":   "image/jpeg",
	"image/pjpeg": "image/jpeg",
	"image/x-png": "image/png",
}

// FromFile reads path into an Attachment. The MIME type comes from the file
// extension, falling back to content sniffing.
func FromFile(path string) (Attachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Attachment{}, fmt.Errorf("read attachment: %w", err)
	}
	name := filepath.Base(path)
	return Attachment{Name: name, MIME: ResolveMIME(name, "", data), Data: data}, nil
}

// FromReader drains r into an Attachment. declared is the MIME type reported
// by the uploader, which may be empty or wrong.
func FromReader(name, declared string, r io.Reader) (Attachment, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Attachment{}, fmt.Errorf("read attachment: %w", err)
	}
	return Attachment{Name: name, MIME: ResolveMIME(name, declared, data), Data: data}, nil
}

// ResolveMIME picks the best MIME type from a declared value, the file name
// extension, and the content itself, in that order.
func ResolveMIME(name, declared string, data []byte) string {
	if mt := cleanMIME(declared); mt != "" {
		return mt
	}
	if ext := strings.ToLower(filepath.Ext(name)); ext != "" {
		if mt, ok := extMIMEMap[ext]; ok {
			return mt
		}
		if mt := cleanMIME(mime.TypeByExtension(ext)); mt != "" {
			return mt
		}
	}
	if len(data) > 0 {
		return http.DetectContentType(data)
	}
	return "application/octet-stream"
}

func cleanMIME(m string) string {
	m = strings.ToLower(strings.TrimSpace(m))
	if i := strings.IndexByte(m, ';'); i >= 0 {
		m = strings.TrimSpace(m[:i])
	}
	if alias, ok := mimeAliasMap[m]; ok {
		return alias
	}
	// An uploader sometimes reports the generic type; treat it as unknown so
	// the extension and content checks get a chance.
	if m == "" || m == "application/octet-stream" || !strings.Contains(m, "/") {
		return ""
	}
	return m
}

// DataURL renders the attachment as a data:<mime>;base64,<payload> string.
func (a Attachment) DataURL() string {
	mt := a.MIME
	if mt == "" {
		mt = "application/octet-stream"
	}
	return "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(a.Data)
}

// ParseDataURL strips the data-URL prefix and decodes the base64 payload,
// recovering the raw bytes and MIME type for transport.
func ParseDataURL(s string) (Attachment, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return Attachment{}, errors.New("not a data URL")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return Attachment{}, errors.New("malformed data URL: missing payload")
	}
	mt, enc, _ := strings.Cut(meta, ";")
	if enc != "base64" {
		return Attachment{}, fmt.Errorf("unsupported data URL encoding %q", enc)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Attachment{}, fmt.Errorf("decode data URL payload: %w", err)
	}
	return Attachment{MIME: cleanMIME(mt), Data: data}, nil
}
