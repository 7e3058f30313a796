// Package archive builds and reads the zip bundles HealthOmics accepts as
// workflow definitions.
package archive

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"
)

// File is one entry of a workflow bundle.
type File struct {
	Name    string
	Content []byte
}

// ValidateName rejects empty, absolute, parent-relative and non-canonical
// entry names, so packed names come back from Unpack unchanged.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("file name must not be empty")
	}
	if strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) || (len(name) > 1 && name[1] == ':') {
		return fmt.Errorf("file name %q must be relative", name)
	}
	for _, part := range strings.FieldsFunc(name, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return fmt.Errorf("file name %q must not contain ..", name)
		}
	}
	if strings.Contains(name, `\`) || path.Clean(name) != name {
		return fmt.Errorf("file name %q must be a clean slash-separated path", name)
	}
	return nil
}

// Pack writes files into a deflated zip in the given order.
func Pack(files []File) ([]byte, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("at least one file is required")
	}
	seen := map[string]bool{}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, file := range files {
		if err := ValidateName(file.Name); err != nil {
			return nil, err
		}
		name := file.Name
		if seen[name] {
			return nil, fmt.Errorf("duplicate file name %q", name)
		}
		seen[name] = true
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
		if err != nil {
			return nil, fmt.Errorf("add %s: %w", name, err)
		}
		if _, err := w.Write(file.Content); err != nil {
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	return buf.Bytes(), nil
}

// PackWorkflow bundles a main file and auxiliary files, sorted by name after
// the main file.
func PackWorkflow(mainName string, mainContent []byte, additional map[string]string) ([]byte, error) {
	files := []File{{Name: mainName, Content: mainContent}}
	names := make([]string, 0, len(additional))
	for name := range additional {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		files = append(files, File{Name: name, Content: []byte(additional[name])})
	}
	return Pack(files)
}

func Unpack(data []byte) ([]File, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	files := make([]File, 0, len(zr.File))
	for _, entry := range zr.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		if err := ValidateName(entry.Name); err != nil {
			return nil, err
		}
		rc, err := entry.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", entry.Name, err)
		}
		content, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name, err)
		}
		files = append(files, File{Name: entry.Name, Content: content})
	}
	return files, nil
}

func EncodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeBase64 accepts standard or URL-safe encoding, padded or not.
func DecodeBase64(value string) ([]byte, error) {
	value = strings.TrimSpace(value)
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if data, err := enc.DecodeString(value); err == nil {
			return data, nil
		}
	}
	return nil, fmt.Errorf("value is not valid base64")
}
