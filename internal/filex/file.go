package filex

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/dmitrijs2005/dentdocs/internal/common"
)

// EnsureDir creates dir (and parents) if needed and returns it unchanged.
func EnsureDir(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return dir, nil
}

// DetectContentType returns the content type for a file: the registered type
// for its extension first, then a sniff of head, and DefaultContentType when
// both come up empty.
func DetectContentType(name string, head []byte) string {
	if ext := filepath.Ext(name); ext != "" {
		if ct := mime.TypeByExtension(strings.ToLower(ext)); ct != "" {
			return ct
		}
	}
	if len(head) > 0 {
		if m := mimetype.Detect(head); m != nil && m.String() != "application/octet-stream" {
			return m.String()
		}
	}
	return common.DefaultContentType
}

// ExtensionForContentType returns the extension (without dot) registered for
// a content type, or "" when none is known.
func ExtensionForContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	if m := mimetype.Lookup(contentType); m != nil && m.Extension() != "" {
		return strings.TrimPrefix(m.Extension(), ".")
	}
	base, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	if m := mimetype.Lookup(base); m != nil && m.Extension() != "" {
		return strings.TrimPrefix(m.Extension(), ".")
	}
	return ""
}
