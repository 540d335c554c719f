package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// CheckRelative rejects destinations that would land outside the directory
// they are joined to.
func CheckRelative(rel string) error {
	if filepath.IsAbs(rel) || strings.HasPrefix(rel, "/") {
		return fmt.Errorf("SEC_PATH_TRAVERSAL: absolute path not allowed")
	}
	if strings.HasPrefix(rel, "~") {
		return fmt.Errorf("SEC_PATH_TRAVERSAL: home-relative path not allowed")
	}
	clean := filepath.Clean(filepath.FromSlash(rel))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return fmt.Errorf("SEC_PATH_TRAVERSAL: path escapes base")
	}
	return nil
}
