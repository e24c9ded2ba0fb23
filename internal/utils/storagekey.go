package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewStorageKey builds a collision-resistant object key from a millisecond
// timestamp, a random token and the sanitised original file name. The
// client-supplied name is never used as the key on its own.
func NewStorageKey(fileName string) string {
	return fmt.Sprintf("%d-%s-%s", time.Now().UnixMilli(), uuid.NewString(), SanitizeFileName(fileName))
}

// SanitizeFileName keeps letters, digits, dots, dashes and underscores;
// everything else (path separators included) becomes an underscore.
func SanitizeFileName(name string) string {
	// Strip any client-supplied directory components first.
	if i := strings.LastIndexAny(name, "/\\"); i >= 0 {
		name = name[i+1:]
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "file"
	}
	return b.String()
}
