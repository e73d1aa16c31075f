package asset

import (
	"fmt"
	"path"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxFileNameLength is the maximum number of characters in a file name.
	MaxFileNameLength = 255

	// DefaultFileName replaces names that sanitize to nothing.
	DefaultFileName = "unnamed"
)

const forbiddenNameChars = `<>:"/\|?*`

var reservedNames = map[string]struct{}{
	"CON": {}, "PRN": {}, "AUX": {}, "NUL": {},
	"COM1": {}, "COM2": {}, "COM3": {}, "COM4": {}, "COM5": {}, "COM6": {}, "COM7": {}, "COM8": {}, "COM9": {},
	"LPT1": {}, "LPT2": {}, "LPT3": {}, "LPT4": {}, "LPT5": {}, "LPT6": {}, "LPT7": {}, "LPT8": {}, "LPT9": {},
}

// FileName is a file name that is safe on every common filesystem.
// The zero value is not valid.
type FileName struct {
	value string
}

// ParseFileName validates s without modifying it.
func ParseFileName(s string) (FileName, error) {
	if err := validateFileName(s); err != nil {
		return FileName{}, err
	}
	return FileName{value: s}, nil
}

// IsValidFileName reports whether s passes the file name rules.
func IsValidFileName(s string) bool {
	return validateFileName(s) == nil
}

func validateFileName(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: blank", ErrInvalidFileName)
	}
	if !utf8.ValidString(s) {
		return fmt.Errorf("%w: not valid UTF-8", ErrInvalidFileName)
	}
	if utf8.RuneCountInString(s) > MaxFileNameLength {
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidFileName, MaxFileNameLength)
	}
	if s == "." || s == ".." {
		return fmt.Errorf("%w: %q is a relative path", ErrInvalidFileName, s)
	}
	for _, r := range s {
		if strings.ContainsRune(forbiddenNameChars, r) {
			return fmt.Errorf("%w: %q contains %q", ErrInvalidFileName, s, r)
		}
		if r == 0 || unicode.IsControl(r) {
			return fmt.Errorf("%w: %q contains a control character", ErrInvalidFileName, s)
		}
	}
	if strings.HasSuffix(s, ".") || strings.HasSuffix(s, " ") {
		return fmt.Errorf("%w: %q ends with a dot or space", ErrInvalidFileName, s)
	}
	if isReservedName(s) {
		return fmt.Errorf("%w: %q is a reserved device name", ErrInvalidFileName, s)
	}
	return nil
}

// isReservedName compares the name with its last extension removed, so
// "con.txt" is reserved but "con.txt.bak" is not.
func isReservedName(s string) bool {
	base := strings.TrimSuffix(s, path.Ext(s))
	_, ok := reservedNames[strings.ToUpper(base)]
	return ok
}

// SanitizeFileName turns any string into a valid FileName by replacing
// forbidden characters with '_', trimming trailing dots and spaces and
// truncating long names while keeping the extension.
func SanitizeFileName(s string) FileName {
	s = strings.ToValidUTF8(s, "_")
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if strings.ContainsRune(forbiddenNameChars, r) || r == 0 || unicode.IsControl(r) {
			b.WriteByte('_')
			continue
		}
		b.WriteRune(r)
	}
	name := strings.TrimSpace(b.String())
	name = strings.TrimRight(name, ". ")

	if utf8.RuneCountInString(name) > MaxFileNameLength {
		name = truncateKeepingExtension(name, MaxFileNameLength)
		name = strings.TrimRight(name, ". ")
	}
	if name == "" {
		return FileName{value: DefaultFileName}
	}
	if isReservedName(name) {
		name = "_" + name
	}
	return FileName{value: name}
}

func truncateKeepingExtension(name string, max int) string {
	ext := path.Ext(name)
	extLen := utf8.RuneCountInString(ext)
	if extLen >= max {
		ext, extLen = "", 0
	}
	base := []rune(strings.TrimSuffix(name, ext))
	keep := max - extLen
	if keep > len(base) {
		keep = len(base)
	}
	return string(base[:keep]) + ext
}

func (f FileName) String() string { return f.value }

// IsZero reports whether f is the zero value.
func (f FileName) IsZero() bool { return f.value == "" }

// Extension returns the lowercased extension including the dot, or "".
func (f FileName) Extension() string {
	return strings.ToLower(path.Ext(f.value))
}

// Base returns the name without its last extension.
func (f FileName) Base() string {
	return strings.TrimSuffix(f.value, path.Ext(f.value))
}

// WithExtension returns a copy of f whose extension is replaced by ext.
func (f FileName) WithExtension(ext string) FileName {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return SanitizeFileName(f.Base() + ext)
}

// extensionOf returns the lowercased extension of an unvalidated name.
func extensionOf(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	return strings.ToLower(path.Ext(name))
}
