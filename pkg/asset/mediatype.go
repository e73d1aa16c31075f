package asset

import (
	"fmt"
	"path"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/exp/maps"
)

const (
	// DefaultMediaType is used when nothing better is known.
	DefaultMediaType = "application/octet-stream"

	// MaxMediaTypeLength bounds the normalized media type string.
	MaxMediaTypeLength = 255
)

// OctetStream is the generic binary media type.
var OctetStream = MediaType{value: DefaultMediaType}

// MediaType is a validated, normalized "type/subtype" string without
// parameters. The zero value is not a valid media type.
type MediaType struct {
	value string
}

// ParseMediaType trims s, drops any ";" parameters, lowercases it and
// checks it is a single type/subtype pair with no whitespace.
func ParseMediaType(s string) (MediaType, error) {
	v := strings.TrimSpace(s)
	if i := strings.IndexByte(v, ';'); i >= 0 {
		v = strings.TrimSpace(v[:i])
	}
	v = strings.ToLower(v)

	if v == "" {
		return MediaType{}, fmt.Errorf("%w: blank", ErrInvalidMediaType)
	}
	if len(v) > MaxMediaTypeLength {
		return MediaType{}, fmt.Errorf("%w: longer than %d characters", ErrInvalidMediaType, MaxMediaTypeLength)
	}
	if strings.Count(v, "/") != 1 {
		return MediaType{}, fmt.Errorf("%w: %q must contain exactly one '/'", ErrInvalidMediaType, s)
	}
	typ, sub, _ := strings.Cut(v, "/")
	if typ == "" || sub == "" {
		return MediaType{}, fmt.Errorf("%w: %q has an empty type or subtype", ErrInvalidMediaType, s)
	}
	if strings.IndexFunc(v, func(r rune) bool { return unicode.IsSpace(r) || unicode.IsControl(r) }) >= 0 {
		return MediaType{}, fmt.Errorf("%w: %q contains whitespace", ErrInvalidMediaType, s)
	}
	return MediaType{value: v}, nil
}

// MustParseMediaType is like ParseMediaType but panics on error.
func MustParseMediaType(s string) MediaType {
	mt, err := ParseMediaType(s)
	if err != nil {
		panic(err)
	}
	return mt
}

// IsValidMediaType reports whether s parses as a media type.
func IsValidMediaType(s string) bool {
	_, err := ParseMediaType(s)
	return err == nil
}

func (m MediaType) String() string { return m.value }

// IsZero reports whether m is the zero value.
func (m MediaType) IsZero() bool { return m.value == "" }

// Type returns the part before the slash, e.g. "image".
func (m MediaType) Type() string {
	typ, _, _ := strings.Cut(m.value, "/")
	return typ
}

// Subtype returns the part after the slash, e.g. "png".
func (m MediaType) Subtype() string {
	_, sub, _ := strings.Cut(m.value, "/")
	return sub
}

// HasPrefix matches either a full type ("image/png") or a family ("image/", "image").
func (m MediaType) HasPrefix(prefix string) bool {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return true
	}
	if !strings.Contains(prefix, "/") {
		return m.Type() == prefix
	}
	return strings.HasPrefix(m.value, prefix)
}

// Extension returns the canonical extension for m, or ".bin" when none is known.
func (m MediaType) Extension() string {
	if ext, ok := canonicalExtensions[m.value]; ok {
		return ext
	}
	return ".bin"
}

// ExtensionFor returns the canonical extension for a media type string,
// or ".bin" when it is invalid or unknown.
func ExtensionFor(mediaType string) string {
	mt, err := ParseMediaType(mediaType)
	if err != nil {
		return ".bin"
	}
	return mt.Extension()
}

func (m MediaType) IsImage() bool { return m.Type() == "image" }
func (m MediaType) IsVideo() bool { return m.Type() == "video" }
func (m MediaType) IsAudio() bool { return m.Type() == "audio" }
func (m MediaType) IsText() bool  { return m.Type() == "text" || isXML(m) }

func (m MediaType) MarshalText() ([]byte, error) {
	return []byte(m.value), nil
}

func (m *MediaType) UnmarshalText(text []byte) error {
	mt, err := ParseMediaType(string(text))
	if err != nil {
		return err
	}
	*m = mt
	return nil
}

// extensionMediaTypes is used when neither the bytes nor the caller
// identify the media type. It is fixed so results do not depend on the
// host's mime database.
var extensionMediaTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".jpe":  "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".ico":  "image/x-icon",
	".svg":  "image/svg+xml",
	".heic": "image/heic",
	".avif": "image/avif",
	".pdf":  "application/pdf",
	".zip":  "application/zip",
	".rar":  "application/vnd.rar",
	".7z":   "application/x-7z-compressed",
	".gz":   "application/gzip",
	".tgz":  "application/gzip",
	".tar":  "application/x-tar",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".flac": "audio/flac",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".webm": "video/webm",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
	".xml":  "application/xml",
	".html": "text/html",
	".htm":  "text/html",
	".txt":  "text/plain",
	".log":  "text/plain",
	".md":   "text/markdown",
	".csv":  "text/csv",
	".css":  "text/css",
	".js":   "text/javascript",
	".json": "application/json",
	".yaml": "application/yaml",
	".yml":  "application/yaml",
	".rtf":  "application/rtf",
	".doc":  "application/msword",
	".xls":  "application/vnd.ms-excel",
	".ppt":  "application/vnd.ms-powerpoint",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".odt":  "application/vnd.oasis.opendocument.text",
	".ods":  "application/vnd.oasis.opendocument.spreadsheet",
	".odp":  "application/vnd.oasis.opendocument.presentation",
	".jar":  "application/java-archive",
	".apk":  "application/vnd.android.package-archive",
	".woff": "font/woff",
	".wasm": "application/wasm",
	".bin":  DefaultMediaType,
}

// canonicalExtensions maps a media type to its preferred extension.
var canonicalExtensions = func() map[string]string {
	out := map[string]string{
		"image/jpeg":       ".jpg",
		"image/tiff":       ".tiff",
		"application/gzip": ".gz",
		"audio/ogg":        ".ogg",
		"video/mp4":        ".mp4",
		"text/html":        ".html",
		"text/plain":       ".txt",
		"application/yaml": ".yaml",
		"text/xml":         ".xml",
	}
	for _, ext := range KnownExtensions() {
		mt := extensionMediaTypes[ext]
		if _, ok := out[mt]; !ok {
			out[mt] = ext
		}
	}
	return out
}()

// MediaTypeFromExtension resolves an extension (with or without the dot,
// any case) or a file name to a media type using the built-in table.
func MediaTypeFromExtension(extOrName string) (MediaType, bool) {
	s := strings.ToLower(strings.TrimSpace(extOrName))
	ext := path.Ext(s)
	if ext == "" {
		ext = "." + s
	}
	mt, ok := extensionMediaTypes[ext]
	if !ok {
		return MediaType{}, false
	}
	return MediaType{value: mt}, true
}

// KnownExtensions lists every extension in the lookup table, sorted.
func KnownExtensions() []string {
	exts := maps.Keys(extensionMediaTypes)
	slices.Sort(exts)
	return exts
}

// sameFamily compares top-level types, treating application/xml and
// text/xml as equivalent.
func sameFamily(a, b MediaType) bool {
	if a.value == b.value {
		return true
	}
	if isXML(a) && isXML(b) {
		return true
	}
	return a.Type() == b.Type()
}

func isXML(m MediaType) bool {
	return m.value == "application/xml" || m.value == "text/xml"
}
