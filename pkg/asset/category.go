package asset

import "strings"

// Category is a coarse grouping of assets used for listing and filtering.
type Category string

const (
	CategoryImage    Category = "image"
	CategoryVideo    Category = "video"
	CategoryAudio    Category = "audio"
	CategoryDocument Category = "document"
	CategoryArchive  Category = "archive"
	CategoryText     Category = "text"
	CategoryOther    Category = "other"
)

// CategoryOf picks the category from the detected signature, falling back
// to the top-level media type when the bytes were not recognized.
func CategoryOf(sig Signature, mediaType MediaType) Category {
	if sig != SignatureUnknown && sig.IsValid() {
		return sig.Category()
	}
	switch mediaType.Type() {
	case "image":
		return CategoryImage
	case "video":
		return CategoryVideo
	case "audio":
		return CategoryAudio
	case "text":
		return CategoryText
	}
	sub := mediaType.Subtype()
	switch {
	case sub == "pdf", sub == "msword", sub == "rtf",
		strings.HasPrefix(sub, "vnd.openxmlformats-officedocument"),
		strings.HasPrefix(sub, "vnd.oasis.opendocument"),
		strings.HasPrefix(sub, "vnd.ms-"):
		return CategoryDocument
	case sub == "zip", sub == "gzip", sub == "x-tar", sub == "vnd.rar", sub == "x-7z-compressed":
		return CategoryArchive
	case sub == "json", sub == "xml", sub == "javascript":
		return CategoryText
	}
	return CategoryOther
}
