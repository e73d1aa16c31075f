package asset

import (
	"slices"
	"strings"
)

// ZipContainerExtensions are formats stored as ZIP archives. A ZIP
// signature is accepted for any of them regardless of declared media type.
var ZipContainerExtensions = []string{
	".zip", ".docx", ".xlsx", ".pptx", ".odt", ".ods", ".odp", ".jar", ".apk",
}

// IsWithinLimit reports whether size fits in max bytes.
func IsWithinLimit(size, max int64) bool {
	return size >= 0 && size <= max
}

// IsSignatureCompatible reports whether the detected signature agrees
// with a declared media type. Types of the same family are compatible
// (application/xml and text/xml count as one family). A ZIP payload is
// compatible when fileName has a ZIP-container extension. An Unknown
// signature carries no evidence and is always compatible.
func IsSignatureCompatible(mediaType string, sig Signature, fileName string) bool {
	if sig == SignatureUnknown {
		return true
	}
	if sig == SignatureZIP && slices.Contains(ZipContainerExtensions, extensionOf(fileName)) {
		return true
	}
	declared, err := ParseMediaType(mediaType)
	if err != nil {
		return false
	}
	return sameFamily(declared, sig.MediaType())
}

// IsExtensionAllowed reports whether the extension of fileName appears in
// allowed. Entries may be written with or without the dot and in any case.
func IsExtensionAllowed(fileName string, allowed []string) bool {
	ext := extensionOf(fileName)
	if ext == "" {
		return false
	}
	for _, a := range allowed {
		a = strings.ToLower(strings.TrimSpace(a))
		if !strings.HasPrefix(a, ".") {
			a = "." + a
		}
		if a == ext {
			return true
		}
	}
	return false
}

// IsSignatureCompatible checks the asset's own media type against its
// detected signature.
func (a FileAsset) IsSignatureCompatible() bool {
	if a.IsEmpty() {
		return false
	}
	return IsSignatureCompatible(a.mediaType.String(), a.signature, a.name.String())
}

// IsWithinLimit reports whether the payload fits in max bytes.
func (a FileAsset) IsWithinLimit(max int64) bool {
	return IsWithinLimit(a.Size(), max)
}
