package asset

import (
	"bytes"
	"strings"
)

// Signature identifies a file format by its leading magic bytes. The
// numeric value is written into the envelope, so the order of the
// constants must never change.
type Signature uint8

const (
	SignatureUnknown Signature = iota
	SignatureJPEG
	SignaturePNG
	SignatureGIF
	SignatureWebP
	SignatureBMP
	SignatureTIFF
	SignatureICO
	SignaturePDF
	SignatureZIP
	SignatureRAR
	SignatureSevenZip
	SignatureGzip
	SignatureMP3
	SignatureMP4
	SignatureWebM
	SignatureOgg
	SignatureWAV
	SignatureAVI
	SignatureMOV
	SignatureXML
	SignatureHTML

	maxSignature = SignatureHTML
)

type signatureInfo struct {
	name      string
	mediaType string
	extension string
	category  Category
}

var signatureTable = [...]signatureInfo{
	SignatureUnknown:  {"Unknown", DefaultMediaType, "", CategoryOther},
	SignatureJPEG:     {"Jpeg", "image/jpeg", ".jpg", CategoryImage},
	SignaturePNG:      {"Png", "image/png", ".png", CategoryImage},
	SignatureGIF:      {"Gif", "image/gif", ".gif", CategoryImage},
	SignatureWebP:     {"WebP", "image/webp", ".webp", CategoryImage},
	SignatureBMP:      {"Bmp", "image/bmp", ".bmp", CategoryImage},
	SignatureTIFF:     {"Tiff", "image/tiff", ".tiff", CategoryImage},
	SignatureICO:      {"Ico", "image/x-icon", ".ico", CategoryImage},
	SignaturePDF:      {"Pdf", "application/pdf", ".pdf", CategoryDocument},
	SignatureZIP:      {"Zip", "application/zip", ".zip", CategoryArchive},
	SignatureRAR:      {"Rar", "application/vnd.rar", ".rar", CategoryArchive},
	SignatureSevenZip: {"SevenZip", "application/x-7z-compressed", ".7z", CategoryArchive},
	SignatureGzip:     {"Gzip", "application/gzip", ".gz", CategoryArchive},
	SignatureMP3:      {"Mp3", "audio/mpeg", ".mp3", CategoryAudio},
	SignatureMP4:      {"Mp4", "video/mp4", ".mp4", CategoryVideo},
	SignatureWebM:     {"WebM", "video/webm", ".webm", CategoryVideo},
	SignatureOgg:      {"Ogg", "audio/ogg", ".ogg", CategoryAudio},
	SignatureWAV:      {"Wav", "audio/wav", ".wav", CategoryAudio},
	SignatureAVI:      {"Avi", "video/x-msvideo", ".avi", CategoryVideo},
	SignatureMOV:      {"Mov", "video/quicktime", ".mov", CategoryVideo},
	SignatureXML:      {"Xml", "application/xml", ".xml", CategoryText},
	SignatureHTML:     {"Html", "text/html", ".html", CategoryText},
}

// String returns the format name, e.g. "Jpeg" or "SevenZip".
func (s Signature) String() string {
	if !s.IsValid() {
		return "Unknown"
	}
	return signatureTable[s].name
}

// IsValid reports whether s is a defined signature value.
func (s Signature) IsValid() bool {
	return s <= maxSignature
}

// MediaType is the canonical media type for the format.
// Unknown maps to application/octet-stream.
func (s Signature) MediaType() MediaType {
	if !s.IsValid() {
		return OctetStream
	}
	return MediaType{value: signatureTable[s].mediaType}
}

// Extension is the canonical extension with a leading dot, or "" for Unknown.
func (s Signature) Extension() string {
	if !s.IsValid() {
		return ""
	}
	return signatureTable[s].extension
}

// Category groups the format into image, video, audio, document, archive or text.
func (s Signature) Category() Category {
	if !s.IsValid() {
		return CategoryOther
	}
	return signatureTable[s].category
}

// ParseSignature looks a signature up by name, ignoring case.
func ParseSignature(name string) (Signature, bool) {
	name = strings.TrimSpace(name)
	for i, info := range signatureTable {
		if strings.EqualFold(info.name, name) {
			return Signature(i), true
		}
	}
	return SignatureUnknown, false
}

// Signatures returns every known signature except Unknown, in ordinal order.
func Signatures() []Signature {
	out := make([]Signature, 0, int(maxSignature))
	for s := SignatureJPEG; s <= maxSignature; s++ {
		out = append(out, s)
	}
	return out
}

type magicSignature struct {
	signature Signature
	offset    int
	magic     []byte
	minLength int
}

func (m magicSignature) match(data []byte) bool {
	need := m.offset + len(m.magic)
	if m.minLength > need {
		need = m.minLength
	}
	if len(data) < need {
		return false
	}
	return bytes.Equal(data[m.offset:m.offset+len(m.magic)], m.magic)
}

// Longer and more specific patterns come first. BMP is last because a
// two byte prefix collides easily with text.
var magicTable = []magicSignature{
	{signature: SignaturePNG, magic: []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}},
	{signature: SignatureSevenZip, magic: []byte{'7', 'z', 0xBC, 0xAF, 0x27, 0x1C}},
	{signature: SignatureRAR, magic: []byte{'R', 'a', 'r', '!', 0x1A, 0x07}},
	{signature: SignatureGIF, magic: []byte("GIF87a")},
	{signature: SignatureGIF, magic: []byte("GIF89a")},
	{signature: SignaturePDF, magic: []byte("%PDF")},
	{signature: SignatureZIP, magic: []byte{'P', 'K', 0x03, 0x04}},
	{signature: SignatureTIFF, magic: []byte{'I', 'I', 0x2A, 0x00}},
	{signature: SignatureTIFF, magic: []byte{'M', 'M', 0x00, 0x2A}},
	{signature: SignatureWebM, magic: []byte{0x1A, 0x45, 0xDF, 0xA3}},
	{signature: SignatureOgg, magic: []byte("OggS")},
	{signature: SignatureJPEG, magic: []byte{0xFF, 0xD8, 0xFF}},
	{signature: SignatureMP3, magic: []byte("ID3")},
	{signature: SignatureGzip, magic: []byte{0x1F, 0x8B}},
	{signature: SignatureMP3, magic: []byte{0xFF, 0xFB}},
	{signature: SignatureMP3, magic: []byte{0xFF, 0xF3}},
	{signature: SignatureMP3, magic: []byte{0xFF, 0xF2}},
}

var (
	riffMagic = []byte("RIFF")
	ftypMagic = []byte("ftyp")
	moovMagic = []byte("moov")
	qtBrand   = []byte("qt  ")
	icoMagic  = []byte{0x00, 0x00, 0x01, 0x00}
	bmpMagic  = []byte("BM")
	utf8BOM   = []byte{0xEF, 0xBB, 0xBF}
)

// Detect inspects the leading bytes of data and returns the matching
// format. It never fails: unrecognized or short input is Unknown.
func Detect(data []byte) Signature {
	if len(data) == 0 {
		return SignatureUnknown
	}

	if sig := detectRIFF(data); sig != SignatureUnknown {
		return sig
	}
	if sig := detectISOMedia(data); sig != SignatureUnknown {
		return sig
	}

	for _, m := range magicTable {
		if m.match(data) {
			return m.signature
		}
	}

	if isICO(data) {
		return SignatureICO
	}
	if sig := detectMarkup(data); sig != SignatureUnknown {
		return sig
	}
	if isBMP(data) {
		return SignatureBMP
	}
	return SignatureUnknown
}

// detectRIFF handles WebP, WAV and AVI which share the RIFF container header.
func detectRIFF(data []byte) Signature {
	if len(data) < 12 || !bytes.Equal(data[0:4], riffMagic) {
		return SignatureUnknown
	}
	switch string(data[8:12]) {
	case "WEBP":
		return SignatureWebP
	case "WAVE":
		return SignatureWAV
	case "AVI ":
		return SignatureAVI
	}
	return SignatureUnknown
}

// detectISOMedia tells MP4 from QuickTime by the ftyp brand.
func detectISOMedia(data []byte) Signature {
	if len(data) >= 12 && bytes.Equal(data[4:8], ftypMagic) {
		if bytes.Equal(data[8:12], qtBrand) {
			return SignatureMOV
		}
		return SignatureMP4
	}
	if len(data) >= 8 && bytes.Equal(data[4:8], moovMagic) {
		return SignatureMOV
	}
	return SignatureUnknown
}

// isICO requires a non-zero image count after the reserved/type words.
func isICO(data []byte) bool {
	if len(data) < 6 || !bytes.Equal(data[0:4], icoMagic) {
		return false
	}
	return data[4] != 0 || data[5] != 0
}

// isBMP requires a full file header with zeroed reserved fields.
func isBMP(data []byte) bool {
	if len(data) < 14 || !bytes.Equal(data[0:2], bmpMagic) {
		return false
	}
	return data[6] == 0 && data[7] == 0 && data[8] == 0 && data[9] == 0
}

func detectMarkup(data []byte) Signature {
	data = bytes.TrimPrefix(data, utf8BOM)
	if bytes.HasPrefix(data, []byte("<?xml")) {
		return SignatureXML
	}
	if hasPrefixFold(data, "<!doctype html") || hasPrefixFold(data, "<html") {
		return SignatureHTML
	}
	return SignatureUnknown
}

func hasPrefixFold(data []byte, prefix string) bool {
	if len(data) < len(prefix) {
		return false
	}
	return strings.EqualFold(string(data[:len(prefix)]), prefix)
}
