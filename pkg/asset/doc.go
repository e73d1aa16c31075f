/*
Package asset provides FileAsset, an immutable in-memory file value that
carries its bytes together with a validated name, a media type, the
format detected from its magic bytes, a creation timestamp and eagerly
computed SHA-256 and MD5 digests.

Assets serialize to a compact little-endian binary envelope (version 4)
that round-trips byte for byte:

	[1]  version (4)
	[16] id
	[1]  signature ordinal
	[8]  created_at ticks (100ns since 0001-01-01 UTC)
	[2]  media type length, then media type bytes
	[2]  name length, then name bytes
	[44] SHA-256 base64, zero padded
	[24] MD5 base64, zero padded
	[..] payload

Decoding also understands three older JSON-headed layouts. Input that
matches none of them yields the empty asset instead of an error:

	a := asset.Decode(raw)
	if a.IsEmpty() {
		// corrupt or unrecognized
	}
*/
package asset
