// Package filesize provides a byte-count type that parses and prints
// human readable sizes such as "100MiB" or "512 KB".
package filesize

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// FileSize is a number of bytes.
type FileSize int64

const (
	Byte FileSize = 1
	KiB           = 1024 * Byte
	MiB           = 1024 * KiB
	GiB           = 1024 * MiB
	TiB           = 1024 * GiB
)

var ErrNegativeSize = errors.New("file size cannot be negative")

// Parse reads a size such as "1024", "10KB", "100MiB" or "1.5 GiB".
// Decimal units (KB, MB) are powers of 1000, binary units (KiB, MiB) powers of 1024.
func Parse(s string) (FileSize, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty file size")
	}
	if strings.HasPrefix(s, "-") {
		return 0, ErrNegativeSize
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid file size %q: %w", s, err)
	}
	if n > math.MaxInt64 {
		return 0, fmt.Errorf("file size %q overflows", s)
	}
	return FileSize(n), nil
}

// MustParse is like Parse but panics on error. Intended for constants.
func MustParse(s string) FileSize {
	size, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return size
}

// Bytes returns the size as a plain byte count.
func (s FileSize) Bytes() int64 {
	return int64(s)
}

// String renders the size with IEC units, e.g. "100 MiB".
func (s FileSize) String() string {
	if s < 0 {
		return "-" + humanize.IBytes(uint64(-s))
	}
	return humanize.IBytes(uint64(s))
}

// MarshalJSON writes the size as a byte count.
func (s FileSize) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(int64(s), 10)), nil
}

// UnmarshalJSON accepts either a number of bytes or a size string.
func (s *FileSize) UnmarshalJSON(data []byte) error {
	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		if n < 0 {
			return ErrNegativeSize
		}
		*s = FileSize(n)
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("file size must be a number or a string: %w", err)
	}
	return s.SetValue(str)
}

// MarshalText implements encoding.TextMarshaler.
func (s FileSize) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *FileSize) UnmarshalText(text []byte) error {
	return s.SetValue(string(text))
}

// SetValue lets cleanenv populate a FileSize from an environment variable.
// A blank value leaves the size at zero.
func (s *FileSize) SetValue(value string) error {
	if strings.TrimSpace(value) == "" {
		*s = 0
		return nil
	}
	size, err := Parse(value)
	if err != nil {
		return err
	}
	*s = size
	return nil
}
