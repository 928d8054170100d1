package zpk

import (
	"encoding/binary"
	"fmt"
)

// Archive header layout.
const (
	// Identifier is the four byte magic at the start of every archive.
	Identifier = "zpk1"

	// FormatVersion is the archive format version written by this package.
	FormatVersion uint8 = 1

	// HeaderSize is the size of the fixed archive header.
	HeaderSize = 10
)

// Flags are archive-wide feature bits stored in the header.
type Flags uint8

const (
	// FlagZstd marks a zstd-compressed content region.
	FlagZstd Flags = 1 << 0

	knownFlags = FlagZstd
)

// Compression identifies how the content region is stored.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionZstd
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	default:
		return "unknown"
	}
}

func (c Compression) flags() Flags {
	if c == CompressionZstd {
		return FlagZstd
	}
	return 0
}

type header struct {
	version      uint8
	flags        Flags
	manifestSize uint32
}

func (h header) append(b []byte) []byte {
	b = append(b, Identifier...)
	b = append(b, h.version, byte(h.flags))
	return binary.LittleEndian.AppendUint32(b, h.manifestSize)
}

func parseHeader(data []byte) (header, error) {
	if len(data) < HeaderSize {
		return header{}, fmt.Errorf("%w: %d bytes", ErrInvalidHeader, len(data))
	}
	if string(data[:4]) != Identifier {
		return header{}, fmt.Errorf("%w: bad identifier %q", ErrInvalidHeader, data[:4])
	}
	h := header{
		version:      data[4],
		flags:        Flags(data[5]),
		manifestSize: binary.LittleEndian.Uint32(data[6:HeaderSize]),
	}
	if h.version != FormatVersion {
		return header{}, fmt.Errorf("%w: unsupported version %d", ErrInvalidHeader, h.version)
	}
	if h.flags&^knownFlags != 0 {
		return header{}, fmt.Errorf("%w: unknown flags %#x", ErrInvalidHeader, uint8(h.flags))
	}
	if uint64(h.manifestSize) > uint64(len(data)-HeaderSize) {
		return header{}, fmt.Errorf("%w: manifest size %d exceeds archive", ErrInvalidHeader, h.manifestSize)
	}
	return h, nil
}
