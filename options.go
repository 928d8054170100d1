package zpk

import (
	"log/slog"

	"github.com/zuri-dev/zpk/requirement"
)

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithInstallRoot sets the directory WritePackage writes the archive into.
// The default is the current directory.
func WithInstallRoot(dir string) WriterOption {
	return func(w *Writer) {
		w.installRoot = dir
	}
}

// WithSkipPackageConfig disables the synthesized /package.config entry.
func WithSkipPackageConfig() WriterOption {
	return func(w *Writer) {
		w.skipConfig = true
	}
}

// WithOverwrite allows WritePackage to replace an existing archive.
// By default WritePackage fails if the destination exists.
func WithOverwrite() WriterOption {
	return func(w *Writer) {
		w.overwrite = true
	}
}

// WithCompression sets how the content region is stored.
func WithCompression(c Compression) WriterOption {
	return func(w *Writer) {
		w.compression = c
	}
}

// WithRequirements records the package dependencies in /package.config.
func WithRequirements(deps []requirement.Dependency) WriterOption {
	return func(w *Writer) {
		w.requirements = deps
	}
}

// WithDescription records a human readable description in /package.config.
func WithDescription(desc string) WriterOption {
	return func(w *Writer) {
		w.description = desc
	}
}

// WithLogger sets the logger for writer operations.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) WriterOption {
	return func(w *Writer) {
		w.logger = logger
	}
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithMaxDecoderMemory limits the memory used to decompress the content
// region. Zero disables the limit.
func WithMaxDecoderMemory(limit uint64) ReaderOption {
	return func(r *Reader) {
		r.maxDecoderMemory = limit
	}
}

// WithReaderLogger sets the logger for reader operations.
func WithReaderLogger(logger *slog.Logger) ReaderOption {
	return func(r *Reader) {
		r.logger = logger
	}
}

// LinkMode selects how the Extractor materializes Link entries.
type LinkMode uint8

const (
	// LinkSymlink creates relative symbolic links.
	LinkSymlink LinkMode = iota

	// LinkHardlink creates hard links to file targets. Directory targets
	// still use symbolic links.
	LinkHardlink
)

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithWorkingRoot sets where the temporary extraction directory is created.
// It must be on the same filesystem as the destination root. The default is
// the destination root.
func WithWorkingRoot(dir string) ExtractorOption {
	return func(x *Extractor) {
		x.workingRoot = dir
	}
}

// WithDestinationRoot sets the directory packages are extracted below.
// The default is the current directory.
func WithDestinationRoot(dir string) ExtractorOption {
	return func(x *Extractor) {
		x.destinationRoot = dir
	}
}

// WithLinkMode sets how Link entries are materialized.
func WithLinkMode(mode LinkMode) ExtractorOption {
	return func(x *Extractor) {
		x.linkMode = mode
	}
}

// WithExtractorLogger sets the logger for extraction.
func WithExtractorLogger(logger *slog.Logger) ExtractorOption {
	return func(x *Extractor) {
		x.logger = logger
	}
}
