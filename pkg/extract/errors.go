// Package extract runs metadata extractors on datasets and files and
// normalizes their heterogeneous results into one record schema
package extract

import "errors"

var (
	// ErrUnknownExtractor indicates that no extractor is registered
	// under the requested name
	ErrUnknownExtractor = errors.New("extract: unknown extractor")

	// ErrWrongExtractorKind indicates that the resolved extractor does
	// not support the requested extraction level (dataset vs. file)
	ErrWrongExtractorKind = errors.New("extract: extractor kind does not match extraction level")

	// ErrUnsupportedOutputCategory indicates an extractor declaring a
	// non-immediate data output category; streamed and deferred output
	// is not implemented
	ErrUnsupportedOutputCategory = errors.New("extract: unsupported data output category")

	// ErrDirectoryTarget indicates a file extraction aimed at a directory
	ErrDirectoryTarget = errors.New("extract: path must not be a directory")

	// ErrUntrackedFile indicates a file extraction aimed at an
	// untracked path
	ErrUntrackedFile = errors.New("extract: file not tracked")
)
