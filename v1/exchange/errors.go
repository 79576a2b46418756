package exchange

import "errors"

var (
	// ErrUnsupportedFormat is returned for unknown formats or file extensions.
	ErrUnsupportedFormat = errors.New("exchange: unsupported format")

	// ErrMissingIDColumn is returned when a CSV file has no "id" column.
	ErrMissingIDColumn = errors.New("exchange: csv has no id column")

	// ErrMalformed wraps decoding failures of imported data.
	ErrMalformed = errors.New("exchange: malformed input")
)
