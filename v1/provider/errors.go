package provider

import "errors"

var (
	// ErrConfiguration is wrapped by every error the factory returns.
	ErrConfiguration = errors.New("provider: invalid configuration")

	ErrUnsupportedProvider       = errors.New("unsupported provider")
	ErrUnsupportedConnectionType = errors.New("unsupported connection type")

	// ErrMissingField is returned when a required config value is empty.
	ErrMissingField = errors.New("missing required field")
)

// IsConfigurationError reports whether err came from profile validation.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}
