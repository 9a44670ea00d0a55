//revive:disable-next-line:var-naming // Package name "types" avoids circular imports.
package types

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrUnsupportedDriver is matched by every *UnsupportedDriverError.
	ErrUnsupportedDriver = errors.New("unsupported database driver")

	// ErrConnectionNotFound is returned when a connection name is neither open nor configured.
	ErrConnectionNotFound = errors.New("connection not found")

	// ErrSessionClosed is returned by a Session used after Close.
	ErrSessionClosed = errors.New("session closed")

	// ErrEmptyTableName is returned when a table handle is requested without a name.
	ErrEmptyTableName = errors.New("table name cannot be empty")

	// ErrCharsetUnsupported is returned when a dialect cannot switch character sets.
	ErrCharsetUnsupported = errors.New("charset change not supported by driver")
)

// UnsupportedDriverError is the typed outcome of asking the factory for an unknown driver.
type UnsupportedDriverError struct {
	Driver    string
	Supported []string
}

func (e *UnsupportedDriverError) Error() string {
	supported := slices.Clone(e.Supported)
	slices.Sort(supported)
	return fmt.Sprintf("unsupported database driver: %q (supported: %s)", e.Driver, strings.Join(supported, ", "))
}

// Is makes errors.Is(err, ErrUnsupportedDriver) true.
func (e *UnsupportedDriverError) Is(target error) bool {
	return target == ErrUnsupportedDriver
}
