// Package catalog – error values.
package catalog

import "errors"

// ErrManifestInvalid indicates a malformed spoke manifest. It is fatal at
// startup for that spoke; the process must not silently run with a
// partially-loaded catalog.
var ErrManifestInvalid = errors.New("manifest invalid")
