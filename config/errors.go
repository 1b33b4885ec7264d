// SPDX-License-Identifier: EPL-2.0

package config

import "errors"

// ErrMalformed is returned when a blob's magic, version, or field
// layout doesn't match what its loader expects.
var ErrMalformed = errors.New("config: malformed blob")

// ErrTruncated is returned when a blob ends before a header-declared
// field has been fully read.
var ErrTruncated = errors.New("config: truncated blob")
