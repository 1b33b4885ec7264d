// SPDX-License-Identifier: EPL-2.0

package aiff

import "errors"

var (
	// ErrNotAiffFile indicates the stream is not a valid AIFF file.
	ErrNotAiffFile = errors.New("not an AIFF file")

	// ErrOnlyPCM16bitSupported indicates the file uses a bit depth other
	// than 16-bit PCM.
	ErrOnlyPCM16bitSupported = errors.New("only 16-bit PCM AIFF is supported")

	// ErrUnsupportedAiffLayout indicates the decoder could not determine
	// the file's channel/sample-rate layout.
	ErrUnsupportedAiffLayout = errors.New("unsupported AIFF layout")
)
