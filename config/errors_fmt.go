// SPDX-License-Identifier: EPL-2.0

package config

import "fmt"

// malformedf wraps ErrMalformed with a formatted detail message.
func malformedf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrMalformed}, args...)...)
}
