package generate

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	// KindEmptyTheme: the theme was blank after trimming; no request made.
	KindEmptyTheme ErrorKind = "empty_theme"
	// KindTimeout: the provider did not answer within the bounded wait.
	KindTimeout ErrorKind = "timeout"
	// KindEmptyOrMalformed: the provider answered but the payload could
	// not be used (unparseable, or zero scenes).
	KindEmptyOrMalformed ErrorKind = "empty_or_malformed"
	// KindTransport: the request itself failed, even after the retry.
	KindTransport ErrorKind = "transport"
)

// GenerationError is the only error type the story generator lets out.
// Raw provider errors never cross this boundary.
type GenerationError struct {
	Kind ErrorKind
	Err  error
}

func (e *GenerationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("story generation failed (%s)", e.Kind)
	}
	return fmt.Sprintf("story generation failed (%s): %v", e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// AsGenerationError unwraps err into a *GenerationError if it is one.
func AsGenerationError(err error) (*GenerationError, bool) {
	var ge *GenerationError
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}
