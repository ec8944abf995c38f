package musicxml

import "fmt"

// DocumentFormatError reports a score document that could not be decoded.
type DocumentFormatError struct {
	Path string
	Err  error
}

func (e *DocumentFormatError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("malformed score document: %v", e.Err)
	}
	return fmt.Sprintf("malformed score document %s: %v", e.Path, e.Err)
}

func (e *DocumentFormatError) Unwrap() error {
	return e.Err
}
