package bridge

import "fmt"

// LengthMismatchError reports a guest read buffer whose declared length
// does not match the source frame plane.
type LengthMismatchError struct {
	Index int
	Want  int
	Got   int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("frame %d plane is %d bytes, guest buffer declares %d", e.Index, e.Want, e.Got)
}
