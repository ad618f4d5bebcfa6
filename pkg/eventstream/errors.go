package eventstream

import "errors"

// ErrNilFileEvent indicates a nil file event payload was provided to a publisher.
var ErrNilFileEvent = errors.New("nil file event")
