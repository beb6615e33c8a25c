package wiki

import "errors"

// ErrNotFound is returned when the remote corpus no longer has the document.
// The sync pipeline treats it as a delete, not a transient failure.
var ErrNotFound = errors.New("wiki: document not found")
