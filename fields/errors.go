package fields

import "errors"

// Error taxonomy of the reader. Construction failures wrap ErrInit with
// their cause and always release the underlying file; read failures are
// per-call and leave the reader usable.
var (
	ErrNotFound        = errors.New("file not found")
	ErrInit            = errors.New("reader initialization failed")
	ErrInvalidTimestep = errors.New("invalid timestep")
	ErrFieldNotFound   = errors.New("field not found")
	ErrClosed          = errors.New("reader is closed")
)
