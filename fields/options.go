package fields

import "go.uber.org/zap"

// Option configures a Reader at open time.
type Option func(*readerOptions)

type readerOptions struct {
	fieldNames []string
	logger     *zap.Logger
}

func defaultReaderOptions() *readerOptions {
	return &readerOptions{
		logger: zap.NewNop(),
	}
}

// WithFields restricts the reader to the named fields. Names absent from
// the file are dropped; the remaining order follows the caller's list.
func WithFields(names ...string) Option {
	return func(o *readerOptions) {
		o.fieldNames = names
	}
}

// WithLogger sets the logger the reader reports through. The default
// discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(o *readerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}
