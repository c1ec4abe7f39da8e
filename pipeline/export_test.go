package pipeline

// WithBlockHook runs fn in the worker goroutine before each block is
// recovered.
func WithBlockHook(fn func(seq int)) Option {
	return func(o *options) { o.onBlock = fn }
}

// MaxInFlight reports the number of blocks r lets past the reader before the
// writer has flushed the oldest.
func (r *Runner) MaxInFlight() int { return r.maxInFlight() }
