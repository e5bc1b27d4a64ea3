package cv

// Option customizes a single recognition query
type Option func(*cvOptions)

type cvOptions struct {
	threshold *float64
	region    *Region
	frame     *Frame
}

func applyOptions(opts []Option) *cvOptions {
	o := &cvOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithThreshold overrides the configured confidence threshold for one query
func WithThreshold(t float64) Option {
	return func(opts *cvOptions) {
		opts.threshold = &t
	}
}

// WithRegion restricts color and text detection to a region of the frame
func WithRegion(r Region) Option {
	return func(opts *cvOptions) {
		opts.region = &r
	}
}

// WithFrame runs the query against an already captured frame instead of the frame cache
func WithFrame(f *Frame) Option {
	return func(opts *cvOptions) {
		opts.frame = f
	}
}
