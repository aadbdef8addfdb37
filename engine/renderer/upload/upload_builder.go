package upload

// PipelineBuilderOption is a functional option used to configure a Pipeline during construction.
type PipelineBuilderOption func(*uploadPipeline)

// WithSlack sets the headroom added to a slot's buffers whenever they grow.
//
// Parameters:
//   - bytes: the extra capacity in bytes
//
// Returns:
//   - PipelineBuilderOption: a function that sets the slack
func WithSlack(bytes uint64) PipelineBuilderOption {
	return func(p *uploadPipeline) {
		p.slack = bytes
	}
}

// WithLabel sets the prefix of the buffer debug labels.
func WithLabel(label string) PipelineBuilderOption {
	return func(p *uploadPipeline) {
		p.label = label
	}
}
