package sourcing

import "go.uber.org/zap"

// Step describes the effect of one pipeline stage on the candidate list.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

func newStep(initial, left int) Step {
	return Step{Initial: initial, Dropped: initial - left, Left: left}
}

func logStep(logger *zap.Logger, name string, step Step) {
	logger.Debug("pipeline step",
		zap.String("name", name),
		zap.Int("initial", step.Initial),
		zap.Int("dropped", step.Dropped),
		zap.Int("left", step.Left),
	)
}
