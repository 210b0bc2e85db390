package matching

import "go.uber.org/zap"

// Step records how a pipeline stage changed the candidate count.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

func (s Step) fields(stage string, requesterID int) []zap.Field {
	return []zap.Field{
		zap.String("stage", stage),
		zap.Int("requester_id", requesterID),
		zap.Int("initial", s.Initial),
		zap.Int("dropped", s.Dropped),
		zap.Int("left", s.Left),
	}
}
