package pipeline

import "github.com/rs/zerolog"

// LogPublisher writes every event as a structured log line.
type LogPublisher struct {
	log zerolog.Logger
}

func NewLogPublisher(l zerolog.Logger) *LogPublisher {
	return &LogPublisher{log: l.With().Str("component", "pipeline").Logger()}
}

func (p *LogPublisher) Publish(e Event) {
	ev := p.log.Info()
	if _, failed := e.Fields["error"]; failed {
		ev = p.log.Error()
	}
	ev.Fields(e.Fields).Str("event", e.Name).Msg("pipeline event")
}
