package app

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"studyhub/internal/domain"
)

// MultiSink fans a result out to every configured sink concurrently.
// Each failure is logged; the first one is returned.
type MultiSink struct {
	sinks []namedSink
	log   *slog.Logger
}

type namedSink struct {
	name string
	sink ResultSink
}

func NewMultiSink(log *slog.Logger) *MultiSink {
	if log == nil {
		log = slog.Default()
	}
	return &MultiSink{log: log}
}

// Add registers a sink under a name used in logs. Nil sinks are ignored.
func (m *MultiSink) Add(name string, sink ResultSink) *MultiSink {
	if sink != nil {
		m.sinks = append(m.sinks, namedSink{name: name, sink: sink})
	}
	return m
}

func (m *MultiSink) Len() int {
	return len(m.sinks)
}

func (m *MultiSink) RecordResult(ctx context.Context, sc domain.SessionContext, result domain.Result) error {
	var g errgroup.Group
	for _, ns := range m.sinks {
		ns := ns
		g.Go(func() error {
			if err := ns.sink.RecordResult(ctx, sc, result); err != nil {
				m.log.Warn("result sink failed", "sink", ns.name, "attempt_id", result.AttemptID, "err", err)
				return err
			}
			return nil
		})
	}
	return g.Wait()
}
