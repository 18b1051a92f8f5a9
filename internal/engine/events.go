package engine

import "github.com/elys-network/wlp/internal/types"

// EventRecorder receives one event per completed state-mutating operation.
// Recording is observability, not settlement: a failed write is logged by
// the engine and the operation still succeeds.
type EventRecorder interface {
	RecordEvent(event types.EngineEvent) error
}

// NopRecorder discards events. Used by tests and ad-hoc simulations that
// have no database behind them.
type NopRecorder struct{}

func (NopRecorder) RecordEvent(types.EngineEvent) error { return nil }
