package events

import (
	"context"
	"errors"
	"time"

	"cyklon/internal/model"
)

// Sink receives committed LiquidityAdded events.
type Sink interface {
	Publish(ctx context.Context, event model.LiquidityAdded) error
}

// NopSink drops every event.
type NopSink struct{}

func (NopSink) Publish(context.Context, model.LiquidityAdded) error { return nil }

// MultiSink fans an event out to every sink and joins their failures.
type MultiSink []Sink

func (m MultiSink) Publish(ctx context.Context, event model.LiquidityAdded) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewRecord wraps event with its log encoding for the journal and pub/sub.
func NewRecord(event model.LiquidityAdded) (model.EventRecord, error) {
	log, err := EncodeLog(event)
	if err != nil {
		return model.EventRecord{}, err
	}
	return model.EventRecord{
		EventName:  LiquidityAddedName,
		Event:      event,
		Log:        log,
		RecordedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}, nil
}
