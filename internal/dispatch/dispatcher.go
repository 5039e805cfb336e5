// Package dispatch formats fired signals into alerts, deduplicates them
// against a cooldown window, and forwards them to the notification sink.
package dispatch

import (
	"context"
	"log"
	"time"

	"whale-trap-scanner/internal/model"
	"whale-trap-scanner/internal/notification"
)

// Result is the typed outcome of one dispatch.
type Result int

const (
	Sent Result = iota
	Suppressed
	DeliveryFailed
)

func (r Result) String() string {
	switch r {
	case Sent:
		return "sent"
	case Suppressed:
		return "suppressed"
	case DeliveryFailed:
		return "delivery_failed"
	default:
		return "unknown"
	}
}

// Recorder receives successfully sent signals for audit (the sqlite journal
// implements it). May be nil.
type Recorder interface {
	Record(sig *model.Signal) error
}

// Dispatcher forwards signals to the notification sink with deduplication.
type Dispatcher struct {
	notifier notification.Notifier
	deduper  Deduper
	recorder Recorder
	ttl      time.Duration
}

// New creates a dispatcher. recorder may be nil to disable journaling.
func New(notifier notification.Notifier, deduper Deduper, recorder Recorder, cooldown time.Duration) *Dispatcher {
	return &Dispatcher{
		notifier: notifier,
		deduper:  deduper,
		recorder: recorder,
		ttl:      cooldown,
	}
}

// Dispatch sends one signal. Duplicate signals within the cooldown window
// report Suppressed; sink failures report DeliveryFailed and drop the signal.
// A later cycle re-triggers naturally if the condition persists, so nothing
// is requeued. Never returns an error to the polling loop.
func (d *Dispatcher) Dispatch(ctx context.Context, sig *model.Signal) Result {
	claimed, err := d.deduper.Claim(ctx, sig.DedupKey(), d.ttl)
	if err != nil {
		// A broken dedup backend must not silence alerts; send anyway.
		log.Printf("[dispatch] %s dedup claim failed, sending without dedup: %v", sig.Symbol, err)
	} else if !claimed {
		log.Printf("[dispatch] %s suppressed (cooldown %s)", sig.Symbol, d.ttl)
		return Suppressed
	}

	alert := notification.Alert{
		Level:   notification.AlertCritical,
		Title:   "Whale trap: " + sig.Symbol,
		Message: sig.Message,
		Symbol:  sig.Symbol,
		Price:   sig.Price,
		Policy:  sig.Policy,
		BarTime: sig.Time,
	}
	if err := d.notifier.Send(ctx, alert); err != nil {
		log.Printf("[dispatch] %s delivery failed: %v", sig.Symbol, err)
		return DeliveryFailed
	}

	if d.recorder != nil {
		if err := d.recorder.Record(sig); err != nil {
			log.Printf("[dispatch] %s journal write failed: %v", sig.Symbol, err)
		}
	}
	return Sent
}
