// Package events fans committed workflow changes out to live subscribers.
package events

import (
	"context"
	"errors"
	"time"
)

const (
	OrderCreated       = "order.created"
	OrderStatusChanged = "order.status_changed"
	OrderDeleted       = "order.deleted"
	StockChanged       = "stock.changed"
	WorkLogStarted     = "worklog.started"
	WorkLogCompleted   = "worklog.completed"
	SalaryPaid         = "salary.paid"
	SalaryAdvance      = "salary.advance"
)

// Event is one committed change. Key groups events of the same entity.
type Event struct {
	Type string                 `json:"event"`
	Key  string                 `json:"key"`
	Data map[string]interface{} `json:"data"`
	At   time.Time              `json:"at"`
}

// Publisher delivers events after the transaction that produced them commits
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

type nop struct{}

func (nop) Publish(context.Context, Event) error { return nil }

// Nop discards every event
func Nop() Publisher { return nop{} }

type multi []Publisher

func (m multi) Publish(ctx context.Context, evt Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Multi publishes to every publisher and joins their errors
func Multi(publishers ...Publisher) Publisher {
	out := make(multi, 0, len(publishers))
	for _, p := range publishers {
		if p != nil {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return Nop()
	}
	return out
}
