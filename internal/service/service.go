// Package service holds the workflow engine. Every exported operation consults
// the access guard first, then validates, then mutates inside one transaction.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"workshop/internal/access"
	"workshop/internal/events"
	"workshop/internal/model"
	"workshop/internal/repository"
	"workshop/pkg/apperror"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Deps is what every workflow service is built from
type Deps struct {
	Repos     repository.Repositories
	Publisher events.Publisher
	Log       *zap.Logger
	Now       func() time.Time
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now().UTC()
}

func (d *Deps) logger() *zap.Logger {
	if d.Log == nil {
		return zap.NewNop()
	}
	return d.Log
}

// systemActor performs transitions the workflow makes on its own
var systemActor = access.Actor{Role: model.RoleSystem}

func (d *Deps) audit(ctx context.Context, actor access.Actor, action, entityID, entityName string, details interface{}) error {
	var actorID *uuid.UUID
	if actor.ID != uuid.Nil {
		id := actor.ID
		actorID = &id
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("marshal audit details: %w", err)
	}
	entry := &model.AuditLog{
		ActorID:    actorID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(raw),
	}
	if err := d.Repos.Audit.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

// publish runs after commit. Delivery failures are logged, never returned: the
// change they describe is already durable.
func (d *Deps) publish(ctx context.Context, evts ...events.Event) {
	if d.Publisher == nil {
		return
	}
	for _, evt := range evts {
		if evt.At.IsZero() {
			evt.At = d.now()
		}
		if err := d.Publisher.Publish(ctx, evt); err != nil {
			d.logger().Warn("failed to publish event", zap.String("event", evt.Type), zap.Error(err))
		}
	}
}

// notFound maps a repository miss to a NotFound error and wraps anything else
func notFound(err error, what string, id uuid.UUID) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.NotFound("%s %s not found", what, id)
	}
	return fmt.Errorf("load %s: %w", what, err)
}

func orderEvent(typ string, o *model.Order, extra map[string]interface{}) events.Event {
	data := map[string]interface{}{
		"order_id":   o.ID,
		"status":     o.Status,
		"product_id": o.ProductID,
		"quantity":   o.Quantity,
	}
	for k, v := range extra {
		data[k] = v
	}
	return events.Event{Type: typ, Key: o.ID.String(), Data: data}
}
