package crmsync

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/lead-pipeline/internal/metrics"
	"github.com/sells-group/lead-pipeline/internal/model"
	"github.com/sells-group/lead-pipeline/internal/transform"
)

// DefaultObjectTimeout bounds each CRM call.
const DefaultObjectTimeout = 15 * time.Second

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithObjectTimeout sets the per-call timeout.
func WithObjectTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithMetrics records per-object outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// Orchestrator creates the CRM objects for one lead.
type Orchestrator struct {
	crm     CRM
	timeout time.Duration
	metrics *metrics.Metrics
}

// NewOrchestrator creates an orchestrator writing to crm.
func NewOrchestrator(crm CRM, opts ...Option) *Orchestrator {
	o := &Orchestrator{crm: crm, timeout: DefaultObjectTimeout}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Sync creates the Contact, then the Deal and Ticket concurrently with the
// new contact id attached. A failed Contact stops the sync. A failed Deal
// or Ticket is recorded in Errors without touching the other object.
//
// Calls are detached from ctx cancellation so that a disconnecting caller
// cannot leave a Contact without its Deal; each call is bounded by the
// object timeout instead.
func (o *Orchestrator) Sync(ctx context.Context, contact transform.ContactPayload, deal transform.DealPayload, ticket transform.TicketPayload) model.CrmSyncResult {
	ctx = context.WithoutCancel(ctx)
	result := model.CrmSyncResult{Errors: []string{}}

	contactFields := contact.Fields()
	contactID, err := o.create(ctx, ObjectContact, contactFields)
	if err != nil {
		result.Errors = append(result.Errors, failure(ObjectContact, err))
		return result
	}
	result.Contact = &model.CrmObject{Type: string(ObjectContact), ID: contactID, Properties: contactFields}

	deal = deal.WithContact(contactID)
	ticket = ticket.WithContact(contactID)

	var (
		g                errgroup.Group
		dealErr, tickErr error
		dealID, ticketID string
		dealFields       = deal.Fields()
		ticketFields     = ticket.Fields()
		associationErr   error
	)

	g.Go(func() error {
		dealID, dealErr = o.create(ctx, ObjectDeal, dealFields)
		if dealErr == nil {
			associationErr = o.associate(ctx, dealID, contactID)
		}
		return nil
	})
	g.Go(func() error {
		ticketID, tickErr = o.create(ctx, ObjectTicket, ticketFields)
		return nil
	})
	_ = g.Wait()

	if dealErr != nil {
		result.Errors = append(result.Errors, failure(ObjectDeal, dealErr))
	} else {
		dealFields["ContactId"] = contactID
		result.Deal = &model.CrmObject{Type: string(ObjectDeal), ID: dealID, Properties: dealFields}
	}
	if associationErr != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Deal association failed: %v", associationErr))
	}
	if tickErr != nil {
		result.Errors = append(result.Errors, failure(ObjectTicket, tickErr))
	} else {
		result.Ticket = &model.CrmObject{Type: string(ObjectTicket), ID: ticketID, Properties: ticketFields}
	}

	result.Success = result.Deal != nil || result.Ticket != nil

	zap.L().Info("crmsync: lead synced",
		zap.String("contact_id", contactID),
		zap.String("outcome", string(result.Outcome())),
		zap.Int("errors", len(result.Errors)),
	)
	return result
}

func (o *Orchestrator) create(ctx context.Context, object ObjectType, fields map[string]any) (string, error) {
	id, err := callWithTimeout(ctx, o.timeout, func(ctx context.Context) (string, error) {
		return o.crm.Create(ctx, object, fields)
	})
	o.metrics.CrmObject(string(object), err)
	if err != nil {
		zap.L().Error("crmsync: create failed", zap.String("object", string(object)), zap.Error(err))
		return "", err
	}
	return id, nil
}

func (o *Orchestrator) associate(ctx context.Context, dealID, contactID string) error {
	_, err := callWithTimeout(ctx, o.timeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, o.crm.Associate(ctx, dealID, contactID)
	})
	if err != nil {
		zap.L().Warn("crmsync: deal association failed",
			zap.String("deal_id", dealID),
			zap.String("contact_id", contactID),
			zap.Error(err),
		)
	}
	return err
}

// callWithTimeout runs fn and gives up after d even when fn ignores its
// context, as the Salesforce client does. fn keeps running in the
// background after a timeout; its result is discarded.
func callWithTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type outcome struct {
		v   T
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		v, err := fn(ctx)
		ch <- outcome{v, err}
	}()

	select {
	case out := <-ch:
		return out.v, out.err
	case <-ctx.Done():
		var zero T
		return zero, eris.Wrapf(ctx.Err(), "crmsync: call exceeded %s", d)
	}
}

func failure(object ObjectType, err error) string {
	return fmt.Sprintf("%s creation failed: %v", object.label(), err)
}
