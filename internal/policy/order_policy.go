package policy

import (
	"context"
	"fmt"

	"github.com/diewo77/go-stock/gate"
	"github.com/diewo77/go-stock/internal/models"
	"github.com/diewo77/go-stock/internal/services"
	"github.com/diewo77/go-stock/internal/store"
)

// OrderPolicy refuses edits to validated orders and deletion of orders that
// already have an invoice or a delivery note.
type OrderPolicy struct{}

func (OrderPolicy) Check(_ context.Context, _ uint, action gate.Action, resource any) error {
	o, ok := resource.(*models.Order)
	if !ok {
		return nil
	}
	switch action {
	case gate.ActionUpdate:
		if o.Validated {
			return fmt.Errorf("order %s: %w", o.Reference, services.ErrOrderLocked)
		}
	case gate.ActionDelete:
		if o.Invoice != nil || o.DeliveryNote != nil {
			return fmt.Errorf("order %s has documents: %w", o.Reference, store.ErrReferenced)
		}
	}
	return nil
}
