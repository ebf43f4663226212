package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Farmacia-api/internal/application/coordination"
	"github.com/jhoicas/Farmacia-api/internal/application/dto"
	"github.com/jhoicas/Farmacia-api/internal/domain"
	"github.com/jhoicas/Farmacia-api/internal/domain/entity"
	"github.com/jhoicas/Farmacia-api/internal/domain/inventory"
	"github.com/jhoicas/Farmacia-api/internal/domain/repository"
	"github.com/jhoicas/Farmacia-api/internal/domain/sales"
	"github.com/jhoicas/Farmacia-api/pkg/logger"
)

// OrderUseCase ciclo de vida de la orden de venta coordinado con los libros de stock.
// Toda operación corre con la orden bloqueada; las que tocan stock bloquean además los libros
// en orden ascendente (tienda, medicamento) y guardan libro y orden en la misma transacción.
type OrderUseCase struct {
	coord    *coordination.Coordinator
	txRunner SalesTxRunner
	orders   repository.OrderRepository
	drugs    repository.DrugRepository
	policy   sales.PaymentPolicy
	log      *logger.Logger
	now      func() time.Time
}

// NewOrderUseCase construye el caso de uso. policy define los medios de pago diferidos.
func NewOrderUseCase(
	coord *coordination.Coordinator,
	txRunner SalesTxRunner,
	orders repository.OrderRepository,
	drugs repository.DrugRepository,
	policy sales.PaymentPolicy,
	log *logger.Logger,
) *OrderUseCase {
	return &OrderUseCase{
		coord:    coord,
		txRunner: txRunner,
		orders:   orders,
		drugs:    drugs,
		policy:   policy,
		log:      log.Component("sales"),
		now:      time.Now,
	}
}

// WithClock reemplaza el reloj (pruebas).
func (uc *OrderUseCase) WithClock(now func() time.Time) *OrderUseCase {
	uc.now = now
	return uc
}

// StartSale crea una orden en Draft con el siguiente número de la tienda.
func (uc *OrderUseCase) StartSale(ctx context.Context, shopID string, in dto.StartSaleRequest) (*dto.SalesOrderResponse, error) {
	if shopID == "" {
		return nil, domain.Invalid("shop_id", "obligatorio")
	}
	if in.CashierID == "" {
		return nil, domain.Invalid("cashier_id", "obligatorio")
	}
	var order *sales.SalesOrder
	err := uc.txRunner.RunSales(ctx, func(_ repository.LedgerRepository, orders repository.OrderRepository) error {
		number, err := orders.NextOrderNumber(ctx, shopID)
		if err != nil {
			return err
		}
		order = sales.NewSalesOrder(uuid.New().String(), shopID, number, in.CashierID, uc.now())
		order.CustomerID = in.CustomerID
		order.Notes = in.Notes
		return orders.Save(ctx, order)
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("order_id", order.ID).Str("order_number", order.OrderNumber).Str("shop_id", shopID).Msg("venta iniciada")
	return toOrderResponse(order), nil
}

// AddItem reserva stock para la línea y la agrega a la orden. Si la reserva falla la orden queda igual.
func (uc *OrderUseCase) AddItem(ctx context.Context, orderID string, in dto.AddItemRequest) (*dto.SalesOrderResponse, error) {
	strategy, err := inventory.ParseStrategy(in.Strategy)
	if err != nil {
		return nil, err
	}
	var out *sales.SalesOrder
	err = uc.coord.WithOrder(ctx, orderID, func(ctx context.Context) error {
		order, err := uc.orders.Get(ctx, orderID)
		if err != nil {
			return err
		}
		if err := order.Require("AddItem", entity.OrderDraft); err != nil {
			return err
		}
		if _, err := uc.drugs.Get(ctx, in.DrugID); err != nil {
			return err
		}
		ref := coordination.LedgerRef{ShopID: order.ShopID, DrugID: in.DrugID}
		return uc.coord.WithLedger(ctx, ref, func(ctx context.Context) error {
			now := uc.now()
			return uc.txRunner.RunSales(ctx, func(ledgers repository.LedgerRepository, orders repository.OrderRepository) error {
				ledger, err := ledgers.GetForUpdate(ctx, ref.ShopID, ref.DrugID)
				if err != nil {
					return err
				}
				if !ledger.IsAvailable {
					return domain.Invalid("drug_id", "no disponible para venta en la tienda")
				}
				price := ledger.Pricing.SellingPrice
				if in.UnitPrice != nil {
					price = *in.UnitPrice
				}
				item, err := sales.PriceItem(uuid.New().String(), sales.ItemInput{
					DrugID:             in.DrugID,
					Quantity:           in.Quantity,
					UnitPrice:          price,
					DiscountPercentage: in.DiscountPercentage,
					DiscountAmount:     in.DiscountAmount,
					TaxRate:            ledger.Pricing.TaxRate,
				})
				if err != nil {
					return err
				}
				plan, err := ledger.Allocate(in.DrugID, in.Quantity, strategy, now)
				if err != nil {
					return uc.internal(err)
				}
				if err := item.AttachPlan(plan); err != nil {
					return uc.internal(err)
				}
				next := order.Clone()
				if err := next.AddItem(item, now); err != nil {
					return err
				}
				if err := ledgers.Save(ctx, ledger); err != nil {
					return err
				}
				if err := orders.Save(ctx, next); err != nil {
					return err
				}
				out = next
				uc.log.Info().Str("order_id", orderID).Str("drug_id", in.DrugID).Str("plan_id", plan.ID).
					Int("quantity", in.Quantity).Int("batches", len(plan.Lines)).Msg("stock reservado")
				return nil
			})
		})
	})
	if err != nil {
		return nil, err
	}
	return toOrderResponse(out), nil
}

// RemoveItem libera el plan de la línea y la quita de la orden.
func (uc *OrderUseCase) RemoveItem(ctx context.Context, orderID, itemID string) (*dto.SalesOrderResponse, error) {
	var out *sales.SalesOrder
	err := uc.coord.WithOrder(ctx, orderID, func(ctx context.Context) error {
		order, err := uc.orders.Get(ctx, orderID)
		if err != nil {
			return err
		}
		if err := order.Require("RemoveItem", entity.OrderDraft); err != nil {
			return err
		}
		item, ok := order.Item(itemID)
		if !ok {
			return domain.NotFound("ítem", itemID)
		}
		ref := coordination.LedgerRef{ShopID: order.ShopID, DrugID: item.DrugID}
		return uc.coord.WithLedger(ctx, ref, func(ctx context.Context) error {
			now := uc.now()
			return uc.txRunner.RunSales(ctx, func(ledgers repository.LedgerRepository, orders repository.OrderRepository) error {
				ledger, err := ledgers.GetForUpdate(ctx, ref.ShopID, ref.DrugID)
				if err != nil {
					return err
				}
				next := order.Clone()
				removed, err := next.RemoveItem(itemID, now)
				if err != nil {
					return err
				}
				if err := ledger.Release(removed.Plan, now); err != nil {
					return uc.internal(err)
				}
				if err := ledgers.Save(ctx, ledger); err != nil {
					return err
				}
				if err := orders.Save(ctx, next); err != nil {
					return err
				}
				out = next
				uc.log.Info().Str("order_id", orderID).Str("item_id", itemID).Str("plan_id", removed.Plan.ID).Msg("reserva liberada")
				return nil
			})
		})
	})
	if err != nil {
		return nil, err
	}
	return toOrderResponse(out), nil
}

// ApplyDiscount fija el descuento a nivel orden.
func (uc *OrderUseCase) ApplyDiscount(ctx context.Context, orderID string, in dto.DiscountRequest) (*dto.SalesOrderResponse, error) {
	return uc.update(ctx, orderID, func(o *sales.SalesOrder, now time.Time) error {
		return o.ApplyDiscount(in.Amount, now)
	})
}

// SetPrescription registra la receta de la orden.
func (uc *OrderUseCase) SetPrescription(ctx context.Context, orderID string, in dto.PrescriptionRequest) (*dto.SalesOrderResponse, error) {
	return uc.update(ctx, orderID, func(o *sales.SalesOrder, now time.Time) error {
		return o.SetPrescription(in.Required, in.Number, now)
	})
}

// Pay registra el pago y pasa la orden a Paid.
func (uc *OrderUseCase) Pay(ctx context.Context, orderID string, in dto.PayRequest) (*dto.SalesOrderResponse, error) {
	method, err := entity.ParsePaymentMethod(in.PaymentMethod)
	if err != nil {
		return nil, err
	}
	out, err := uc.update(ctx, orderID, func(o *sales.SalesOrder, now time.Time) error {
		return o.Pay(in.AmountPaid, method, in.Reference, uc.policy, now)
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("order_id", orderID).Str("method", method.String()).
		Str("total", out.TotalAmount.StringFixed(2)).Str("balance_due", out.BalanceDue.StringFixed(2)).Msg("orden pagada")
	return out, nil
}

// Complete consume los planes de todas las líneas pendientes y cierra la orden.
// Cada línea se confirma en su propia transacción junto con la marca en la orden; si alguna
// falla, las ya confirmadas no se revierten, la orden sigue en Paid y se devuelve
// PartialCompletionError. Un reintento solo procesa las líneas que faltan.
func (uc *OrderUseCase) Complete(ctx context.Context, orderID string) (*dto.SalesOrderResponse, error) {
	var out *sales.SalesOrder
	err := uc.coord.WithOrder(ctx, orderID, func(ctx context.Context) error {
		order, err := uc.orders.Get(ctx, orderID)
		if err != nil {
			return err
		}
		if err := order.Require("Complete", entity.OrderPaid); err != nil {
			return err
		}
		pending := order.PendingItems()
		refs := make([]coordination.LedgerRef, 0, len(pending))
		for _, it := range pending {
			refs = append(refs, coordination.LedgerRef{ShopID: order.ShopID, DrugID: it.DrugID})
		}
		return uc.coord.WithLedgers(ctx, refs, func(ctx context.Context) error {
			var succeeded, failed []domain.ItemCommitResult
			for _, it := range pending {
				res := domain.ItemCommitResult{ItemID: it.ID, DrugID: it.DrugID, PlanID: it.Plan.ID}
				next, err := uc.commitItem(ctx, order, it)
				if err != nil {
					res.Err = err
					failed = append(failed, res)
					continue
				}
				order = next
				succeeded = append(succeeded, res)
			}
			if len(failed) > 0 {
				perr := &domain.PartialCompletionError{OrderID: orderID, Succeeded: succeeded, Failed: failed}
				uc.logPartial(perr)
				return perr
			}
			return uc.txRunner.RunSales(ctx, func(_ repository.LedgerRepository, orders repository.OrderRepository) error {
				next := order.Clone()
				if err := next.Complete(uc.now()); err != nil {
					return err
				}
				if err := orders.Save(ctx, next); err != nil {
					return err
				}
				out = next
				return nil
			})
		})
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("order_id", orderID).Int("items", len(out.Items)).Str("margin", out.ProfitMargin().String()).Msg("orden completada")
	return toOrderResponse(out), nil
}

// commitItem confirma el plan de una línea y la marca en la orden, en una sola transacción.
// Un plan que el libro ya tiene confirmado se toma como éxito (reintento tras un fallo al guardar).
func (uc *OrderUseCase) commitItem(ctx context.Context, order *sales.SalesOrder, it sales.SalesOrderItem) (*sales.SalesOrder, error) {
	var out *sales.SalesOrder
	now := uc.now()
	err := uc.txRunner.RunSales(ctx, func(ledgers repository.LedgerRepository, orders repository.OrderRepository) error {
		ledger, err := ledgers.GetForUpdate(ctx, order.ShopID, it.DrugID)
		if err != nil {
			return err
		}
		err = ledger.Commit(it.Plan, now)
		switch {
		case errors.Is(err, domain.ErrAlreadyCommitted):
			uc.log.Warn().Str("order_id", order.ID).Str("plan_id", it.Plan.ID).Msg("plan ya confirmado, se marca la línea")
		case err != nil:
			return uc.internal(err)
		default:
			if err := ledgers.Save(ctx, ledger); err != nil {
				return err
			}
		}
		next := order.Clone()
		if err := next.MarkItemCommitted(it.ID, now); err != nil {
			return err
		}
		if err := orders.Save(ctx, next); err != nil {
			return err
		}
		out = next
		return nil
	})
	return out, err
}

func (uc *OrderUseCase) logPartial(perr *domain.PartialCompletionError) {
	ok := make([]string, 0, len(perr.Succeeded))
	for _, s := range perr.Succeeded {
		ok = append(ok, s.ItemID)
	}
	bad := make([]string, 0, len(perr.Failed))
	for _, f := range perr.Failed {
		bad = append(bad, fmt.Sprintf("%s: %v", f.ItemID, f.Err))
	}
	uc.log.Error().Str("order_id", perr.OrderID).Strs("succeeded", ok).Strs("failed", bad).
		Msg("completado parcial, requiere reconciliación manual")
}

// Cancel libera los planes de todas las líneas y pasa la orden a Cancelled.
// En una orden pagada registra el reembolso adeudado.
func (uc *OrderUseCase) Cancel(ctx context.Context, orderID string, in dto.CancelRequest) (*dto.SalesOrderResponse, error) {
	var out *sales.SalesOrder
	err := uc.coord.WithOrder(ctx, orderID, func(ctx context.Context) error {
		order, err := uc.orders.Get(ctx, orderID)
		if err != nil {
			return err
		}
		if err := order.CheckCancellable(in.Reason); err != nil {
			return err
		}
		refs := make([]coordination.LedgerRef, 0, len(order.Items))
		for _, it := range order.Items {
			refs = append(refs, coordination.LedgerRef{ShopID: order.ShopID, DrugID: it.DrugID})
		}
		return uc.coord.WithLedgers(ctx, refs, func(ctx context.Context) error {
			now := uc.now()
			return uc.txRunner.RunSales(ctx, func(ledgers repository.LedgerRepository, orders repository.OrderRepository) error {
				touched := make(map[string]*inventory.StockLedger)
				for _, it := range order.Items {
					key := inventory.LedgerKey(order.ShopID, it.DrugID)
					ledger, ok := touched[key]
					if !ok {
						ledger, err = ledgers.GetForUpdate(ctx, order.ShopID, it.DrugID)
						if err != nil {
							return err
						}
						touched[key] = ledger
					}
					if err := ledger.Release(it.Plan, now); err != nil {
						if errors.Is(err, domain.ErrPlanNotFound) {
							uc.log.Warn().Err(err).Str("order_id", orderID).Str("item_id", it.ID).Msg("plan ya cerrado al cancelar")
							continue
						}
						return uc.internal(err)
					}
				}
				for _, ref := range coordination.SortLedgerRefs(refs) {
					if err := ledgers.Save(ctx, touched[inventory.LedgerKey(ref.ShopID, ref.DrugID)]); err != nil {
						return err
					}
				}
				next := order.Clone()
				if err := next.Cancel(in.Reason, in.CancelledBy, now); err != nil {
					return err
				}
				if err := orders.Save(ctx, next); err != nil {
					return err
				}
				out = next
				return nil
			})
		})
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("order_id", orderID).Str("refund", out.RefundAmount.StringFixed(2)).Str("by", in.CancelledBy).Msg("orden cancelada")
	return toOrderResponse(out), nil
}

// Get devuelve la orden.
func (uc *OrderUseCase) Get(ctx context.Context, orderID string) (*dto.SalesOrderResponse, error) {
	order, err := uc.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return toOrderResponse(order), nil
}

// ProfitMargin margen de la orden con el costo histórico de sus planes.
func (uc *OrderUseCase) ProfitMargin(ctx context.Context, orderID string) (decimal.Decimal, error) {
	order, err := uc.orders.Get(ctx, orderID)
	if err != nil {
		return decimal.Zero, err
	}
	return order.ProfitMargin(), nil
}

// update aplica fn a la orden bloqueada y la guarda. Para transiciones que no tocan stock.
func (uc *OrderUseCase) update(ctx context.Context, orderID string, fn func(o *sales.SalesOrder, now time.Time) error) (*dto.SalesOrderResponse, error) {
	var out *sales.SalesOrder
	err := uc.coord.WithOrder(ctx, orderID, func(ctx context.Context) error {
		return uc.txRunner.RunSales(ctx, func(_ repository.LedgerRepository, orders repository.OrderRepository) error {
			order, err := orders.Get(ctx, orderID)
			if err != nil {
				return err
			}
			if err := fn(order, uc.now()); err != nil {
				return err
			}
			if err := orders.Save(ctx, order); err != nil {
				return err
			}
			out = order
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return toOrderResponse(out), nil
}

func (uc *OrderUseCase) internal(err error) error {
	if errors.Is(err, domain.ErrInternal) {
		uc.log.Error().Err(err).Msg("invariante violado")
	}
	return err
}

func toOrderResponse(o *sales.SalesOrder) *dto.SalesOrderResponse {
	items := make([]dto.SalesOrderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		lines := make([]dto.PlanLineResponse, 0, len(it.Plan.Lines))
		for _, l := range it.Plan.Lines {
			lines = append(lines, dto.PlanLineResponse{BatchNumber: l.BatchNumber, Quantity: l.Quantity, UnitCost: l.UnitCost})
		}
		items = append(items, dto.SalesOrderItemResponse{
			ID:                 it.ID,
			DrugID:             it.DrugID,
			BatchNumber:        it.BatchNumber,
			Quantity:           it.Quantity,
			UnitPrice:          it.UnitPrice,
			DiscountPercentage: it.DiscountPercentage,
			DiscountAmount:     it.DiscountAmount,
			TaxRate:            it.TaxRate,
			TotalPrice:         it.TotalPrice,
			TaxAmount:          it.TaxAmount,
			PlanID:             it.Plan.ID,
			Allocation:         lines,
			CommittedAt:        it.CommittedAt,
		})
	}
	var method string
	if o.PaymentMethod.Valid() {
		method = o.PaymentMethod.String()
	}
	return &dto.SalesOrderResponse{
		ID:                     o.ID,
		OrderNumber:            o.OrderNumber,
		ShopID:                 o.ShopID,
		CashierID:              o.CashierID,
		CustomerID:             o.CustomerID,
		Status:                 o.Status.String(),
		SubTotal:               o.SubTotal,
		TaxAmount:              o.TaxAmount,
		DiscountAmount:         o.DiscountAmount,
		TotalAmount:            o.TotalAmount,
		AmountPaid:             o.AmountPaid,
		ChangeGiven:            o.ChangeGiven,
		BalanceDue:             o.BalanceDue,
		RefundAmount:           o.RefundAmount,
		PaymentMethod:          method,
		PaymentReference:       o.PaymentReference,
		IsPrescriptionRequired: o.IsPrescriptionRequired,
		PrescriptionNumber:     o.PrescriptionNumber,
		Items:                  items,
		TotalItemsCount:        o.TotalItemsCount(),
		ProfitMargin:           o.ProfitMargin(),
		OrderDate:              o.OrderDate,
		PaidAt:                 o.PaidAt,
		CompletedAt:            o.CompletedAt,
		CancelledAt:            o.CancelledAt,
		CancellationReason:     o.CancellationReason,
		CancelledBy:            o.CancelledBy,
		Notes:                  o.Notes,
	}
}
