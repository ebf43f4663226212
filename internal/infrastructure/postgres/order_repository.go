package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Farmacia-api/internal/domain"
	"github.com/jhoicas/Farmacia-api/internal/domain/entity"
	"github.com/jhoicas/Farmacia-api/internal/domain/repository"
	"github.com/jhoicas/Farmacia-api/internal/domain/sales"
)

var _ repository.OrderRepository = (*OrderRepo)(nil)

// OrderRepo órdenes de venta sobre sales_orders + sales_order_items (usable con pool o tx).
// El plan de cada línea se lee de allocation_plans, que escribe LedgerRepo.
type OrderRepo struct {
	q      Querier
	prefix string
}

// NewOrderRepository construye el adaptador. prefix antecede al consecutivo por tienda.
func NewOrderRepository(q Querier, prefix string) *OrderRepo {
	if prefix == "" {
		prefix = "SO"
	}
	return &OrderRepo{q: q, prefix: prefix}
}

// Get obtiene la orden con sus líneas en orden.
func (r *OrderRepo) Get(ctx context.Context, id string) (*sales.SalesOrder, error) {
	query := `
		SELECT id, order_number, shop_id, cashier_id, customer_id, status,
		       sub_total, tax_amount, discount_amount, total_amount, amount_paid, change_given,
		       balance_due, refund_amount, payment_method, payment_reference,
		       is_prescription_required, prescription_number,
		       order_date, paid_at, completed_at, cancelled_at,
		       cancellation_reason, cancelled_by, notes, created_at, updated_at
		FROM sales_orders WHERE id = $1`
	var (
		o                                  sales.SalesOrder
		status                             string
		customer, method, reference, presc *string
		reason, by, notes                  *string
	)
	err := r.q.QueryRow(ctx, query, id).Scan(
		&o.ID, &o.OrderNumber, &o.ShopID, &o.CashierID, &customer, &status,
		&o.SubTotal, &o.TaxAmount, &o.DiscountAmount, &o.TotalAmount, &o.AmountPaid, &o.ChangeGiven,
		&o.BalanceDue, &o.RefundAmount, &method, &reference,
		&o.IsPrescriptionRequired, &presc,
		&o.OrderDate, &o.PaidAt, &o.CompletedAt, &o.CancelledAt,
		&reason, &by, &notes, &o.CreatedAt, &o.LastUpdated,
	)
	if err != nil {
		if errNoRows(err) {
			return nil, domain.NotFound("orden", id)
		}
		return nil, fmt.Errorf("get sales order: %w", err)
	}
	if o.Status, err = entity.ParseOrderStatus(status); err != nil {
		return nil, fmt.Errorf("orden %s: %w", id, err)
	}
	if method != nil {
		if o.PaymentMethod, err = entity.ParsePaymentMethod(*method); err != nil {
			return nil, fmt.Errorf("orden %s: %w", id, err)
		}
	}
	o.CustomerID = deref(customer)
	o.PaymentReference = deref(reference)
	o.PrescriptionNumber = deref(presc)
	o.CancellationReason = deref(reason)
	o.CancelledBy = deref(by)
	o.Notes = deref(notes)

	items, err := r.items(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}

func (r *OrderRepo) items(ctx context.Context, orderID string) ([]sales.SalesOrderItem, error) {
	query := `
		SELECT i.id, i.drug_id, i.batch_number, i.quantity, i.unit_price, i.discount_percentage,
		       i.discount_amount, i.tax_rate, i.total_price, i.tax_amount, i.committed_at,
		       p.id, p.shop_id, p.drug_id, p.strategy, p.status, p.lines, p.created_at, p.settled_at
		FROM sales_order_items i
		JOIN allocation_plans p ON p.id = i.plan_id
		WHERE i.order_id = $1
		ORDER BY i.position`
	rows, err := r.q.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("query sales_order_items: %w", err)
	}
	defer rows.Close()
	var out []sales.SalesOrderItem
	for rows.Next() {
		var (
			it               sales.SalesOrderItem
			strategy, status string
			lines            []byte
		)
		if err := rows.Scan(
			&it.ID, &it.DrugID, &it.BatchNumber, &it.Quantity, &it.UnitPrice, &it.DiscountPercentage,
			&it.DiscountAmount, &it.TaxRate, &it.TotalPrice, &it.TaxAmount, &it.CommittedAt,
			&it.Plan.ID, &it.Plan.ShopID, &it.Plan.DrugID, &strategy, &status, &lines, &it.Plan.CreatedAt, &it.Plan.SettledAt,
		); err != nil {
			return nil, fmt.Errorf("scan sales_order_item: %w", err)
		}
		if err := decodePlan(&it.Plan, strategy, status, lines); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// Save inserta o actualiza la orden y reemplaza el conjunto de líneas.
func (r *OrderRepo) Save(ctx context.Context, o *sales.SalesOrder) error {
	var method *string
	if o.PaymentMethod.Valid() {
		m := o.PaymentMethod.String()
		method = &m
	}
	batch := &pgx.Batch{}
	batch.Queue(`
		INSERT INTO sales_orders (id, order_number, shop_id, cashier_id, customer_id, status,
		       sub_total, tax_amount, discount_amount, total_amount, amount_paid, change_given,
		       balance_due, refund_amount, payment_method, payment_reference,
		       is_prescription_required, prescription_number,
		       order_date, paid_at, completed_at, cancelled_at,
		       cancellation_reason, cancelled_by, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
		        $19, $20, $21, $22, $23, $24, $25, $26, $27)
		ON CONFLICT (id) DO UPDATE SET
			customer_id = EXCLUDED.customer_id, status = EXCLUDED.status,
			sub_total = EXCLUDED.sub_total, tax_amount = EXCLUDED.tax_amount,
			discount_amount = EXCLUDED.discount_amount, total_amount = EXCLUDED.total_amount,
			amount_paid = EXCLUDED.amount_paid, change_given = EXCLUDED.change_given,
			balance_due = EXCLUDED.balance_due, refund_amount = EXCLUDED.refund_amount,
			payment_method = EXCLUDED.payment_method, payment_reference = EXCLUDED.payment_reference,
			is_prescription_required = EXCLUDED.is_prescription_required,
			prescription_number = EXCLUDED.prescription_number,
			paid_at = EXCLUDED.paid_at, completed_at = EXCLUDED.completed_at, cancelled_at = EXCLUDED.cancelled_at,
			cancellation_reason = EXCLUDED.cancellation_reason, cancelled_by = EXCLUDED.cancelled_by,
			notes = EXCLUDED.notes, updated_at = EXCLUDED.updated_at`,
		o.ID, o.OrderNumber, o.ShopID, o.CashierID, nullIfEmpty(o.CustomerID), o.Status.String(),
		o.SubTotal, o.TaxAmount, o.DiscountAmount, o.TotalAmount, o.AmountPaid, o.ChangeGiven,
		o.BalanceDue, o.RefundAmount, method, nullIfEmpty(o.PaymentReference),
		o.IsPrescriptionRequired, nullIfEmpty(o.PrescriptionNumber),
		o.OrderDate, o.PaidAt, o.CompletedAt, o.CancelledAt,
		nullIfEmpty(o.CancellationReason), nullIfEmpty(o.CancelledBy), nullIfEmpty(o.Notes), o.CreatedAt, o.LastUpdated,
	)
	ids := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		ids = append(ids, it.ID)
	}
	batch.Queue(`DELETE FROM sales_order_items WHERE order_id = $1 AND NOT (id = ANY($2))`, o.ID, ids)
	for pos, it := range o.Items {
		batch.Queue(`
			INSERT INTO sales_order_items (id, order_id, position, drug_id, batch_number, quantity, unit_price,
			       discount_percentage, discount_amount, tax_rate, total_price, tax_amount, plan_id, committed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			ON CONFLICT (id) DO UPDATE SET position = EXCLUDED.position, committed_at = EXCLUDED.committed_at`,
			it.ID, o.ID, pos, it.DrugID, it.BatchNumber, it.Quantity, it.UnitPrice,
			it.DiscountPercentage, it.DiscountAmount, it.TaxRate, it.TotalPrice, it.TaxAmount, it.Plan.ID, it.CommittedAt,
		)
	}

	br := r.q.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: número de orden %s repetido en la tienda %s", domain.ErrConflict, o.OrderNumber, o.ShopID)
			}
			return fmt.Errorf("save sales order %s: %w", o.ID, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("save sales order %s: %w", o.ID, err)
	}
	return nil
}

// NextOrderNumber consecutivo por tienda. La fila del contador queda bloqueada hasta el fin de la tx.
func (r *OrderRepo) NextOrderNumber(ctx context.Context, shopID string) (string, error) {
	var n int64
	err := r.q.QueryRow(ctx, `
		INSERT INTO shop_order_counters (shop_id, last_value) VALUES ($1, 1)
		ON CONFLICT (shop_id) DO UPDATE SET last_value = shop_order_counters.last_value + 1
		RETURNING last_value`, shopID).Scan(&n)
	if err != nil {
		return "", fmt.Errorf("next order number: %w", err)
	}
	return fmt.Sprintf("%s-%06d", r.prefix, n), nil
}
