package sales

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Farmacia-api/internal/domain"
	"github.com/jhoicas/Farmacia-api/internal/domain/entity"
)

// transitions Draft → Paid → Completed, con Draft → Cancelled y Paid → Cancelled (reembolso).
var transitions = map[entity.OrderStatus][]entity.OrderStatus{
	entity.OrderDraft: {entity.OrderPaid, entity.OrderCancelled},
	entity.OrderPaid:  {entity.OrderCompleted, entity.OrderCancelled},
}

// CanTransition indica si la máquina de estados permite pasar de from a to.
func CanTransition(from, to entity.OrderStatus) bool {
	return slices.Contains(transitions[from], to)
}

// PaymentPolicy medios de pago diferidos (crédito) que admiten pagar menos que el total.
type PaymentPolicy struct {
	deferred map[entity.PaymentMethod]bool
}

// NewPaymentPolicy construye la política con los medios diferidos indicados.
func NewPaymentPolicy(deferred ...entity.PaymentMethod) PaymentPolicy {
	p := PaymentPolicy{deferred: make(map[entity.PaymentMethod]bool, len(deferred))}
	for _, m := range deferred {
		p.deferred[m] = true
	}
	return p
}

// IsDeferred true si el medio admite saldo pendiente.
func (p PaymentPolicy) IsDeferred(m entity.PaymentMethod) bool { return p.deferred[m] }

// SalesOrder orden de venta con sus líneas, montos y estado.
type SalesOrder struct {
	entity.BaseEntity
	OrderNumber string
	ShopID      string
	CashierID   string
	CustomerID  string
	Status      entity.OrderStatus

	SubTotal       decimal.Decimal
	TaxAmount      decimal.Decimal
	DiscountAmount decimal.Decimal
	TotalAmount    decimal.Decimal
	AmountPaid     decimal.Decimal
	ChangeGiven    decimal.Decimal
	BalanceDue     decimal.Decimal
	RefundAmount   decimal.Decimal

	PaymentMethod    entity.PaymentMethod
	PaymentReference string

	Items []SalesOrderItem

	IsPrescriptionRequired bool
	PrescriptionNumber     string

	OrderDate   time.Time
	PaidAt      *time.Time
	CompletedAt *time.Time
	CancelledAt *time.Time

	CancellationReason string
	CancelledBy        string
	Notes              string
}

// NewSalesOrder crea una orden en Draft.
func NewSalesOrder(id, shopID, orderNumber, cashierID string, now time.Time) *SalesOrder {
	o := &SalesOrder{
		OrderNumber:    orderNumber,
		ShopID:         shopID,
		CashierID:      cashierID,
		Status:         entity.OrderDraft,
		SubTotal:       decimal.Zero,
		TaxAmount:      decimal.Zero,
		DiscountAmount: decimal.Zero,
		TotalAmount:    decimal.Zero,
		AmountPaid:     decimal.Zero,
		ChangeGiven:    decimal.Zero,
		BalanceDue:     decimal.Zero,
		RefundAmount:   decimal.Zero,
		OrderDate:      now,
	}
	o.ID = id
	o.Touch(now)
	return o
}

// Require falla con InvalidTransitionError si el estado actual no está en allowed.
func (o *SalesOrder) Require(op string, allowed ...entity.OrderStatus) error {
	if slices.Contains(allowed, o.Status) {
		return nil
	}
	return &domain.InvalidTransitionError{OrderID: o.ID, Current: o.Status.String(), Attempted: op}
}

func (o *SalesOrder) transition(to entity.OrderStatus, op string) error {
	if !CanTransition(o.Status, to) {
		return &domain.InvalidTransitionError{OrderID: o.ID, Current: o.Status.String(), Attempted: op}
	}
	o.Status = to
	return nil
}

// Item devuelve la línea con ese ID.
func (o *SalesOrder) Item(itemID string) (*SalesOrderItem, bool) {
	i := slices.IndexFunc(o.Items, func(it SalesOrderItem) bool { return it.ID == itemID })
	if i < 0 {
		return nil, false
	}
	return &o.Items[i], true
}

// AddItem agrega una línea ya reservada. Solo en Draft.
func (o *SalesOrder) AddItem(item SalesOrderItem, now time.Time) error {
	if err := o.Require("AddItem", entity.OrderDraft); err != nil {
		return err
	}
	if item.Plan.ID == "" {
		return &domain.InternalError{Op: "AddItem", Detail: fmt.Sprintf("línea %s sin plan de asignación", item.ID)}
	}
	o.Items = append(o.Items, item)
	o.Recompute()
	o.Touch(now)
	return nil
}

// RemoveItem quita la línea y devuelve una copia para liberar su plan. Solo en Draft.
func (o *SalesOrder) RemoveItem(itemID string, now time.Time) (SalesOrderItem, error) {
	if err := o.Require("RemoveItem", entity.OrderDraft); err != nil {
		return SalesOrderItem{}, err
	}
	i := slices.IndexFunc(o.Items, func(it SalesOrderItem) bool { return it.ID == itemID })
	if i < 0 {
		return SalesOrderItem{}, domain.NotFound("ítem", itemID)
	}
	removed := o.Items[i]
	o.Items = slices.Delete(o.Items, i, i+1)
	o.Recompute()
	o.Touch(now)
	return removed, nil
}

// Recompute recalcula subTotal, taxAmount y totalAmount = subTotal + taxAmount - discountAmount.
// Si el descuento supera el bruto (tras quitar líneas) se recorta para no dejar total negativo.
func (o *SalesOrder) Recompute() {
	sub, tax := decimal.Zero, decimal.Zero
	for i := range o.Items {
		sub = sub.Add(o.Items[i].TotalPrice)
		tax = tax.Add(o.Items[i].TaxAmount)
	}
	o.SubTotal = sub
	o.TaxAmount = tax
	gross := sub.Add(tax)
	if o.DiscountAmount.GreaterThan(gross) {
		o.DiscountAmount = gross
	}
	o.TotalAmount = gross.Sub(o.DiscountAmount)
}

// ApplyDiscount fija el descuento a nivel orden. Solo en Draft.
func (o *SalesOrder) ApplyDiscount(amount decimal.Decimal, now time.Time) error {
	if err := o.Require("ApplyDiscount", entity.OrderDraft); err != nil {
		return err
	}
	if amount.IsNegative() {
		return domain.Invalid("discount_amount", "no puede ser negativo")
	}
	if amount.GreaterThan(o.SubTotal.Add(o.TaxAmount)) {
		return domain.Invalid("discount_amount", "supera el total de la orden")
	}
	o.DiscountAmount = amount
	o.Recompute()
	o.Touch(now)
	return nil
}

// SetPrescription número de receta y obligatoriedad van juntos o ausentes. Solo en Draft.
func (o *SalesOrder) SetPrescription(required bool, number string, now time.Time) error {
	if err := o.Require("SetPrescription", entity.OrderDraft); err != nil {
		return err
	}
	number = strings.TrimSpace(number)
	if required != (number != "") {
		return domain.Invalid("prescription_number", "la receta obligatoria y su número van juntos")
	}
	o.IsPrescriptionRequired = required
	o.PrescriptionNumber = number
	o.Touch(now)
	return nil
}

// Pay registra el pago. Solo en Draft. Un medio diferido según policy puede dejar saldo pendiente.
func (o *SalesOrder) Pay(amount decimal.Decimal, method entity.PaymentMethod, reference string, policy PaymentPolicy, now time.Time) error {
	if err := o.Require("Pay", entity.OrderDraft); err != nil {
		return err
	}
	switch {
	case len(o.Items) == 0:
		return domain.Invalid("items", "la orden no tiene ítems")
	case !method.Valid():
		return domain.Invalid("payment_method", method.String())
	case amount.IsNegative():
		return domain.Invalid("amount_paid", "no puede ser negativo")
	case o.IsPrescriptionRequired && o.PrescriptionNumber == "":
		return domain.Invalid("prescription_number", "obligatorio para esta orden")
	}
	if amount.LessThan(o.TotalAmount) && !policy.IsDeferred(method) {
		return &domain.InsufficientPaymentError{OrderID: o.ID, Required: o.TotalAmount, Paid: amount}
	}
	if err := o.transition(entity.OrderPaid, "Pay"); err != nil {
		return err
	}
	o.AmountPaid = amount
	o.ChangeGiven = decimal.Max(amount.Sub(o.TotalAmount), decimal.Zero)
	o.BalanceDue = decimal.Max(o.TotalAmount.Sub(amount), decimal.Zero)
	o.PaymentMethod = method
	o.PaymentReference = reference
	t := now
	o.PaidAt = &t
	o.Touch(now)
	return nil
}

// MarkItemCommitted registra que el plan de la línea ya se consumió.
func (o *SalesOrder) MarkItemCommitted(itemID string, now time.Time) error {
	it, ok := o.Item(itemID)
	if !ok {
		return domain.NotFound("ítem", itemID)
	}
	t := now
	it.CommittedAt = &t
	o.Touch(now)
	return nil
}

// PendingItems líneas cuyo plan aún no se consumió.
func (o *SalesOrder) PendingItems() []SalesOrderItem {
	var out []SalesOrderItem
	for _, it := range o.Items {
		if !it.Committed() {
			out = append(out, it)
		}
	}
	return out
}

// CommittedItems líneas cuyo plan ya se consumió.
func (o *SalesOrder) CommittedItems() []SalesOrderItem {
	var out []SalesOrderItem
	for _, it := range o.Items {
		if it.Committed() {
			out = append(out, it)
		}
	}
	return out
}

// Complete cierra una orden pagada cuyos planes ya se consumieron todos.
func (o *SalesOrder) Complete(now time.Time) error {
	if err := o.Require("Complete", entity.OrderPaid); err != nil {
		return err
	}
	if pending := len(o.PendingItems()); pending > 0 {
		return fmt.Errorf("%w: orden %s tiene %d ítems sin confirmar", domain.ErrConflict, o.ID, pending)
	}
	if err := o.transition(entity.OrderCompleted, "Complete"); err != nil {
		return err
	}
	t := now
	o.CompletedAt = &t
	o.Touch(now)
	return nil
}

// CheckCancellable valida que la orden pueda cancelarse antes de liberar stock.
// Una orden con ítems ya consumidos (completado parcial) requiere reconciliación manual.
func (o *SalesOrder) CheckCancellable(reason string) error {
	if err := o.Require("Cancel", entity.OrderDraft, entity.OrderPaid); err != nil {
		return err
	}
	if strings.TrimSpace(reason) == "" {
		return domain.Invalid("cancellation_reason", "obligatorio")
	}
	if committed := len(o.CommittedItems()); committed > 0 {
		return fmt.Errorf("%w: orden %s tiene %d ítems ya consumidos", domain.ErrConflict, o.ID, committed)
	}
	return nil
}

// Cancel pasa la orden a Cancelled. En una orden pagada registra el reembolso adeudado.
func (o *SalesOrder) Cancel(reason, by string, now time.Time) error {
	if err := o.CheckCancellable(reason); err != nil {
		return err
	}
	wasPaid := o.Status == entity.OrderPaid
	if err := o.transition(entity.OrderCancelled, "Cancel"); err != nil {
		return err
	}
	if wasPaid {
		o.RefundAmount = o.AmountPaid.Sub(o.ChangeGiven)
	}
	o.CancellationReason = strings.TrimSpace(reason)
	o.CancelledBy = by
	t := now
	o.CancelledAt = &t
	o.Touch(now)
	return nil
}

// ProfitMargin (Σ totalPrice − Σ costo de los planes) / Σ totalPrice; 0 si no hay ventas.
func (o *SalesOrder) ProfitMargin() decimal.Decimal {
	revenue, cost := decimal.Zero, decimal.Zero
	for i := range o.Items {
		revenue = revenue.Add(o.Items[i].TotalPrice)
		cost = cost.Add(o.Items[i].Cost())
	}
	if revenue.IsZero() {
		return decimal.Zero
	}
	return revenue.Sub(cost).Div(revenue).Round(4)
}

// TotalItemsCount suma de cantidades de las líneas.
func (o *SalesOrder) TotalItemsCount() int {
	n := 0
	for i := range o.Items {
		n += o.Items[i].Quantity
	}
	return n
}

// Clone copia profunda.
func (o *SalesOrder) Clone() *SalesOrder {
	c := *o
	c.Items = make([]SalesOrderItem, len(o.Items))
	for i, it := range o.Items {
		it.Plan = it.Plan.Clone()
		it.CommittedAt = cloneTime(it.CommittedAt)
		c.Items[i] = it
	}
	c.PaidAt = cloneTime(o.PaidAt)
	c.CompletedAt = cloneTime(o.CompletedAt)
	c.CancelledAt = cloneTime(o.CancelledAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
