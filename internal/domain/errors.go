package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Errores de dominio. Los tipos de error de abajo se comparan contra estos centinelas con errors.Is.
var (
	ErrNotFound            = errors.New("recurso no encontrado")
	ErrInvalidInput        = errors.New("entrada inválida")
	ErrInsufficientStock   = errors.New("stock insuficiente")
	ErrInsufficientPayment = errors.New("pago insuficiente")
	ErrInvalidTransition   = errors.New("transición de estado inválida")
	ErrConflict            = errors.New("conflicto con el estado actual")
	ErrAlreadyCommitted    = errors.New("plan ya confirmado")
	ErrPlanNotFound        = errors.New("plan no encontrado o ya cerrado")
	ErrBatchRecalled       = errors.New("el plan reserva unidades de un lote retirado")
	ErrPartialCompletion   = errors.New("completado parcial, requiere reconciliación manual")
	ErrInternal            = errors.New("error interno")
)

// ValidationError entrada mal formada (cantidad <= 0, enum desconocido, par obligatorio incompleto).
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("entrada inválida: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// Invalid atajo para construir un ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError entidad desconocida (tienda, medicamento, orden, lote).
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q no encontrado", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NotFound atajo para construir un NotFoundError.
func NotFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// InsufficientStockError incluye la cantidad solicitada y la disponible.
type InsufficientStockError struct {
	ShopID    string
	DrugID    string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente para medicamento %s en tienda %s: solicitado %d, disponible %d",
		e.DrugID, e.ShopID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// InsufficientPaymentError monto pagado menor al total de la orden.
type InsufficientPaymentError struct {
	OrderID  string
	Required decimal.Decimal
	Paid     decimal.Decimal
}

func (e *InsufficientPaymentError) Error() string {
	return fmt.Sprintf("pago insuficiente para orden %s: total %s, pagado %s",
		e.OrderID, e.Required.StringFixed(2), e.Paid.StringFixed(2))
}

func (e *InsufficientPaymentError) Is(target error) bool { return target == ErrInsufficientPayment }

// InvalidTransitionError operación no permitida para el estado actual de la orden.
type InvalidTransitionError struct {
	OrderID   string
	Current   string
	Attempted string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("orden %s: no se permite %s desde el estado %s", e.OrderID, e.Attempted, e.Current)
}

func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// PlanConflictError plan de asignación ya confirmado o liberado (ConcurrencyConflict).
// Err es ErrAlreadyCommitted, ErrPlanNotFound o ErrBatchRecalled.
type PlanConflictError struct {
	PlanID string
	DrugID string
	Err    error
}

func (e *PlanConflictError) Error() string {
	return fmt.Sprintf("plan %s (medicamento %s): %v", e.PlanID, e.DrugID, e.Err)
}

func (e *PlanConflictError) Unwrap() error { return e.Err }

func (e *PlanConflictError) Is(target error) bool { return target == ErrConflict }

// ItemCommitResult resultado de confirmar el plan de un ítem durante Complete.
type ItemCommitResult struct {
	ItemID string
	DrugID string
	PlanID string
	Err    error
}

// PartialCompletionError lista los ítems confirmados y los fallidos de un Complete.
// Los ítems confirmados no se revierten automáticamente.
type PartialCompletionError struct {
	OrderID   string
	Succeeded []ItemCommitResult
	Failed    []ItemCommitResult
}

func (e *PartialCompletionError) Error() string {
	failed := make([]string, 0, len(e.Failed))
	for _, f := range e.Failed {
		failed = append(failed, fmt.Sprintf("%s(%v)", f.ItemID, f.Err))
	}
	return fmt.Sprintf("orden %s: %d ítems confirmados, %d fallidos: %s",
		e.OrderID, len(e.Succeeded), len(e.Failed), strings.Join(failed, ", "))
}

func (e *PartialCompletionError) Is(target error) bool { return target == ErrPartialCompletion }

// InternalError violación de un invariante del programa (ej. cantidad negativa detectada).
type InternalError struct {
	Op     string
	Detail string
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("error interno en %s: %s", e.Op, e.Detail)
}

func (e *InternalError) Is(target error) bool { return target == ErrInternal }
