package inventory

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Farmacia-api/internal/domain"
)

// Strategy criterio de orden para consumir lotes.
type Strategy uint8

const (
	// StrategyFEFO primero el lote que vence antes; desempate por fecha de recepción.
	StrategyFEFO Strategy = iota
	// StrategyFIFO primero el lote recibido antes; desempate por vencimiento.
	StrategyFIFO
)

var strategyNames = map[Strategy]string{
	StrategyFEFO: "FEFO",
	StrategyFIFO: "FIFO",
}

func (s Strategy) String() string {
	if n, ok := strategyNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Strategy(%d)", s)
}

// ParseStrategy vacío equivale a FEFO.
func ParseStrategy(s string) (Strategy, error) {
	if s == "" {
		return StrategyFEFO, nil
	}
	for v, n := range strategyNames {
		if n == s {
			return v, nil
		}
	}
	return 0, domain.Invalid("strategy", fmt.Sprintf("valor desconocido %q", s))
}

// PlanStatus ciclo de vida de un plan de asignación.
type PlanStatus uint8

const (
	PlanPending PlanStatus = iota + 1
	PlanCommitted
	PlanReleased
)

var planStatusNames = map[PlanStatus]string{
	PlanPending:   "Pending",
	PlanCommitted: "Committed",
	PlanReleased:  "Released",
}

func (s PlanStatus) String() string {
	if n, ok := planStatusNames[s]; ok {
		return n
	}
	return fmt.Sprintf("PlanStatus(%d)", s)
}

// ParsePlanStatus convierte el nombre persistido en PlanStatus.
func ParsePlanStatus(s string) (PlanStatus, error) {
	for v, n := range planStatusNames {
		if n == s {
			return v, nil
		}
	}
	return 0, domain.Invalid("plan_status", fmt.Sprintf("valor desconocido %q", s))
}

// PlanLine cantidad tomada de un lote y su costo unitario al momento de asignar.
type PlanLine struct {
	BatchNumber string
	Quantity    int
	UnitCost    decimal.Decimal
}

// AllocationPlan registro de qué lotes/cantidades quedaron reservados para una venta pendiente.
type AllocationPlan struct {
	ID        string
	ShopID    string
	DrugID    string
	Strategy  Strategy
	Lines     []PlanLine
	Status    PlanStatus
	CreatedAt time.Time
	SettledAt *time.Time
}

// Quantity unidades totales del plan.
func (p AllocationPlan) Quantity() int {
	n := 0
	for _, l := range p.Lines {
		n += l.Quantity
	}
	return n
}

// Cost costo histórico del plan (Σ cantidad * costo unitario del lote).
func (p AllocationPlan) Cost() decimal.Decimal {
	total := decimal.Zero
	for _, l := range p.Lines {
		total = total.Add(decimal.NewFromInt(int64(l.Quantity)).Mul(l.UnitCost))
	}
	return total
}

// Clone copia profunda.
func (p AllocationPlan) Clone() AllocationPlan {
	c := p
	c.Lines = append([]PlanLine(nil), p.Lines...)
	if p.SettledAt != nil {
		t := *p.SettledAt
		c.SettledAt = &t
	}
	return c
}
