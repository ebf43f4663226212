package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Farmacia-api/internal/domain"
	"github.com/jhoicas/Farmacia-api/internal/domain/entity"
	"github.com/jhoicas/Farmacia-api/internal/domain/inventory"
	"github.com/jhoicas/Farmacia-api/internal/domain/repository"
)

var _ repository.LedgerRepository = (*LedgerRepo)(nil)

// LedgerRepo libro de stock sobre shop_drugs + drug_batches + allocation_plans (usable con pool o tx).
type LedgerRepo struct {
	q Querier
}

// NewLedgerRepository construye el adaptador. Pasar pool o tx (Querier).
func NewLedgerRepository(q Querier) *LedgerRepo {
	return &LedgerRepo{q: q}
}

// planLineRow forma JSONB de una línea de plan.
type planLineRow struct {
	BatchNumber string          `json:"batch_number"`
	Quantity    int             `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
}

// Get obtiene el libro completo (cabecera, lotes y planes).
func (r *LedgerRepo) Get(ctx context.Context, shopID, drugID string) (*inventory.StockLedger, error) {
	return r.getOne(ctx, shopID, drugID, false)
}

// GetForUpdate obtiene el libro y bloquea su cabecera (SELECT FOR UPDATE) hasta el fin de la tx.
func (r *LedgerRepo) GetForUpdate(ctx context.Context, shopID, drugID string) (*inventory.StockLedger, error) {
	return r.getOne(ctx, shopID, drugID, true)
}

// ListByShop todos los libros de una tienda, por medicamento.
func (r *LedgerRepo) ListByShop(ctx context.Context, shopID string) ([]*inventory.StockLedger, error) {
	return r.load(ctx, shopID, nil, false)
}

func (r *LedgerRepo) getOne(ctx context.Context, shopID, drugID string, forUpdate bool) (*inventory.StockLedger, error) {
	list, err := r.load(ctx, shopID, &drugID, forUpdate)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, domain.NotFound("libro de stock", inventory.LedgerKey(shopID, drugID))
	}
	return list[0], nil
}

// load carga los libros de la tienda (o solo el de drugID) en tres consultas agrupadas.
func (r *LedgerRepo) load(ctx context.Context, shopID string, drugID *string, forUpdate bool) ([]*inventory.StockLedger, error) {
	query := `
		SELECT drug_id, reorder_point, is_available, last_restock_date,
		       cost_price, selling_price, currency, tax_rate, updated_at
		FROM shop_drugs
		WHERE shop_id = $1 AND ($2::text IS NULL OR drug_id = $2)
		ORDER BY drug_id`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	rows, err := r.q.Query(ctx, query, shopID, drugID)
	if err != nil {
		return nil, fmt.Errorf("query shop_drugs: %w", err)
	}
	var list []*inventory.StockLedger
	byDrug := make(map[string]*inventory.StockLedger)
	for rows.Next() {
		l := &inventory.StockLedger{ShopID: shopID, Plans: make(map[string]*inventory.AllocationPlan)}
		if err := rows.Scan(
			&l.DrugID, &l.ReorderPoint, &l.IsAvailable, &l.LastRestockDate,
			&l.Pricing.CostPrice, &l.Pricing.SellingPrice, &l.Pricing.Currency, &l.Pricing.TaxRate, &l.UpdatedAt,
		); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan shop_drug: %w", err)
		}
		list = append(list, l)
		byDrug[l.DrugID] = l
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shop_drugs: %w", err)
	}
	if len(list) == 0 {
		return list, nil
	}
	if err := r.loadBatches(ctx, shopID, drugID, byDrug); err != nil {
		return nil, err
	}
	if err := r.loadPlans(ctx, shopID, drugID, byDrug); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *LedgerRepo) loadBatches(ctx context.Context, shopID string, drugID *string, byDrug map[string]*inventory.StockLedger) error {
	query := `
		SELECT drug_id, batch_number, supplier_id, quantity_on_hand, reserved_quantity, quarantined_quantity,
		       received_date, expiry_date, purchase_price, selling_price, location, storage_location, status
		FROM drug_batches
		WHERE shop_id = $1 AND ($2::text IS NULL OR drug_id = $2)
		ORDER BY drug_id, received_date, batch_number`
	rows, err := r.q.Query(ctx, query, shopID, drugID)
	if err != nil {
		return fmt.Errorf("query drug_batches: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			drug, loc, status string
			supplier          *string
			b                 entity.BatchRecord
		)
		if err := rows.Scan(
			&drug, &b.BatchNumber, &supplier, &b.QuantityOnHand, &b.ReservedQuantity, &b.QuarantinedQuantity,
			&b.ReceivedDate, &b.ExpiryDate, &b.PurchasePrice, &b.SellingPrice, &loc, &b.StorageLocation, &status,
		); err != nil {
			return fmt.Errorf("scan drug_batch: %w", err)
		}
		b.SupplierID = deref(supplier)
		if b.Location, err = entity.ParseLocation(loc); err != nil {
			return fmt.Errorf("lote %s: %w", b.BatchNumber, err)
		}
		if b.Status, err = entity.ParseBatchStatus(status); err != nil {
			return fmt.Errorf("lote %s: %w", b.BatchNumber, err)
		}
		if l, ok := byDrug[drug]; ok {
			l.Batches = append(l.Batches, b)
		}
	}
	return rows.Err()
}

func (r *LedgerRepo) loadPlans(ctx context.Context, shopID string, drugID *string, byDrug map[string]*inventory.StockLedger) error {
	query := `
		SELECT id, drug_id, strategy, status, lines, created_at, settled_at
		FROM allocation_plans
		WHERE shop_id = $1 AND ($2::text IS NULL OR drug_id = $2)`
	rows, err := r.q.Query(ctx, query, shopID, drugID)
	if err != nil {
		return fmt.Errorf("query allocation_plans: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			strategy, status string
			lines            []byte
			p                = inventory.AllocationPlan{ShopID: shopID}
		)
		if err := rows.Scan(&p.ID, &p.DrugID, &strategy, &status, &lines, &p.CreatedAt, &p.SettledAt); err != nil {
			return fmt.Errorf("scan allocation_plan: %w", err)
		}
		if err := decodePlan(&p, strategy, status, lines); err != nil {
			return err
		}
		if l, ok := byDrug[p.DrugID]; ok {
			l.Plans[p.ID] = &p
		}
	}
	return rows.Err()
}

func decodePlan(p *inventory.AllocationPlan, strategy, status string, lines []byte) error {
	var err error
	if p.Strategy, err = inventory.ParseStrategy(strategy); err != nil {
		return fmt.Errorf("plan %s: %w", p.ID, err)
	}
	if p.Status, err = inventory.ParsePlanStatus(status); err != nil {
		return fmt.Errorf("plan %s: %w", p.ID, err)
	}
	var rows []planLineRow
	if err := json.Unmarshal(lines, &rows); err != nil {
		return fmt.Errorf("plan %s: decode lines: %w", p.ID, err)
	}
	p.Lines = make([]inventory.PlanLine, 0, len(rows))
	for _, row := range rows {
		p.Lines = append(p.Lines, inventory.PlanLine{BatchNumber: row.BatchNumber, Quantity: row.Quantity, UnitCost: row.UnitCost})
	}
	return nil
}

func encodePlanLines(lines []inventory.PlanLine) (string, error) {
	rows := make([]planLineRow, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, planLineRow{BatchNumber: l.BatchNumber, Quantity: l.Quantity, UnitCost: l.UnitCost})
	}
	b, err := json.Marshal(rows)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Save persiste cabecera, lotes y planes en un solo batch. Los lotes nunca se borran.
func (r *LedgerRepo) Save(ctx context.Context, l *inventory.StockLedger) error {
	if err := l.CheckInvariants(); err != nil {
		return err
	}
	updatedAt := l.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	batch := &pgx.Batch{}
	batch.Queue(`
		INSERT INTO shop_drugs (shop_id, drug_id, reorder_point, is_available, last_restock_date,
		                        cost_price, selling_price, currency, tax_rate, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (shop_id, drug_id) DO UPDATE SET
			reorder_point = EXCLUDED.reorder_point, is_available = EXCLUDED.is_available,
			last_restock_date = EXCLUDED.last_restock_date, cost_price = EXCLUDED.cost_price,
			selling_price = EXCLUDED.selling_price, currency = EXCLUDED.currency,
			tax_rate = EXCLUDED.tax_rate, updated_at = EXCLUDED.updated_at`,
		l.ShopID, l.DrugID, l.ReorderPoint, l.IsAvailable, l.LastRestockDate,
		l.Pricing.CostPrice, l.Pricing.SellingPrice, l.Pricing.Currency, l.Pricing.TaxRate, updatedAt,
	)
	for _, b := range l.Batches {
		batch.Queue(`
			INSERT INTO drug_batches (shop_id, drug_id, batch_number, supplier_id, quantity_on_hand,
			                          reserved_quantity, quarantined_quantity, received_date, expiry_date,
			                          purchase_price, selling_price, location, storage_location, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			ON CONFLICT (shop_id, drug_id, batch_number) DO UPDATE SET
				quantity_on_hand = EXCLUDED.quantity_on_hand, reserved_quantity = EXCLUDED.reserved_quantity,
				quarantined_quantity = EXCLUDED.quarantined_quantity, selling_price = EXCLUDED.selling_price,
				storage_location = EXCLUDED.storage_location, status = EXCLUDED.status`,
			l.ShopID, l.DrugID, b.BatchNumber, nullIfEmpty(b.SupplierID), b.QuantityOnHand,
			b.ReservedQuantity, b.QuarantinedQuantity, b.ReceivedDate, b.ExpiryDate,
			b.PurchasePrice, b.SellingPrice, b.Location.String(), b.StorageLocation, b.Status.String(),
		)
	}
	for _, p := range l.Plans {
		lines, err := encodePlanLines(p.Lines)
		if err != nil {
			return fmt.Errorf("encode plan %s: %w", p.ID, err)
		}
		batch.Queue(`
			INSERT INTO allocation_plans (id, shop_id, drug_id, strategy, status, lines, created_at, settled_at)
			VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, $8)
			ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, settled_at = EXCLUDED.settled_at
			WHERE allocation_plans.status IS DISTINCT FROM EXCLUDED.status`,
			p.ID, l.ShopID, l.DrugID, p.Strategy.String(), p.Status.String(), lines, p.CreatedAt, p.SettledAt,
		)
	}

	br := r.q.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			if isCheckViolation(err) {
				return &domain.InternalError{Op: "SaveLedger " + l.Key(), Detail: err.Error()}
			}
			return fmt.Errorf("save ledger %s: %w", l.Key(), err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("save ledger %s: %w", l.Key(), err)
	}
	return nil
}

// errNoRows atajo para los adaptadores que distinguen "no existe" de un fallo real.
func errNoRows(err error) bool { return errors.Is(err, pgx.ErrNoRows) }
