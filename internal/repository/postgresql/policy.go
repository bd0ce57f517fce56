package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/cmlabs-hris/payroll-batch-go/internal/domain/policy"
	"github.com/cmlabs-hris/payroll-batch-go/internal/pkg/database"
)

type policyRepository struct {
	db *database.DB
}

func NewPolicyRepository(db *database.DB) policy.Repository {
	return &policyRepository{db: db}
}

const policyColumns = `id, policy_name, status, salary_month_from, salary_month_to, active, created_at, updated_at`

const itemPolicyColumns = `id, policy_id, item_type, item_code, item_name, calc_method,
	fixed_amount, rate, base_amount_type, rounding_unit, rounding_mode,
	month_from, month_to, priority, taxable, active, created_at`

// ========== POLICIES ==========

func (r *policyRepository) Create(ctx context.Context, p policy.Policy) (policy.Policy, error) {
	q := r.db.Querier(ctx)

	query := `
		INSERT INTO policies (id, policy_name, status, salary_month_from, salary_month_to, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
	`
	_, err := q.Exec(ctx, query, p.ID, p.PolicyName, p.Status, p.SalaryMonthFrom, p.SalaryMonthTo, p.Active)
	if err != nil {
		return policy.Policy{}, fmt.Errorf("failed to create policy: %w", err)
	}

	for _, item := range p.Items {
		if _, err := r.CreateItem(ctx, item); err != nil {
			return policy.Policy{}, err
		}
	}
	for key, value := range p.Configs {
		_, err := q.Exec(ctx,
			`INSERT INTO policy_configs (policy_id, config_key, config_value) VALUES ($1, $2, $3)`,
			p.ID, key, value,
		)
		if err != nil {
			return policy.Policy{}, fmt.Errorf("failed to create policy config %s: %w", key, err)
		}
	}

	return r.GetByID(ctx, p.ID)
}

func (r *policyRepository) GetByID(ctx context.Context, id string) (policy.Policy, error) {
	q := r.db.Querier(ctx)

	query := `SELECT ` + policyColumns + ` FROM policies WHERE id = $1`

	var p policy.Policy
	err := q.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.PolicyName, &p.Status, &p.SalaryMonthFrom, &p.SalaryMonthTo, &p.Active,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return policy.Policy{}, policy.ErrPolicyNotFound
		}
		return policy.Policy{}, fmt.Errorf("failed to get policy: %w", err)
	}

	if err := r.loadPolicyChildren(ctx, &p); err != nil {
		return policy.Policy{}, err
	}

	return p, nil
}

func (r *policyRepository) List(ctx context.Context) ([]policy.Policy, error) {
	q := r.db.Querier(ctx)

	query := `SELECT ` + policyColumns + ` FROM policies ORDER BY salary_month_from DESC, created_at DESC`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}
	defer rows.Close()

	var policies []policy.Policy
	for rows.Next() {
		var p policy.Policy
		if err := rows.Scan(
			&p.ID, &p.PolicyName, &p.Status, &p.SalaryMonthFrom, &p.SalaryMonthTo, &p.Active,
			&p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan policy: %w", err)
		}
		policies = append(policies, p)
	}
	rows.Close()

	for i := range policies {
		if err := r.loadPolicyChildren(ctx, &policies[i]); err != nil {
			return nil, err
		}
	}

	return policies, nil
}

func (r *policyRepository) Update(ctx context.Context, p policy.Policy) error {
	q := r.db.Querier(ctx)

	query := `
		UPDATE policies
		SET policy_name = $1, salary_month_from = $2, salary_month_to = $3, updated_at = NOW()
		WHERE id = $4
	`
	tag, err := q.Exec(ctx, query, p.PolicyName, p.SalaryMonthFrom, p.SalaryMonthTo, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update policy: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return policy.ErrPolicyNotFound
	}

	if p.Configs != nil {
		if _, err := q.Exec(ctx, `DELETE FROM policy_configs WHERE policy_id = $1`, p.ID); err != nil {
			return fmt.Errorf("failed to clear policy configs: %w", err)
		}
		for key, value := range p.Configs {
			_, err := q.Exec(ctx,
				`INSERT INTO policy_configs (policy_id, config_key, config_value) VALUES ($1, $2, $3)`,
				p.ID, key, value,
			)
			if err != nil {
				return fmt.Errorf("failed to update policy config %s: %w", key, err)
			}
		}
	}

	return nil
}

func (r *policyRepository) UpdateStatus(ctx context.Context, id string, status policy.Status, active bool) error {
	q := r.db.Querier(ctx)

	query := `UPDATE policies SET status = $1, active = $2, updated_at = NOW() WHERE id = $3`
	tag, err := q.Exec(ctx, query, status, active, id)
	if err != nil {
		return fmt.Errorf("failed to update policy status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return policy.ErrPolicyNotFound
	}
	return nil
}

func (r *policyRepository) Delete(ctx context.Context, id string) error {
	q := r.db.Querier(ctx)

	tag, err := q.Exec(ctx, `DELETE FROM policies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete policy: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return policy.ErrPolicyNotFound
	}
	return nil
}

func (r *policyRepository) GetActiveForMonth(ctx context.Context, salaryMonth string) (policy.Policy, error) {
	q := r.db.Querier(ctx)

	query := `
		SELECT ` + policyColumns + `
		FROM policies
		WHERE status = $1 AND active = true
		  AND salary_month_from <= $2 AND salary_month_to >= $2
		ORDER BY created_at DESC
		LIMIT 1
	`

	var p policy.Policy
	err := q.QueryRow(ctx, query, policy.StatusActive, salaryMonth).Scan(
		&p.ID, &p.PolicyName, &p.Status, &p.SalaryMonthFrom, &p.SalaryMonthTo, &p.Active,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return policy.Policy{}, policy.ErrNoActivePolicy
		}
		return policy.Policy{}, fmt.Errorf("failed to resolve active policy: %w", err)
	}

	if err := r.loadPolicyChildren(ctx, &p); err != nil {
		return policy.Policy{}, err
	}

	return p, nil
}

func (r *policyRepository) ListActiveOverlapping(ctx context.Context, monthFrom, monthTo, excludeID string) ([]policy.Policy, error) {
	q := r.db.Querier(ctx)

	query := `
		SELECT ` + policyColumns + `
		FROM policies
		WHERE status = $1 AND active = true
		  AND salary_month_from <= $3 AND salary_month_to >= $2
		  AND id <> $4
	`

	rows, err := q.Query(ctx, query, policy.StatusActive, monthFrom, monthTo, excludeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list overlapping policies: %w", err)
	}
	defer rows.Close()

	var policies []policy.Policy
	for rows.Next() {
		var p policy.Policy
		if err := rows.Scan(
			&p.ID, &p.PolicyName, &p.Status, &p.SalaryMonthFrom, &p.SalaryMonthTo, &p.Active,
			&p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan policy: %w", err)
		}
		policies = append(policies, p)
	}

	return policies, nil
}

func (r *policyRepository) loadPolicyChildren(ctx context.Context, p *policy.Policy) error {
	q := r.db.Querier(ctx)

	itemQuery := `
		SELECT ` + itemPolicyColumns + `
		FROM item_policies
		WHERE policy_id = $1
		ORDER BY priority, id
	`
	rows, err := q.Query(ctx, itemQuery, p.ID)
	if err != nil {
		return fmt.Errorf("failed to list item policies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		item, err := scanItemPolicy(rows)
		if err != nil {
			return err
		}
		p.Items = append(p.Items, item)
	}
	rows.Close()

	for i := range p.Items {
		targets, err := r.listItemTargets(ctx, p.Items[i].ID)
		if err != nil {
			return err
		}
		p.Items[i].Targets = targets
	}

	configRows, err := q.Query(ctx,
		`SELECT config_key, config_value FROM policy_configs WHERE policy_id = $1`, p.ID)
	if err != nil {
		return fmt.Errorf("failed to list policy configs: %w", err)
	}
	defer configRows.Close()

	for configRows.Next() {
		var key, value string
		if err := configRows.Scan(&key, &value); err != nil {
			return fmt.Errorf("failed to scan policy config: %w", err)
		}
		if p.Configs == nil {
			p.Configs = make(map[string]string)
		}
		p.Configs[key] = value
	}

	return nil
}

// ========== ITEM POLICIES ==========

func (r *policyRepository) CreateItem(ctx context.Context, item policy.ItemPolicy) (policy.ItemPolicy, error) {
	q := r.db.Querier(ctx)

	query := `
		INSERT INTO item_policies (
			id, policy_id, item_type, item_code, item_name, calc_method,
			fixed_amount, rate, base_amount_type, rounding_unit, rounding_mode,
			month_from, month_to, priority, taxable, active, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW())
	`
	_, err := q.Exec(ctx, query,
		item.ID, item.PolicyID, item.ItemType, item.ItemCode, item.ItemName, item.CalcMethod,
		item.FixedAmount, item.Rate, item.BaseAmountType, item.RoundingUnit, item.RoundingMode,
		item.MonthFrom, item.MonthTo, item.Priority, item.Taxable, item.Active,
	)
	if err != nil {
		return policy.ItemPolicy{}, fmt.Errorf("failed to create item policy: %w", err)
	}

	for _, tg := range item.Targets {
		_, err := q.Exec(ctx,
			`INSERT INTO item_policy_targets (id, item_policy_id, target_type, target_value) VALUES ($1, $2, $3, $4)`,
			tg.ID, tg.ItemPolicyID, tg.TargetType, tg.TargetValue,
		)
		if err != nil {
			return policy.ItemPolicy{}, fmt.Errorf("failed to create item policy target: %w", err)
		}
	}

	return r.GetItem(ctx, item.ID)
}

func (r *policyRepository) GetItem(ctx context.Context, id string) (policy.ItemPolicy, error) {
	q := r.db.Querier(ctx)

	query := `SELECT ` + itemPolicyColumns + ` FROM item_policies WHERE id = $1`

	row := q.QueryRow(ctx, query, id)
	item, err := scanItemPolicyRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return policy.ItemPolicy{}, policy.ErrItemPolicyNotFound
		}
		return policy.ItemPolicy{}, err
	}

	targets, err := r.listItemTargets(ctx, id)
	if err != nil {
		return policy.ItemPolicy{}, err
	}
	item.Targets = targets

	return item, nil
}

func (r *policyRepository) UpdateItem(ctx context.Context, item policy.ItemPolicy) error {
	q := r.db.Querier(ctx)

	query := `
		UPDATE item_policies
		SET item_name = $1, fixed_amount = $2, rate = $3, base_amount_type = $4,
			rounding_unit = $5, rounding_mode = $6, month_from = $7, month_to = $8,
			priority = $9, taxable = $10, active = $11
		WHERE id = $12
	`
	tag, err := q.Exec(ctx, query,
		item.ItemName, item.FixedAmount, item.Rate, item.BaseAmountType,
		item.RoundingUnit, item.RoundingMode, item.MonthFrom, item.MonthTo,
		item.Priority, item.Taxable, item.Active, item.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update item policy: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return policy.ErrItemPolicyNotFound
	}
	return nil
}

func (r *policyRepository) DeleteItem(ctx context.Context, id string) error {
	q := r.db.Querier(ctx)

	tag, err := q.Exec(ctx, `DELETE FROM item_policies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete item policy: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return policy.ErrItemPolicyNotFound
	}
	return nil
}

func (r *policyRepository) ReplaceItemTargets(ctx context.Context, itemPolicyID string, targets []policy.Target) error {
	q := r.db.Querier(ctx)

	if _, err := q.Exec(ctx, `DELETE FROM item_policy_targets WHERE item_policy_id = $1`, itemPolicyID); err != nil {
		return fmt.Errorf("failed to delete item policy targets: %w", err)
	}

	for _, tg := range targets {
		_, err := q.Exec(ctx,
			`INSERT INTO item_policy_targets (id, item_policy_id, target_type, target_value) VALUES ($1, $2, $3, $4)`,
			tg.ID, itemPolicyID, tg.TargetType, tg.TargetValue,
		)
		if err != nil {
			return fmt.Errorf("failed to insert item policy target: %w", err)
		}
	}

	return nil
}

func (r *policyRepository) listItemTargets(ctx context.Context, itemPolicyID string) ([]policy.Target, error) {
	q := r.db.Querier(ctx)

	query := `
		SELECT id, item_policy_id, target_type, target_value
		FROM item_policy_targets
		WHERE item_policy_id = $1
		ORDER BY target_type, target_value
	`
	rows, err := q.Query(ctx, query, itemPolicyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list item policy targets: %w", err)
	}
	defer rows.Close()

	var targets []policy.Target
	for rows.Next() {
		var tg policy.Target
		if err := rows.Scan(&tg.ID, &tg.ItemPolicyID, &tg.TargetType, &tg.TargetValue); err != nil {
			return nil, fmt.Errorf("failed to scan item policy target: %w", err)
		}
		targets = append(targets, tg)
	}

	return targets, nil
}

// ========== SNAPSHOTS ==========

func (r *policyRepository) CreateSnapshot(ctx context.Context, s policy.BatchSnapshot) error {
	q := r.db.Querier(ctx)

	// Write-once per batch: a second freeze attempt is a no-op.
	query := `
		INSERT INTO batch_policy_snapshots (id, batch_id, policy_id, salary_month, rules, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (batch_id) DO NOTHING
	`
	_, err := q.Exec(ctx, query, s.ID, s.BatchID, s.PolicyID, s.SalaryMonth, s.Rules, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create batch policy snapshot: %w", err)
	}
	return nil
}

func (r *policyRepository) GetSnapshotByBatch(ctx context.Context, batchID string) (policy.BatchSnapshot, error) {
	q := r.db.Querier(ctx)

	query := `
		SELECT id, batch_id, policy_id, salary_month, rules, created_at
		FROM batch_policy_snapshots
		WHERE batch_id = $1
	`

	var s policy.BatchSnapshot
	err := q.QueryRow(ctx, query, batchID).Scan(
		&s.ID, &s.BatchID, &s.PolicyID, &s.SalaryMonth, &s.Rules, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return policy.BatchSnapshot{}, policy.ErrSnapshotNotFound
		}
		return policy.BatchSnapshot{}, fmt.Errorf("failed to get batch policy snapshot: %w", err)
	}

	return s, nil
}

// ========== SCAN HELPERS ==========

func scanItemPolicy(rows pgx.Rows) (policy.ItemPolicy, error) {
	var item policy.ItemPolicy
	err := rows.Scan(
		&item.ID, &item.PolicyID, &item.ItemType, &item.ItemCode, &item.ItemName, &item.CalcMethod,
		&item.FixedAmount, &item.Rate, &item.BaseAmountType, &item.RoundingUnit, &item.RoundingMode,
		&item.MonthFrom, &item.MonthTo, &item.Priority, &item.Taxable, &item.Active, &item.CreatedAt,
	)
	if err != nil {
		return policy.ItemPolicy{}, fmt.Errorf("failed to scan item policy: %w", err)
	}
	return item, nil
}

func scanItemPolicyRow(row pgx.Row) (policy.ItemPolicy, error) {
	var item policy.ItemPolicy
	err := row.Scan(
		&item.ID, &item.PolicyID, &item.ItemType, &item.ItemCode, &item.ItemName, &item.CalcMethod,
		&item.FixedAmount, &item.Rate, &item.BaseAmountType, &item.RoundingUnit, &item.RoundingMode,
		&item.MonthFrom, &item.MonthTo, &item.Priority, &item.Taxable, &item.Active, &item.CreatedAt,
	)
	if err != nil {
		return policy.ItemPolicy{}, err
	}
	return item, nil
}
