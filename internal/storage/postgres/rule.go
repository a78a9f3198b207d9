package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/basket-checkout/internal/domain/pricing"
)

const (
	listRulesSQL = `SELECT r.product_code, r.name, r.qualifying_quantity, p.position, p.price
		FROM pricing_rules r
		LEFT JOIN pricing_rule_prices p ON p.product_code = r.product_code
		ORDER BY r.product_code, p.position`

	upsertRuleSQL = `INSERT INTO pricing_rules (product_code, name, qualifying_quantity) VALUES ($1, $2, $3)
		ON CONFLICT (product_code) DO UPDATE
		SET name = EXCLUDED.name, qualifying_quantity = EXCLUDED.qualifying_quantity`

	deleteRulePricesSQL = `DELETE FROM pricing_rule_prices WHERE product_code = $1`

	insertRulePriceSQL = `INSERT INTO pricing_rule_prices (product_code, position, price) VALUES ($1, $2, $3)`
)

var _ pricing.Repository = (*RuleRepository)(nil)

// RuleRepository implements pricing.Repository backed by PostgreSQL. Unit
// prices are stored one row per position; a NULL price means full price.
type RuleRepository struct {
	pool *pgxpool.Pool
}

// NewRuleRepository returns a RuleRepository that uses the given pool.
func NewRuleRepository(pool *pgxpool.Pool) *RuleRepository {
	return &RuleRepository{pool: pool}
}

type ruleRow struct {
	productCode        string
	name               string
	qualifyingQuantity int32
	position           *int32
	price              decimal.NullDecimal
}

// List returns all rules ordered by product code with unit prices in
// position order.
func (r *RuleRepository) List(ctx context.Context) ([]pricing.Rule, error) {
	rows, err := r.pool.Query(ctx, listRulesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing pricing rules: %w", err)
	}
	flat, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ruleRow, error) {
		var rr ruleRow
		err := row.Scan(&rr.productCode, &rr.name, &rr.qualifyingQuantity, &rr.position, &rr.price)
		return rr, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning pricing rules: %w", err)
	}

	var rules []pricing.Rule
	for _, rr := range flat {
		if n := len(rules); n == 0 || rules[n-1].ProductCode != rr.productCode {
			rules = append(rules, pricing.Rule{
				Name:               rr.name,
				ProductCode:        rr.productCode,
				QualifyingQuantity: int(rr.qualifyingQuantity),
			})
		}
		// LEFT JOIN yields a NULL position for rules without prices.
		if rr.position == nil {
			continue
		}
		last := &rules[len(rules)-1]
		last.UnitPrices = append(last.UnitPrices, rr.price)
	}
	return rules, nil
}

// Upsert stores the rule and replaces its unit prices in one transaction.
func (r *RuleRepository) Upsert(ctx context.Context, rule pricing.Rule) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, upsertRuleSQL, rule.ProductCode, rule.Name, rule.QualifyingQuantity); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, deleteRulePricesSQL, rule.ProductCode); err != nil {
			return err
		}
		for i, p := range rule.UnitPrices {
			if _, err := tx.Exec(ctx, insertRulePriceSQL, rule.ProductCode, i, p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("upserting rule for %q: %w", rule.ProductCode, err)
	}
	return nil
}
