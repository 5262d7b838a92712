package store

import (
	"context"
	"database/sql"

	"github.com/ibeckermayer/postlens/internal/types"
)

// The List* methods return disclosure rows for a canonical id, most recent
// first. No rows is an empty slice, not an error.

// ListDonations returns contributions ordered by date
func (s *Store) ListDonations(ctx context.Context, canonicalID string) ([]types.Donation, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT contributor, recipient, amount, date
		FROM donations
		WHERE canonical_id = ?
		ORDER BY date DESC
	`), canonicalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	donations := []types.Donation{}
	for rows.Next() {
		var d types.Donation
		var date sql.NullTime
		if err := rows.Scan(&d.Contributor, &d.Recipient, &d.Amount, &date); err != nil {
			return nil, err
		}
		d.Date = date.Time
		donations = append(donations, d)
	}
	return donations, rows.Err()
}

// ListAssets returns holdings ordered by report year
func (s *Store) ListAssets(ctx context.Context, canonicalID string) ([]types.Asset, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT description, value_range, report_year
		FROM assets
		WHERE canonical_id = ?
		ORDER BY report_year DESC
	`), canonicalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assets := []types.Asset{}
	for rows.Next() {
		var a types.Asset
		if err := rows.Scan(&a.Description, &a.ValueRange, &a.ReportYear); err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

// ListTransactions returns trades ordered by transaction date
func (s *Store) ListTransactions(ctx context.Context, canonicalID string) ([]types.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT description, transaction_type, amount_range, counterparty, transaction_date
		FROM transactions
		WHERE canonical_id = ?
		ORDER BY transaction_date DESC
	`), canonicalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txs := []types.Transaction{}
	for rows.Next() {
		var tx types.Transaction
		var counterparty sql.NullString
		var date sql.NullTime
		if err := rows.Scan(&tx.Description, &tx.TransactionType, &tx.AmountRange, &counterparty, &date); err != nil {
			return nil, err
		}
		tx.Counterparty = counterparty.String
		tx.Date = date.Time
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// ListAssociations returns outside roles ordered by start date
func (s *Store) ListAssociations(ctx context.Context, canonicalID string) ([]types.Association, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT role, company, start_date
		FROM associations
		WHERE canonical_id = ?
		ORDER BY start_date DESC
	`), canonicalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assocs := []types.Association{}
	for rows.Next() {
		var a types.Association
		var start sql.NullTime
		if err := rows.Scan(&a.Role, &a.Company, &start); err != nil {
			return nil, err
		}
		a.StartDate = start.Time
		assocs = append(assocs, a)
	}
	return assocs, rows.Err()
}
