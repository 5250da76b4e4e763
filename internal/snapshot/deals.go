package snapshot

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tinytelemetry/dealboard/internal/model"
)

// DealSummary aggregates logged deals.
type DealSummary struct {
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

// RecordDeal appends a validated deal to the log. Re-recording an ID is a
// no-op.
func (s *Store) RecordDeal(n model.DealNotification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, cancel := s.queryCtx()
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO deal_log (id, agent_id, agent_name, commission, sound_kind, reached_budget, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.Agent.ID, n.Agent.Name, n.Commission.String(), string(n.SoundKind), n.ReachedBudget, n.ReceivedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("snapshot: record deal %s: %w", n.ID, err)
	}
	return nil
}

// DealsSince returns deals received at or after t, oldest first.
func (s *Store) DealsSince(t time.Time) ([]model.DealNotification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ctx, cancel := s.queryCtx()
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, agent_id, agent_name, commission, sound_kind, reached_budget, received_at
		FROM deal_log
		WHERE received_at >= ?
		ORDER BY received_at, id`, t.UTC())
	if err != nil {
		return nil, fmt.Errorf("snapshot: deals since: %w", err)
	}
	defer rows.Close()

	var out []model.DealNotification
	for rows.Next() {
		var (
			n          model.DealNotification
			commission string
			kind       string
		)
		if err := rows.Scan(&n.ID, &n.Agent.ID, &n.Agent.Name, &commission, &kind, &n.ReachedBudget, &n.ReceivedAt); err != nil {
			return nil, err
		}
		n.Commission, err = decimal.NewFromString(commission)
		if err != nil {
			return nil, fmt.Errorf("snapshot: deal %s commission %q: %w", n.ID, commission, err)
		}
		n.SoundKind = model.SoundKind(kind)
		out = append(out, n)
	}
	return out, rows.Err()
}

// SummarySince counts and sums deals received at or after t.
func (s *Store) SummarySince(t time.Time) (DealSummary, error) {
	deals, err := s.DealsSince(t)
	if err != nil {
		return DealSummary{}, err
	}
	sum := DealSummary{Count: len(deals), Total: decimal.Zero}
	for _, n := range deals {
		sum.Total = sum.Total.Add(n.Commission)
	}
	return sum, nil
}

// DeleteDealsBefore removes deals older than cutoff.
func (s *Store) DeleteDealsBefore(cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, cancel := s.queryCtx()
	defer cancel()

	res, err := s.db.ExecContext(ctx, "DELETE FROM deal_log WHERE received_at < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("snapshot: delete deals: %w", err)
	}
	return res.RowsAffected()
}
