package snapshot

import (
	"encoding/json"
	"fmt"

	"github.com/tinytelemetry/dealboard/internal/model"
)

// SaveSlide upserts the latest payload of one slide.
func (s *Store) SaveSlide(slideshowID string, d *model.SlideData) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("snapshot: encode %s: %w", d.Key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, cancel := s.queryCtx()
	defer cancel()

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO slide_snapshots (slideshow_id, slide_key, kind, payload, fetched_at)
		VALUES (?, ?, ?, ?, ?)`,
		slideshowID, d.Key, string(d.Kind), string(payload), d.FetchedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("snapshot: save %s: %w", d.Key, err)
	}
	return nil
}

// LoadSlides returns every stored payload of a slideshow. Rows that no
// longer decode are skipped.
func (s *Store) LoadSlides(slideshowID string) ([]*model.SlideData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ctx, cancel := s.queryCtx()
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM slide_snapshots
		WHERE slideshow_id = ?
		ORDER BY slide_key`, slideshowID)
	if err != nil {
		return nil, fmt.Errorf("snapshot: load %s: %w", slideshowID, err)
	}
	defer rows.Close()

	var out []*model.SlideData
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var d model.SlideData
		if err := json.Unmarshal([]byte(payload), &d); err != nil || d.Key == "" {
			continue
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}
