package store

import (
	"fmt"

	"github.com/madmaxoft/skautan-go/internal/filter"
	"github.com/madmaxoft/skautan-go/internal/template"
)

// UpsertTemplate inserts t if t.ID is 0 (assigning the new id back into t),
// or replaces the existing row and its items otherwise. Every Item's
// Filter must already have a non-zero ID (i.e. have been saved via
// UpsertFilter first).
func (s *Store) UpsertTemplate(t *template.Template) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if t.ID == 0 {
		res, err := tx.Exec(`INSERT INTO templates (position, name, notes) VALUES (?,?,?)`,
			t.Position, t.Name, t.Notes)
		if err != nil {
			return fmt.Errorf("store: insert template: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		t.ID = id
	} else {
		if _, err := tx.Exec(`UPDATE templates SET position=?, name=?, notes=? WHERE id=?`,
			t.Position, t.Name, t.Notes, t.ID); err != nil {
			return fmt.Errorf("store: update template %d: %w", t.ID, err)
		}
		if _, err := tx.Exec(`DELETE FROM template_items WHERE template_id=?`, t.ID); err != nil {
			return fmt.Errorf("store: clear template_items for %d: %w", t.ID, err)
		}
	}

	for pos, item := range t.Items {
		if item.Filter == nil || item.Filter.ID == 0 {
			return fmt.Errorf("store: template %d item %d references an unsaved filter", t.ID, pos)
		}
		if _, err := tx.Exec(`
			INSERT INTO template_items (template_id, position, filter_id, has_duration, duration_sec)
			VALUES (?,?,?,?,?)`,
			t.ID, pos, item.Filter.ID, item.HasDuration, item.DurationSec); err != nil {
			return fmt.Errorf("store: insert template_item %d/%d: %w", t.ID, pos, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	s.invalidateCache()
	return nil
}

// DeleteTemplate removes a template row and its items.
func (s *Store) DeleteTemplate(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM template_items WHERE template_id=?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM templates WHERE id=?`, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.invalidateCache()
	return nil
}

// LoadAllTemplates returns every template row with its items resolved
// against filtersByID (typically the result of LoadAllFilters indexed by
// ID).
func (s *Store) LoadAllTemplates(filtersByID map[int64]*filter.Filter) ([]*template.Template, error) {
	rows, err := s.db.Query(`SELECT id, position, name, notes FROM templates ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("store: load templates: %w", err)
	}
	defer rows.Close()

	var templates []*template.Template
	byID := make(map[int64]*template.Template)
	for rows.Next() {
		var id int64
		var position int
		var name, notes string
		if err := rows.Scan(&id, &position, &name, &notes); err != nil {
			return nil, fmt.Errorf("store: scan template row: %w", err)
		}
		t := &template.Template{ID: id, Position: position, Name: name, Notes: notes}
		templates = append(templates, t)
		byID[id] = t
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	itemRows, err := s.db.Query(`SELECT template_id, position, filter_id, has_duration, duration_sec FROM template_items ORDER BY template_id, position`)
	if err != nil {
		return nil, fmt.Errorf("store: load template_items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var templateID, filterID int64
		var position int
		var hasDuration bool
		var durationSec float64
		if err := itemRows.Scan(&templateID, &position, &filterID, &hasDuration, &durationSec); err != nil {
			return nil, fmt.Errorf("store: scan template_item row: %w", err)
		}
		t, ok := byID[templateID]
		if !ok {
			continue
		}
		f, ok := filtersByID[filterID]
		if !ok {
			return nil, fmt.Errorf("store: template %d item references missing filter %d", templateID, filterID)
		}
		t.Append(template.Item{Filter: f, HasDuration: hasDuration, DurationSec: durationSec})
	}
	return templates, itemRows.Err()
}
