package store

import (
	"encoding/json"
	"fmt"

	"github.com/madmaxoft/skautan-go/internal/filter"
	"github.com/madmaxoft/skautan-go/internal/library"
	"github.com/madmaxoft/skautan-go/internal/template"
)

// treeJSON is the on-disk shape of a Filter's predicate tree.
type treeJSON struct {
	Nodes []filter.NodeData `json:"nodes"`
	Root int `json:"root"`
}

// UpsertFilter inserts f if f.ID is 0 (assigning the new id back into f),
// or replaces the existing row otherwise.
func (s *Store) UpsertFilter(f *filter.Filter) error {
	nodes, root := f.Tree.Export()
	treeBytes, err := json.Marshal(treeJSON{Nodes: nodes, Root: root})
	if err != nil {
		return fmt.Errorf("store: marshal filter tree: %w", err)
	}

	if f.ID == 0 {
		res, err := s.db.Exec(`
			INSERT INTO filters (position, name, notes, favorite, bg_color, has_duration, duration_sec, tree_json)
			VALUES (?,?,?,?,?,?,?,?)`,
			f.Position, f.Name, f.Notes, f.Favorite,
			bgColorHex(f.BGColor), f.HasDuration, f.DurationSec, string(treeBytes))
		if err != nil {
			return fmt.Errorf("store: insert filter: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		f.ID = id
	} else {
		_, err := s.db.Exec(`
			UPDATE filters SET position=?, name=?, notes=?, favorite=?, bg_color=?,
				has_duration=?, duration_sec=?, tree_json=?
			WHERE id=?`,
			f.Position, f.Name, f.Notes, f.Favorite,
			bgColorHex(f.BGColor), f.HasDuration, f.DurationSec, string(treeBytes), f.ID)
		if err != nil {
			return fmt.Errorf("store: update filter %d: %w", f.ID, err)
		}
	}
	s.invalidateCache()
	return nil
}

// DeleteFilter removes f's row along with every template_items row
// referencing it, in a single transaction, then strips f from each of
// templates in memory (template.RemoveAllFilterRefs) so the caller's
// already-loaded Templates stay consistent with what's now on disk. This
// is the cascade deleting a filter removes it from every
// template that uses it: deleting the filters row alone would leave
// template_items rows violating the filter_id foreign key under
// _foreign_keys=on.
func (s *Store) DeleteFilter(f *filter.Filter, templates []*template.Template) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin delete filter %d: %w", f.ID, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM template_items WHERE filter_id=?`, f.ID); err != nil {
		return fmt.Errorf("store: delete template_items for filter %d: %w", f.ID, err)
	}
	if _, err := tx.Exec(`DELETE FROM filters WHERE id=?`, f.ID); err != nil {
		return fmt.Errorf("store: delete filter %d: %w", f.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit delete filter %d: %w", f.ID, err)
	}

	for _, t := range templates {
		t.RemoveAllFilterRefs(f)
	}
	s.invalidateCache()
	return nil
}

// LoadAllFilters returns every filter row, reconstructing each Tree from
// its stored JSON.
func (s *Store) LoadAllFilters() ([]*filter.Filter, error) {
	rows, err := s.db.Query(`SELECT id, position, name, notes, favorite, bg_color, has_duration, duration_sec, tree_json FROM filters`)
	if err != nil {
		return nil, fmt.Errorf("store: load filters: %w", err)
	}
	defer rows.Close()

	var out []*filter.Filter
	for rows.Next() {
		var (
			id int64
			position int
			name, notes string
			favorite bool
			bgColor string
			hasDuration bool
			durationSec float64
			treeStr string
		)
		if err := rows.Scan(&id, &position, &name, &notes, &favorite, &bgColor, &hasDuration, &durationSec, &treeStr); err != nil {
			return nil, fmt.Errorf("store: scan filter row: %w", err)
		}
		var tj treeJSON
		if err := json.Unmarshal([]byte(treeStr), &tj); err != nil {
			return nil, fmt.Errorf("store: filter %d: unmarshal tree: %w", id, err)
		}
		out = append(out, &filter.Filter{
			Tree: filter.ImportTree(tj.Nodes, tj.Root),
			ID: id,
			Position: position,
			Name: name,
			Notes: notes,
			Favorite: favorite,
			BGColor: parseBGColorHex(bgColor),
			HasDuration: hasDuration,
			DurationSec: durationSec,
		})
	}
	return out, rows.Err()
}

func bgColorHex(rgb library.RGB) string {
	return fmt.Sprintf("%02x%02x%02x", rgb.R, rgb.G, rgb.B)
}

func parseBGColorHex(s string) library.RGB {
	var r, g, b uint8
	fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b)
	return library.RGB{R: r, G: g, B: b}
}
