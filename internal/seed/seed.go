// Package seed loads a small demo catalog into an empty database.
package seed

import (
	"database/sql"
	"fmt"
	"time"
)

// timeLayout matches the layout the store reads back.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const seedActor = "seed"

type demoMaterial struct {
	Code, Name, Category, UoM, Price string
}

type demoPriceListItem struct {
	Code, Name, Category, BaseCost, Markup string
	LaborMinutes                           int
}

type demoComponent struct {
	MaterialCode, Quantity string
}

type demoAssembly struct {
	Code, Name, Category          string
	Rough, Finish, Service, Extra int
	Components                    []demoComponent
}

var demoMaterials = []demoMaterial{
	{"WIRE-12-2", "12/2 NM-B wire", "Wire", "FT", "0.85"},
	{"BOX-1G", "Single gang box", "Boxes", "EA", "1.20"},
	{"REC-15A", "15A duplex receptacle", "Devices", "EA", "2.50"},
	{"SW-SP", "Single pole switch", "Devices", "EA", "3.10"},
	{"PLATE-1G", "Single gang cover plate", "Devices", "EA", "0.75"},
}

var demoPriceList = []demoPriceListItem{
	{"SVC-PANEL", "Panel inspection", "Service", "0", "0", 45},
	{"SVC-TRIP", "Trip charge", "Service", "25.00", "0", 0},
}

var demoAssemblies = []demoAssembly{
	{
		Code: "OUTLET", Name: "Standard duplex outlet", Category: "Devices",
		Rough: 30, Finish: 15,
		Components: []demoComponent{
			{"WIRE-12-2", "15"}, {"BOX-1G", "1"}, {"REC-15A", "1"}, {"PLATE-1G", "1"},
		},
	},
	{
		Code: "SWITCH", Name: "Single pole switch", Category: "Devices",
		Rough: 25, Finish: 10,
		Components: []demoComponent{
			{"WIRE-12-2", "12"}, {"BOX-1G", "1"}, {"SW-SP", "1"}, {"PLATE-1G", "1"},
		},
	},
}

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
}

// Run seeds the demo catalog in one transaction. Rows are matched by code,
// so running it again inserts nothing.
func Run(db *sql.DB) (Stats, error) {
	return run(db, time.Now().UTC())
}

func run(db *sql.DB, now time.Time) (Stats, error) {
	tx, err := db.Begin()
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}
	ts := now.UTC().Format(timeLayout)

	for _, m := range demoMaterials {
		if err := ensureMaterial(tx, m, ts, &stats); err != nil {
			_ = tx.Rollback()
			return Stats{}, err
		}
	}
	for _, p := range demoPriceList {
		if err := ensurePriceListItem(tx, p, &stats); err != nil {
			_ = tx.Rollback()
			return Stats{}, err
		}
	}
	for _, a := range demoAssemblies {
		if err := ensureAssembly(tx, a, ts, &stats); err != nil {
			_ = tx.Rollback()
			return Stats{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}
	return stats, nil
}

func exists(tx *sql.Tx, table, code string) (bool, error) {
	var found bool
	err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM `+table+` WHERE code = ? LIMIT 1)`, code).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("check %s %s existence: %w", table, code, err)
	}
	return found, nil
}

// ensureMaterial inserts the material together with its baseline history entry.
func ensureMaterial(tx *sql.Tx, m demoMaterial, ts string, stats *Stats) error {
	found, err := exists(tx, "materials", m.Code)
	if err != nil || found {
		return err
	}

	res, err := tx.Exec(`
		INSERT INTO materials (code, name, category, unit_of_measure, current_price, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, m.Code, m.Name, m.Category, m.UoM, m.Price, ts, ts)
	if err != nil {
		return fmt.Errorf("insert material %s: %w", m.Code, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("material %s id: %w", m.Code, err)
	}

	if _, err := tx.Exec(`
		INSERT INTO price_history (material_id, price, effective_date, created_by, percentage_change, alert_level)
		VALUES (?, ?, ?, ?, '0', 'none')
	`, id, m.Price, ts, seedActor); err != nil {
		return fmt.Errorf("insert baseline price for %s: %w", m.Code, err)
	}
	stats.Inserts++
	return nil
}

func ensurePriceListItem(tx *sql.Tx, p demoPriceListItem, stats *Stats) error {
	found, err := exists(tx, "price_list_items", p.Code)
	if err != nil || found {
		return err
	}

	if _, err := tx.Exec(`
		INSERT INTO price_list_items (code, name, category, base_cost, markup_percent, labor_minutes)
		VALUES (?, ?, ?, ?, ?, ?)
	`, p.Code, p.Name, p.Category, p.BaseCost, p.Markup, p.LaborMinutes); err != nil {
		return fmt.Errorf("insert price list item %s: %w", p.Code, err)
	}
	stats.Inserts++
	return nil
}

// ensureAssembly inserts the template as its code's default, with components
// that cache the material's current price and name.
func ensureAssembly(tx *sql.Tx, a demoAssembly, ts string, stats *Stats) error {
	found, err := exists(tx, "assemblies", a.Code)
	if err != nil || found {
		return err
	}

	res, err := tx.Exec(`
		INSERT INTO assemblies (
			code, name, category,
			rough_minutes, finish_minutes, service_minutes, extra_minutes,
			is_default, created_by, created_at, updated_by, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?, ?, ?)
	`, a.Code, a.Name, a.Category, a.Rough, a.Finish, a.Service, a.Extra, seedActor, ts, seedActor, ts)
	if err != nil {
		return fmt.Errorf("insert assembly %s: %w", a.Code, err)
	}
	asmID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("assembly %s id: %w", a.Code, err)
	}

	for _, c := range a.Components {
		var (
			materialID int64
			name       string
			price      string
		)
		if err := tx.QueryRow(`SELECT id, name, current_price FROM materials WHERE code = ?`, c.MaterialCode).
			Scan(&materialID, &name, &price); err != nil {
			return fmt.Errorf("resolve component %s of %s: %w", c.MaterialCode, a.Code, err)
		}
		if _, err := tx.Exec(`
			INSERT INTO assembly_components (assembly_id, item_kind, item_id, quantity, unit_price, item_name)
			VALUES (?, 'material', ?, ?, ?, ?)
		`, asmID, materialID, c.Quantity, price, name); err != nil {
			return fmt.Errorf("insert component %s of %s: %w", c.MaterialCode, a.Code, err)
		}
	}
	stats.Inserts++
	return nil
}
