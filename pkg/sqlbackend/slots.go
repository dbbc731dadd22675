package sqlbackend

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shunichi-ikebuchi/bizbook/pkg/db"
	"github.com/shunichi-ikebuchi/bizbook/pkg/entity"
)

// loadSlots fills the frames of every record of one table with a single
// query restricted to the GUIDs stored in that table.
func loadSlots(q db.Querier, b *entity.Book, typeName, table, key string) error {
	query := fmt.Sprintf(`
		SELECT obj_guid, name, slot_type, int64_val, string_val, double_val, numeric_val, guid_val
		FROM slots
		WHERE obj_guid IN (SELECT DISTINCT %s FROM %s)
		ORDER BY obj_guid, name
	`, key, table)
	rows, err := q.Query(query)
	if err != nil {
		return fmt.Errorf("failed to load slots of %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			objGUID, name string
			kind          int
			intVal        sql.NullInt64
			strVal        sql.NullString
			dblVal        sql.NullFloat64
			numVal        sql.NullString
			guidVal       sql.NullString
		)
		if err := rows.Scan(&objGUID, &name, &kind, &intVal, &strVal, &dblVal, &numVal, &guidVal); err != nil {
			return fmt.Errorf("failed to scan slot: %w", err)
		}

		g, err := entity.ParseGUID(objGUID)
		if err != nil {
			slog.Warn("skipping slot of invalid guid", "table", table, "guid", objGUID)
			continue
		}
		e := b.Lookup(typeName, g)
		if e == nil {
			continue
		}

		s := entity.Slot{Kind: entity.SlotKind(kind)}
		switch s.Kind {
		case entity.SlotInt64:
			s.Int = intVal.Int64
		case entity.SlotString:
			s.Str = strVal.String
		case entity.SlotDouble:
			s.Double = dblVal.Float64
		case entity.SlotNumeric:
			if s.Num, err = decimal.NewFromString(numVal.String); err != nil {
				slog.Warn("skipping malformed numeric slot", "guid", objGUID, "name", name, "error", err)
				continue
			}
		case entity.SlotGUID:
			if s.GUID, err = entity.ParseGUID(guidVal.String); err != nil {
				slog.Warn("skipping malformed guid slot", "guid", objGUID, "name", name, "error", err)
				continue
			}
		default:
			slog.Warn("skipping slot of unknown type", "guid", objGUID, "name", name, "type", kind)
			continue
		}
		e.Instance().Slots().Set(name, s)
	}
	return rows.Err()
}

// saveSlots replaces the stored slots of one record.
func saveSlots(q db.Querier, g uuid.UUID, f *entity.Frame) error {
	if err := deleteSlots(q, g); err != nil {
		return err
	}

	query := `
		INSERT INTO slots (obj_guid, name, slot_type, int64_val, string_val, double_val, numeric_val, guid_val)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, name := range f.Keys() {
		s, _ := f.Get(name)
		var intVal, strVal, dblVal, numVal, guidVal any
		switch s.Kind {
		case entity.SlotInt64:
			intVal = s.Int
		case entity.SlotString:
			strVal = s.Str
		case entity.SlotDouble:
			dblVal = s.Double
		case entity.SlotNumeric:
			numVal = s.Num.String()
		case entity.SlotGUID:
			guidVal = guidArg(s.GUID)
		}
		if _, err := q.Exec(query, entity.GUIDString(g), name, int(s.Kind), intVal, strVal, dblVal, numVal, guidVal); err != nil {
			return fmt.Errorf("failed to save slot %s: %w", name, err)
		}
	}
	return nil
}

func deleteSlots(q db.Querier, g uuid.UUID) error {
	if _, err := q.Exec(`DELETE FROM slots WHERE obj_guid = ?`, entity.GUIDString(g)); err != nil {
		return fmt.Errorf("failed to delete slots: %w", err)
	}
	return nil
}
