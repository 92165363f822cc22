package postgres

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/alfredjeanlab/foundry/internal/model"
)

// scanRecords reads every row into an ordered record keyed by the result's
// column names. Columns named in children hold aggregated JSON and always
// come back as lists; a NULL there means no children.
func scanRecords(rows *sql.Rows, children map[string]bool) ([]model.Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	out := []model.Record{}
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		var rec model.Record
		for i, col := range cols {
			v, err := convertColumn(vals[i], children[col])
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", col, err)
			}
			rec.Set(col, v)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// convertColumn maps a driver value onto the record value union.
func convertColumn(v any, aggregated bool) (model.Value, error) {
	if aggregated {
		return childList(v)
	}
	switch x := v.(type) {
	case nil:
		return model.Null, nil
	case int64:
		return model.Int(x), nil
	case int:
		return model.Int(int64(x)), nil
	case float64:
		return model.Number(x), nil
	case bool:
		return model.Bool(x), nil
	case string:
		return model.Text(x), nil
	case []byte:
		return model.Text(string(x)), nil
	case time.Time:
		return model.Time(x), nil
	default:
		return model.Text(fmt.Sprint(x)), nil
	}
}

func childList(v any) (model.Value, error) {
	var data []byte
	switch x := v.(type) {
	case nil:
		return model.List(), nil
	case []byte:
		data = x
	case string:
		data = []byte(x)
	default:
		return model.Null, fmt.Errorf("unexpected aggregate type %T", v)
	}
	parsed, err := model.ParseValue(data)
	if err != nil {
		return model.Null, err
	}
	switch parsed.Kind() {
	case model.KindList:
		return parsed, nil
	case model.KindNull:
		return model.List(), nil
	default:
		return model.Null, fmt.Errorf("aggregate is %s, not a list", parsed.Kind())
	}
}
