package impl

import (
	"database/sql"
)

// nullString 空串转 SQL NULL
func nullString(val string) interface{} {
	if val == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: val, Valid: true}
}

// nullJSON 空 JSON 转 SQL NULL
func nullJSON(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
