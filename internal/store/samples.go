package store

import (
	"database/sql"
	"encoding/json"
)

// encodeSamples serialises sample values to a jsonb column. An empty slice
// is stored as NULL so the column stays distinguishable from "no
// placeholders with empty examples".
func encodeSamples(samples []string) sql.NullString {
	if len(samples) == 0 {
		return sql.NullString{}
	}
	b, err := json.Marshal(samples)
	if err != nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}
