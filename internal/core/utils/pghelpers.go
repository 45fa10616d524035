package utils

import (
	"github.com/jackc/pgx/v5/pgtype"
)

// FromText converts a nullable text column to a string.
// A NULL value is converted to an empty string ("").
func FromText(t pgtype.Text) string {
	if !t.Valid {
		return ""
	}
	return t.String
}

// FromInt8 converts a nullable bigint column to an int64, zero when NULL.
func FromInt8(i pgtype.Int8) int64 {
	if !i.Valid {
		return 0
	}
	return i.Int64
}
