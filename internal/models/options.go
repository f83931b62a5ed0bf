package models

import (
	"database/sql/driver"

	"github.com/lib/pq"
)

// Options maps the quiz answer options onto a Postgres text[] column.
type Options []string

// Scan implements sql.Scanner.
func (o *Options) Scan(src interface{}) error {
	var arr pq.StringArray
	if err := arr.Scan(src); err != nil {
		return err
	}
	*o = Options(arr)
	return nil
}

// Value implements driver.Valuer.
func (o Options) Value() (driver.Value, error) {
	return pq.StringArray(o).Value()
}
