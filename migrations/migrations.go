// Package migrations holds the schema as goose Go migrations. Each migration
// carries one DDL variant per supported dialect.
package migrations

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
)

type ddl map[goose.Dialect]string

var all = []struct {
	version int64
	up      ddl
	down    ddl
}{
	{version: 1, up: createUsersTableUp, down: createUsersTableDown},
}

// For returns every migration rendered for dialect.
func For(dialect goose.Dialect) ([]*goose.Migration, error) {
	out := make([]*goose.Migration, 0, len(all))

	for _, m := range all {
		up, ok := m.up[dialect]
		if !ok {
			return nil, fmt.Errorf("migration %d: unsupported dialect %q", m.version, dialect)
		}
		down := m.down[dialect]

		out = append(out, goose.NewGoMigration(m.version, execTx(up), execTx(down)))
	}

	return out, nil
}

func execTx(query string) *goose.GoFunc {
	return &goose.GoFunc{
		RunTx: func(ctx context.Context, tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, query)
			return err
		},
	}
}
