// Licensed under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

// Package sql provides a Catalog backed by a relational database.
package sql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mssqldialect"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/oracledialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
	"github.com/uptrace/bun/schema"

	"github.com/parqbridge/parqbridge"
	"github.com/parqbridge/parqbridge/catalog"
	"github.com/parqbridge/parqbridge/internal"
)

type SupportedDialect string

const (
	Postgres SupportedDialect = "postgres"
	MySQL    SupportedDialect = "mysql"
	SQLite   SupportedDialect = "sqlite"
	MSSQL    SupportedDialect = "mssql"
	Oracle   SupportedDialect = "oracle"
)

const (
	DialectKey           = "sql.dialect"
	DriverKey            = "sql.driver"
	initCatalogTablesKey = "init_catalog_tables"
)

func init() {
	catalog.Register("sql", catalog.RegistrarFunc(func(ctx context.Context, name string, p parqbridge.Properties) (c catalog.Catalog, err error) {
		// the bundled sqlite shim serves as the embedded default, so a
		// bare "sql" catalog works without configuration
		driver := p.Get(DriverKey, sqliteshim.ShimName)
		dialect := strings.ToLower(p.Get(DialectKey, string(SQLite)))

		uri := strings.TrimPrefix(p.Get("uri", "file::memory:?cache=shared"), "sql://")
		sqldb, err := sql.Open(driver, uri)
		if err != nil {
			return nil, err
		}

		// an unsupported dialect panics; surface it as an error
		defer internal.RecoverError(&err)

		return NewCatalog(name, sqldb, SupportedDialect(dialect), p)
	}))
}

var _ catalog.Catalog = (*Catalog)(nil)

var (
	dialects  = map[SupportedDialect]schema.Dialect{}
	dialectMx sync.Mutex
)

func createDialect(d SupportedDialect) schema.Dialect {
	switch d {
	case Postgres:
		return pgdialect.New()
	case MySQL:
		return mysqldialect.New()
	case SQLite:
		return sqlitedialect.New()
	case MSSQL:
		return mssqldialect.New()
	case Oracle:
		return oracledialect.New()
	default:
		panic("unsupported sql dialect")
	}
}

func getDialect(d SupportedDialect) schema.Dialect {
	dialectMx.Lock()
	defer dialectMx.Unlock()
	ret, ok := dialects[d]
	if !ok {
		ret = createDialect(d)
		dialects[d] = ret
	}

	return ret
}

type sqlBridgeTable struct {
	bun.BaseModel `bun:"table:bridge_tables"`

	CatalogName    string `bun:",pk"`
	TableNamespace string `bun:",pk"`
	TableName      string `bun:",pk"`
	Location       sql.NullString
	SchemaJSON     sql.NullString
}

type sqlBridgeTableProps struct {
	bun.BaseModel `bun:"table:bridge_table_properties"`

	CatalogName    string `bun:",pk"`
	TableNamespace string `bun:",pk"`
	TableName      string `bun:",pk"`
	PropertyKey    string `bun:",pk"`
	PropertyValue  sql.NullString
}

type sqlBridgePartition struct {
	bun.BaseModel `bun:"table:bridge_partitions"`

	CatalogName    string `bun:",pk"`
	TableNamespace string `bun:",pk"`
	TableName      string `bun:",pk"`
	PartitionName  string `bun:",pk"`
	Location       sql.NullString
}

func withReadTx[R any](ctx context.Context, db *bun.DB, fn func(context.Context, bun.Tx) (R, error)) (result R, err error) {
	db.RunInTx(ctx, &sql.TxOptions{ReadOnly: true}, func(ctx context.Context, tx bun.Tx) error {
		result, err = fn(ctx, tx)

		return err
	})

	return
}

func withWriteTx(ctx context.Context, db *bun.DB, fn func(context.Context, bun.Tx) error) error {
	return db.RunInTx(ctx, &sql.TxOptions{Isolation: sql.LevelDefault}, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, tx)
	})
}

type Catalog struct {
	db    *bun.DB
	name  string
	props parqbridge.Properties
}

// NewCatalog creates a sql-based catalog using the provided sql.DB handle to
// perform any queries.
//
// The dialect parameter determines the SQL dialect to use for query
// generation and must be one of the exported SupportedDialect values. The
// separation allows for the use of different drivers/databases provided
// they support the chosen dialect.
//
// Unless the "init_catalog_tables" property is set to "false", creating the
// catalog also creates the backing tables if they do not already exist.
//
// The environment variable PARQBRIDGE_SQL_DEBUG can be set to automatically
// log the sql queries to the terminal:
//   - PARQBRIDGE_SQL_DEBUG=1 logs only failed queries
//   - PARQBRIDGE_SQL_DEBUG=2 logs all queries
//
// All interactions with the db are performed within transactions to ensure
// atomicity of catalog changes.
func NewCatalog(name string, db *sql.DB, dialect SupportedDialect, props parqbridge.Properties) (*Catalog, error) {
	cat := &Catalog{db: bun.NewDB(db, getDialect(dialect)), name: name, props: props}

	cat.db.AddQueryHook(bundebug.NewQueryHook(
		bundebug.WithEnabled(false),
		bundebug.FromEnv("PARQBRIDGE_SQL_DEBUG")))

	if cat.props.GetBool(initCatalogTablesKey, true) {
		return cat, cat.ensureTablesExist()
	}

	return cat, nil
}

func (c *Catalog) Name() string { return c.name }

func (c *Catalog) CatalogType() catalog.Type {
	return catalog.SQL
}

func (c *Catalog) CreateSQLTables(ctx context.Context) error {
	for _, model := range []any{
		(*sqlBridgeTable)(nil),
		(*sqlBridgeTableProps)(nil),
		(*sqlBridgePartition)(nil),
	} {
		if _, err := c.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}

	return nil
}

func (c *Catalog) DropSQLTables(ctx context.Context) error {
	for _, model := range []any{
		(*sqlBridgeTable)(nil),
		(*sqlBridgeTableProps)(nil),
		(*sqlBridgePartition)(nil),
	} {
		if _, err := c.db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
			return err
		}
	}

	return nil
}

func (c *Catalog) ensureTablesExist() error {
	return c.CreateSQLTables(context.Background())
}

func splitIdent(ident catalog.Identifier) (ns, tbl string) {
	return strings.Join(catalog.NamespaceFromIdent(ident), "."),
		catalog.TableNameFromIdent(ident)
}

func (c *Catalog) tableExistsTx(ctx context.Context, tx bun.Tx, ns, tbl string) (bool, error) {
	return tx.NewSelect().Model(&sqlBridgeTable{
		CatalogName:    c.name,
		TableNamespace: ns,
		TableName:      tbl,
	}).WherePK().Exists(ctx)
}

func (c *Catalog) CreateTable(ctx context.Context, ident catalog.Identifier, sc *parqbridge.Schema, location string, props parqbridge.Properties) (*catalog.Table, error) {
	if len(ident) < 2 {
		return nil, fmt.Errorf("%w: identifier must be namespace.table, got %v",
			parqbridge.ErrInvalidArgument, ident)
	}
	if sc == nil || sc.NumFields() == 0 {
		return nil, fmt.Errorf("%w: cannot register a table with an empty schema",
			parqbridge.ErrInvalidSchema)
	}

	schemaJSON, err := json.Marshal(sc)
	if err != nil {
		return nil, err
	}

	ns, tbl := splitIdent(ident)
	err = withWriteTx(ctx, c.db, func(ctx context.Context, tx bun.Tx) error {
		exists, err := c.tableExistsTx(ctx, tx, ns, tbl)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s", catalog.ErrTableAlreadyExists, strings.Join(ident, "."))
		}

		_, err = tx.NewInsert().Model(&sqlBridgeTable{
			CatalogName:    c.name,
			TableNamespace: ns,
			TableName:      tbl,
			Location:       sql.NullString{String: location, Valid: location != ""},
			SchemaJSON:     sql.NullString{String: string(schemaJSON), Valid: true},
		}).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}

		if len(props) == 0 {
			return nil
		}

		toInsert := make([]sqlBridgeTableProps, 0, len(props))
		for k, v := range props {
			toInsert = append(toInsert, sqlBridgeTableProps{
				CatalogName:    c.name,
				TableNamespace: ns,
				TableName:      tbl,
				PropertyKey:    k,
				PropertyValue:  sql.NullString{String: v, Valid: true},
			})
		}

		_, err = tx.NewInsert().Model(&toInsert).Exec(ctx)
		if err != nil {
			return fmt.Errorf("error inserting properties for table '%s': %w", ident, err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return c.LoadTable(ctx, ident)
}

func (c *Catalog) LoadTable(ctx context.Context, ident catalog.Identifier) (*catalog.Table, error) {
	ns, tbl := splitIdent(ident)

	type loaded struct {
		row   *sqlBridgeTable
		props []sqlBridgeTableProps
	}

	result, err := withReadTx(ctx, c.db, func(ctx context.Context, tx bun.Tx) (loaded, error) {
		t := new(sqlBridgeTable)
		err := tx.NewSelect().Model(t).
			Where("catalog_name = ?", c.name).
			Where("table_namespace = ?", ns).
			Where("table_name = ?", tbl).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return loaded{}, fmt.Errorf("%w: %s", catalog.ErrNoSuchTable, strings.Join(ident, "."))
		}
		if err != nil {
			return loaded{}, fmt.Errorf("error encountered loading table %s: %w", ident, err)
		}

		var props []sqlBridgeTableProps
		err = tx.NewSelect().Model(&props).
			Where("catalog_name = ?", c.name).
			Where("table_namespace = ?", ns).
			Where("table_name = ?", tbl).
			Scan(ctx)
		if err != nil {
			return loaded{}, fmt.Errorf("error loading properties for table %s: %w", ident, err)
		}

		return loaded{row: t, props: props}, nil
	})
	if err != nil {
		return nil, err
	}

	out := &catalog.Table{
		Ident:      ident,
		Location:   result.row.Location.String,
		Properties: make(parqbridge.Properties, len(result.props)),
	}
	for _, p := range result.props {
		out.Properties[p.PropertyKey] = p.PropertyValue.String
	}

	if result.row.SchemaJSON.Valid {
		out.Schema = new(parqbridge.Schema)
		if err := json.Unmarshal([]byte(result.row.SchemaJSON.String), out.Schema); err != nil {
			return nil, fmt.Errorf("corrupt schema recorded for table %s: %w", ident, err)
		}
	}

	return out, nil
}

func (c *Catalog) TableExists(ctx context.Context, ident catalog.Identifier) (bool, error) {
	ns, tbl := splitIdent(ident)

	return withReadTx(ctx, c.db, func(ctx context.Context, tx bun.Tx) (bool, error) {
		return c.tableExistsTx(ctx, tx, ns, tbl)
	})
}

func (c *Catalog) RenameTable(ctx context.Context, from, to catalog.Identifier) (*catalog.Table, error) {
	fromNs, fromTbl := splitIdent(from)
	toNs, toTbl := splitIdent(to)

	err := withWriteTx(ctx, c.db, func(ctx context.Context, tx bun.Tx) error {
		exists, err := c.tableExistsTx(ctx, tx, toNs, toTbl)
		if err != nil {
			return fmt.Errorf("error encountered checking existence of table '%s': %w", to, err)
		}
		if exists {
			return fmt.Errorf("%w: %s", catalog.ErrTableAlreadyExists, strings.Join(to, "."))
		}

		res, err := tx.NewUpdate().Model(&sqlBridgeTable{
			CatalogName:    c.name,
			TableNamespace: fromNs,
			TableName:      fromTbl,
		}).WherePK().
			Set("table_namespace = ?", toNs).
			Set("table_name = ?", toTbl).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("error renaming table from '%s' to '%s': %w", from, to, err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("error renaming table from '%s' to '%s': %w", from, to, err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", catalog.ErrNoSuchTable, strings.Join(from, "."))
		}

		// properties and partitions follow the table
		for _, model := range []any{
			(*sqlBridgeTableProps)(nil),
			(*sqlBridgePartition)(nil),
		} {
			_, err = tx.NewUpdate().Model(model).
				Where("catalog_name = ?", c.name).
				Where("table_namespace = ?", fromNs).
				Where("table_name = ?", fromTbl).
				Set("table_namespace = ?", toNs).
				Set("table_name = ?", toTbl).
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("error renaming table from '%s' to '%s': %w", from, to, err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return c.LoadTable(ctx, to)
}

func (c *Catalog) DropTable(ctx context.Context, ident catalog.Identifier) error {
	ns, tbl := splitIdent(ident)

	return withWriteTx(ctx, c.db, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().Model(&sqlBridgeTable{
			CatalogName:    c.name,
			TableNamespace: ns,
			TableName:      tbl,
		}).WherePK().Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to delete table entry: %w", err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("error encountered when deleting table entry: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", catalog.ErrNoSuchTable, strings.Join(ident, "."))
		}

		for _, model := range []any{
			(*sqlBridgeTableProps)(nil),
			(*sqlBridgePartition)(nil),
		} {
			_, err = tx.NewDelete().Model(model).
				Where("catalog_name = ?", c.name).
				Where("table_namespace = ?", ns).
				Where("table_name = ?", tbl).
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to delete table entry: %w", err)
			}
		}

		return nil
	})
}

func (c *Catalog) ListTables(ctx context.Context, namespace catalog.Identifier) ([]catalog.Identifier, error) {
	ns := strings.Join(namespace, ".")

	rows, err := withReadTx(ctx, c.db, func(ctx context.Context, tx bun.Tx) ([]sqlBridgeTable, error) {
		var tables []sqlBridgeTable
		q := tx.NewSelect().Model(&tables).
			Where("catalog_name = ?", c.name).
			Order("table_namespace", "table_name")
		if ns != "" {
			q = q.Where("table_namespace = ?", ns)
		}

		return tables, q.Scan(ctx)
	})
	if err != nil {
		return nil, err
	}

	out := make([]catalog.Identifier, 0, len(rows))
	for _, t := range rows {
		out = append(out, append(catalog.ToIdentifier(t.TableNamespace), t.TableName))
	}

	return out, nil
}

func (c *Catalog) AddPartition(ctx context.Context, ident catalog.Identifier, part catalog.Partition) error {
	if part.Name == "" {
		return fmt.Errorf("%w: partition name must not be empty", parqbridge.ErrInvalidArgument)
	}

	ns, tbl := splitIdent(ident)

	return withWriteTx(ctx, c.db, func(ctx context.Context, tx bun.Tx) error {
		exists, err := c.tableExistsTx(ctx, tx, ns, tbl)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: %s", catalog.ErrNoSuchTable, strings.Join(ident, "."))
		}

		row := &sqlBridgePartition{
			CatalogName:    c.name,
			TableNamespace: ns,
			TableName:      tbl,
			PartitionName:  part.Name,
			Location:       sql.NullString{String: part.Location, Valid: part.Location != ""},
		}

		taken, err := tx.NewSelect().Model(row).WherePK().Exists(ctx)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: %s", catalog.ErrPartitionAlreadyExists, part.Name)
		}

		if _, err := tx.NewInsert().Model(row).Exec(ctx); err != nil {
			return fmt.Errorf("failed to add partition '%s': %w", part.Name, err)
		}

		return nil
	})
}

func (c *Catalog) LoadPartition(ctx context.Context, ident catalog.Identifier, name string) (*catalog.Partition, error) {
	ns, tbl := splitIdent(ident)

	return withReadTx(ctx, c.db, func(ctx context.Context, tx bun.Tx) (*catalog.Partition, error) {
		p := new(sqlBridgePartition)
		err := tx.NewSelect().Model(p).
			Where("catalog_name = ?", c.name).
			Where("table_namespace = ?", ns).
			Where("table_name = ?", tbl).
			Where("partition_name = ?", name).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", catalog.ErrNoSuchPartition, name)
		}
		if err != nil {
			return nil, fmt.Errorf("error loading partition '%s': %w", name, err)
		}

		return &catalog.Partition{Name: p.PartitionName, Location: p.Location.String}, nil
	})
}

func (c *Catalog) ListPartitions(ctx context.Context, ident catalog.Identifier) ([]catalog.Partition, error) {
	ns, tbl := splitIdent(ident)

	rows, err := withReadTx(ctx, c.db, func(ctx context.Context, tx bun.Tx) ([]sqlBridgePartition, error) {
		var parts []sqlBridgePartition
		err := tx.NewSelect().Model(&parts).
			Where("catalog_name = ?", c.name).
			Where("table_namespace = ?", ns).
			Where("table_name = ?", tbl).
			Order("partition_name").
			Scan(ctx)

		return parts, err
	})
	if err != nil {
		return nil, err
	}

	out := make([]catalog.Partition, 0, len(rows))
	for _, p := range rows {
		out = append(out, catalog.Partition{Name: p.PartitionName, Location: p.Location.String})
	}

	return out, nil
}

func (c *Catalog) DropPartition(ctx context.Context, ident catalog.Identifier, name string) error {
	ns, tbl := splitIdent(ident)

	return withWriteTx(ctx, c.db, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().Model(&sqlBridgePartition{
			CatalogName:    c.name,
			TableNamespace: ns,
			TableName:      tbl,
			PartitionName:  name,
		}).WherePK().Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to drop partition '%s': %w", name, err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", catalog.ErrNoSuchPartition, name)
		}

		return nil
	})
}
