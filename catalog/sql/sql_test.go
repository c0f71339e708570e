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

package sql_test

import (
	"context"
	dbsql "database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/parqbridge/parqbridge"
	"github.com/parqbridge/parqbridge/catalog"
	sqlcat "github.com/parqbridge/parqbridge/catalog/sql"
)

var tableSchema = parqbridge.NewSchema(
	parqbridge.NestedField{Name: "id", Type: parqbridge.PrimitiveTypes.Int64, Required: true},
	parqbridge.NestedField{Name: "data", Type: parqbridge.PrimitiveTypes.String},
)

func newTestCatalog(t *testing.T) *sqlcat.Catalog {
	t.Helper()

	db, err := dbsql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cat, err := sqlcat.NewCatalog("test", db, sqlcat.SQLite, nil)
	require.NoError(t, err)

	return cat
}

func mustCreate(t *testing.T, cat *sqlcat.Catalog, ident catalog.Identifier) *catalog.Table {
	t.Helper()

	tbl, err := cat.CreateTable(context.Background(), ident, tableSchema,
		"file:///warehouse/"+ident[len(ident)-1], parqbridge.Properties{"owner": "tests"})
	require.NoError(t, err)

	return tbl
}

func TestCreateAndLoadTable(t *testing.T) {
	cat := newTestCatalog(t)
	ctx := context.Background()
	ident := catalog.ToIdentifier("db.orders")

	created := mustCreate(t, cat, ident)
	assert.Equal(t, ident, created.Ident)
	assert.Equal(t, "file:///warehouse/orders", created.Location)

	loaded, err := cat.LoadTable(ctx, ident)
	require.NoError(t, err)
	assert.Equal(t, ident, loaded.Ident)
	require.NotNil(t, loaded.Schema)
	assert.True(t, tableSchema.Equals(loaded.Schema))
	assert.Equal(t, "tests", loaded.Properties["owner"])

	exists, err := cat.TableExists(ctx, ident)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = cat.TableExists(ctx, catalog.ToIdentifier("db.missing"))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCreateTableValidation(t *testing.T) {
	cat := newTestCatalog(t)
	ctx := context.Background()

	_, err := cat.CreateTable(ctx, catalog.Identifier{"bare"}, tableSchema, "loc", nil)
	assert.ErrorIs(t, err, parqbridge.ErrInvalidArgument)

	_, err = cat.CreateTable(ctx, catalog.ToIdentifier("db.t"), nil, "loc", nil)
	assert.ErrorIs(t, err, parqbridge.ErrInvalidSchema)

	mustCreate(t, cat, catalog.ToIdentifier("db.dup"))
	_, err = cat.CreateTable(ctx, catalog.ToIdentifier("db.dup"), tableSchema, "loc", nil)
	assert.ErrorIs(t, err, catalog.ErrTableAlreadyExists)
}

func TestLoadMissingTable(t *testing.T) {
	cat := newTestCatalog(t)

	_, err := cat.LoadTable(context.Background(), catalog.ToIdentifier("db.nope"))
	assert.ErrorIs(t, err, catalog.ErrNoSuchTable)
}

func TestRenameTable(t *testing.T) {
	cat := newTestCatalog(t)
	ctx := context.Background()
	from := catalog.ToIdentifier("db.old")
	to := catalog.ToIdentifier("db.new")

	mustCreate(t, cat, from)
	require.NoError(t, cat.AddPartition(ctx, from, catalog.Partition{
		Name: "region=emea", Location: "file:///warehouse/old/region=emea",
	}))

	renamed, err := cat.RenameTable(ctx, from, to)
	require.NoError(t, err)
	assert.Equal(t, to, renamed.Ident)
	assert.Equal(t, "tests", renamed.Properties["owner"])

	_, err = cat.LoadTable(ctx, from)
	assert.ErrorIs(t, err, catalog.ErrNoSuchTable)

	// partitions follow the table
	parts, err := cat.ListPartitions(ctx, to)
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Equal(t, "region=emea", parts[0].Name)

	_, err = cat.RenameTable(ctx, catalog.ToIdentifier("db.ghost"), catalog.ToIdentifier("db.x"))
	assert.ErrorIs(t, err, catalog.ErrNoSuchTable)

	mustCreate(t, cat, from)
	_, err = cat.RenameTable(ctx, from, to)
	assert.ErrorIs(t, err, catalog.ErrTableAlreadyExists)
}

func TestDropTable(t *testing.T) {
	cat := newTestCatalog(t)
	ctx := context.Background()
	ident := catalog.ToIdentifier("db.victim")

	mustCreate(t, cat, ident)
	require.NoError(t, cat.DropTable(ctx, ident))

	exists, err := cat.TableExists(ctx, ident)
	require.NoError(t, err)
	assert.False(t, exists)

	assert.ErrorIs(t, cat.DropTable(ctx, ident), catalog.ErrNoSuchTable)
}

func TestListTables(t *testing.T) {
	cat := newTestCatalog(t)
	ctx := context.Background()

	mustCreate(t, cat, catalog.ToIdentifier("db1.b"))
	mustCreate(t, cat, catalog.ToIdentifier("db1.a"))
	mustCreate(t, cat, catalog.ToIdentifier("db2.c"))

	all, err := cat.ListTables(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []catalog.Identifier{
		{"db1", "a"}, {"db1", "b"}, {"db2", "c"},
	}, all)

	db1, err := cat.ListTables(ctx, catalog.Identifier{"db1"})
	require.NoError(t, err)
	assert.Equal(t, []catalog.Identifier{{"db1", "a"}, {"db1", "b"}}, db1)
}

func TestPartitionLifecycle(t *testing.T) {
	cat := newTestCatalog(t)
	ctx := context.Background()
	ident := catalog.ToIdentifier("db.parted")

	mustCreate(t, cat, ident)

	part := catalog.Partition{Name: "ds=2026-08-01", Location: "file:///warehouse/parted/ds=2026-08-01"}
	require.NoError(t, cat.AddPartition(ctx, ident, part))

	assert.ErrorIs(t, cat.AddPartition(ctx, ident, part), catalog.ErrPartitionAlreadyExists)
	assert.ErrorIs(t,
		cat.AddPartition(ctx, ident, catalog.Partition{}),
		parqbridge.ErrInvalidArgument)
	assert.ErrorIs(t,
		cat.AddPartition(ctx, catalog.ToIdentifier("db.ghost"), part),
		catalog.ErrNoSuchTable)

	loaded, err := cat.LoadPartition(ctx, ident, part.Name)
	require.NoError(t, err)
	assert.Equal(t, part, *loaded)

	_, err = cat.LoadPartition(ctx, ident, "ds=1999-01-01")
	assert.ErrorIs(t, err, catalog.ErrNoSuchPartition)

	require.NoError(t, cat.AddPartition(ctx, ident, catalog.Partition{
		Name: "ds=2026-08-02", Location: "file:///warehouse/parted/ds=2026-08-02",
	}))

	parts, err := cat.ListPartitions(ctx, ident)
	require.NoError(t, err)
	require.Len(t, parts, 2)
	assert.Equal(t, "ds=2026-08-01", parts[0].Name)
	assert.Equal(t, "ds=2026-08-02", parts[1].Name)

	require.NoError(t, cat.DropPartition(ctx, ident, part.Name))
	assert.ErrorIs(t, cat.DropPartition(ctx, ident, part.Name), catalog.ErrNoSuchPartition)
}

func TestIdentifierHelpers(t *testing.T) {
	ident := catalog.ToIdentifier("a.b.c")
	assert.Equal(t, catalog.Identifier{"a", "b", "c"}, ident)
	assert.Equal(t, catalog.Identifier{"a", "b"}, catalog.NamespaceFromIdent(ident))
	assert.Equal(t, "c", catalog.TableNameFromIdent(ident))

	assert.Equal(t, catalog.Identifier{"x", "y"}, catalog.ToIdentifier("x", "y"))
}
