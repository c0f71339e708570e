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

// Package catalog defines the metadata store the bridge consults to turn a
// table name into a storage location. The catalog holds only identity and
// location; schemas are resolved from file footers, so the schema recorded
// here is advisory and may lag the data.
package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/parqbridge/parqbridge"
)

type Type string

const (
	SQL Type = "sql"
)

var (
	// ErrNoSuchTable is returned when a table does not exist in the catalog.
	ErrNoSuchTable = errors.New("table does not exist")
	// ErrNoSuchNamespace is returned when a namespace does not exist.
	ErrNoSuchNamespace = errors.New("namespace does not exist")
	// ErrNoSuchPartition is returned when a partition does not exist.
	ErrNoSuchPartition = errors.New("partition does not exist")
	// ErrTableAlreadyExists is returned by CreateTable for a taken identifier.
	ErrTableAlreadyExists = errors.New("table already exists")
	// ErrPartitionAlreadyExists is returned by AddPartition for a taken name.
	ErrPartitionAlreadyExists = errors.New("partition already exists")
	// ErrCatalogNotFound is returned by Load for an unregistered catalog type.
	ErrCatalogNotFound = errors.New("catalog type not registered")
)

// Identifier is the namespace path of a table, ending in the table name.
type Identifier = []string

// Table is a catalog entry: where a table lives and the schema it was
// registered with.
type Table struct {
	Ident      Identifier
	Location   string
	Schema     *parqbridge.Schema
	Properties parqbridge.Properties
}

// Partition is one named slice of a table, stored at its own location
// beneath (or outside of) the table root.
type Partition struct {
	// Name is the canonical partition spec string, e.g. "ds=2024-01-01/hr=10".
	Name     string
	Location string
}

// Catalog is the metadata store interface. Implementations must be safe for
// concurrent use.
type Catalog interface {
	CatalogType() Type

	CreateTable(ctx context.Context, ident Identifier, schema *parqbridge.Schema, location string, props parqbridge.Properties) (*Table, error)
	LoadTable(ctx context.Context, ident Identifier) (*Table, error)
	TableExists(ctx context.Context, ident Identifier) (bool, error)
	RenameTable(ctx context.Context, from, to Identifier) (*Table, error)
	DropTable(ctx context.Context, ident Identifier) error
	ListTables(ctx context.Context, namespace Identifier) ([]Identifier, error)

	AddPartition(ctx context.Context, ident Identifier, part Partition) error
	LoadPartition(ctx context.Context, ident Identifier, name string) (*Partition, error)
	ListPartitions(ctx context.Context, ident Identifier) ([]Partition, error)
	DropPartition(ctx context.Context, ident Identifier, name string) error
}

// ToIdentifier splits a dotted name like "db.tbl" into an Identifier.
func ToIdentifier(ident ...string) Identifier {
	if len(ident) == 1 {
		return strings.Split(ident[0], ".")
	}

	return ident
}

// NamespaceFromIdent returns everything but the final element.
func NamespaceFromIdent(ident Identifier) Identifier {
	return ident[:len(ident)-1]
}

// TableNameFromIdent returns the final element, or "" for an empty identifier.
func TableNameFromIdent(ident Identifier) string {
	if len(ident) == 0 {
		return ""
	}

	return ident[len(ident)-1]
}
