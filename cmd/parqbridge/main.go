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

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/docopt/docopt-go"

	"github.com/parqbridge/parqbridge"
	"github.com/parqbridge/parqbridge/catalog"
	_ "github.com/parqbridge/parqbridge/catalog/sql"
	"github.com/parqbridge/parqbridge/config"
	iceio "github.com/parqbridge/parqbridge/io"
	"github.com/parqbridge/parqbridge/manifest"
	"github.com/parqbridge/parqbridge/scan"
)

const usage = `parqbridge.

Usage:
  parqbridge list [options] [NAMESPACE]
  parqbridge describe [options] TABLE_ID
  parqbridge create [options] TABLE_ID SCHEMA
  parqbridge drop [options] TABLE_ID
  parqbridge rename [options] <from> <to>
  parqbridge partitions [options] TABLE_ID
  parqbridge add-partition [options] TABLE_ID NAME LOCATION
  parqbridge schema [options] FILE
  parqbridge scan [options] FILE...
  parqbridge manifest [options] FILE
  parqbridge -h | --help | --version

Commands:
  list           List the tables registered in the catalog.
  describe       Describe a table: location, schema and properties.
  create         Register a table with the given schema json.
  drop           Remove a table from the catalog.
  rename         Rename a table.
  partitions     List the partitions of a table.
  add-partition  Register a partition of a table.
  schema         Print the schema recorded in a data file's footer.
  scan           Read data files and print their rows.
  manifest       Print the contents of a job manifest.

Arguments:
  NAMESPACE   catalog namespace
  TABLE_ID    fully qualified table, e.g. db.tbl
  SCHEMA      table schema as json
  NAME        canonical partition string, e.g. "ds=2024-01-01"
  LOCATION    storage location URI
  FILE        path to a data or manifest file

Options:
  -h --help           show this help message and exit
  --catalog TEXT      name of the catalog section in the config file
  --type TEXT         catalog type [default: sql]
  --uri TEXT          catalog connection URI
  --warehouse TEXT    warehouse location for relative paths
  --config TEXT       path to the configuration file
  --output TYPE       output type (json/text) [default: text]
  --columns TEXT      comma-separated columns to read (scan only)
  --where TEXT        simple filter "column op value" (scan only)
  --limit N           stop after N rows (scan only)
  --no-pushdown       disable filter pushdown (scan only)
  --location TEXT     table location (create only)
  --properties TEXT   table properties in key=value,key=value form (create only)`

type cliConfig struct {
	List         bool `docopt:"list"`
	Describe     bool `docopt:"describe"`
	Create       bool `docopt:"create"`
	Drop         bool `docopt:"drop"`
	Rename       bool `docopt:"rename"`
	Partitions   bool `docopt:"partitions"`
	AddPartition bool `docopt:"add-partition"`
	Schema       bool `docopt:"schema"`
	Scan         bool `docopt:"scan"`
	Manifest     bool `docopt:"manifest"`

	RenameFrom string `docopt:"<from>"`
	RenameTo   string `docopt:"<to>"`

	Namespace string   `docopt:"NAMESPACE"`
	TableID   string   `docopt:"TABLE_ID"`
	SchemaStr string   `docopt:"SCHEMA"`
	PartName  string   `docopt:"NAME"`
	Location  string   `docopt:"LOCATION"`
	Files     []string `docopt:"FILE"`

	Catalog    string `docopt:"--catalog"`
	Type       string `docopt:"--type"`
	URI        string `docopt:"--uri"`
	Warehouse  string `docopt:"--warehouse"`
	Config     string `docopt:"--config"`
	Output     string `docopt:"--output"`
	Columns    string `docopt:"--columns"`
	Where      string `docopt:"--where"`
	Limit      string `docopt:"--limit"`
	NoPushdown bool   `docopt:"--no-pushdown"`
	TableLoc   string `docopt:"--location"`
	TableProps string `docopt:"--properties"`
}

func main() {
	ctx := context.Background()
	args, err := docopt.ParseArgs(usage, os.Args[1:], parqbridge.Version())
	if err != nil {
		log.Fatal(err)
	}

	cfg := cliConfig{}
	if err := args.Bind(&cfg); err != nil {
		log.Fatal(err)
	}

	fileCfg := config.ParseConfig(config.LoadConfig(cfg.Config), cfg.Catalog)
	if fileCfg != nil {
		mergeConf(fileCfg, &cfg)
	}

	var output Output
	switch strings.ToLower(cfg.Output) {
	case "text":
		output = textOutput{}
	case "json":
		output = jsonOutput{}
	default:
		log.Fatal("unimplemented output type")
	}

	switch {
	case cfg.Schema:
		printFileSchema(ctx, output, &cfg)
	case cfg.Scan:
		scanFiles(ctx, output, &cfg)
	case cfg.Manifest:
		printManifest(ctx, output, &cfg)
	default:
		runCatalogCmd(ctx, output, &cfg)
	}
}

func loadCatalog(ctx context.Context, output Output, cfg *cliConfig) catalog.Catalog {
	props := parqbridge.Properties{}
	if cfg.Type != "" {
		props["type"] = cfg.Type
	}
	if cfg.URI != "" {
		props["uri"] = cfg.URI
	}
	if cfg.Warehouse != "" {
		props["warehouse"] = cfg.Warehouse
	}

	cat, err := catalog.Load(ctx, cfg.Catalog, props)
	if err != nil {
		output.Error(err)
		os.Exit(1)
	}

	return cat
}

func runCatalogCmd(ctx context.Context, output Output, cfg *cliConfig) {
	cat := loadCatalog(ctx, output, cfg)

	fail := func(err error) {
		output.Error(err)
		os.Exit(1)
	}

	switch {
	case cfg.List:
		ids, err := cat.ListTables(ctx, catalog.ToIdentifier(cfg.Namespace))
		if err != nil {
			fail(err)
		}
		output.Identifiers(ids)
	case cfg.Describe:
		tbl, err := cat.LoadTable(ctx, catalog.ToIdentifier(cfg.TableID))
		if err != nil {
			fail(err)
		}
		output.DescribeTable(tbl)
	case cfg.Create:
		sc := new(parqbridge.Schema)
		if err := json.Unmarshal([]byte(cfg.SchemaStr), sc); err != nil {
			fail(fmt.Errorf("invalid schema json: %w", err))
		}

		props, err := parseProperties(cfg.TableProps)
		if err != nil {
			fail(err)
		}

		_, err = cat.CreateTable(ctx, catalog.ToIdentifier(cfg.TableID), sc, cfg.TableLoc, props)
		if err != nil {
			fail(fmt.Errorf("failed to create table: %w", err))
		}
		output.Text("Table " + cfg.TableID + " created successfully")
	case cfg.Drop:
		if err := cat.DropTable(ctx, catalog.ToIdentifier(cfg.TableID)); err != nil {
			fail(err)
		}
		output.Text("Dropped table " + cfg.TableID)
	case cfg.Rename:
		_, err := cat.RenameTable(ctx,
			catalog.ToIdentifier(cfg.RenameFrom), catalog.ToIdentifier(cfg.RenameTo))
		if err != nil {
			fail(err)
		}
		output.Text("Renamed table from " + cfg.RenameFrom + " to " + cfg.RenameTo)
	case cfg.Partitions:
		parts, err := cat.ListPartitions(ctx, catalog.ToIdentifier(cfg.TableID))
		if err != nil {
			fail(err)
		}
		output.Partitions(parts)
	case cfg.AddPartition:
		err := cat.AddPartition(ctx, catalog.ToIdentifier(cfg.TableID),
			catalog.Partition{Name: cfg.PartName, Location: cfg.Location})
		if err != nil {
			fail(err)
		}
		output.Text("Added partition " + cfg.PartName + " to " + cfg.TableID)
	}
}

func openIO(ctx context.Context, output Output, cfg *cliConfig, location string) iceio.IO {
	props := parqbridge.Properties{}
	if cfg.Warehouse != "" {
		props["warehouse"] = cfg.Warehouse
	}

	fs, err := iceio.LoadFS(ctx, props, location)
	if err != nil {
		output.Error(err)
		os.Exit(1)
	}

	return fs
}

func printFileSchema(ctx context.Context, output Output, cfg *cliConfig) {
	path := cfg.Files[0]
	fs := openIO(ctx, output, cfg, path)

	sc, err := scan.ResolveSchema(fs, path)
	if err != nil {
		output.Error(err)
		os.Exit(1)
	}
	if sc == nil {
		output.Text("empty file, no schema")

		return
	}

	output.Schema(sc)
}

func scanFiles(ctx context.Context, output Output, cfg *cliConfig) {
	fail := func(err error) {
		output.Error(err)
		os.Exit(1)
	}

	fs := openIO(ctx, output, cfg, cfg.Files[0])

	physical, err := scan.ResolveSchema(fs, cfg.Files[0])
	if err != nil {
		fail(err)
	}
	if physical == nil {
		output.Text("empty file, no rows")

		return
	}

	requested := physical
	if cfg.Columns != "" {
		requested, err = physical.Select(true, strings.Split(cfg.Columns, ",")...)
		if err != nil {
			fail(err)
		}
	}

	opts := []scan.Option{scan.WithPushdown(!cfg.NoPushdown)}
	if cfg.Where != "" {
		filter, err := parseFilter(cfg.Where)
		if err != nil {
			fail(err)
		}
		opts = append(opts, scan.WithFilter(filter))
	}

	scanner, err := scan.NewScanner(fs, requested, opts...)
	if err != nil {
		fail(err)
	}

	limit := int64(-1)
	if cfg.Limit != "" {
		if limit, err = strconv.ParseInt(cfg.Limit, 10, 64); err != nil {
			fail(fmt.Errorf("invalid --limit: %w", err))
		}
	}

	splits, err := scan.PlanSplits(fs, cfg.Files, scan.DefaultSplitSize)
	if err != nil {
		fail(err)
	}

	cols := make([]string, requested.NumFields())
	for i, f := range requested.Fields() {
		cols[i] = f.Name
	}

	var rows []parqbridge.Row
	for row, err := range scanner.Scan(ctx, splits...) {
		if err != nil {
			fail(err)
		}
		rows = append(rows, row)
		if limit >= 0 && int64(len(rows)) >= limit {
			break
		}
	}

	output.Rows(cols, rows)
}

func printManifest(ctx context.Context, output Output, cfg *cliConfig) {
	path := cfg.Files[0]
	fs := openIO(ctx, output, cfg, path)

	f, err := fs.Open(path)
	if err != nil {
		output.Error(err)
		os.Exit(1)
	}
	defer f.Close()

	m, err := manifest.Read(f)
	if err != nil {
		output.Error(err)
		os.Exit(1)
	}

	output.Manifest(m)
}

// parseFilter understands a single "column op value" clause, where op is one
// of =, !=, <, <=, >, >=, like, and value is a json scalar. "column is null"
// and "column is not null" are also accepted.
func parseFilter(s string) (parqbridge.BooleanExpression, error) {
	fields := strings.Fields(s)
	if len(fields) == 3 && strings.EqualFold(fields[1], "is") && strings.EqualFold(fields[2], "null") {
		return parqbridge.IsNull(parqbridge.Reference(fields[0])), nil
	}
	if len(fields) == 4 && strings.EqualFold(fields[1], "is") &&
		strings.EqualFold(fields[2], "not") && strings.EqualFold(fields[3], "null") {
		return parqbridge.NotNull(parqbridge.Reference(fields[0])), nil
	}

	if len(fields) != 3 {
		return nil, errors.New(`--where must be of the form "column op value"`)
	}

	ref := parqbridge.Reference(fields[0])

	var op parqbridge.Operation
	switch strings.ToLower(fields[1]) {
	case "=", "==":
		op = parqbridge.OpEQ
	case "!=", "<>":
		op = parqbridge.OpNEQ
	case "<":
		op = parqbridge.OpLT
	case "<=":
		op = parqbridge.OpLTEQ
	case ">":
		op = parqbridge.OpGT
	case ">=":
		op = parqbridge.OpGTEQ
	case "like":
		op = parqbridge.OpLike
	default:
		return nil, fmt.Errorf("unsupported filter operator %q", fields[1])
	}

	var val any
	if err := json.Unmarshal([]byte(fields[2]), &val); err != nil {
		// bare words are string literals
		val = fields[2]
	}

	switch v := val.(type) {
	case string:
		return parqbridge.NewPredicate(op, ref, parqbridge.NewLiteral(v)), nil
	case float64:
		if v == float64(int64(v)) {
			return parqbridge.NewPredicate(op, ref, parqbridge.NewLiteral(int64(v))), nil
		}

		return parqbridge.NewPredicate(op, ref, parqbridge.NewLiteral(v)), nil
	case bool:
		return parqbridge.NewPredicate(op, ref, parqbridge.NewLiteral(v)), nil
	default:
		return nil, fmt.Errorf("unsupported filter value %q", fields[2])
	}
}

func parseProperties(s string) (parqbridge.Properties, error) {
	if s == "" {
		return nil, nil
	}

	props := parqbridge.Properties{}
	for _, pair := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid property %q, expected key=value", pair)
		}
		props[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}

	return props, nil
}

func mergeConf(fileConf *config.CatalogConfig, resConfig *cliConfig) {
	if len(resConfig.Type) == 0 {
		resConfig.Type = fileConf.CatalogType
	}
	if len(resConfig.URI) == 0 {
		resConfig.URI = fileConf.URI
	}
	if len(resConfig.Warehouse) == 0 {
		resConfig.Warehouse = fileConf.Warehouse
	}
}
