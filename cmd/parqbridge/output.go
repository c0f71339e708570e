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
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"

	"github.com/parqbridge/parqbridge"
	"github.com/parqbridge/parqbridge/catalog"
	"github.com/parqbridge/parqbridge/manifest"
)

type Output interface {
	Identifiers([]catalog.Identifier)
	DescribeTable(*catalog.Table)
	Partitions([]catalog.Partition)
	Schema(*parqbridge.Schema)
	Rows(cols []string, rows []parqbridge.Row)
	Manifest(*manifest.Manifest)
	Text(string)
	Error(error)
}

type textOutput struct{}

func (textOutput) Identifiers(idlist []catalog.Identifier) {
	data := pterm.TableData{[]string{"IDs"}}
	for _, ids := range idlist {
		data = append(data, []string{strings.Join(ids, ".")})
	}

	pterm.DefaultTable.
		WithBoxed(true).
		WithHasHeader(true).
		WithHeaderRowSeparator("-").
		WithData(data).Render()
}

func (t textOutput) DescribeTable(tbl *catalog.Table) {
	pterm.DefaultTable.
		WithData(pterm.TableData{
			{"Table", strings.Join(tbl.Ident, ".")},
			{"Location", tbl.Location},
		}).Render()

	if tbl.Schema != nil {
		t.Schema(tbl.Schema)
	}

	propData := pterm.TableData{{"key", "value"}}
	for k, v := range tbl.Properties {
		propData = append(propData, []string{k, v})
	}
	pterm.Println("Properties")
	pterm.DefaultTable.
		WithHasHeader(true).
		WithHeaderRowSeparator("-").
		WithData(propData).Render()
}

func (textOutput) Partitions(parts []catalog.Partition) {
	data := pterm.TableData{{"Partition", "Location"}}
	for _, p := range parts {
		data = append(data, []string{p.Name, p.Location})
	}

	pterm.DefaultTable.
		WithBoxed(true).
		WithHasHeader(true).
		WithHeaderRowSeparator("-").
		WithData(data).Render()
}

func (textOutput) Schema(schema *parqbridge.Schema) {
	schemaTree := pterm.LeveledList{}
	var addChildren func(parqbridge.NestedField, int)
	addChildren = func(nf parqbridge.NestedField, depth int) {
		if nested, ok := nf.Type.(parqbridge.NestedType); ok {
			for _, n := range nested.Fields() {
				schemaTree = append(schemaTree, pterm.LeveledListItem{
					Level: depth, Text: n.String(),
				})
				addChildren(n, depth+1)
			}
		}
	}

	for _, f := range schema.Fields() {
		schemaTree = append(schemaTree, pterm.LeveledListItem{
			Level: 0, Text: f.String(),
		})
		addChildren(f, 1)
	}
	schemaTreeNode := putils.TreeFromLeveledList(schemaTree)
	schemaTreeNode.Text = "Schema"
	pterm.DefaultTree.WithRoot(schemaTreeNode).Render()
}

func (textOutput) Rows(cols []string, rows []parqbridge.Row) {
	data := pterm.TableData{cols}
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = formatValue(v)
		}
		data = append(data, cells)
	}

	pterm.DefaultTable.
		WithBoxed(true).
		WithHasHeader(true).
		WithHeaderRowSeparator("-").
		WithData(data).Render()
	pterm.Println(strconv.Itoa(len(rows)) + " rows")
}

func (textOutput) Manifest(m *manifest.Manifest) {
	tree := pterm.LeveledList{}
	for _, f := range m.Files {
		tree = append(tree, pterm.LeveledListItem{
			Level: 0,
			Text: fmt.Sprintf("%s: %d rows, %d bytes",
				f.Path, f.RecordCount, f.FileSizeBytes),
		})
		if f.Partition != "" {
			tree = append(tree, pterm.LeveledListItem{
				Level: 1, Text: "Partition: " + f.Partition,
			})
		}
	}

	node := putils.TreeFromLeveledList(tree)
	node.Text = "Manifest: job " + m.JobID.String()
	pterm.DefaultTree.WithRoot(node).Render()
}

func (textOutput) Text(val string) {
	fmt.Println(val)
}

func (textOutput) Error(err error) {
	log.Fatal(err)
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return fmt.Sprintf("0x%x", val)
	case parqbridge.Decimal:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}

type jsonOutput struct{}

func (jsonOutput) dump(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Fatal(err)
	}
}

func (j jsonOutput) Identifiers(idlist []catalog.Identifier) {
	names := make([]string, len(idlist))
	for i, ids := range idlist {
		names[i] = strings.Join(ids, ".")
	}
	j.dump(struct {
		Identifiers []string `json:"identifiers"`
	}{names})
}

func (j jsonOutput) DescribeTable(tbl *catalog.Table) { j.dump(tbl) }

func (j jsonOutput) Partitions(parts []catalog.Partition) {
	j.dump(struct {
		Partitions []catalog.Partition `json:"partitions"`
	}{parts})
}

func (j jsonOutput) Schema(schema *parqbridge.Schema) { j.dump(schema) }

func (j jsonOutput) Rows(cols []string, rows []parqbridge.Row) {
	out := make([]map[string]any, len(rows))
	for i, row := range rows {
		rec := make(map[string]any, len(cols))
		for c, name := range cols {
			rec[name] = row[c]
		}
		out[i] = rec
	}
	j.dump(out)
}

func (j jsonOutput) Manifest(m *manifest.Manifest) { j.dump(m) }

func (jsonOutput) Text(val string) {
	fmt.Println(val)
}

func (jsonOutput) Error(err error) {
	log.Fatal(err)
}
