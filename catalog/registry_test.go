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

package catalog_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parqbridge/parqbridge"
	"github.com/parqbridge/parqbridge/catalog"
)

type stubCatalog struct {
	catalog.Catalog

	name  string
	props parqbridge.Properties
}

func (s *stubCatalog) CatalogType() catalog.Type { return "stub" }

func TestRegisterAndLoad(t *testing.T) {
	catalog.Register("stub", catalog.RegistrarFunc(
		func(ctx context.Context, name string, props parqbridge.Properties) (catalog.Catalog, error) {
			return &stubCatalog{name: name, props: props}, nil
		}))
	defer catalog.Unregister("stub")

	assert.Contains(t, catalog.GetRegisteredCatalogs(), "stub")

	cat, err := catalog.Load(context.Background(), "local",
		parqbridge.Properties{"type": "stub", "warehouse": "file:///tmp/wh"})
	require.NoError(t, err)

	stub := cat.(*stubCatalog)
	assert.Equal(t, "local", stub.name)
	assert.Equal(t, "file:///tmp/wh", stub.props["warehouse"])
}

func TestLoadTypeFromURIScheme(t *testing.T) {
	catalog.Register("stub", catalog.RegistrarFunc(
		func(ctx context.Context, name string, props parqbridge.Properties) (catalog.Catalog, error) {
			return &stubCatalog{name: name, props: props}, nil
		}))
	defer catalog.Unregister("stub")

	cat, err := catalog.Load(context.Background(), "local",
		parqbridge.Properties{"uri": "stub://somewhere"})
	require.NoError(t, err)
	assert.Equal(t, catalog.Type("stub"), cat.CatalogType())
}

func TestLoadUnknownType(t *testing.T) {
	_, err := catalog.Load(context.Background(), "nope",
		parqbridge.Properties{"type": "does-not-exist"})
	assert.ErrorIs(t, err, catalog.ErrCatalogNotFound)
}

func TestUnregister(t *testing.T) {
	catalog.Register("temp", catalog.RegistrarFunc(
		func(ctx context.Context, name string, props parqbridge.Properties) (catalog.Catalog, error) {
			return &stubCatalog{}, nil
		}))
	catalog.Unregister("temp")
	assert.NotContains(t, catalog.GetRegisteredCatalogs(), "temp")
}
