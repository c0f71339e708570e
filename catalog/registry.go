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

package catalog

import (
	"context"
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/parqbridge/parqbridge"
	"github.com/parqbridge/parqbridge/config"
)

type registry map[string]Registrar

func (r registry) getKeys() []string {
	regMutex.Lock()
	defer regMutex.Unlock()

	return slices.Collect(maps.Keys(r))
}

func (r registry) set(catalogType string, reg Registrar) {
	regMutex.Lock()
	defer regMutex.Unlock()
	r[catalogType] = reg
}

func (r registry) get(catalogType string) (Registrar, bool) {
	regMutex.Lock()
	defer regMutex.Unlock()
	reg, ok := r[catalogType]

	return reg, ok
}

func (r registry) remove(catalogType string) {
	regMutex.Lock()
	defer regMutex.Unlock()
	delete(r, catalogType)
}

var (
	regMutex        sync.Mutex
	defaultRegistry = registry{}
)

// Registrar is a factory for creating Catalog instances, used for
// registering to use with Load.
type Registrar interface {
	GetCatalog(ctx context.Context, catalogName string, props parqbridge.Properties) (Catalog, error)
}

type RegistrarFunc func(context.Context, string, parqbridge.Properties) (Catalog, error)

func (f RegistrarFunc) GetCatalog(ctx context.Context, catalogName string, props parqbridge.Properties) (Catalog, error) {
	return f(ctx, catalogName, props)
}

// Register adds the catalog type to the registry, replacing any previous
// registration for the same type.
func Register(catalogType string, reg Registrar) {
	if reg == nil {
		panic("catalog: Register catalog factory is nil")
	}
	defaultRegistry.set(catalogType, reg)
}

// Unregister removes the requested catalog factory from the registry.
func Unregister(catalogType string) {
	defaultRegistry.remove(catalogType)
}

// GetRegisteredCatalogs returns the list of registered catalog types that
// can be looked up via Load.
func GetRegisteredCatalogs() []string {
	return defaultRegistry.getKeys()
}

// Load resolves a catalog by name. The name selects a catalog section of the
// configuration file, if one was loaded; properties passed here take
// priority over the configured ones. The catalog type comes from the "type"
// property, falling back to the scheme of the "uri" property.
func Load(ctx context.Context, name string, props parqbridge.Properties) (Catalog, error) {
	if name == "" {
		name = config.EnvConfig.DefaultCatalog
	}

	conf := config.EnvConfig.Catalogs[name]
	if props == nil {
		props = parqbridge.Properties{
			"uri":       conf.URI,
			"warehouse": conf.Warehouse,
		}
	} else {
		props["uri"] = props.Get("uri", conf.URI)
		props["warehouse"] = props.Get("warehouse", conf.Warehouse)
	}

	catalogType := props.Get("type", conf.CatalogType)
	if catalogType == "" {
		if strings.Contains(props["uri"], "://") {
			uri, err := url.Parse(props["uri"])
			if err != nil {
				return nil, fmt.Errorf("failed to parse catalog URI: %w", err)
			}
			catalogType = uri.Scheme
		}
	}

	cat, ok := defaultRegistry.get(catalogType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCatalogNotFound, catalogType)
	}

	return cat.GetCatalog(ctx, name, props)
}
