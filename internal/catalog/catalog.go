/*
 * Copyright (c) 2025 by TRYAM193 and the Design Studio contributors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package catalog maps product ids and surfaces to their canonical print areas.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/TRYAM193/design-studio-sub000/internal/design"
)

// DefaultPrintArea is used when a product or surface is not in the catalog.
var DefaultPrintArea = design.Size{Width: 4500, Height: 5400}

//go:embed products.yaml
var builtin []byte

// Product is one catalog entry.
type Product struct {
	ID       string                 `yaml:"id"`
	Name     string                 `yaml:"name"`
	Surfaces map[string]design.Size `yaml:"surfaces"`
}

// Catalog is an immutable product lookup.
type Catalog struct {
	products map[string]Product
}

type file struct {
	Products []Product `yaml:"products"`
}

// Parse reads a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("catalog: parse: %w", err)
	}
	c := &Catalog{products: make(map[string]Product, len(f.Products))}
	for _, p := range f.Products {
		if strings.TrimSpace(p.ID) == "" {
			return nil, fmt.Errorf("catalog: product without id")
		}
		if _, dup := c.products[p.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate product %q", p.ID)
		}
		for name, sz := range p.Surfaces {
			if !sz.Valid() {
				return nil, fmt.Errorf("catalog: product %q surface %q has invalid print area %vx%v", p.ID, name, sz.Width, sz.Height)
			}
		}
		c.products[p.ID] = p
	}
	return c, nil
}

// Load reads the catalog at path; an empty path returns the built-in catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Builtin(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Parse(b)
}

// Builtin returns the catalog shipped with the binary.
func Builtin() *Catalog {
	c, err := Parse(builtin)
	if err != nil {
		panic(err)
	}
	return c
}

// Product returns the entry for id.
func (c *Catalog) Product(id string) (Product, bool) {
	if c == nil {
		return Product{}, false
	}
	p, ok := c.products[id]
	return p, ok
}

// IDs lists all product ids in sorted order.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.products))
	for id := range c.products {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Lookup returns the print area of a product surface.
func (c *Catalog) Lookup(productID, surface string) (design.Size, bool) {
	p, ok := c.Product(productID)
	if !ok {
		return design.Size{}, false
	}
	sz, ok := p.Surfaces[surface]
	return sz, ok
}

// PrintArea resolves the print area for a product surface, falling back to
// the product's front surface and then to def.
func (c *Catalog) PrintArea(productID, surface string, def design.Size) design.Size {
	if sz, ok := c.Lookup(productID, surface); ok {
		return sz
	}
	if sz, ok := c.Lookup(productID, design.DefaultSurface); ok {
		return sz
	}
	if !def.Valid() {
		return DefaultPrintArea
	}
	return def
}
