// Package catalog provides the in-memory product catalog implementation.
//
// The catalog is read-only after construction: it is either seeded with the
// built-in default product set or loaded once at startup from a JSON file
// (optionally gzip-compressed).
package catalog

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/xenking/quantum-store/internal/domain/product"
)

var _ product.Repository = (*Catalog)(nil)

// Catalog is an immutable in-memory product repository.
type Catalog struct {
	byID map[string]product.Product
	ids  []string // preserves insertion order for List
}

// New builds a Catalog from the given products. Later duplicates of an ID
// overwrite earlier ones.
func New(products []product.Product) *Catalog {
	c := &Catalog{
		byID: make(map[string]product.Product, len(products)),
		ids:  make([]string, 0, len(products)),
	}
	for _, p := range products {
		if _, ok := c.byID[p.ID]; !ok {
			c.ids = append(c.ids, p.ID)
		}
		c.byID[p.ID] = p
	}
	return c
}

// Default returns the built-in product set.
func Default() *Catalog {
	return New([]product.Product{
		{ID: "item_001", Name: "Quantum T-Shirt", Price: decimal.RequireFromString("19.99")},
		{ID: "item_002", Name: "Flux Capacitor Mug", Price: decimal.RequireFromString("15.49")},
		{ID: "item_003", Name: "Singularity Snapback", Price: decimal.RequireFromString("24.99")},
		{ID: "item_004", Name: "Code Weaver Hoodie", Price: decimal.RequireFromString("49.99")},
	})
}

// Load reads a catalog file and builds a Catalog from it. Files with a .gz
// suffix are transparently decompressed. The expected format is a JSON array
// of objects with "id", "name" and "price" fields; price may be a number or
// a numeric string.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open catalog file")
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "open gzip reader")
		}
		defer gz.Close()
		r = gz
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read catalog file")
	}

	products, err := parseProducts(data)
	if err != nil {
		return nil, errors.Wrap(err, "parse catalog file")
	}
	if len(products) == 0 {
		return nil, errors.New("catalog file contains no products")
	}
	return New(products), nil
}

func parseProducts(data []byte) ([]product.Product, error) {
	var products []product.Product

	d := jx.DecodeBytes(data)
	err := d.Arr(func(d *jx.Decoder) error {
		var p product.Product
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			switch key {
			case "id":
				v, err := d.Str()
				p.ID = v
				return err
			case "name":
				v, err := d.Str()
				p.Name = v
				return err
			case "price":
				n, err := d.Num()
				if err != nil {
					return err
				}
				price, err := decimal.NewFromString(strings.Trim(n.String(), `"`))
				if err != nil {
					return errors.Wrap(err, "parse price")
				}
				p.Price = price
				return nil
			default:
				return d.Skip()
			}
		}); err != nil {
			return err
		}

		if p.ID == "" {
			return errors.New("product id is required")
		}
		if p.Price.IsNegative() {
			return errors.Errorf("product %s has negative price %s", p.ID, p.Price)
		}
		products = append(products, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return products, nil
}

// List returns all products in catalog order.
func (c *Catalog) List(_ context.Context) ([]product.Product, error) {
	out := make([]product.Product, 0, len(c.ids))
	for _, id := range c.ids {
		out = append(out, c.byID[id])
	}
	return out, nil
}

// GetByID returns a single product by its identifier.
// Returns product.ErrNotFound when the catalog has no such item.
func (c *Catalog) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := c.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}
