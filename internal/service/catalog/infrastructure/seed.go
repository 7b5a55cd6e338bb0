package infrastructure

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"globalbooks/internal/service/catalog/domain"
)

type seedFile struct {
	Products []seedProduct `yaml:"products"`
}

type seedProduct struct {
	ID       string `yaml:"id"`
	Title    string `yaml:"title"`
	Author   string `yaml:"author"`
	Category string `yaml:"category"`
	// Price is a decimal string; omit it for a product without a price.
	Price     *string `yaml:"price"`
	Available int     `yaml:"available"`
	Reserved  int     `yaml:"reserved"`
}

// LoadSeedFile reads products from a YAML seed file.
func LoadSeedFile(path string) ([]domain.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open seed file %s", path)
	}
	defer f.Close()
	return ParseSeed(f)
}

func ParseSeed(r io.Reader) ([]domain.Product, error) {
	var file seedFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "decode seed")
	}

	products := make([]domain.Product, 0, len(file.Products))
	seen := make(map[string]struct{}, len(file.Products))
	for i, sp := range file.Products {
		if _, dup := seen[sp.ID]; dup {
			return nil, errors.Errorf("seed product %d: duplicate id %q", i, sp.ID)
		}
		seen[sp.ID] = struct{}{}

		p := domain.Product{
			ID:                sp.ID,
			Title:             sp.Title,
			Author:            sp.Author,
			Category:          sp.Category,
			AvailableQuantity: sp.Available,
			ReservedQuantity:  sp.Reserved,
		}
		if sp.Price != nil {
			price, err := decimal.NewFromString(*sp.Price)
			if err != nil {
				return nil, errors.Wrapf(err, "seed product %q: price", sp.ID)
			}
			p.Price = decimal.NewNullDecimal(price)
		}
		if err := p.Validate(); err != nil {
			return nil, errors.Wrapf(err, "seed product %d", i)
		}
		products = append(products, p)
	}
	return products, nil
}
