package catalog

import (
	_ "embed"
	"fmt"
	"net/url"
	"strings"

	"github.com/yeremiapane/restaurant-booking/utils"
	"gopkg.in/yaml.v3"
)

//go:embed menu.yaml
var defaultMenu []byte

type Dish struct {
	ID          string  `yaml:"id" json:"id"`
	Name        string  `yaml:"name" json:"name"`
	Category    string  `yaml:"category" json:"category"`
	Price       float64 `yaml:"price" json:"price"`
	PriceLabel  string  `yaml:"-" json:"price_label"`
	Description string  `yaml:"description" json:"description"`
	Image       string  `yaml:"image" json:"image"`
}

type Catalog struct {
	categories []string
	dishes     []Dish
}

type document struct {
	Categories []string `yaml:"categories"`
	Dishes     []Dish   `yaml:"dishes"`
}

// Default returns the embedded menu.
func Default() (*Catalog, error) {
	return Parse(defaultMenu)
}

// Parse reads a YAML menu. Every dish must name a declared category.
func Parse(raw []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse menu: %w", err)
	}

	known := make(map[string]bool, len(doc.Categories))
	for _, c := range doc.Categories {
		known[c] = true
	}
	seen := make(map[string]bool, len(doc.Dishes))
	for i := range doc.Dishes {
		d := &doc.Dishes[i]
		if d.ID == "" || d.Name == "" {
			return nil, fmt.Errorf("menu dish %d: id and name are required", i)
		}
		if seen[d.ID] {
			return nil, fmt.Errorf("menu dish %q: duplicate id", d.ID)
		}
		seen[d.ID] = true
		if !known[d.Category] {
			return nil, fmt.Errorf("menu dish %q: unknown category %q", d.ID, d.Category)
		}
		if d.Price <= 0 {
			return nil, fmt.Errorf("menu dish %q: price must be positive", d.ID)
		}
		d.PriceLabel = utils.FormatPrice(d.Price)
		if d.Image == "" {
			d.Image = "https://picsum.photos/seed/" + url.PathEscape(d.Name) + "/400/300"
		}
	}
	return &Catalog{categories: doc.Categories, dishes: doc.Dishes}, nil
}

func (c *Catalog) Categories() []string {
	out := make([]string, len(c.categories))
	copy(out, c.categories)
	return out
}

// Filter returns dishes in category (empty or "All" for every category)
// whose name or description contains search, ignoring case.
func (c *Catalog) Filter(category, search string) []Dish {
	category = strings.TrimSpace(category)
	search = strings.ToLower(strings.TrimSpace(search))

	out := make([]Dish, 0, len(c.dishes))
	for _, d := range c.dishes {
		if category != "" && !strings.EqualFold(category, "all") && !strings.EqualFold(d.Category, category) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(d.Name), search) &&
			!strings.Contains(strings.ToLower(d.Description), search) {
			continue
		}
		out = append(out, d)
	}
	return out
}

func (c *Catalog) Get(id string) (Dish, bool) {
	for _, d := range c.dishes {
		if d.ID == id {
			return d, true
		}
	}
	return Dish{}, false
}
