package domain

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Condition of a product
type Condition string

const (
	ConditionNew         Condition = "new"
	ConditionUsed        Condition = "used"
	ConditionRefurbished Condition = "refurbished"
)

// ParseCondition accepts new, used or refurbished in any case. Empty means new.
func ParseCondition(raw string) (Condition, error) {
	switch c := Condition(strings.ToLower(strings.TrimSpace(raw))); c {
	case "":
		return ConditionNew, nil
	case ConditionNew, ConditionUsed, ConditionRefurbished:
		return c, nil
	default:
		return "", NewValidationError("condition", "must be one of new, used, refurbished", raw)
	}
}

var dimensionUnits = map[string]bool{"mm": true, "cm": true, "m": true, "in": true}

// Dimensions are the physical measurements of a product
type Dimensions struct {
	Length decimal.Decimal `json:"length"`
	Width  decimal.Decimal `json:"width"`
	Height decimal.Decimal `json:"height"`
	Unit   string          `json:"unit"`
}

func (d Dimensions) validate() (Dimensions, error) {
	measures := []struct {
		name  string
		value decimal.Decimal
	}{{"length", d.Length}, {"width", d.Width}, {"height", d.Height}}
	for _, m := range measures {
		if !m.value.IsPositive() {
			return d, NewValidationError("dimensions."+m.name, "must be greater than zero", m.value.String())
		}
	}
	unit := strings.ToLower(strings.TrimSpace(d.Unit))
	if unit == "" {
		unit = "cm"
	}
	if !dimensionUnits[unit] {
		return d, NewValidationError("dimensions.unit", "must be one of mm, cm, m, in", d.Unit)
	}
	d.Unit = unit
	return d, nil
}

// Image is a product picture. Images are kept sorted by Order.
type Image struct {
	URL    string `json:"url"`
	Alt    string `json:"alt"`
	IsMain bool   `json:"is_main"`
	Order  int    `json:"order"`
}

func normalizeImages(in []Image) ([]Image, error) {
	out := make([]Image, 0, len(in))
	mains := 0
	for i, img := range in {
		img.URL = strings.TrimSpace(img.URL)
		u, err := url.Parse(img.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, NewValidationError(fmt.Sprintf("images[%d].url", i), "must be an absolute http(s) URL", img.URL)
		}
		if img.Order < 0 {
			return nil, NewValidationError(fmt.Sprintf("images[%d].order", i), "must not be negative", img.Order)
		}
		if img.IsMain {
			mains++
		}
		img.Alt = strings.TrimSpace(img.Alt)
		out = append(out, img)
	}
	if mains > 1 {
		return nil, NewValidationError("images", "at most one image can be main", mains)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

// Attribute is a named product characteristic, unique by name within a product
type Attribute struct {
	Name          string `json:"name"`
	Value         string `json:"value"`
	DisplayValue  string `json:"display_value,omitempty"`
	IsHighlighted bool   `json:"is_highlighted"`
	GroupName     string `json:"group_name,omitempty"`
}

func normalizeAttributes(in []Attribute) ([]Attribute, error) {
	out := make([]Attribute, 0, len(in))
	seen := make(map[string]bool, len(in))
	for i, a := range in {
		a.Name = strings.TrimSpace(a.Name)
		if a.Name == "" {
			return nil, NewValidationError(fmt.Sprintf("attributes[%d].name", i), "must not be empty", a.Name)
		}
		key := strings.ToLower(a.Name)
		if seen[key] {
			return nil, NewValidationError(fmt.Sprintf("attributes[%d].name", i), "duplicate attribute name", a.Name)
		}
		seen[key] = true
		a.Value = strings.TrimSpace(a.Value)
		a.DisplayValue = strings.TrimSpace(a.DisplayValue)
		if a.DisplayValue == "" {
			a.DisplayValue = a.Value
		}
		a.GroupName = strings.TrimSpace(a.GroupName)
		out = append(out, a)
	}
	return out, nil
}

// Variant is a purchasable option of a product (size, colour...)
type Variant struct {
	ID             uuid.UUID         `json:"id"`
	SKU            SKU               `json:"sku"`
	Name           string            `json:"name"`
	Price          decimal.Decimal   `json:"price"`
	CompareAtPrice *decimal.Decimal  `json:"compare_at_price,omitempty"`
	Stock          int               `json:"stock"`
	IsAvailable    bool              `json:"is_available"`
	Attributes     map[string]string `json:"attributes,omitempty"`
}

func (v Variant) clone() Variant {
	if v.CompareAtPrice != nil {
		c := *v.CompareAtPrice
		v.CompareAtPrice = &c
	}
	if v.Attributes != nil {
		attrs := make(map[string]string, len(v.Attributes))
		for k, val := range v.Attributes {
			attrs[k] = val
		}
		v.Attributes = attrs
	}
	return v
}

func normalizeVariants(in []Variant) ([]Variant, error) {
	out := make([]Variant, 0, len(in))
	skus := make(map[SKU]bool, len(in))
	for i, v := range in {
		field := func(name string) string { return fmt.Sprintf("variants[%d].%s", i, name) }

		v = v.clone()
		v.Name = strings.TrimSpace(v.Name)
		if v.Name == "" {
			return nil, NewValidationError(field("name"), "must not be empty", v.Name)
		}
		sku, err := ParseSKU(string(v.SKU))
		if err != nil {
			return nil, NewValidationError(field("sku"), "invalid sku", string(v.SKU))
		}
		if sku != "" {
			if skus[sku] {
				return nil, NewValidationError(field("sku"), "duplicate variant sku", string(sku))
			}
			skus[sku] = true
		}
		v.SKU = sku
		if err := checkAmount(field("price"), v.Price); err != nil {
			return nil, err
		}
		if err := checkCompareAtPrice(field("compare_at_price"), v.Price, v.CompareAtPrice); err != nil {
			return nil, err
		}
		if err := checkStock(field("stock"), v.Stock); err != nil {
			return nil, err
		}
		if v.ID == uuid.Nil {
			v.ID = uuid.New()
		}
		out = append(out, v)
	}
	return out, nil
}

// normalizeTags lower-cases, trims and de-duplicates tags keeping first occurrence order
func normalizeTags(in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for i, t := range in {
		tag := strings.ToLower(strings.TrimSpace(t))
		if tag == "" {
			return nil, NewValidationError(fmt.Sprintf("tags[%d]", i), "must not be empty", t)
		}
		if len(tag) > 50 {
			return nil, NewValidationError(fmt.Sprintf("tags[%d]", i), "must be at most 50 characters", t)
		}
		if seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out, nil
}

func normalizeFeatures(in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for i, f := range in {
		feature := strings.TrimSpace(f)
		if feature == "" {
			return nil, NewValidationError(fmt.Sprintf("highlighted_features[%d]", i), "must not be empty", f)
		}
		if seen[feature] {
			continue
		}
		seen[feature] = true
		out = append(out, feature)
	}
	return out, nil
}

func dedupeIDs(in []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(in))
	seen := make(map[uuid.UUID]bool, len(in))
	for _, id := range in {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
