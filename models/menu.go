package models

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Category string

const (
	CategoryAppetizer Category = "appetizer"
	CategoryMain      Category = "main"
	CategorySide      Category = "side"
	CategorySoup      Category = "soup"
	CategorySalad     Category = "salad"
	CategoryDessert   Category = "dessert"
	CategoryBeverage  Category = "beverage"
)

var Categories = []Category{
	CategoryAppetizer, CategoryMain, CategorySide, CategorySoup,
	CategorySalad, CategoryDessert, CategoryBeverage,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Country is the cuisine a dish comes from
type Country string

const (
	CountryItaly    Country = "italy"
	CountryMexico   Country = "mexico"
	CountryJapan    Country = "japan"
	CountryIndia    Country = "india"
	CountryChina    Country = "china"
	CountryThailand Country = "thailand"
	CountryFrance   Country = "france"
	CountryUSA      Country = "usa"
	CountryOther    Country = "other"
)

var Countries = []Country{
	CountryItaly, CountryMexico, CountryJapan, CountryIndia, CountryChina,
	CountryThailand, CountryFrance, CountryUSA, CountryOther,
}

func (c Country) Valid() bool {
	for _, known := range Countries {
		if c == known {
			return true
		}
	}
	return false
}

const (
	MaxSpicyLevel        = 5
	MinDescriptionLength = 10
	MaxDescriptionLength = 500
)

type MenuItem struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name        string    `json:"name" gorm:"not null;index"`
	Description string    `json:"description" gorm:"not null"`
	Price       float64   `json:"price" gorm:"not null"`
	Category    Category  `json:"category" gorm:"not null;index"`
	Country     Country   `json:"country" gorm:"not null;index"`
	SpicyLevel  int       `json:"spicy_level" gorm:"not null"`
	Ingredients []string  `json:"ingredients" gorm:"serializer:json"`
	ImageURL    string    `json:"image_url,omitempty"`
	IsAvailable bool      `json:"is_available" gorm:"not null;index"`
	Featured    bool      `json:"featured" gorm:"not null"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewMenuItem assigns an id and normalizes ingredients. New items are available.
func NewMenuItem(item MenuItem) *MenuItem {
	item.ID = uuid.NewString()
	item.Name = strings.TrimSpace(item.Name)
	item.Description = strings.TrimSpace(item.Description)
	item.Ingredients = NormalizeIngredients(item.Ingredients)
	item.IsAvailable = true
	return &item
}

// NormalizeIngredients trims, drops empties and deduplicates case-insensitively,
// keeping the first spelling seen. Output is sorted for stable storage.
func NormalizeIngredients(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, raw := range in {
		v := strings.TrimSpace(raw)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i]) < strings.ToLower(out[j]) })
	return out
}
