package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"restaurant-ordering-api/apperrors"
	"restaurant-ordering-api/models"

	"gorm.io/gorm"
)

// MenuFilter holds the optional listing filters. Nil fields are ignored.
type MenuFilter struct {
	Category           string
	Country            string
	MinPrice           *float64
	MaxPrice           *float64
	SpicyLevel         *int
	Search             string
	Featured           *bool
	IncludeUnavailable bool
}

// MenuItemInput carries create and update payloads. On update only non-nil
// fields change.
type MenuItemInput struct {
	Name        *string
	Description *string
	Price       *float64
	Category    *models.Category
	Country     *models.Country
	SpicyLevel  *int
	Ingredients []string
	ImageURL    *string
	Featured    *bool
}

type CatalogService struct {
	db *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

func (s *CatalogService) List(ctx context.Context, f MenuFilter) ([]models.MenuItem, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}
	q := s.db.WithContext(ctx).Order("category asc, name asc")
	if !f.IncludeUnavailable {
		q = q.Where("is_available = ?", true)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Country != "" {
		q = q.Where("country = ?", f.Country)
	}
	if f.MinPrice != nil {
		q = q.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("price <= ?", *f.MaxPrice)
	}
	if f.SpicyLevel != nil {
		q = q.Where("spicy_level = ?", *f.SpicyLevel)
	}
	if f.Featured != nil {
		q = q.Where("featured = ?", *f.Featured)
	}
	if term := strings.ToLower(strings.TrimSpace(f.Search)); term != "" {
		like := "%" + term + "%"
		q = q.Where("(LOWER(name) LIKE ? OR LOWER(description) LIKE ?)", like, like)
	}
	var items []models.MenuItem
	if err := q.Find(&items).Error; err != nil {
		return nil, apperrors.Internal("list menu", err)
	}
	return items, nil
}

func (f MenuFilter) validate() error {
	var fields fieldErrors
	if f.Category != "" && !models.Category(f.Category).Valid() {
		fields.add("category", "is not a known category")
	}
	if f.Country != "" && !models.Country(f.Country).Valid() {
		fields.add("country", "is not a known country")
	}
	if f.MinPrice != nil && *f.MinPrice < 0 {
		fields.add("minPrice", "cannot be negative")
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		fields.add("maxPrice", "must not be below minPrice")
	}
	if f.SpicyLevel != nil && (*f.SpicyLevel < 0 || *f.SpicyLevel > models.MaxSpicyLevel) {
		fields.add("spicyLevel", "must be between 0 and 5")
	}
	return fields.err()
}

func (s *CatalogService) Get(ctx context.Context, id string) (*models.MenuItem, error) {
	var item models.MenuItem
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("Menu item not found")
	}
	if err != nil {
		return nil, apperrors.Internal("load menu item", err)
	}
	return &item, nil
}

func (s *CatalogService) Create(ctx context.Context, in MenuItemInput) (*models.MenuItem, error) {
	var fields fieldErrors
	if in.Name == nil {
		fields.add("name", "is required")
	}
	if in.Description == nil {
		fields.add("description", "is required")
	}
	if in.Price == nil {
		fields.add("price", "is required")
	}
	if in.Category == nil {
		fields.add("category", "is required")
	}
	if in.Country == nil {
		fields.add("country", "is required")
	}
	fields = append(fields, in.check()...)
	if err := fields.err(); err != nil {
		return nil, err
	}

	item := models.MenuItem{
		Name:        *in.Name,
		Description: *in.Description,
		Price:       *in.Price,
		Category:    *in.Category,
		Country:     *in.Country,
		Ingredients: in.Ingredients,
	}
	if in.SpicyLevel != nil {
		item.SpicyLevel = *in.SpicyLevel
	}
	if in.ImageURL != nil {
		item.ImageURL = strings.TrimSpace(*in.ImageURL)
	}
	if in.Featured != nil {
		item.Featured = *in.Featured
	}
	created := models.NewMenuItem(item)
	if err := s.db.WithContext(ctx).Create(created).Error; err != nil {
		return nil, apperrors.Internal("create menu item", err)
	}
	return created, nil
}

func (s *CatalogService) Update(ctx context.Context, id string, in MenuItemInput) (*models.MenuItem, error) {
	if err := fieldErrors(in.check()).err(); err != nil {
		return nil, err
	}
	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		item.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		item.Description = strings.TrimSpace(*in.Description)
	}
	if in.Price != nil {
		item.Price = *in.Price
	}
	if in.Category != nil {
		item.Category = *in.Category
	}
	if in.Country != nil {
		item.Country = *in.Country
	}
	if in.SpicyLevel != nil {
		item.SpicyLevel = *in.SpicyLevel
	}
	if in.Ingredients != nil {
		item.Ingredients = models.NormalizeIngredients(in.Ingredients)
	}
	if in.ImageURL != nil {
		item.ImageURL = strings.TrimSpace(*in.ImageURL)
	}
	if in.Featured != nil {
		item.Featured = *in.Featured
	}
	if err := s.db.WithContext(ctx).Save(item).Error; err != nil {
		return nil, apperrors.Internal("update menu item", err)
	}
	return item, nil
}

// check validates the fields that are present
func (in MenuItemInput) check() fieldErrors {
	var fields fieldErrors
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		fields.add("name", "cannot be empty")
	}
	if in.Description != nil {
		n := len(strings.TrimSpace(*in.Description))
		if n < models.MinDescriptionLength || n > models.MaxDescriptionLength {
			fields.add("description", fmt.Sprintf("must be between %d and %d characters",
				models.MinDescriptionLength, models.MaxDescriptionLength))
		}
	}
	if in.Price != nil && *in.Price <= 0 {
		fields.add("price", "must be greater than 0")
	}
	if in.Category != nil && !in.Category.Valid() {
		fields.add("category", "is not a known category")
	}
	if in.Country != nil && !in.Country.Valid() {
		fields.add("country", "is not a known country")
	}
	if in.SpicyLevel != nil && (*in.SpicyLevel < 0 || *in.SpicyLevel > models.MaxSpicyLevel) {
		fields.add("spicy_level", "must be between 0 and 5")
	}
	return fields
}

// Delete removes the item. Orders keep their snapshots and reviews keep the
// dangling reference.
func (s *CatalogService) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&models.MenuItem{}, "id = ?", id)
	if res.Error != nil {
		return apperrors.Internal("delete menu item", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("Menu item not found")
	}
	return nil
}

// ToggleAvailability flips is_available in a single statement
func (s *CatalogService) ToggleAvailability(ctx context.Context, id string) (*models.MenuItem, error) {
	res := s.db.WithContext(ctx).Model(&models.MenuItem{}).Where("id = ?", id).
		Update("is_available", gorm.Expr("NOT is_available"))
	if res.Error != nil {
		return nil, apperrors.Internal("toggle availability", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.NotFound("Menu item not found")
	}
	return s.Get(ctx, id)
}
