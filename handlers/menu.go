package handlers

import (
	"net/http"

	"restaurant-ordering-api/middleware"
	"restaurant-ordering-api/models"
	"restaurant-ordering-api/services"

	"github.com/gin-gonic/gin"
)

type MenuQuery struct {
	Category   string   `form:"category"`
	Country    string   `form:"country"`
	MinPrice   *float64 `form:"minPrice"`
	MaxPrice   *float64 `form:"maxPrice"`
	SpicyLevel *int     `form:"spicyLevel"`
	Search     string   `form:"search" binding:"max=100"`
	Featured   *bool    `form:"featured"`
}

func (q MenuQuery) filter(includeUnavailable bool) services.MenuFilter {
	return services.MenuFilter{
		Category:           q.Category,
		Country:            q.Country,
		MinPrice:           q.MinPrice,
		MaxPrice:           q.MaxPrice,
		SpicyLevel:         q.SpicyLevel,
		Search:             q.Search,
		Featured:           q.Featured,
		IncludeUnavailable: includeUnavailable,
	}
}

// MenuItemRequest is shared by create and update; on update every field is optional
type MenuItemRequest struct {
	Name        *string          `json:"name" binding:"omitempty,max=100"`
	Description *string          `json:"description"`
	Price       *float64         `json:"price"`
	Category    *models.Category `json:"category"`
	Country     *models.Country  `json:"country"`
	SpicyLevel  *int             `json:"spicy_level"`
	Ingredients []string         `json:"ingredients" binding:"omitempty,max=50,dive,max=60"`
	ImageURL    *string          `json:"image_url" binding:"omitempty,max=500"`
	Featured    *bool            `json:"featured"`
}

func (r MenuItemRequest) input() services.MenuItemInput {
	return services.MenuItemInput{
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Category:    r.Category,
		Country:     r.Country,
		SpicyLevel:  r.SpicyLevel,
		Ingredients: r.Ingredients,
		ImageURL:    r.ImageURL,
		Featured:    r.Featured,
	}
}

// ListMenu returns available menu items (public)
func (h *Handler) ListMenu(c *gin.Context) {
	h.listMenu(c, false)
}

// AdminListMenu includes unavailable items
func (h *Handler) AdminListMenu(c *gin.Context) {
	h.listMenu(c, true)
}

func (h *Handler) listMenu(c *gin.Context, includeUnavailable bool) {
	var q MenuQuery
	if !bindQuery(c, &q) {
		return
	}
	items, err := h.svc.Catalog.List(c.Request.Context(), q.filter(includeUnavailable))
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(items), "data": items})
}

// GetMenuItem returns a single item as a bare object
func (h *Handler) GetMenuItem(c *gin.Context) {
	item, err := h.svc.Catalog.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handler) CreateMenuItem(c *gin.Context) {
	var req MenuItemRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.svc.Catalog.Create(c.Request.Context(), req.input())
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *Handler) UpdateMenuItem(c *gin.Context) {
	var req MenuItemRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.svc.Catalog.Update(c.Request.Context(), c.Param("id"), req.input())
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handler) DeleteMenuItem(c *gin.Context) {
	if err := h.svc.Catalog.Delete(c.Request.Context(), c.Param("id")); err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Menu item deleted"})
}

func (h *Handler) ToggleAvailability(c *gin.Context) {
	item, err := h.svc.Catalog.ToggleAvailability(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": item})
}
