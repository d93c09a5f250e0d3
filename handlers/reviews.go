package handlers

import (
	"net/http"

	"restaurant-ordering-api/middleware"
	"restaurant-ordering-api/services"

	"github.com/gin-gonic/gin"
)

type CreateReviewRequest struct {
	Name     string `json:"name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Rating   int    `json:"rating" binding:"required,min=1,max=5"`
	Comment  string `json:"comment" binding:"required,max=1000"`
	MenuItem string `json:"menu_item"`
}

type FlagReviewRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

type ReplyReviewRequest struct {
	Reply string `json:"reply" binding:"required,max=1000"`
}

type AdminReviewQuery struct {
	Approved *bool  `form:"approved"`
	Flagged  *bool  `form:"flagged"`
	MenuItem string `form:"menuItem"`
}

// ListReviews returns approved reviews only (public)
func (h *Handler) ListReviews(c *gin.Context) {
	reviews, err := h.svc.Reviews.ListPublic(c.Request.Context(), c.Query("menuItem"))
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Reviews retrieved", "data": reviews})
}

// CreateReview accepts a review for moderation (public)
func (h *Handler) CreateReview(c *gin.Context) {
	var req CreateReviewRequest
	if !bindJSON(c, &req) {
		return
	}
	review, err := h.svc.Reviews.Create(c.Request.Context(), services.ReviewInput{
		Name: req.Name, Email: req.Email, Rating: req.Rating, Comment: req.Comment, MenuItemID: req.MenuItem,
	})
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"status":  "success",
		"message": "Thank you! Your review will appear once approved",
		"data":    review,
	})
}

// AdminListReviews is the moderation queue (staff/admin)
func (h *Handler) AdminListReviews(c *gin.Context) {
	var q AdminReviewQuery
	if !bindQuery(c, &q) {
		return
	}
	reviews, err := h.svc.Reviews.ListAll(c.Request.Context(), services.ReviewFilter{
		Approved: q.Approved, Flagged: q.Flagged, MenuItemID: q.MenuItem,
	})
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Reviews retrieved",
		"count":   len(reviews),
		"data":    reviews,
	})
}

func (h *Handler) ApproveReview(c *gin.Context) {
	review, err := h.svc.Reviews.Approve(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Review approved", "data": review})
}

func (h *Handler) FlagReview(c *gin.Context) {
	var req FlagReviewRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	review, err := h.svc.Reviews.Flag(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Review flagged", "data": review})
}

func (h *Handler) ReplyReview(c *gin.Context) {
	var req ReplyReviewRequest
	if !bindJSON(c, &req) {
		return
	}
	review, err := h.svc.Reviews.Reply(c.Request.Context(), middleware.CurrentIdentity(c), c.Param("id"), req.Reply)
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Reply posted", "data": review})
}

func (h *Handler) DeleteReview(c *gin.Context) {
	if err := h.svc.Reviews.Delete(c.Request.Context(), c.Param("id")); err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Review deleted"})
}

// ReviewStats returns average, count and per-rating distribution of approved reviews
func (h *Handler) ReviewStats(c *gin.Context) {
	stats, err := h.svc.Reviews.Stats(c.Request.Context(), c.Query("menuItem"))
	if err != nil {
		middleware.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Rating statistics", "data": stats})
}
