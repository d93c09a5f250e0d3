package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"restaurant-ordering-api/apperrors"
	"restaurant-ordering-api/models"

	"gorm.io/gorm"
)

const maxCommentLength = 1000

type ReviewInput struct {
	Name       string
	Email      string
	Rating     int
	Comment    string
	MenuItemID string
}

// ReviewFilter narrows the moderation listing. Nil fields match everything.
type ReviewFilter struct {
	Approved   *bool
	Flagged    *bool
	MenuItemID string
}

type RatingStats struct {
	MenuItemID   string                    `json:"menu_item,omitempty"`
	Average      float64                   `json:"average"`
	Count        int64                     `json:"count"`
	Distribution models.RatingDistribution `json:"distribution"`
}

type ReviewService struct {
	db      *gorm.DB
	metrics *Metrics
	now     func() time.Time
}

func NewReviewService(db *gorm.DB, metrics *Metrics) *ReviewService {
	return &ReviewService{db: db, metrics: metrics, now: func() time.Time { return time.Now().UTC() }}
}

// Create stores a review awaiting moderation
func (s *ReviewService) Create(ctx context.Context, in ReviewInput) (*models.Review, error) {
	var fields fieldErrors
	if strings.TrimSpace(in.Name) == "" {
		fields.add("name", "is required")
	}
	if !looksLikeEmail(in.Email) {
		fields.add("email", "must be a valid email address")
	}
	if in.Rating < models.MinRating || in.Rating > models.MaxRating {
		fields.add("rating", "must be between 1 and 5")
	}
	comment := strings.TrimSpace(in.Comment)
	if comment == "" {
		fields.add("comment", "is required")
	} else if len(comment) > maxCommentLength {
		fields.add("comment", "must be at most 1000 characters")
	}
	if err := fields.err(); err != nil {
		return nil, err
	}

	var menuItemID *string
	if id := strings.TrimSpace(in.MenuItemID); id != "" {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.MenuItem{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return nil, apperrors.Internal("check menu item", err)
		}
		if count == 0 {
			return nil, apperrors.NotFound("Menu item not found")
		}
		menuItemID = &id
	}

	review := models.NewReview(in.Name, in.Email, in.Rating, comment, menuItemID)
	if err := s.db.WithContext(ctx).Create(review).Error; err != nil {
		return nil, apperrors.Internal("create review", err)
	}
	s.metrics.reviewSubmitted()
	return review, nil
}

// ListPublic returns approved reviews only, newest first
func (s *ReviewService) ListPublic(ctx context.Context, menuItemID string) ([]models.Review, error) {
	approved := true
	return s.list(ctx, ReviewFilter{Approved: &approved, MenuItemID: menuItemID})
}

// ListAll is the moderation view
func (s *ReviewService) ListAll(ctx context.Context, filter ReviewFilter) ([]models.Review, error) {
	return s.list(ctx, filter)
}

func (s *ReviewService) list(ctx context.Context, f ReviewFilter) ([]models.Review, error) {
	q := s.db.WithContext(ctx).Order("created_at desc")
	if f.Approved != nil {
		q = q.Where("approved = ?", *f.Approved)
	}
	if f.Flagged != nil {
		q = q.Where("flagged = ?", *f.Flagged)
	}
	if f.MenuItemID != "" {
		q = q.Where("menu_item_id = ?", f.MenuItemID)
	}
	var reviews []models.Review
	if err := q.Find(&reviews).Error; err != nil {
		return nil, apperrors.Internal("list reviews", err)
	}
	return reviews, nil
}

// Approve publishes a review and clears any flag on it
func (s *ReviewService) Approve(ctx context.Context, id string) (*models.Review, error) {
	return s.update(ctx, id, map[string]interface{}{
		"approved":    true,
		"flagged":     false,
		"flag_reason": "",
	})
}

// Flag hides a review from the public listing
func (s *ReviewService) Flag(ctx context.Context, id, reason string) (*models.Review, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "Flagged by moderator"
	}
	return s.update(ctx, id, map[string]interface{}{
		"flagged":     true,
		"flag_reason": reason,
		"approved":    false,
	})
}

func (s *ReviewService) Reply(ctx context.Context, actor *Identity, id, text string) (*models.Review, error) {
	if err := RequireStaff(actor); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.Field("reply", "is required")
	}
	if len(text) > maxCommentLength {
		return nil, apperrors.Field("reply", "must be at most 1000 characters")
	}
	return s.update(ctx, id, map[string]interface{}{
		"reply":      text,
		"replied_by": actor.Name,
		"replied_at": s.now(),
	})
}

func (s *ReviewService) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&models.Review{}, "id = ?", id)
	if res.Error != nil {
		return apperrors.Internal("delete review", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("Review not found")
	}
	return nil
}

func (s *ReviewService) update(ctx context.Context, id string, updates map[string]interface{}) (*models.Review, error) {
	res := s.db.WithContext(ctx).Model(&models.Review{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return nil, apperrors.Internal("update review", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.NotFound("Review not found")
	}
	var review models.Review
	if err := s.db.WithContext(ctx).First(&review, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Review not found")
		}
		return nil, apperrors.Internal("load review", err)
	}
	return &review, nil
}

// Stats aggregates approved reviews for one menu item, or the whole
// restaurant when menuItemID is empty.
func (s *ReviewService) Stats(ctx context.Context, menuItemID string) (*RatingStats, error) {
	dist, err := s.Distribution(ctx, menuItemID)
	if err != nil {
		return nil, err
	}
	stats := &RatingStats{MenuItemID: menuItemID, Distribution: dist}
	var sum int64
	for rating, n := range dist {
		stats.Count += n
		sum += int64(rating) * n
	}
	if stats.Count > 0 {
		stats.Average = math.Round(float64(sum)/float64(stats.Count)*10) / 10
	}
	return stats, nil
}

// Distribution counts approved reviews per rating. Keys 1 to 5 are always present.
func (s *ReviewService) Distribution(ctx context.Context, menuItemID string) (models.RatingDistribution, error) {
	var rows []struct {
		Rating int
		Count  int64
	}
	q := s.db.WithContext(ctx).Model(&models.Review{}).
		Select("rating, COUNT(*) AS count").
		Where("approved = ?", true)
	if menuItemID != "" {
		q = q.Where("menu_item_id = ?", menuItemID)
	}
	if err := q.Group("rating").Scan(&rows).Error; err != nil {
		return nil, apperrors.Internal("rating distribution", err)
	}
	dist := models.NewRatingDistribution()
	for _, r := range rows {
		if _, ok := dist[r.Rating]; ok {
			dist[r.Rating] = r.Count
		}
	}
	return dist, nil
}

// Average is the mean approved rating rounded to one decimal, 0 with no reviews
func (s *ReviewService) Average(ctx context.Context, menuItemID string) (float64, error) {
	stats, err := s.Stats(ctx, menuItemID)
	if err != nil {
		return 0, err
	}
	return stats.Average, nil
}
