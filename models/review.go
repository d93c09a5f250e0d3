package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	MinRating = 1
	MaxRating = 5
)

// Review is public feedback. AuthorName/Email are free text and need not
// match an account. Reviews stay hidden until staff approve them.
type Review struct {
	ID          string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	AuthorName  string     `json:"name" gorm:"not null"`
	AuthorEmail string     `json:"email" gorm:"not null"`
	Rating      int        `json:"rating" gorm:"not null"`
	Comment     string     `json:"comment" gorm:"not null"`
	MenuItemID  *string    `json:"menu_item,omitempty" gorm:"index;type:varchar(36)"`
	Approved    bool       `json:"approved" gorm:"not null;index"`
	Reply       string     `json:"reply,omitempty"`
	RepliedBy   string     `json:"replied_by,omitempty"`
	RepliedAt   *time.Time `json:"replied_at,omitempty"`
	Flagged     bool       `json:"flagged" gorm:"not null"`
	FlagReason  string     `json:"flag_reason,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewReview builds an unapproved review
func NewReview(name, email string, rating int, comment string, menuItemID *string) *Review {
	return &Review{
		ID:          uuid.NewString(),
		AuthorName:  strings.TrimSpace(name),
		AuthorEmail: NormalizeEmail(email),
		Rating:      rating,
		Comment:     strings.TrimSpace(comment),
		MenuItemID:  menuItemID,
		Approved:    false,
	}
}

// RatingDistribution always carries keys 1..5
type RatingDistribution map[int]int64

func NewRatingDistribution() RatingDistribution {
	d := make(RatingDistribution, MaxRating)
	for r := MinRating; r <= MaxRating; r++ {
		d[r] = 0
	}
	return d
}
