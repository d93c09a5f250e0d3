package services

import (
	"context"
	"errors"
	"strings"

	"restaurant-ordering-api/apperrors"
	"restaurant-ordering-api/audit"
	"restaurant-ordering-api/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ProfileUpdate struct {
	Name  *string
	Phone *string
}

type AddressInput struct {
	Street     string
	City       string
	State      string
	PostalCode string
	IsDefault  bool
}

func (in AddressInput) validate() error {
	var fields fieldErrors
	if strings.TrimSpace(in.Street) == "" {
		fields.add("street", "is required")
	}
	if strings.TrimSpace(in.City) == "" {
		fields.add("city", "is required")
	}
	return fields.err()
}

func (in AddressInput) toAddress() models.Address {
	return models.Address{
		Street:     strings.TrimSpace(in.Street),
		City:       strings.TrimSpace(in.City),
		State:      strings.TrimSpace(in.State),
		PostalCode: strings.TrimSpace(in.PostalCode),
		IsDefault:  in.IsDefault,
	}
}

// UserService manages profiles, addresses and account administration
type UserService struct {
	db     *gorm.DB
	auth   *AuthService
	audit  audit.Recorder
	reader audit.Reader
	log    *zap.Logger
}

// NewUserService wires the profile service. reader may be nil when the audit
// backend cannot list entries.
func NewUserService(db *gorm.DB, auth *AuthService, rec audit.Recorder, reader audit.Reader, log *zap.Logger) *UserService {
	return &UserService{db: db, auth: auth, audit: rec, reader: reader, log: log.Named("users")}
}

func (s *UserService) Get(ctx context.Context, userID string) (*models.User, error) {
	return loadUser(s.db.WithContext(ctx), userID)
}

func loadUser(db *gorm.DB, userID string) (*models.User, error) {
	var user models.User
	err := db.Preload("Addresses", func(q *gorm.DB) *gorm.DB {
		return q.Order("position asc")
	}).First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("User not found")
	}
	if err != nil {
		return nil, apperrors.Internal("load user", err)
	}
	return &user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) (*models.User, error) {
	updates := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperrors.Field("name", "cannot be empty")
		}
		updates["name"] = name
	}
	if in.Phone != nil {
		updates["phone"] = strings.TrimSpace(*in.Phone)
	}
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return user, nil
	}
	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, apperrors.Internal("update profile", err)
	}
	return s.Get(ctx, userID)
}

func (s *UserService) AddAddress(ctx context.Context, userID string, in AddressInput) (*models.User, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	return s.editAddresses(ctx, userID, func(list []models.Address) ([]models.Address, error) {
		return models.AddAddress(list, in.toAddress()), nil
	})
}

// UpdateAddress replaces the fields of one address. Setting IsDefault moves
// the default flag; clearing it on the current default is ignored so the user
// always keeps one default.
func (s *UserService) UpdateAddress(ctx context.Context, userID, addressID string, in AddressInput) (*models.User, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	return s.editAddresses(ctx, userID, func(list []models.Address) ([]models.Address, error) {
		for i := range list {
			if list[i].ID != addressID {
				continue
			}
			updated := in.toAddress()
			updated.ID = list[i].ID
			updated.IsDefault = list[i].IsDefault
			updated.Position = list[i].Position
			list[i] = updated
			if in.IsDefault {
				list, _ = models.SetDefaultAddress(list, addressID)
			}
			return list, nil
		}
		return nil, apperrors.NotFound("Address not found")
	})
}

func (s *UserService) DeleteAddress(ctx context.Context, userID, addressID string) (*models.User, error) {
	return s.editAddresses(ctx, userID, func(list []models.Address) ([]models.Address, error) {
		out, ok := models.RemoveAddress(list, addressID)
		if !ok {
			return nil, apperrors.NotFound("Address not found")
		}
		return out, nil
	})
}

// editAddresses rewrites the whole address list in one transaction
func (s *UserService) editAddresses(ctx context.Context, userID string, edit func([]models.Address) ([]models.Address, error)) (*models.User, error) {
	var user *models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		user, err = loadUser(tx, userID)
		if err != nil {
			return err
		}
		list, err := edit(user.Addresses)
		if err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.Address{}).Error; err != nil {
			return apperrors.Internal("clear addresses", err)
		}
		for i := range list {
			list[i].UserID = userID
			list[i].Position = i
		}
		if len(list) > 0 {
			if err := tx.Create(&list).Error; err != nil {
				return apperrors.Internal("save addresses", err)
			}
		}
		user.Addresses = list
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// List returns every account, optionally filtered by role
func (s *UserService) List(ctx context.Context, role string) ([]models.User, error) {
	q := s.db.WithContext(ctx).Order("created_at desc")
	if role != "" {
		if !models.UserRole(role).Valid() {
			return nil, apperrors.Field("role", "must be one of customer, staff, admin")
		}
		q = q.Where("role = ?", role)
	}
	var users []models.User
	if err := q.Find(&users).Error; err != nil {
		return nil, apperrors.Internal("list users", err)
	}
	return users, nil
}

func (s *UserService) SetRole(ctx context.Context, actor *Identity, userID string, role models.UserRole) (*models.User, error) {
	if err := RequireAdmin(actor); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, apperrors.Field("role", "must be one of customer, staff, admin")
	}
	if actor.UserID == userID {
		return nil, apperrors.Forbidden("You cannot change your own role")
	}
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	previous := user.Role
	if err := s.db.WithContext(ctx).Model(user).Update("role", role).Error; err != nil {
		return nil, apperrors.Internal("update role", err)
	}
	user.Role = role
	s.audit.Record(ctx, audit.Entry{
		Action: audit.ActionRoleChange, UserID: userID, Email: user.Email,
		Meta:      map[string]string{"by": actor.UserID, "from": string(previous), "to": string(role)},
		CreatedAt: s.auth.now(),
	})
	return user, nil
}

// SetActive enables or disables an account. Disabling also revokes its sessions.
func (s *UserService) SetActive(ctx context.Context, actor *Identity, userID string, active bool) (*models.User, error) {
	if err := RequireAdmin(actor); err != nil {
		return nil, err
	}
	if actor.UserID == userID && !active {
		return nil, apperrors.Forbidden("You cannot deactivate your own account")
	}
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(user).Update("active", active).Error; err != nil {
			return apperrors.Internal("update active flag", err)
		}
		if !active {
			_, err := s.auth.revokeAll(tx, userID, models.RevokeAdminAction)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	user.Active = active
	if !active {
		s.audit.Record(ctx, audit.Entry{
			Action: audit.ActionDeactivate, UserID: userID, Email: user.Email,
			Meta: map[string]string{"by": actor.UserID}, CreatedAt: s.auth.now(),
		})
	}
	return user, nil
}

// Activity lists recent audit entries for a user, newest first
func (s *UserService) Activity(ctx context.Context, actor *Identity, userID string, limit int64) ([]audit.Entry, error) {
	if err := RequireOwnerOrAdmin(actor, userID); err != nil {
		return nil, err
	}
	if s.reader == nil {
		return []audit.Entry{}, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	entries, err := s.reader.Recent(ctx, userID, limit)
	if err != nil {
		s.log.Warn("Audit read failed", zap.Error(err))
		return nil, apperrors.Internal("read audit log", err)
	}
	return entries, nil
}
