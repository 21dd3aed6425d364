package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/foodgram-project/backend/internal/models"
)

// SubscriptionService handles the follow relation between users
type SubscriptionService struct {
	db *gorm.DB
}

func NewSubscriptionService(db *gorm.DB) *SubscriptionService {
	return &SubscriptionService{db: db}
}

// GetUser retrieves a user by id
func (s *SubscriptionService) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Subscribe creates a follow edge from user to author
func (s *SubscriptionService) Subscribe(ctx context.Context, userID, authorID uuid.UUID) (*models.User, error) {
	if userID == authorID {
		return nil, ErrSelfSubscription
	}

	author, err := s.GetUser(ctx, authorID)
	if err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("user_id = ? AND author_id = ?", userID, authorID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrAlreadyExists
	}

	sub := models.Subscription{UserID: userID, AuthorID: authorID}
	if err := s.db.WithContext(ctx).Create(&sub).Error; err != nil {
		// Unique index turns a concurrent double-subscribe into one
		// failure; a re-count separates that from a broken store
		var n int64
		if countErr := s.db.WithContext(ctx).Model(&models.Subscription{}).
			Where("user_id = ? AND author_id = ?", userID, authorID).Count(&n).Error; countErr == nil && n > 0 {
			return nil, ErrAlreadyExists
		}
		return nil, err
	}
	return author, nil
}

// Unsubscribe removes the follow edge from user to author
func (s *SubscriptionService) Unsubscribe(ctx context.Context, userID, authorID uuid.UUID) error {
	if _, err := s.GetUser(ctx, authorID); err != nil {
		return err
	}

	res := s.db.WithContext(ctx).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Delete(&models.Subscription{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotInList
	}
	return nil
}

// ListSubscribed returns a page of authors the user follows plus the
// total count, newest subscription first
func (s *SubscriptionService) ListSubscribed(ctx context.Context, userID uuid.UUID, page, limit int) ([]models.User, int64, error) {
	base := s.db.WithContext(ctx).Model(&models.User{}).
		Joins("JOIN subscriptions ON subscriptions.author_id = users.id").
		Where("subscriptions.user_id = ?", userID)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var authors []models.User
	err := base.
		Order("subscriptions.created_at DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&authors).Error
	if err != nil {
		return nil, 0, err
	}
	return authors, total, nil
}

// IsSubscribed reports whether user follows author. Anonymous viewers
// and self-views are always false.
func (s *SubscriptionService) IsSubscribed(ctx context.Context, userID, authorID uuid.UUID) (bool, error) {
	if userID == uuid.Nil || userID == authorID {
		return false, nil
	}
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("user_id = ? AND author_id = ?", userID, authorID).Count(&count).Error
	return count > 0, err
}

// SubscribedSet returns which of the given authors the viewer follows
func (s *SubscriptionService) SubscribedSet(ctx context.Context, viewer uuid.UUID, authorIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	subscribed := make(map[uuid.UUID]bool)
	if viewer == uuid.Nil || len(authorIDs) == 0 {
		return subscribed, nil
	}

	var subs []models.Subscription
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND author_id IN ?", viewer, authorIDs).
		Find(&subs).Error; err != nil {
		return nil, err
	}
	for _, sub := range subs {
		subscribed[sub.AuthorID] = true
	}
	return subscribed, nil
}
