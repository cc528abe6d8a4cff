package store

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"parking-share-backend/internal/model"
)

// UpsertSubscription creates a subscription or replaces the keys and owner of
// an existing endpoint.
func (s *gormStore) UpsertSubscription(ctx context.Context, sub *model.PushSubscription) error {
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth", "user_id"}),
	}).Create(sub).Error; err != nil {
		return fmt.Errorf("failed to upsert push subscription: %w", err)
	}
	return nil
}

func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	if err := first(s.db.WithContext(ctx).Where("endpoint = ?", endpoint), &sub, "push subscription"); err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	if err := s.db.WithContext(ctx).Delete(&model.PushSubscription{Endpoint: endpoint}).Error; err != nil {
		return fmt.Errorf("failed to delete push subscription: %w", err)
	}
	return nil
}

func (s *gormStore) ListSubscriptionsByUser(ctx context.Context, userID string) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to list push subscriptions for user %s: %w", userID, err)
	}
	return subs, nil
}
