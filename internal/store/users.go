package store

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"parking-share-backend/internal/model"
)

func (s *gormStore) CreateUser(ctx context.Context, user *model.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user %s: %w", user.Email, err)
	}
	return nil
}

func (s *gormStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	if err := first(s.db.WithContext(ctx).Where("id = ?", id), &user, "user"); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *gormStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	q := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email)))
	if err := first(q, &user, "user"); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *gormStore) SetUserVerified(ctx context.Context, id string, verified bool) error {
	res := s.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update("verified", verified)
	if res.Error != nil {
		return fmt.Errorf("failed to update verification for user %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *gormStore) SetUserBuilding(ctx context.Context, userID, buildingID string) error {
	err := s.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Update("building_id", buildingID).Error
	if err != nil {
		return fmt.Errorf("failed to assign building to user %s: %w", userID, err)
	}
	return nil
}

// IncrementPoints adds amount to the balance in a single statement so
// concurrent credits are not lost.
func (s *gormStore) IncrementPoints(ctx context.Context, userID string, amount int64) error {
	res := s.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Update("points", gorm.Expr("points + ?", amount))
	if res.Error != nil {
		return fmt.Errorf("failed to increment points for user %s: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *gormStore) AppendPointTransaction(ctx context.Context, entry *model.PointTransaction) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append point transaction for user %s: %w", entry.UserID, err)
	}
	return nil
}

func (s *gormStore) ListPointTransactions(ctx context.Context, userID string) ([]model.PointTransaction, error) {
	var entries []model.PointTransaction
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list point transactions: %w", err)
	}
	return entries, nil
}

func (s *gormStore) CreateBuilding(ctx context.Context, building *model.Building) error {
	if err := s.db.WithContext(ctx).Create(building).Error; err != nil {
		return fmt.Errorf("failed to create building %q: %w", building.Name, err)
	}
	return nil
}

func (s *gormStore) GetBuilding(ctx context.Context, id string) (*model.Building, error) {
	var building model.Building
	if err := first(s.db.WithContext(ctx).Where("id = ?", id), &building, "building"); err != nil {
		return nil, err
	}
	return &building, nil
}

func (s *gormStore) GetBuildingByName(ctx context.Context, name string) (*model.Building, error) {
	var building model.Building
	if err := first(s.db.WithContext(ctx).Where("name = ?", name), &building, "building"); err != nil {
		return nil, err
	}
	return &building, nil
}
