// Package claim runs the workflow through which a resident proves they hold
// a physical parking spot and gets it listed on the marketplace.
package claim

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"parking-share-backend/config"
	"parking-share-backend/internal/apperr"
	"parking-share-backend/internal/authz"
	"parking-share-backend/internal/model"
	"parking-share-backend/internal/notification"
	"parking-share-backend/internal/parse"
	"parking-share-backend/internal/store"
)

const defaultRejectReason = "No reason provided"

// Service handles parking claims.
type Service struct {
	store    store.Store
	notifier notification.Notifier
	cfg      config.ClaimsConfig
	now      func() time.Time
}

// NewService creates a claim service. A nil notifier discards events.
func NewService(s store.Store, n notification.Notifier, cfg config.ClaimsConfig) *Service {
	if n == nil {
		n = notification.Nop{}
	}
	return &Service{
		store:    s,
		notifier: n,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SubmitInput is a resident's claim on a floor and spot number.
type SubmitInput struct {
	UserID         string
	Floor          string
	SpotNumber     string
	AdditionalInfo string
}

// Submit records a PENDING claim. The floor and spot number are normalised
// first so "3F #12" and "3 12" name the same spot.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*model.ParkingClaim, error) {
	user, err := s.store.GetUser(ctx, in.UserID)
	if err != nil {
		return nil, translate(err, apperr.ErrUserNotFound)
	}
	if !authz.Resolve(user).Has(authz.CapOffer) {
		return nil, apperr.ErrForbidden
	}
	if strings.TrimSpace(in.Floor) == "" || strings.TrimSpace(in.SpotNumber) == "" {
		return nil, apperr.ErrInvalidClaim
	}
	key, err := parse.ParseSpotKey(in.Floor, in.SpotNumber)
	if err != nil {
		return nil, apperr.New(apperr.KindInvalidClaim, err.Error())
	}

	var created *model.ParkingClaim
	err = s.store.WithTx(ctx, func(tx store.Store) error {
		if _, err := tx.FindPendingClaimByUser(ctx, user.ID); err == nil {
			return apperr.ErrDuplicateClaim
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		existing, err := tx.FindClaimsBySpotKey(ctx, key.Floor, key.Number)
		if err != nil {
			return err
		}
		for _, c := range existing {
			if c.UserID != user.ID || c.Status != model.ClaimRejected {
				return apperr.ErrSpotAlreadyClaimed
			}
		}

		claim := &model.ParkingClaim{
			UserID:         user.ID,
			Floor:          key.Floor,
			SpotNumber:     key.Number,
			AdditionalInfo: strings.TrimSpace(in.AdditionalInfo),
			Status:         model.ClaimPending,
		}
		if err := tx.CreateClaim(ctx, claim); err != nil {
			return err
		}
		created = claim
		return nil
	})
	if err != nil {
		return nil, translate(err, nil)
	}
	return created, nil
}

// Approve accepts a PENDING claim. The claimant's building is resolved or
// created, a spot is listed for them, the claim is closed and the bonus is
// credited, all in one transaction.
func (s *Service) Approve(ctx context.Context, claimID, approverID string) (*model.ParkingClaim, *model.ParkingSpot, error) {
	var (
		approved *model.ParkingClaim
		spot     *model.ParkingSpot
	)
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		claim, err := tx.GetClaim(ctx, claimID)
		if err != nil {
			return translate(err, apperr.ErrClaimNotFound)
		}
		if claim.Status != model.ClaimPending {
			return apperr.ErrAlreadyProcessed
		}
		user, err := tx.GetUser(ctx, claim.UserID)
		if err != nil {
			return translate(err, apperr.ErrUserNotFound)
		}

		building, err := s.buildingFor(ctx, tx, user)
		if err != nil {
			return err
		}

		key, err := parse.ParseSpotKey(claim.Floor, claim.SpotNumber)
		if err != nil {
			return apperr.New(apperr.KindInvalidClaim, err.Error())
		}
		taken, err := tx.SpotNumberExists(ctx, building.ID, key.Label())
		if err != nil {
			return err
		}
		if taken {
			return apperr.ErrSpotNumberTaken
		}

		spot = &model.ParkingSpot{
			BuildingID:  building.ID,
			SpotNumber:  key.Label(),
			Floor:       key.Level,
			Size:        model.SpotSizeRegular,
			Type:        model.SpotTypeGarage,
			Description: claim.AdditionalInfo,
			HourlyRate:  s.cfg.DefaultHourlyRate,
			DailyRate:   s.cfg.DefaultDailyRate,
			Approved:    true,
			Available:   false,
			OwnerID:     user.ID,
		}
		if err := tx.CreateSpot(ctx, spot); err != nil {
			return err
		}

		now := s.now()
		ok, err := tx.UpdateClaimStatus(ctx, claim.ID, model.ClaimPending, map[string]any{
			"status":      model.ClaimApproved,
			"approved_by": approverID,
			"approved_at": now,
			"spot_id":     spot.ID,
		})
		if err != nil {
			return err
		}
		if !ok {
			return apperr.ErrAlreadyProcessed
		}

		if err := tx.AppendPointTransaction(ctx, &model.PointTransaction{
			UserID: user.ID,
			Amount: s.cfg.ApprovalBonusPoints,
			Reason: "Parking spot approved",
			Type:   model.PointsEarnedParkingApproval,
		}); err != nil {
			return err
		}
		if err := tx.IncrementPoints(ctx, user.ID, s.cfg.ApprovalBonusPoints); err != nil {
			return err
		}

		claim.Status = model.ClaimApproved
		claim.ApprovedBy = &approverID
		claim.ApprovedAt = &now
		claim.SpotID = &spot.ID
		approved = claim
		return nil
	})
	if err != nil {
		return nil, nil, translate(err, nil)
	}

	s.notifier.Notify(notification.Event{
		Type:   notification.EventClaimApproved,
		UserID: approved.UserID,
		Title:  "Parking claim approved",
		Body:   fmt.Sprintf("Spot %s is now yours to list. %d points were added to your balance.", spot.SpotNumber, s.cfg.ApprovalBonusPoints),
		Data:   map[string]string{"claim_id": approved.ID, "spot_id": spot.ID},
	})
	return approved, spot, nil
}

// buildingFor returns the user's building, falling back to the configured
// default building, which is created on first use and assigned to the user.
func (s *Service) buildingFor(ctx context.Context, tx store.Store, user *model.User) (*model.Building, error) {
	if user.BuildingID != nil && *user.BuildingID != "" {
		b, err := tx.GetBuilding(ctx, *user.BuildingID)
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}

	b, err := tx.GetBuildingByName(ctx, s.cfg.DefaultBuildingName)
	if errors.Is(err, store.ErrNotFound) {
		b = &model.Building{Name: s.cfg.DefaultBuildingName}
		err = tx.CreateBuilding(ctx, b)
	}
	if err != nil {
		return nil, err
	}
	if err := tx.SetUserBuilding(ctx, user.ID, b.ID); err != nil {
		return nil, err
	}
	return b, nil
}

// Reject closes a PENDING claim with a reason.
func (s *Service) Reject(ctx context.Context, claimID, reason string) (*model.ParkingClaim, error) {
	claim, err := s.store.GetClaim(ctx, claimID)
	if err != nil {
		return nil, translate(err, apperr.ErrClaimNotFound)
	}
	if claim.Status != model.ClaimPending {
		return nil, apperr.ErrAlreadyProcessed
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = defaultRejectReason
	}
	now := s.now()
	ok, err := s.store.UpdateClaimStatus(ctx, claim.ID, model.ClaimPending, map[string]any{
		"status":        model.ClaimRejected,
		"reject_reason": reason,
		"rejected_at":   now,
	})
	if err != nil {
		return nil, translate(err, nil)
	}
	if !ok {
		return nil, apperr.ErrAlreadyProcessed
	}

	claim.Status = model.ClaimRejected
	claim.RejectReason = reason
	claim.RejectedAt = &now

	s.notifier.Notify(notification.Event{
		Type:   notification.EventClaimRejected,
		UserID: claim.UserID,
		Title:  "Parking claim rejected",
		Body:   reason,
		Data:   map[string]string{"claim_id": claim.ID},
	})
	return claim, nil
}

// GetMyClaim returns the user's most recent claim, or nil if they never
// submitted one.
func (s *Service) GetMyClaim(ctx context.Context, userID string) (*model.ParkingClaim, error) {
	claim, err := s.store.LatestClaimByUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err, nil)
	}
	return claim, nil
}

// ListPending returns claims waiting for an administrator, newest first.
func (s *Service) ListPending(ctx context.Context) ([]model.ParkingClaim, error) {
	return s.store.ListPendingClaims(ctx)
}

func translate(err error, notFound error) error {
	if errors.Is(err, store.ErrNotFound) && notFound != nil {
		return notFound
	}
	var domain *apperr.Error
	if errors.As(err, &domain) {
		return err
	}
	return fmt.Errorf("claim: %w", err)
}
