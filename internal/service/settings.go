package service

import (
	"context"
	"errors"

	"github.com/ledgerbill/invoice-service/internal/billing"
	"github.com/ledgerbill/invoice-service/internal/models"
	"github.com/ledgerbill/invoice-service/internal/repository"
)

// GetLateFeePolicy returns the user's saved policy, or the application
// default flagged as such when the user never saved one
func (s *Service) GetLateFeePolicy(ctx context.Context) (*models.LateFeePolicySettings, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	policy, err := s.repo.GetLateFeePolicy(ctx, userID)
	if errors.Is(err, repository.ErrPolicyNotFound) {
		return &models.LateFeePolicySettings{
			Source: models.SettingsSourceDefault,
			Policy: s.defaults.LateFeePolicy,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return &models.LateFeePolicySettings{
		Source: models.SettingsSourceUser,
		Policy: *policy,
	}, nil
}

// SaveLateFeePolicy validates and stores the user's policy. Validation
// runs even for disabled policies so a later enable cannot resurrect
// garbage.
func (s *Service) SaveLateFeePolicy(ctx context.Context, policy billing.LateFeePolicy) error {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return err
	}
	if err := policy.Validate(); err != nil {
		return err
	}
	if err := s.repo.SaveLateFeePolicy(ctx, userID, policy); err != nil {
		return err
	}
	s.log.Infof("Late fee policy saved for user %d (%s, enabled=%t)", userID, policy.FeeType, policy.Enabled)
	return nil
}

// GetReminderLadder returns the user's saved ladder, or the application
// default flagged as such
func (s *Service) GetReminderLadder(ctx context.Context) (*models.ReminderLadderSettings, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	ladder, err := s.repo.GetReminderLadder(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(ladder) == 0 {
		return &models.ReminderLadderSettings{
			Source: models.SettingsSourceDefault,
			Ladder: s.defaults.ReminderLadder,
		}, nil
	}
	return &models.ReminderLadderSettings{
		Source: models.SettingsSourceUser,
		Ladder: ladder,
	}, nil
}

// SaveReminderLadder validates and stores the user's ladder
func (s *Service) SaveReminderLadder(ctx context.Context, ladder billing.Ladder) error {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return err
	}
	if err := ladder.Validate(); err != nil {
		return err
	}
	if err := s.repo.SaveReminderLadder(ctx, userID, ladder); err != nil {
		return err
	}
	s.log.Infof("Reminder ladder saved for user %d (%d rungs)", userID, len(ladder))
	return nil
}

// policyFor resolves the effective late-fee policy for any user, falling
// back to the defaults. The cycle uses this for every invoice owner.
func (s *Service) policyFor(ctx context.Context, userID int64) (billing.LateFeePolicy, error) {
	policy, err := s.repo.GetLateFeePolicy(ctx, userID)
	if errors.Is(err, repository.ErrPolicyNotFound) {
		return s.defaults.LateFeePolicy, nil
	}
	if err != nil {
		return billing.LateFeePolicy{}, err
	}
	return *policy, nil
}

// ladderFor resolves the effective reminder ladder for any user
func (s *Service) ladderFor(ctx context.Context, userID int64) (billing.Ladder, error) {
	ladder, err := s.repo.GetReminderLadder(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(ladder) == 0 {
		return s.defaults.ReminderLadder, nil
	}
	return ladder, nil
}
