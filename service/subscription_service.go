package service

import (
	"context"

	"toolx/entity"
	"toolx/pkg/logger"
	"toolx/repository"
)

// SubscriptionService interface defines subscription read operations
type SubscriptionService interface {
	ListByEmail(ctx context.Context, email string) ([]entity.Subscription, error)
}

type subscriptionService struct {
	repo   repository.SubscriptionRepository
	logger *logger.Logger
}

// NewSubscriptionService creates a new subscription service instance
func NewSubscriptionService(repo repository.SubscriptionRepository, logger *logger.Logger) SubscriptionService {
	return &subscriptionService{repo: repo, logger: logger}
}

// ListByEmail returns the subscriptions of email, matched case-insensitively.
func (s *subscriptionService) ListByEmail(ctx context.Context, email string) ([]entity.Subscription, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, &entity.ValidationError{Reason: "Email is required"}
	}

	subs, err := s.repo.ListByEmail(ctx, email)
	if err != nil {
		s.logger.Errorw("Failed to list subscriptions", "email", email, "error", err)
		return nil, err
	}

	return subs, nil
}
