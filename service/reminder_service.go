package service

import (
	"context"
	"math"
	"strings"
	"time"

	"toolx/entity"
	"toolx/pkg/logger"
	"toolx/repository"

	"github.com/shopspring/decimal"
)

const billingDateLayout = "2006-01-02"

// ReminderSender delivers a renewal reminder.
type ReminderSender interface {
	SendReminder(ctx context.Context, sub entity.Subscription, tag string) error
}

// ReminderService scans subscriptions for upcoming renewals.
type ReminderService struct {
	repo         repository.SubscriptionRepository
	sender       ReminderSender
	alertEnabled bool
	logger       *logger.Logger
}

// NewReminderService creates a reminder service. Emails go out only when alertEnabled is set;
// otherwise reminders are just logged.
func NewReminderService(repo repository.SubscriptionRepository, sender ReminderSender, alertEnabled bool, logger *logger.Logger) *ReminderService {
	return &ReminderService{
		repo:         repo,
		sender:       sender,
		alertEnabled: alertEnabled,
		logger:       logger,
	}
}

// CalculateReminderTag returns the reminder tag due at now for a YYYY-MM-DD billing date, or
// "" when none is due. The day count is rounded to the nearest whole day.
func CalculateReminderTag(now time.Time, nextBillingDate string) string {
	due, err := time.Parse(billingDateLayout, strings.TrimSpace(nextBillingDate))
	if err != nil {
		return ""
	}

	days := int(math.Round(due.Sub(now).Hours() / 24))
	switch days {
	case 7:
		return entity.ReminderTag7
	case 4:
		return entity.ReminderTag4
	case 2:
		return entity.ReminderTag2
	case 1:
		return entity.ReminderTag1
	}
	return ""
}

// IsEnabled reports whether a subscription takes part in reminders.
func IsEnabled(sub entity.Subscription) bool {
	return strings.ToLower(strings.TrimSpace(sub.Status)) == "on"
}

// CheckExpiringAndNotify sends a reminder for every enabled subscription with a tag due at now
// and returns how many reminders were produced. Single send failures are logged and skipped.
func (s *ReminderService) CheckExpiringAndNotify(ctx context.Context, now time.Time) (int, error) {
	subs, err := s.repo.ListAll(ctx)
	if err != nil {
		s.logger.Errorw("Failed to load subscriptions for reminders", "error", err)
		return 0, err
	}

	count := 0
	for _, sub := range subs {
		if !IsEnabled(sub) {
			continue
		}
		tag := CalculateReminderTag(now, sub.NextBillingDate)
		if tag == "" {
			continue
		}

		count++
		s.logger.Infow("Reminder due", "tag", tag, "subscription", sub.Name, "email", sub.Email)
		if !s.alertEnabled {
			continue
		}
		if err := s.sender.SendReminder(ctx, sub, tag); err != nil {
			s.logger.Warnw("Failed to send reminder email", "tag", tag, "subscription", sub.Name, "error", err)
		}
	}

	return count, nil
}

// SendSample emails a made-up reminder to email so templates can be checked. Unknown tags
// fall back to remind-4. It returns the tag used.
func (s *ReminderService) SendSample(ctx context.Context, email, tag string, now time.Time) (string, error) {
	days, ok := entity.ReminderDays[tag]
	if !ok {
		tag = entity.ReminderTag4
		days = entity.ReminderDays[tag]
	}

	sub := entity.Subscription{
		Email:           NormalizeEmail(email),
		Name:            "ToolX Premium",
		Cycle:           "month",
		NextBillingDate: now.UTC().AddDate(0, 0, days).Format(billingDateLayout),
		Cost:            decimal.NewFromInt(99000),
		Status:          "active",
	}
	if err := s.sender.SendReminder(ctx, sub, tag); err != nil {
		return "", err
	}
	return tag, nil
}
