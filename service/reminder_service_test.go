package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"toolx/entity"
	"toolx/pkg/logger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSubscriptions struct {
	rows []entity.Subscription
	err  error
}

func (s *stubSubscriptions) ListByEmail(_ context.Context, email string) ([]entity.Subscription, error) {
	var out []entity.Subscription
	for _, row := range s.rows {
		if row.Email == email {
			out = append(out, row)
		}
	}
	return out, s.err
}

func (s *stubSubscriptions) ListAll(context.Context) ([]entity.Subscription, error) {
	return s.rows, s.err
}

type sentReminder struct {
	Email string
	Tag   string
}

type stubReminderSender struct {
	mu   sync.Mutex
	fail map[string]bool
	sent []sentReminder
}

func (s *stubReminderSender) SendReminder(_ context.Context, sub entity.Subscription, tag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail[sub.Name] {
		return errors.New("smtp down")
	}
	s.sent = append(s.sent, sentReminder{Email: sub.Email, Tag: tag})
	return nil
}

func TestCalculateReminderTag(t *testing.T) {
	now := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

	testCases := []struct {
		date string
		tag  string
	}{
		{date: "2025-03-17", tag: entity.ReminderTag7},
		{date: "2025-03-14", tag: entity.ReminderTag4},
		{date: "2025-03-12", tag: entity.ReminderTag2},
		{date: "2025-03-11", tag: entity.ReminderTag1},
		{date: "2025-03-13", tag: ""},
		{date: "2025-03-10", tag: ""},
		{date: "2025-03-09", tag: ""},
		{date: "2025-04-10", tag: ""},
		{date: "not-a-date", tag: ""},
		{date: "", tag: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.date, func(t *testing.T) {
			assert.Equal(t, tc.tag, CalculateReminderTag(now, tc.date))
		})
	}
}

func TestCalculateReminderTag_RoundsToNearestDay(t *testing.T) {
	// 6.6 days rounds to 7, 7.6 rounds to 8
	assert.Equal(t, entity.ReminderTag7, CalculateReminderTag(time.Date(2025, 3, 10, 9, 36, 0, 0, time.UTC), "2025-03-17"))
	assert.Equal(t, "", CalculateReminderTag(time.Date(2025, 3, 9, 9, 36, 0, 0, time.UTC), "2025-03-17"))
}

func TestIsEnabled(t *testing.T) {
	assert.True(t, IsEnabled(entity.Subscription{Status: "on"}))
	assert.True(t, IsEnabled(entity.Subscription{Status: " ON "}))
	assert.False(t, IsEnabled(entity.Subscription{Status: "off"}))
	assert.False(t, IsEnabled(entity.Subscription{Status: "active"}))
	assert.False(t, IsEnabled(entity.Subscription{}))
}

func TestReminderService_CheckExpiringAndNotify(t *testing.T) {
	now := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	repo := &stubSubscriptions{rows: []entity.Subscription{
		{Email: "a@example.com", Name: "Seven", NextBillingDate: "2025-03-17", Status: "on"},
		{Email: "b@example.com", Name: "One", NextBillingDate: "2025-03-11", Status: "on"},
		{Email: "c@example.com", Name: "Disabled", NextBillingDate: "2025-03-11", Status: "off"},
		{Email: "d@example.com", Name: "NotDue", NextBillingDate: "2025-03-20", Status: "on"},
		{Email: "e@example.com", Name: "Broken", NextBillingDate: "2025-03-12", Status: "on"},
	}}
	sender := &stubReminderSender{fail: map[string]bool{"Broken": true}}
	svc := NewReminderService(repo, sender, true, logger.NewNop())

	count, err := svc.CheckExpiringAndNotify(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, []sentReminder{
		{Email: "a@example.com", Tag: entity.ReminderTag7},
		{Email: "b@example.com", Tag: entity.ReminderTag1},
	}, sender.sent)
}

func TestReminderService_AlertsDisabledOnlyCounts(t *testing.T) {
	now := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	repo := &stubSubscriptions{rows: []entity.Subscription{
		{Email: "a@example.com", Name: "Seven", NextBillingDate: "2025-03-17", Status: "on"},
	}}
	sender := &stubReminderSender{}
	svc := NewReminderService(repo, sender, false, logger.NewNop())

	count, err := svc.CheckExpiringAndNotify(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Empty(t, sender.sent)
}

func TestReminderService_RepositoryError(t *testing.T) {
	svc := NewReminderService(&stubSubscriptions{err: errors.New("db down")}, &stubReminderSender{}, true, logger.NewNop())

	_, err := svc.CheckExpiringAndNotify(context.Background(), time.Now())
	assert.EqualError(t, err, "db down")
}

func TestReminderService_SendSample(t *testing.T) {
	now := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	sender := &stubReminderSender{}
	svc := NewReminderService(&stubSubscriptions{}, sender, false, logger.NewNop())

	tag, err := svc.SendSample(context.Background(), "User@Example.com", "remind-2", now)
	require.NoError(t, err)
	assert.Equal(t, entity.ReminderTag2, tag)

	tag, err = svc.SendSample(context.Background(), "user@example.com", "bogus", now)
	require.NoError(t, err)
	assert.Equal(t, entity.ReminderTag4, tag)

	require.Len(t, sender.sent, 2)
	assert.Equal(t, "user@example.com", sender.sent[0].Email)
}

func TestSubscriptionService_ListByEmail(t *testing.T) {
	repo := &stubSubscriptions{rows: []entity.Subscription{
		{Email: "user@example.com", Name: "A", Cost: decimal.NewFromInt(10)},
	}}
	svc := NewSubscriptionService(repo, logger.NewNop())

	subs, err := svc.ListByEmail(context.Background(), " USER@example.com ")
	require.NoError(t, err)
	assert.Len(t, subs, 1)

	_, err = svc.ListByEmail(context.Background(), "  ")
	var validationErr *entity.ValidationError
	assert.True(t, errors.As(err, &validationErr))
}
