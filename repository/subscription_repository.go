package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"toolx/entity"

	"github.com/jmoiron/sqlx"
)

// SubscriptionRepository reads subscription rows from the configured source
type SubscriptionRepository interface {
	ListByEmail(ctx context.Context, email string) ([]entity.Subscription, error)
	ListAll(ctx context.Context) ([]entity.Subscription, error)
}

// postgresSubscriptionRepository implements SubscriptionRepository on Postgres
type postgresSubscriptionRepository struct {
	db *sqlx.DB
}

// NewPostgresSubscriptionRepository creates a Postgres-backed subscription repository
func NewPostgresSubscriptionRepository(db *sqlx.DB) SubscriptionRepository {
	return &postgresSubscriptionRepository{db: db}
}

const subscriptionColumns = `id, email, name, cycle, to_char(next_billing_date, 'YYYY-MM-DD') AS next_billing_date, cost, status, link, note, updated_at`

// ListByEmail returns the subscriptions of one user ordered by next billing date
func (r *postgresSubscriptionRepository) ListByEmail(ctx context.Context, email string) ([]entity.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE lower(email) = $1
		ORDER BY next_billing_date ASC`

	subs := []entity.Subscription{}
	if err := r.db.SelectContext(ctx, &subs, query, normalizeEmail(email)); err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	return subs, nil
}

// ListAll returns every subscription, used by the reminder sweep
func (r *postgresSubscriptionRepository) ListAll(ctx context.Context) ([]entity.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + `
		FROM subscriptions
		ORDER BY next_billing_date ASC`

	subs := []entity.Subscription{}
	if err := r.db.SelectContext(ctx, &subs, query); err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	return subs, nil
}

// demoSubscriptionRepository serves rows from a JSON file, loaded once
type demoSubscriptionRepository struct {
	path string
	once sync.Once
	rows []entity.Subscription
	err  error
}

// NewDemoSubscriptionRepository creates a repository over a local JSON file
func NewDemoSubscriptionRepository(path string) SubscriptionRepository {
	return &demoSubscriptionRepository{path: path}
}

func (r *demoSubscriptionRepository) load() ([]entity.Subscription, error) {
	r.once.Do(func() {
		data, err := os.ReadFile(r.path)
		if err != nil {
			r.err = fmt.Errorf("failed to read demo subscriptions: %w", err)
			return
		}
		if err := json.Unmarshal(data, &r.rows); err != nil {
			r.err = fmt.Errorf("failed to parse demo subscriptions: %w", err)
		}
	})
	return r.rows, r.err
}

func (r *demoSubscriptionRepository) ListByEmail(_ context.Context, email string) ([]entity.Subscription, error) {
	rows, err := r.load()
	if err != nil {
		return nil, err
	}

	email = normalizeEmail(email)
	out := []entity.Subscription{}
	for _, row := range rows {
		if normalizeEmail(row.Email) == email {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *demoSubscriptionRepository) ListAll(_ context.Context) ([]entity.Subscription, error) {
	rows, err := r.load()
	if err != nil {
		return nil, err
	}
	return append([]entity.Subscription(nil), rows...), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
