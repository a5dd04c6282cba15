package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/yuehengyu/Lunara/internal/domain"
)

func (s *PostgresStore) CreateSubscription(ctx context.Context, req domain.CreateSubscriptionRequest) (domain.Subscription, error) {
	secretKey, err := generateSecretKey()
	if err != nil {
		return domain.Subscription{}, fmt.Errorf("generating secret key: %w", err)
	}

	sub := domain.Subscription{
		ID:          uuid.NewString(),
		RecipientID: req.RecipientID,
		EndpointURL: req.EndpointURL,
		SecretKey:   secretKey,
		CreatedAt:   time.Now().UTC(),
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO subscriptions (id, recipient_id, endpoint_url, secret_key, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, sub.ID, sub.RecipientID, sub.EndpointURL, sub.SecretKey, sub.CreatedAt)
	if err != nil {
		return domain.Subscription{}, fmt.Errorf("inserting subscription: %w", err)
	}
	return sub, nil
}

func (s *PostgresStore) ListSubscriptionsByRecipient(ctx context.Context, recipientID string) ([]domain.Subscription, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, recipient_id, endpoint_url, secret_key, created_at
		FROM subscriptions
		WHERE recipient_id = $1
		ORDER BY created_at
	`, recipientID)
	if err != nil {
		return nil, fmt.Errorf("querying subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []domain.Subscription
	for rows.Next() {
		var sub domain.Subscription
		err := rows.Scan(&sub.ID, &sub.RecipientID, &sub.EndpointURL, &sub.SecretKey, &sub.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning subscription: %w", err)
		}
		subs = append(subs, sub)
	}

	if subs == nil {
		subs = []domain.Subscription{}
	}
	return subs, nil
}

func (s *PostgresStore) GetSubscription(ctx context.Context, id string) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := s.pool.QueryRow(ctx, `
		SELECT id, recipient_id, endpoint_url, secret_key, created_at
		FROM subscriptions WHERE id = $1
	`, id).Scan(&sub.ID, &sub.RecipientID, &sub.EndpointURL, &sub.SecretKey, &sub.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("querying subscription: %w", err)
	}
	return &sub, nil
}

func (s *PostgresStore) DeleteSubscription(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM subscriptions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting subscription: %w", err)
	}
	return nil
}

func generateSecretKey() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return "lnra_" + hex.EncodeToString(bytes), nil
}
