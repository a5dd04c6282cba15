package domain

import "time"

// Subscription is an opaque delivery target owned by a recipient. A
// target that fails terminally is invalidated (removed), never retried.
type Subscription struct {
	ID          string    `json:"id"`
	RecipientID string    `json:"recipient_id"`
	EndpointURL string    `json:"endpoint_url"`
	SecretKey   string    `json:"secret_key,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type CreateSubscriptionRequest struct {
	RecipientID string `json:"recipient_id"`
	EndpointURL string `json:"endpoint_url"`
}
