package waitlist

import (
	"context"
	"time"

	"github.com/akeren/cv99x-waitlist/internal/models"
	"github.com/akeren/cv99x-waitlist/pkg/circuitbreaker"
	apperrors "github.com/akeren/cv99x-waitlist/pkg/errors"
)

// RESTClient is the subset of the hosted store client the repository needs.
type RESTClient interface {
	Upsert(ctx context.Context, table, onConflict string, row any, out any) error
	Ping(ctx context.Context, table string) error
}

// upsertRow is the exact column set written per submission. id and created_at
// are left to the store.
type upsertRow struct {
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Frustration  *string   `json:"frustration"`
	Dream        *string   `json:"dream"`
	PriceRange   *string   `json:"priceRange"`
	PaymentStyle *string   `json:"paymentStyle"`
	HeardFrom    *string   `json:"heardFrom"`
	BotField     string    `json:"botField"`
	Source       string    `json:"source"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type restWaitlistRepository struct {
	client  RESTClient
	breaker circuitbreaker.CircuitBreaker
	table   string
}

// NewRESTWaitlistRepository stores entries through the hosted REST API. A nil breaker disables tripping.
func NewRESTWaitlistRepository(client RESTClient, breaker circuitbreaker.CircuitBreaker, table string) WaitlistRepository {
	if table == "" {
		table = models.WaitlistTableName
	}
	return &restWaitlistRepository{client: client, breaker: breaker, table: table}
}

func (r *restWaitlistRepository) UpsertEntry(ctx context.Context, entry *models.WaitlistEntry) (*models.WaitlistEntry, error) {
	row := upsertRow{
		Name:         entry.Name,
		Email:        entry.Email,
		Frustration:  entry.Frustration,
		Dream:        entry.Dream,
		PriceRange:   entry.PriceRange,
		PaymentStyle: entry.PaymentStyle,
		HeardFrom:    entry.HeardFrom,
		BotField:     entry.BotField,
		Source:       entry.Source,
		UpdatedAt:    entry.UpdatedAt,
	}

	var stored models.WaitlistEntry
	err := r.call(func() error {
		return r.client.Upsert(ctx, r.table, "email", row, &stored)
	})
	if err != nil {
		return nil, apperrors.NewDatabaseError("unable to upsert waitlist entry", err)
	}

	return &stored, nil
}

// Ping bypasses the breaker: health probes neither trip it nor get refused by it.
func (r *restWaitlistRepository) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx, r.table); err != nil {
		return apperrors.NewDatabaseError("store ping failed", err)
	}
	return nil
}

func (r *restWaitlistRepository) call(fn func() error) error {
	if r.breaker == nil {
		return fn()
	}
	return r.breaker.Call(fn)
}
