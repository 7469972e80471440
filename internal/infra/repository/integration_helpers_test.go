//go:build integration

package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

func seedInventory(t *testing.T, pool *pgxpool.Pool, storeID uuid.UUID, sku, title string, price int64, active bool, onHand, reserved int32) {
	t.Helper()
	_, err := pool.Exec(context.Background(), `
		INSERT INTO inventory (store_id, sku, title, unit_price_cents, active, on_hand, reserved)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		storeID, sku, title, price, active, onHand, reserved)
	if err != nil {
		t.Fatalf("failed to seed inventory: %v", err)
	}
}

func inventoryCounters(t *testing.T, pool *pgxpool.Pool, storeID uuid.UUID, sku string) (onHand, reserved int32) {
	t.Helper()
	err := pool.QueryRow(context.Background(),
		`SELECT on_hand, reserved FROM inventory WHERE store_id = $1 AND sku = $2`,
		storeID, sku).Scan(&onHand, &reserved)
	if err != nil {
		t.Fatalf("failed to read inventory counters: %v", err)
	}
	return onHand, reserved
}

type discountSeed struct {
	ID         uuid.UUID
	StoreID    uuid.UUID
	Code       string
	Type       string
	Value      int64
	Status     string
	StartsAt   *time.Time
	ExpiresAt  *time.Time
	UsageLimit *int32
	UsageCount int32
}

func seedDiscount(t *testing.T, pool *pgxpool.Pool, d discountSeed) uuid.UUID {
	t.Helper()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Type == "" {
		d.Type = "percentage"
	}
	if d.Value == 0 {
		d.Value = 10
	}
	if d.Status == "" {
		d.Status = "active"
	}
	_, err := pool.Exec(context.Background(), `
		INSERT INTO discounts (id, store_id, code, discount_type, value, status,
		                       starts_at, expires_at, usage_limit, usage_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		d.ID, d.StoreID, d.Code, d.Type, d.Value, d.Status,
		d.StartsAt, d.ExpiresAt, d.UsageLimit, d.UsageCount)
	if err != nil {
		t.Fatalf("failed to seed discount: %v", err)
	}
	return d.ID
}

func discountUsageCount(t *testing.T, pool *pgxpool.Pool, discountID uuid.UUID) int32 {
	t.Helper()
	var count int32
	err := pool.QueryRow(context.Background(),
		`SELECT usage_count FROM discounts WHERE id = $1`, discountID).Scan(&count)
	if err != nil {
		t.Fatalf("failed to read discount usage count: %v", err)
	}
	return count
}

func seedCart(t *testing.T, pool *pgxpool.Pool, storeID uuid.UUID, status string) uuid.UUID {
	t.Helper()
	cartID := uuid.New()
	_, err := pool.Exec(context.Background(), `
		INSERT INTO carts (id, store_id, customer_email, currency, status, expires_at)
		VALUES ($1, $2, 'customer@example.com', 'usd', $3, now() + interval '30 minutes')`,
		cartID, storeID, status)
	if err != nil {
		t.Fatalf("failed to seed cart: %v", err)
	}
	return cartID
}

func cartStatus(t *testing.T, pool *pgxpool.Pool, cartID uuid.UUID) string {
	t.Helper()
	var status string
	err := pool.QueryRow(context.Background(),
		`SELECT status FROM carts WHERE id = $1`, cartID).Scan(&status)
	if err != nil {
		t.Fatalf("failed to read cart status: %v", err)
	}
	return status
}

func intPtr(v int32) *int32 { return &v }
