package school

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Marker-write tests run against a real database because the merge semantics
// live in the SQL. Point TEST_DATABASE_URL at a database with the migrations
// applied; without it the tests skip.
func testStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	pool, err := pgxpool.New(context.Background(), url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	return NewStore(pool)
}

func insertCustomer(t *testing.T, s *Store, data string) int64 {
	t.Helper()
	var id int64
	row := s.pool.QueryRow(context.Background(),
		`INSERT INTO customers (first_name, last_name, email, data) VALUES ('Ada', 'Brown', 'ada@example.com', $1) RETURNING id`,
		dataArg(data))
	if err := row.Scan(&id); err != nil {
		t.Fatalf("insert customer: %v", err)
	}
	t.Cleanup(func() {
		_, _ = s.pool.Exec(context.Background(), `DELETE FROM customers WHERE id = $1`, id)
	})
	return id
}

func dataArg(data string) any {
	if data == "" {
		return nil
	}
	return data
}

func customerData(t *testing.T, s *Store, id int64) map[string]any {
	t.Helper()
	var raw []byte
	row := s.pool.QueryRow(context.Background(), `SELECT data FROM customers WHERE id = $1`, id)
	if err := row.Scan(&raw); err != nil {
		t.Fatalf("read customer data: %v", err)
	}
	return decodeAnnotations(raw)
}

func TestMarkPromotionSentInitializesNullMap(t *testing.T) {
	s := testStore(t)
	id := insertCustomer(t, s, "")
	at := time.Date(2024, 5, 20, 13, 30, 0, 0, time.UTC)

	claimed, err := s.MarkPromotionSent(context.Background(), id, "lindy1PromoEmailSent", at)
	if err != nil {
		t.Fatalf("MarkPromotionSent: %v", err)
	}
	if !claimed {
		t.Fatal("expected the customer to be claimed")
	}
	data := customerData(t, s, id)
	if got := data["lindy1PromoEmailSent"]; got != "2024-05-20 13:30:00" {
		t.Fatalf("marker = %v, expected the formatted timestamp", got)
	}
}

func TestMarkPromotionSentPreservesUnrelatedKeys(t *testing.T) {
	s := testStore(t)
	id := insertCustomer(t, s, `{"mailList": true, "notes": "vip"}`)

	claimed, err := s.MarkPromotionSent(context.Background(), id, "lindy1PromoEmailSent", time.Now())
	if err != nil {
		t.Fatalf("MarkPromotionSent: %v", err)
	}
	if !claimed {
		t.Fatal("expected the customer to be claimed")
	}
	data := customerData(t, s, id)
	if data["mailList"] != true || data["notes"] != "vip" {
		t.Fatalf("unrelated keys were disturbed: %v", data)
	}
}

func TestMarkPromotionSentNoOpWhenAlreadySent(t *testing.T) {
	s := testStore(t)
	id := insertCustomer(t, s, `{"lindy1PromoEmailSent": "2023-01-01 00:00:00"}`)

	claimed, err := s.MarkPromotionSent(context.Background(), id, "lindy1PromoEmailSent", time.Now())
	if err != nil {
		t.Fatalf("MarkPromotionSent: %v", err)
	}
	if claimed {
		t.Fatal("an already-sent customer must not be claimed again")
	}
	data := customerData(t, s, id)
	if got := data["lindy1PromoEmailSent"]; got != "2023-01-01 00:00:00" {
		t.Fatalf("existing marker was overwritten: %v", got)
	}
}

// A falsy leftover marker reads as not-sent, so the claim must overwrite it.
// Otherwise the customer is re-selected and re-emailed on every run.
func TestMarkPromotionSentClaimsFalsyMarker(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "empty string", data: `{"lindy1PromoEmailSent": ""}`},
		{name: "false", data: `{"lindy1PromoEmailSent": false}`},
		{name: "zero", data: `{"lindy1PromoEmailSent": 0}`},
		{name: "null", data: `{"lindy1PromoEmailSent": null}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := testStore(t)
			id := insertCustomer(t, s, tc.data)
			at := time.Date(2024, 5, 20, 13, 30, 0, 0, time.UTC)

			claimed, err := s.MarkPromotionSent(context.Background(), id, "lindy1PromoEmailSent", at)
			if err != nil {
				t.Fatalf("MarkPromotionSent: %v", err)
			}
			if !claimed {
				t.Fatal("a falsy marker must not block the claim")
			}
			cust := Customer{Data: customerData(t, s, id)}
			if !cust.PromotionState("lindy1PromoEmailSent").Sent {
				t.Fatal("marker must read as sent after the claim")
			}
		})
	}
}
