package submit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pos-service/internal/models"
)

func saleFixture() *models.SaleRecord {
	return &models.SaleRecord{
		BillID: "BILL-42",
		Items: []models.SaleItem{
			{ItemID: "rice", Name: "Rice", Quantity: 2, UnitPrice: 5000, LineTotal: 10000},
		},
		Customer:      models.Customer{Name: "A", Phone: "123"},
		Subtotal:      10000,
		FinalAmount:   10000,
		PaymentMethod: models.PaymentMethodCash,
		UserID:        "operator-1",
	}
}

func TestSubmitSuccess(t *testing.T) {
	var gotBills []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/sales", r.URL.Path)
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var rec models.SaleRecord
		require.NoError(t, json.NewDecoder(r.Body).Decode(&rec))
		gotBills = append(gotBills, rec.BillID)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(models.SubmitResponse{SaleID: "sale-1"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret", 5*time.Second)

	saleID, err := client.Submit(context.Background(), saleFixture())
	require.NoError(t, err)
	assert.Equal(t, "sale-1", saleID)

	// A retry reuses the bill ID from the record, never a fresh one.
	_, err = client.Submit(context.Background(), saleFixture())
	require.NoError(t, err)
	assert.Equal(t, []string{"BILL-42", "BILL-42"}, gotBills)
}

func TestSubmitDuplicateIsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.SubmitResponse{SaleID: "sale-1", Duplicate: true})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", 5*time.Second)

	saleID, err := client.Submit(context.Background(), saleFixture())
	require.NoError(t, err)
	assert.Equal(t, "sale-1", saleID)
}

func TestSubmitClassification(t *testing.T) {
	cases := []struct {
		name   string
		status int
		kind   ErrorKind
	}{
		{"insufficient stock", http.StatusConflict, KindValidation},
		{"bad payload", http.StatusBadRequest, KindValidation},
		{"unauthorized", http.StatusUnauthorized, KindAuth},
		{"forbidden", http.StatusForbidden, KindAuth},
		{"server error", http.StatusInternalServerError, KindTransient},
		{"gateway timeout", http.StatusGatewayTimeout, KindTransient},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				json.NewEncoder(w).Encode(map[string]string{"error": tc.name})
			}))
			defer srv.Close()

			client := NewClient(srv.URL, "", 5*time.Second)

			_, err := client.Submit(context.Background(), saleFixture())
			require.Error(t, err)
			assert.Equal(t, tc.kind, KindOf(err))
		})
	}
}

func TestSubmitNetworkErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	client := NewClient(srv.URL, "", time.Second)

	_, err := client.Submit(context.Background(), saleFixture())
	require.Error(t, err)
	assert.Equal(t, KindTransient, KindOf(err))
}
