package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackcape/expense-reporter/constants"
	"github.com/blackcape/expense-reporter/internal/auth"
	"github.com/blackcape/expense-reporter/internal/common"
	"github.com/blackcape/expense-reporter/internal/entity"
	"github.com/blackcape/expense-reporter/internal/extract"
	"github.com/blackcape/expense-reporter/internal/ledger"
	"github.com/blackcape/expense-reporter/internal/receipt"
	"github.com/blackcape/expense-reporter/internal/report"
	"github.com/blackcape/expense-reporter/internal/store"
	"github.com/blackcape/expense-reporter/internal/trip"
)

type fakeExtractor struct {
	parsed entity.ParsedReceipt
	err    error
}

func (f *fakeExtractor) ExtractReceipt(context.Context, extract.Request) (entity.ParsedReceipt, error) {
	return f.parsed, f.err
}

type fakeRates struct {
	snapshot *entity.RateSnapshot
	err      error
}

func (f *fakeRates) Lookup(context.Context, string, entity.Location) (*entity.RateSnapshot, error) {
	return f.snapshot, f.err
}

type fakeVerifier struct{ email string }

func (f *fakeVerifier) Verify(context.Context, string) (string, error) {
	return f.email, nil
}

type testEnv struct {
	router    *gin.Engine
	token     string
	receipts  *receipt.Store
	items     *ledger.Ledger
	trips     *trip.Registry
	extractor *fakeExtractor
	rates     *fakeRates
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	kv := store.NewMemory()

	receipts, err := receipt.NewStore(ctx, kv, nil)
	require.NoError(t, err)
	items, err := ledger.New(ctx, kv, nil)
	require.NoError(t, err)

	rates := &fakeRates{snapshot: &entity.RateSnapshot{
		LodgingByMonth: []entity.LodgingRate{{Month: "June", Value: decimal.NewFromInt(150)}},
		MIE:            entity.MIEBreakdown{Total: decimal.NewFromInt(64)},
	}}
	trips, err := trip.NewRegistry(ctx, kv, rates, nil)
	require.NoError(t, err)

	extractor := &fakeExtractor{parsed: entity.ParsedReceipt{
		Date:        "2024-06-10",
		Description: "Hotel night",
		Amount:      200,
		Category:    string(constants.DirectLodging),
	}}

	sessions := auth.NewSessionStore(time.Hour)
	authSvc := auth.NewService(&fakeVerifier{email: "user@blackcape.io"}, sessions, "test-secret", "blackcape.io", time.Hour, nil)
	token, _, err := authSvc.Login(ctx, "fake-google-token")
	require.NoError(t, err)

	srv := New(receipts, items, trips, extractor, rates, report.NewXLSXRenderer(nil), authSvc, nil)
	router := srv.Router(common.ServerConfig{AllowedOrigins: []string{"*"}})

	return &testEnv{
		router:    router,
		token:     token,
		receipts:  receipts,
		items:     items,
		trips:     trips,
		extractor: extractor,
		rates:     rates,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.token)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeJSON[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/items", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req.Header.Set("Authorization", "Bearer garbage")
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/items", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestParseReceiptFlow(t *testing.T) {
	env := newTestEnv(t)

	image := base64.StdEncoding.EncodeToString([]byte("fake-jpeg"))
	w := env.do(t, http.MethodPost, "/api/v1/parse-receipt", gin.H{
		"base64Image": image,
		"fileName":    "hotel.jpg",
	})
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeJSON[parseReceiptResponse](t, w)
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "Hotel night", resp.Item.Description)
	assert.Equal(t, constants.DirectLodging, resp.Item.Category)
	assert.Equal(t, "200.00", resp.Item.Amount)
	require.Len(t, resp.Item.ReceiptIDs, 1)

	// Receipt and item both landed in their stores.
	_, ok := env.receipts.Get(resp.Item.ReceiptIDs[0])
	assert.True(t, ok)
	assert.Len(t, env.items.List(""), 1)
}

func TestParseReceiptInputErrors(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/parse-receipt", gin.H{"fileName": "x.jpg"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/parse-receipt", gin.H{"base64Image": "!!not-base64!!"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Input errors abort before any state lands.
	assert.Empty(t, env.receipts.List())
	assert.Empty(t, env.items.List(""))
}

func TestParseReceiptExtractionFailureStillCreatesItem(t *testing.T) {
	env := newTestEnv(t)
	env.extractor.err = errors.New("model unavailable")

	image := base64.StdEncoding.EncodeToString([]byte("fake-jpeg"))
	w := env.do(t, http.MethodPost, "/api/v1/parse-receipt", gin.H{"base64Image": image, "fileName": "x.jpg"})
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeJSON[parseReceiptResponse](t, w)
	assert.Equal(t, "error", resp.Status)
	assert.NotEmpty(t, resp.Message)
	assert.Equal(t, constants.DefaultCategory, resp.Item.Category)
	assert.Len(t, env.items.List(""), 1)
	assert.Len(t, env.receipts.List(), 1)
}

func TestCommitAmountCapsAtCeiling(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tr, err := env.trips.Add(ctx)
	require.NoError(t, err)
	require.NoError(t, env.trips.Update(ctx, tr.ID, trip.SetProject{Project: string(constants.Acme)}))
	require.NoError(t, env.trips.Update(ctx, tr.ID, trip.SetZip{Zip: "20001"}))
	require.NoError(t, env.trips.FetchRates(ctx, tr.ID))

	it, err := env.items.AddBlank(ctx)
	require.NoError(t, err)
	require.NoError(t, env.items.Update(ctx, it.ID, ledger.SetDate{Date: "2024-06-10"}))
	require.NoError(t, env.items.Update(ctx, it.ID, ledger.SetCategory{Category: string(constants.DirectLodging)}))
	require.NoError(t, env.items.Update(ctx, it.ID, ledger.SetProject{Project: string(constants.Acme)}))
	require.NoError(t, env.items.Update(ctx, it.ID, ledger.SetTripID{TripID: tr.ID.String()}))

	w := env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/items/%s/amount/commit", it.ID), gin.H{"amount": "200"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Item   entity.ExpenseItem `json:"item"`
		Capped bool               `json:"capped"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Capped)
	assert.Equal(t, "150.00", resp.Item.Amount)

	// Below the ceiling nothing changes.
	w = env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/items/%s/amount/commit", it.ID), gin.H{"amount": "120"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Capped)
	assert.Equal(t, "120", resp.Item.Amount)
}

func TestSetItemReceiptsValidatesIDs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	it, err := env.items.AddBlank(ctx)
	require.NoError(t, err)
	rid, err := env.receipts.Add(ctx, entity.Receipt{FileName: "a.jpg"})
	require.NoError(t, err)

	w := env.do(t, http.MethodPut, fmt.Sprintf("/api/v1/items/%s/receipts", it.ID), gin.H{
		"receiptIds": []string{uuid.NewString()},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	got, _ := env.items.Get(it.ID)
	assert.Empty(t, got.ReceiptIDs, "rejected request must not change linkage")

	w = env.do(t, http.MethodPut, fmt.Sprintf("/api/v1/items/%s/receipts", it.ID), gin.H{
		"receiptIds": []string{rid.String()},
	})
	require.Equal(t, http.StatusOK, w.Code)
	got, _ = env.items.Get(it.ID)
	assert.Equal(t, []uuid.UUID{rid}, got.ReceiptIDs)
}

func TestRemoveItemCleansOrphanedReceipts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rid, err := env.receipts.Add(ctx, entity.Receipt{FileName: "orphan.jpg"})
	require.NoError(t, err)
	it, err := env.items.AddFromParse(ctx, entity.ParsedReceipt{Amount: 10}, rid)
	require.NoError(t, err)

	w := env.do(t, http.MethodDelete, "/api/v1/items/"+it.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)

	_, ok := env.receipts.Get(rid)
	assert.False(t, ok, "orphaned receipt must be deleted")
}

func TestTripLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/trips", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	created := decodeJSON[entity.Trip](t, w)

	// Fetching rates without a location is a client error carried on the trip.
	w = env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/trips/%s/rates", created.ID), nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	got := decodeJSON[entity.Trip](t, w)
	assert.Equal(t, entity.FetchError, got.FetchState)
	assert.NotEmpty(t, got.ErrorMessage)

	w = env.do(t, http.MethodPatch, "/api/v1/trips/"+created.ID.String(), gin.H{"field": "zip", "value": "20001"})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/trips/%s/rates", created.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	got = decodeJSON[entity.Trip](t, w)
	assert.Equal(t, entity.FetchSuccess, got.FetchState)
	require.NotNil(t, got.Rates)

	w = env.do(t, http.MethodDelete, "/api/v1/trips/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodDelete, "/api/v1/trips/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReportEndpoints(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	it, err := env.items.AddBlank(ctx)
	require.NoError(t, err)
	require.NoError(t, env.items.Update(ctx, it.ID, ledger.SetAmount{Amount: "42.50"}))

	w := env.do(t, http.MethodGet, "/api/v1/report", nil)
	require.Equal(t, http.StatusOK, w.Code)
	rep := decodeJSON[report.Report](t, w)
	require.Len(t, rep.Rows, 1)
	assert.True(t, rep.Total.Equal(decimal.RequireFromString("42.50")))

	w = env.do(t, http.MethodGet, "/api/v1/report/document", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.NotEmpty(t, w.Body.Bytes())
}

func TestPerDiemEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/perdiem?startDate=2024-06-10&zip=20001", nil)
	require.Equal(t, http.StatusOK, w.Code)
	snapshot := decodeJSON[entity.RateSnapshot](t, w)
	rate, found := snapshot.LodgingFor("June")
	require.True(t, found)
	assert.True(t, rate.Equal(decimal.NewFromInt(150)))

	w = env.do(t, http.MethodGet, "/api/v1/perdiem?startDate=2024-06-10&city=Washington", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSplitEndpoint(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rid, err := env.receipts.Add(ctx, entity.Receipt{FileName: "combined.jpg"})
	require.NoError(t, err)
	it, err := env.items.AddFromParse(ctx, entity.ParsedReceipt{
		Date: "2024-06-10", Description: "Dinner plus parking", Amount: 60,
		Category: string(constants.DirectMeals),
	}, rid)
	require.NoError(t, err)

	w := env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/items/%s/split", it.ID), nil)
	require.Equal(t, http.StatusCreated, w.Code)
	clone := decodeJSON[entity.ExpenseItem](t, w)
	assert.Equal(t, it.ReceiptIDs, clone.ReceiptIDs)
	assert.Empty(t, clone.Amount)

	items := env.items.List("")
	require.Len(t, items, 2)
	assert.Equal(t, clone.ID, items[1].ID)
}
