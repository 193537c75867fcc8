package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/averline/concierge/internal/domain"
	"github.com/averline/concierge/internal/pricing"
	"github.com/averline/concierge/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubPricingService computes quotes against built-in defaults and records
// the contexts it saw. The admin operations are unused by these tests.
type stubPricingService struct {
	lastContext domain.PricingContext
}

func (s *stubPricingService) Quote(ctx context.Context, pctx domain.PricingContext) domain.PricingBreakdown {
	s.lastContext = pctx
	return pricing.Calculate(pctx, nil)
}

func (s *stubPricingService) CreditCost(ctx context.Context, pctx domain.PricingContext) int64 {
	return s.Quote(ctx, pctx).FinalCost
}

func (s *stubPricingService) ListRules(ctx context.Context) ([]domain.PricingRule, error) {
	return nil, nil
}

func (s *stubPricingService) GetRule(ctx context.Context, category string) (*domain.PricingRule, error) {
	return nil, domain.NotFound("pricing.get_rule", "pricing rule", category)
}

func (s *stubPricingService) CreateRule(ctx context.Context, params service.RuleParams) (*domain.PricingRule, error) {
	return nil, nil
}

func (s *stubPricingService) UpdateRule(ctx context.Context, params service.RuleParams) (*domain.PricingRule, error) {
	return nil, nil
}

func (s *stubPricingService) DeleteRule(ctx context.Context, category, actor string) error {
	return nil
}

func (s *stubPricingService) RuleHistory(ctx context.Context, category string, limit int) ([]domain.RuleChange, error) {
	return nil, nil
}

func newPricingHandlerForTest() (*PricingHandler, *stubPricingService) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	stub := &stubPricingService{}
	return NewPricingHandler(stub, logger), stub
}

func TestPricingHandler_Quote(t *testing.T) {
	h, _ := newPricingHandlerForTest()

	body := `{"category":"dining","partner_service_price":25000,"priority":"urgent"}`
	req := httptest.NewRequest("POST", "/api/v1/pricing/quote", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	h.Quote(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp quoteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "dining", resp.Category)
	assert.Equal(t, int64(6), resp.Breakdown.FinalCost)
	assert.NotEmpty(t, resp.Breakdown.Lines)
}

func TestPricingHandler_Quote_RequiresCategory(t *testing.T) {
	h, _ := newPricingHandlerForTest()

	req := httptest.NewRequest("POST", "/api/v1/pricing/quote", strings.NewReader(`{"priority":"urgent"}`))
	rec := httptest.NewRecorder()

	h.Quote(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPricingHandler_Quote_RejectsNegativePrice(t *testing.T) {
	h, _ := newPricingHandlerForTest()

	body := `{"category":"dining","partner_service_price":-100}`
	req := httptest.NewRequest("POST", "/api/v1/pricing/quote", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Quote(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPricingHandler_Quote_DerivesTimingFromRequestedDate(t *testing.T) {
	h, stub := newPricingHandlerForTest()

	// A date far enough out to classify as advance booking regardless of
	// when the test runs.
	body := `{"category":"travel","requested_date":"2030-06-15T10:00:00Z"}`
	req := httptest.NewRequest("POST", "/api/v1/pricing/quote", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Quote(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, stub.lastContext.IsAdvanceBooking)
	assert.False(t, stub.lastContext.IsLastMinute)
}

func TestPricingHandler_Quote_ExplicitFlagsWinOverDate(t *testing.T) {
	h, stub := newPricingHandlerForTest()

	body := `{"category":"travel","is_last_minute":true,"requested_date":"2030-06-15T10:00:00Z"}`
	req := httptest.NewRequest("POST", "/api/v1/pricing/quote", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Quote(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, stub.lastContext.IsLastMinute)
	assert.False(t, stub.lastContext.IsAdvanceBooking)
}

func TestPricingHandler_Quote_RejectsBadDate(t *testing.T) {
	h, _ := newPricingHandlerForTest()

	body := `{"category":"travel","requested_date":"next tuesday"}`
	req := httptest.NewRequest("POST", "/api/v1/pricing/quote", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Quote(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPricingHandler_Cost(t *testing.T) {
	h, _ := newPricingHandlerForTest()

	req := httptest.NewRequest("GET", "/api/v1/pricing/cost?category=private_aviation", nil)
	rec := httptest.NewRecorder()

	h.Cost(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Category   string `json:"category"`
		CreditCost int64  `json:"credit_cost"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "private_aviation", resp.Category)
	assert.Equal(t, int64(3), resp.CreditCost)
}

func TestPricingHandler_Cost_RejectsMalformedPrice(t *testing.T) {
	h, _ := newPricingHandlerForTest()

	req := httptest.NewRequest("GET", "/api/v1/pricing/cost?category=dining&partner_service_price=lots", nil)
	rec := httptest.NewRecorder()

	h.Cost(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
