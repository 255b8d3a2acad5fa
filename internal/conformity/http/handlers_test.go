package conformityhttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terracore/terracore-pro/internal/billing"
	"github.com/terracore/terracore-pro/internal/conformity"
)

type stubChecker struct {
	report conformity.Report
	err    error
	kinds  []conformity.Kind
}

func (s *stubChecker) CheckQuote(ctx context.Context, companyID, quoteID uuid.UUID) (conformity.Report, error) {
	s.kinds = append(s.kinds, conformity.KindQuote)
	return s.report, s.err
}

func (s *stubChecker) CheckInvoice(ctx context.Context, companyID, invoiceID uuid.UUID) (conformity.Report, error) {
	s.kinds = append(s.kinds, conformity.KindInvoice)
	return s.report, s.err
}

func serve(h *Handler, method, target string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Route("/companies/{companyID}", h.MountRoutes)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(method, target, nil))
	return rr
}

func TestHandlerReturnsReportAndCountsVerdict(t *testing.T) {
	checker := &stubChecker{report: conformity.Report{Kind: conformity.KindInvoice, Verdict: conformity.VerdictNeedsAttention, Score: 90}}
	reg := prometheus.NewRegistry()
	h := NewHandler(nil, checker, reg)

	rr := serve(h, http.MethodGet, "/companies/"+uuid.NewString()+"/invoices/"+uuid.NewString()+"/conformity")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []conformity.Kind{conformity.KindInvoice}, checker.kinds)

	var body conformity.Report
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 90, body.Score)
	assert.Equal(t, conformity.VerdictNeedsAttention, body.Verdict)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, "terracore_conformity_verdicts_total", families[0].GetName())
	require.Len(t, families[0].GetMetric(), 1)
	assert.Equal(t, 1.0, families[0].GetMetric()[0].GetCounter().GetValue())
}

func TestHandlerMapsErrors(t *testing.T) {
	company := uuid.NewString()
	doc := uuid.NewString()

	rr := serve(NewHandler(nil, &stubChecker{err: billing.ErrNotFound}, nil), http.MethodGet, "/companies/"+company+"/quotes/"+doc+"/conformity")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = serve(NewHandler(nil, &stubChecker{err: errors.New("timeout")}, nil), http.MethodGet, "/companies/"+company+"/quotes/"+doc+"/conformity")
	assert.Equal(t, http.StatusBadGateway, rr.Code)

	checker := &stubChecker{}
	rr = serve(NewHandler(nil, checker, nil), http.MethodGet, "/companies/"+company+"/quotes/not-a-uuid/conformity")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Empty(t, checker.kinds)
}
