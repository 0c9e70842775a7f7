// Package service provides the business logic layer (use cases).
// LedgerService mutates entries, AccountService resolves the banca and its
// balance and DashboardService composes the chart and KPI payloads.
package service

import (
	"errors"
	"time"

	"github.com/boddenberg/banca-bfa-go/internal/domain"
	"github.com/boddenberg/banca-bfa-go/internal/infra/observability"
)

// Clock returns the current time. Services default to time.Now.
type Clock func() time.Time

// observe records the operation duration and, for store failures, the
// store error counter. errp points at the caller's named error result.
func observe(m *observability.Metrics, op string, start time.Time, errp *error) {
	m.RecordDuration(op, time.Since(start))
	var ext *domain.ErrExternalService
	if errp != nil && errors.As(*errp, &ext) {
		m.IncrStoreError(ext.Service)
	}
}
