/*
scheduler.go - Periodic ledger audit

PURPOSE:
  Periodically replays the usage log of every balance row of the current
  year and reports rows whose summary no longer matches the log. The
  audit never repairs anything; a mismatch is an operator problem.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Runs once immediately on Start, then on every tick
  - Each pass is bounded by its own context so Stop never waits on a
    stuck database longer than one pass

CONFIGURATION:
  - audit.interval_min: How often to check (default: 60)
  - audit.enabled: Whether the scheduler is active (default: true)

USAGE:
  scheduler := NewLedgerAuditScheduler(store, ledger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - balances.go: VerifyBalance endpoint (manual check of one row)
  - leave/ledger.go: Verify
*/
package api

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/warp/leave-engine/leave"
)

// BalanceLister lists the rows the audit walks.
type BalanceLister interface {
	ListBalances(ctx context.Context, year int) ([]leave.Balance, error)
}

// Verifier is satisfied by *leave.BalanceLedger.
type Verifier interface {
	Verify(ctx context.Context, employeeID string, year int) (*leave.Verification, error)
}

// AuditResult summarizes one pass.
type AuditResult struct {
	Year         int
	Checked      int
	Inconsistent []string
	Failed       int
}

// LedgerAuditScheduler checks balance rows against their usage logs.
type LedgerAuditScheduler struct {
	Balances      BalanceLister
	Ledger        Verifier
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
	logger *log.Entry
	now    func() time.Time
}

// NewLedgerAuditScheduler creates a new scheduler.
func NewLedgerAuditScheduler(balances BalanceLister, ledger Verifier) *LedgerAuditScheduler {
	return &LedgerAuditScheduler{
		Balances:      balances,
		Ledger:        ledger,
		CheckInterval: time.Hour,
		Enabled:       true,
		logger:        log.WithField("component", "ledger-audit"),
		now:           time.Now,
	}
}

// Start begins the scheduler. It may be called again after Stop.
func (s *LedgerAuditScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		s.logger.Info("disabled, not starting")
		return
	}
	if s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.CheckInterval)
	s.stop = make(chan struct{})
	s.wg.Add(1)
	go s.run(s.ticker.C, s.stop)

	s.logger.WithField("interval", s.CheckInterval.String()).Info("started")
}

// Stop stops the scheduler and waits for a running pass to finish.
func (s *LedgerAuditScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stop)
		s.wg.Wait()
		s.ticker = nil
		s.logger.Info("stopped")
	}
}

func (s *LedgerAuditScheduler) run(ticks <-chan time.Time, stop <-chan struct{}) {
	defer s.wg.Done()

	s.pass()
	for {
		select {
		case <-ticks:
			s.pass()
		case <-stop:
			return
		}
	}
}

func (s *LedgerAuditScheduler) pass() {
	ctx, cancel := context.WithTimeout(context.Background(), s.CheckInterval)
	defer cancel()
	if _, err := s.Audit(ctx, s.now().Year()); err != nil {
		s.logger.WithError(err).Error("audit pass failed")
	}
}

// Audit verifies every balance row of year.
func (s *LedgerAuditScheduler) Audit(ctx context.Context, year int) (*AuditResult, error) {
	balances, err := s.Balances.ListBalances(ctx, year)
	if err != nil {
		return nil, err
	}

	result := &AuditResult{Year: year, Inconsistent: []string{}}
	for _, b := range balances {
		v, err := s.Ledger.Verify(ctx, b.EmployeeID, year)
		if err != nil {
			result.Failed++
			s.logger.WithError(err).WithField("employee_id", b.EmployeeID).Warn("could not verify balance")
			continue
		}
		result.Checked++
		if !v.Consistent {
			result.Inconsistent = append(result.Inconsistent, b.EmployeeID)
			s.logger.WithFields(log.Fields{
				"employee_id":   b.EmployeeID,
				"year":          year,
				"annual_used":   v.Balance.AnnualUsed.String(),
				"replayed_used": v.ReplayedUsed.String(),
			}).Error("balance does not match its usage log")
		}
	}

	if len(result.Inconsistent) > 0 || result.Failed > 0 {
		s.logger.WithFields(log.Fields{
			"year":         year,
			"checked":      result.Checked,
			"inconsistent": len(result.Inconsistent),
			"failed":       result.Failed,
		}).Warn("audit completed with findings")
	} else {
		s.logger.WithFields(log.Fields{"year": year, "checked": result.Checked}).Debug("audit completed")
	}
	return result, nil
}
