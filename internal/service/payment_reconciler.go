package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"agent-booking-portal/internal/domain/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// PaymentReconciler periodically flags PENDING payments older than the
// staleness window for manual review. It never auto-expires them: a gateway
// callback may still arrive, and silently dropping money records is worse than
// a review queue.
type PaymentReconciler struct {
	db          *gorm.DB
	log         *logrus.Logger
	paymentRepo repository.PaymentRepository
	staleAfter  time.Duration
	interval    time.Duration

	// Graceful shutdown
	stopChan chan struct{}
	wg       sync.WaitGroup
	stopped  atomic.Bool
}

func NewPaymentReconciler(db *gorm.DB, log *logrus.Logger, paymentRepo repository.PaymentRepository, staleAfter, interval time.Duration) *PaymentReconciler {
	return &PaymentReconciler{
		db:          db,
		log:         log,
		paymentRepo: paymentRepo,
		staleAfter:  staleAfter,
		interval:    interval,
		stopChan:    make(chan struct{}),
	}
}

// Start launches the reconcile loop. Call Stop() during graceful shutdown.
func (r *PaymentReconciler) Start() {
	r.wg.Add(1)
	go r.loop()
}

// Stop gracefully shuts down the reconciler. Safe to call multiple times.
func (r *PaymentReconciler) Stop() {
	if r.stopped.CompareAndSwap(false, true) {
		close(r.stopChan)
		r.wg.Wait()
		r.log.Info("PaymentReconciler stopped")
	}
}

func (r *PaymentReconciler) loop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopChan:
			return
		case <-ticker.C:
			r.ReconcileOnce(context.Background())
		}
	}
}

// ReconcileOnce runs a single reconcile pass. Exported so bootstrap can run an
// initial pass before the loop starts ticking.
func (r *PaymentReconciler) ReconcileOnce(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-r.staleAfter)

	flagged, err := r.paymentRepo.FlagStalePending(r.db.WithContext(ctx), cutoff)
	if err != nil {
		r.log.Warnf("Payment reconcile pass failed: %+v", err)
		return
	}
	if flagged > 0 {
		r.log.Warnf("Flagged %d stale PENDING payments (older than %v) for manual review", flagged, r.staleAfter)
	}
}
