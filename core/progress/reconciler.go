// Package progress keeps an admission's ride counters in line with its ride records.
//
// The rides table is the ground truth. Every ride insert, update or delete ends with a call to
// Reconcile for the admission(s) it touched, which recounts the completed rides and writes the
// counter (and the Completed status) back in a single update.
//
// Reconciliations of the same admission are serialized by an in-process keyed mutex, so the
// guarantee holds for a single API process. Several API processes writing the same admission
// concurrently still race (last write wins); the periodic sweep (ReconcileAll) repairs any drift.
package progress

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/rudradrivingschool/rudra-driving-school/core"
	"github.com/rudradrivingschool/rudra-driving-school/core/admission"
)

type (
	// RideCounter counts an admission's completed rides, matching status case-insensitively.
	RideCounter interface {
		CountCompleted(ctx context.Context, admissionID string, exec ...core.DBExecutor) (int, error)
	}

	// Listener is notified after every successful reconciliation.
	Listener interface {
		ProgressChanged(ctx context.Context, p admission.Progress)
	}

	// ListenerFunc adapts a func to a Listener.
	ListenerFunc func(ctx context.Context, p admission.Progress)

	Reconciler struct {
		admissions admission.Repository
		rides      RideCounter
		logger     core.Logger
		locks      *core.KeyedMutex
		listeners  []Listener
	}

	// SweepError collects the admissions a sweep failed to reconcile.
	SweepError struct {
		Failed map[string]error
	}
)

func (fn ListenerFunc) ProgressChanged(ctx context.Context, p admission.Progress) { fn(ctx, p) }

func (e *SweepError) Error() string {
	ids := make([]string, 0, len(e.Failed))
	for id := range e.Failed {
		ids = append(ids, id)
	}
	return fmt.Sprintf("reconciling %d admission(s) failed: %s", len(ids), strings.Join(ids, ", "))
}

func NewReconciler(admissions admission.Repository, rides RideCounter, logger core.Logger) *Reconciler {
	return &Reconciler{
		admissions: admissions,
		rides:      rides,
		logger:     logger,
		locks:      core.NewKeyedMutex(),
	}
}

// Subscribe registers listeners notified after every successful reconciliation.
// It must be called before the reconciler is shared.
func (rec *Reconciler) Subscribe(listeners ...Listener) {
	rec.listeners = append(rec.listeners, listeners...)
}

// Reconcile recounts the completed rides of admissionID and writes the result to the admission.
// The admission becomes Completed when the count reaches its total rides; the status is never
// moved back. An empty admissionID (unattributed ride) is a no-op.
// Callbacks and listeners run once the admission is unlocked, with a context that outlives ctx's cancellation.
func (rec *Reconciler) Reconcile(ctx context.Context, admissionID string, callbacks ...func(admission.Progress)) (admission.Progress, error) {
	if admissionID == "" {
		return admission.Progress{}, nil
	}

	p, err := rec.reconcile(ctx, admissionID)
	if err != nil {
		return admission.Progress{}, err
	}

	for _, cb := range callbacks {
		cb(p)
	}
	notifyCtx := context.WithoutCancel(ctx)
	for _, l := range rec.listeners {
		l.ProgressChanged(notifyCtx, p)
	}
	return p, nil
}

func (rec *Reconciler) reconcile(ctx context.Context, admissionID string) (admission.Progress, error) {
	unlock := rec.locks.Lock(admissionID)
	defer unlock()

	completed, err := rec.rides.CountCompleted(ctx, admissionID)
	if err != nil {
		return admission.Progress{}, rec.fail(admissionID, errors.Wrap(err, "counting completed rides"))
	}

	adm, err := rec.admissions.GetAdmission(ctx, admissionID)
	if err != nil {
		if errors.Cause(err) == admission.ErrNotFound {
			return admission.Progress{}, err
		}
		return admission.Progress{}, rec.fail(admissionID, errors.Wrap(err, "fetching admission"))
	}

	markCompleted := completed == adm.TotalRides
	wasCompleted := adm.IsCompleted()

	adm, err = rec.admissions.UpdateRideProgress(ctx, admissionID, completed, markCompleted)
	if err != nil {
		return admission.Progress{}, rec.fail(admissionID, errors.Wrap(err, "updating ride progress"))
	}

	return admission.Progress{
		AdmissionID:    adm.ID,
		StudentName:    adm.StudentName,
		RidesCompleted: adm.RidesCompleted,
		TotalRides:     adm.TotalRides,
		Status:         adm.Status,
		Completed:      markCompleted && !wasCompleted,
	}, nil
}

// ReconcileAll reconciles every admission. Failures are logged and collected in a *SweepError;
// the sweep does not stop on them.
func (rec *Reconciler) ReconcileAll(ctx context.Context) (int, error) {
	adms, err := rec.admissions.QueryAdmissions(ctx, nil, nil)
	if err != nil {
		return 0, errors.Wrap(err, "querying admissions")
	}

	var done int
	failed := make(map[string]error)
	for _, adm := range adms {
		if err = ctx.Err(); err != nil {
			return done, errors.Wrap(err, "reconciliation sweep interrupted")
		}
		if _, err = rec.Reconcile(ctx, adm.ID); err != nil {
			failed[adm.ID] = err
			continue
		}
		done++
	}

	if len(failed) > 0 {
		return done, &SweepError{Failed: failed}
	}
	return done, nil
}

func (rec *Reconciler) fail(admissionID string, err error) error {
	rec.logger.Error(
		fmt.Sprintf("reconciling admission %s", admissionID),
		err,
		map[string]interface{}{"admission_id": admissionID},
	)
	return err
}
