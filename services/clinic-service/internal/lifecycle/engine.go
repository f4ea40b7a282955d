package lifecycle

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Noah202226/dental-clinic-v3-arctech/services/clinic-service/internal/changefeed"
	"github.com/Noah202226/dental-clinic-v3-arctech/services/clinic-service/internal/model"
	"github.com/Noah202226/dental-clinic-v3-arctech/services/clinic-service/internal/notify"
	"github.com/Noah202226/dental-clinic-v3-arctech/services/clinic-service/internal/storage"
)

// Store is the appointment collection as the engine sees it. The store is the
// source of truth; the engine's in-memory list is a cache refreshed after
// every mutation and on every change-feed notification.
type Store interface {
	List(ctx context.Context) ([]model.Appointment, error)
	Create(ctx context.Context, a model.Appointment) (model.Appointment, error)
	SetStatus(ctx context.Context, id string, status model.Status) error
	Reschedule(ctx context.Context, id string, date time.Time, status model.Status) error
	SetPatientID(ctx context.Context, id string, patientID string) error
	Delete(ctx context.Context, id string) error
}

// PatientRegistry receives the registry record created when an appointment is
// confirmed.
type PatientRegistry interface {
	Create(ctx context.Context, p model.Patient) (string, error)
}

// Notifier dispatches the patient-facing notification for a transition.
type Notifier interface {
	Send(ctx context.Context, n notify.Notification) error
}

// ChangeFeed is the store's change subscription: handler fires per remote
// mutation, the returned func cancels the subscription.
type ChangeFeed interface {
	Subscribe(ctx context.Context, handler changefeed.Handler) (unsubscribe func())
}

const rescheduleStatusLabel = "Rescheduled (Pending Review)"

// Engine owns the canonical in-memory appointment list and executes lifecycle
// transitions. Primary mutations go to the store first and are surfaced to the
// caller; the patient-registry write and the notification dispatch run as a
// best-effort saga whose failures are reported but never block or roll back
// the transition.
type Engine struct {
	store    Store
	registry PatientRegistry
	notifier Notifier
	logger   *slog.Logger
	loc      *time.Location

	// Report receives side-effect failures (always *SideEffectError) in
	// addition to the log line. Optional; set before Start.
	Report func(error)

	mu       sync.Mutex
	appts    []model.Appointment
	inflight map[string]struct{}

	effects     sync.WaitGroup
	unsubscribe func()
}

func NewEngine(store Store, registry PatientRegistry, notifier Notifier, logger *slog.Logger, loc *time.Location) *Engine {
	return &Engine{
		store:    store,
		registry: registry,
		notifier: notifier,
		logger:   logger,
		loc:      loc,
		inflight: make(map[string]struct{}),
	}
}

// Start performs the initial load and subscribes to the change feed. A failed
// initial load leaves the engine serving an empty list until the next refresh;
// the error is returned so the caller can surface it.
func (e *Engine) Start(ctx context.Context, feed ChangeFeed) error {
	err := e.Refresh(ctx)
	if feed != nil {
		e.unsubscribe = feed.Subscribe(ctx, func(ctx context.Context) {
			if err := e.Refresh(ctx); err != nil {
				e.logger.Error("reload after change notification failed", "err", err)
			}
		})
	}
	return err
}

// Close cancels the change subscription and waits for in-flight side-effect
// tasks to drain.
func (e *Engine) Close() {
	if e.unsubscribe != nil {
		e.unsubscribe()
		e.unsubscribe = nil
	}
	e.effects.Wait()
}

// Refresh replaces the in-memory list with a fresh full fetch. No event-level
// merging: the feed may deliver out of causal order, a full reload cannot.
func (e *Engine) Refresh(ctx context.Context) error {
	appts, err := e.store.List(ctx)
	if err != nil {
		return err
	}
	sortByDate(appts)

	e.mu.Lock()
	e.appts = appts
	e.mu.Unlock()
	return nil
}

// List returns appointments matching the status filter, ascending by slot
// time. An empty filter returns everything. It never fails: a degraded engine
// serves whatever the last successful load produced.
func (e *Engine) List(filter model.Status) []model.Appointment {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]model.Appointment, 0, len(e.appts))
	for _, a := range e.appts {
		if filter != "" && a.Status != filter {
			continue
		}
		out = append(out, a.Clone())
	}
	return out
}

// Counts reports per-status totals from the live in-memory list, so tab
// switches never cost a store round-trip.
type Counts struct {
	Pending   int
	Confirmed int
	Cancelled int
	All       int
}

func (e *Engine) Counts() Counts {
	e.mu.Lock()
	defer e.mu.Unlock()

	var c Counts
	for _, a := range e.appts {
		switch a.Status {
		case model.StatusPending:
			c.Pending++
		case model.StatusConfirmed:
			c.Confirmed++
		case model.StatusCancelled:
			c.Cancelled++
		}
	}
	c.All = len(e.appts)
	return c
}

// Candidate is a new appointment request, from staff entry or the public
// booking channel.
type Candidate struct {
	Title          string
	Email          string
	Phone          string
	Date           time.Time
	Notes          string
	Status         model.Status
	ReferralSource string
	MedicalHistory []string
	PhotoFileID    string
}

func (e *Engine) Create(ctx context.Context, c Candidate) (model.Appointment, error) {
	if c.Title == "" || c.Date.IsZero() {
		return model.Appointment{}, &ValidationError{Msg: "title and date are required"}
	}
	status := c.Status
	if status == "" {
		status = model.StatusPending
	}
	if !status.Valid() {
		return model.Appointment{}, &ValidationError{Msg: "invalid status " + string(status)}
	}

	a := model.Appointment{
		Title:          c.Title,
		Email:          c.Email,
		Phone:          c.Phone,
		Status:         status,
		Notes:          c.Notes,
		ReferralSource: c.ReferralSource,
		MedicalHistory: c.MedicalHistory,
		PhotoFileID:    c.PhotoFileID,
	}.WithDate(c.Date, e.loc)

	stored, err := e.store.Create(ctx, a)
	if err != nil {
		return model.Appointment{}, &TransitionError{Op: "create", Err: err}
	}

	e.mu.Lock()
	e.appts = append(e.appts, stored)
	sortByDate(e.appts)
	e.mu.Unlock()
	return stored.Clone(), nil
}

// Approve confirms a pending appointment. On success the patient-registry
// write (at most once per appointment) and the notification dispatch run
// fire-and-forget.
func (e *Engine) Approve(ctx context.Context, id string) error {
	return e.transition(ctx, "approve", id, model.StatusConfirmed)
}

// Decline cancels a pending appointment and dispatches a notification; no
// patient record is created. Declining an already-cancelled appointment is a
// no-op.
func (e *Engine) Decline(ctx context.Context, id string) error {
	return e.transition(ctx, "decline", id, model.StatusCancelled)
}

func (e *Engine) transition(ctx context.Context, op string, id string, target model.Status) error {
	release, err := e.acquire(op, id)
	if err != nil {
		return err
	}
	defer release()

	appt, ok := e.lookup(id)
	if !ok {
		return &NotFoundError{ID: id}
	}
	if appt.Status == target {
		// Repeating a transition changes nothing and sends nothing.
		return nil
	}
	if appt.Status != model.StatusPending {
		return &TransitionError{Op: op, ID: id, Reason: "only pending appointments can be " + string(target)}
	}

	if err := e.store.SetStatus(ctx, id, target); err != nil {
		if storage.IsNotFound(err) {
			return &NotFoundError{ID: id}
		}
		return &TransitionError{Op: op, ID: id, Err: err}
	}

	appt.Status = target
	e.replace(appt)

	if target == model.StatusConfirmed && appt.PatientID == "" {
		e.spawn(ctx, func(ctx context.Context) { e.createPatientRecord(ctx, appt) })
	}
	e.spawn(ctx, func(ctx context.Context) { e.dispatchNotification(ctx, appt, string(target)) })
	return nil
}

// Reschedule moves a cancelled (or any) appointment to a new slot and resets
// it to pending. The in-memory record is updated optimistically and rolled
// back if the store write fails.
func (e *Engine) Reschedule(ctx context.Context, id string, newDate time.Time) error {
	if newDate.IsZero() {
		return &ValidationError{Msg: "a new date and time is required"}
	}

	release, err := e.acquire("reschedule", id)
	if err != nil {
		return err
	}
	defer release()

	prev, ok := e.lookup(id)
	if !ok {
		return &NotFoundError{ID: id}
	}

	moved := prev.WithDate(newDate, e.loc)
	moved.Status = model.StatusPending
	e.replace(moved)

	if err := e.store.Reschedule(ctx, id, newDate, model.StatusPending); err != nil {
		e.replace(prev)
		if storage.IsNotFound(err) {
			return &NotFoundError{ID: id}
		}
		return &TransitionError{Op: "reschedule", ID: id, Err: err}
	}

	e.spawn(ctx, func(ctx context.Context) { e.dispatchNotification(ctx, moved, rescheduleStatusLabel) })
	return nil
}

// Remove permanently deletes the appointment. Deleting an id that is already
// gone surfaces a benign NotFoundError; the local copy is dropped either way.
func (e *Engine) Remove(ctx context.Context, id string) error {
	release, err := e.acquire("remove", id)
	if err != nil {
		return err
	}
	defer release()

	if err := e.store.Delete(ctx, id); err != nil {
		if storage.IsNotFound(err) {
			e.drop(id)
			return &NotFoundError{ID: id}
		}
		return &TransitionError{Op: "remove", ID: id, Err: err}
	}

	e.drop(id)
	return nil
}

// acquire rejects a second transition on the same appointment while one is in
// flight, so a double-click cannot run the confirmation saga twice.
func (e *Engine) acquire(op string, id string) (release func(), err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.inflight[id]; busy {
		return nil, &TransitionError{Op: op, ID: id, Reason: "another change is in flight"}
	}
	e.inflight[id] = struct{}{}
	return func() {
		e.mu.Lock()
		delete(e.inflight, id)
		e.mu.Unlock()
	}, nil
}

func (e *Engine) lookup(id string) (model.Appointment, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, a := range e.appts {
		if a.ID == id {
			return a.Clone(), true
		}
	}
	return model.Appointment{}, false
}

func (e *Engine) replace(a model.Appointment) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.appts {
		if e.appts[i].ID == a.ID {
			e.appts[i] = a
			break
		}
	}
	sortByDate(e.appts)
}

func (e *Engine) drop(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.appts {
		if e.appts[i].ID == id {
			e.appts = append(e.appts[:i], e.appts[i+1:]...)
			return
		}
	}
}

// spawn runs a side-effect task detached from the caller's cancellation but
// keeping its trace context.
func (e *Engine) spawn(ctx context.Context, task func(ctx context.Context)) {
	ctx = context.WithoutCancel(ctx)
	e.effects.Add(1)
	go func() {
		defer e.effects.Done()
		task(ctx)
	}()
}

func (e *Engine) createPatientRecord(ctx context.Context, appt model.Appointment) {
	patientID, err := e.registry.Create(ctx, model.PatientFromAppointment(appt))
	if err != nil {
		e.reportSideEffect(&SideEffectError{Stage: "patient-registry", ID: appt.ID, Err: err})
		return
	}

	if err := e.store.SetPatientID(ctx, appt.ID, patientID); err != nil {
		e.reportSideEffect(&SideEffectError{Stage: "patient-link", ID: appt.ID, Err: err})
		return
	}

	e.mu.Lock()
	for i := range e.appts {
		if e.appts[i].ID == appt.ID {
			e.appts[i].PatientID = patientID
			break
		}
	}
	e.mu.Unlock()
}

func (e *Engine) dispatchNotification(ctx context.Context, appt model.Appointment, statusLabel string) {
	if appt.Email == "" {
		return
	}
	notes := appt.Notes
	if notes == "" {
		notes = "No additional notes."
	}
	err := e.notifier.Send(ctx, notify.Notification{
		Email:       appt.Email,
		Status:      statusLabel,
		PatientName: appt.Title,
		Date:        appt.DateKey,
		Time:        appt.TimeOfDay,
		Notes:       notes,
	})
	if err != nil {
		e.reportSideEffect(&SideEffectError{Stage: "notify", ID: appt.ID, Err: err})
	}
}

func (e *Engine) reportSideEffect(err *SideEffectError) {
	e.logger.Warn("side effect failed", "stage", err.Stage, "appointment_id", err.ID, "err", err.Err)
	if e.Report != nil {
		e.Report(err)
	}
}

func sortByDate(appts []model.Appointment) {
	sort.SliceStable(appts, func(i, j int) bool {
		return appts[i].Date.Before(appts[j].Date)
	})
}
