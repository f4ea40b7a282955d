package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Noah202226/dental-clinic-v3-arctech/services/clinic-service/internal/changefeed"
	"github.com/Noah202226/dental-clinic-v3-arctech/services/clinic-service/internal/model"
	"github.com/Noah202226/dental-clinic-v3-arctech/services/clinic-service/internal/notify"
)

var manila = time.FixedZone("PHT", 8*3600)

type fakeStore struct {
	mu     sync.Mutex
	appts  map[string]model.Appointment
	nextID int

	setStatusErr     error
	rescheduleErr    error
	setStatusEntered chan struct{}
	setStatusRelease chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{appts: make(map[string]model.Appointment)}
}

func (s *fakeStore) List(_ context.Context) ([]model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Appointment, 0, len(s.appts))
	for _, a := range s.appts {
		out = append(out, a)
	}
	return out, nil
}

func (s *fakeStore) Create(_ context.Context, a model.Appointment) (model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	a.ID = fmt.Sprintf("appt-%d", s.nextID)
	a.CreatedAt = time.Now()
	s.appts[a.ID] = a
	return a, nil
}

func (s *fakeStore) SetStatus(_ context.Context, id string, status model.Status) error {
	if s.setStatusEntered != nil {
		s.setStatusEntered <- struct{}{}
		<-s.setStatusRelease
	}
	if s.setStatusErr != nil {
		return s.setStatusErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appts[id]
	if !ok {
		return pgx.ErrNoRows
	}
	a.Status = status
	s.appts[id] = a
	return nil
}

func (s *fakeStore) Reschedule(_ context.Context, id string, date time.Time, status model.Status) error {
	if s.rescheduleErr != nil {
		return s.rescheduleErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appts[id]
	if !ok {
		return pgx.ErrNoRows
	}
	a = a.WithDate(date, manila)
	a.Status = status
	s.appts[id] = a
	return nil
}

func (s *fakeStore) SetPatientID(_ context.Context, id string, patientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appts[id]
	if !ok {
		return pgx.ErrNoRows
	}
	a.PatientID = patientID
	s.appts[id] = a
	return nil
}

func (s *fakeStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.appts[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(s.appts, id)
	return nil
}

type fakeRegistry struct {
	mu      sync.Mutex
	created []model.Patient
	err     error
}

func (r *fakeRegistry) Create(_ context.Context, p model.Patient) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return "", r.err
	}
	r.created = append(r.created, p)
	return fmt.Sprintf("patient-%d", len(r.created)), nil
}

func (r *fakeRegistry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.created)
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
	err  error
}

func (n *fakeNotifier) Send(_ context.Context, msg notify.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}

func (n *fakeNotifier) all() []notify.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Notification(nil), n.sent...)
}

func newTestEngine(t *testing.T) (*Engine, *fakeStore, *fakeRegistry, *fakeNotifier) {
	t.Helper()
	store := newFakeStore()
	registry := &fakeRegistry{}
	notifier := &fakeNotifier{}
	engine := NewEngine(store, registry, notifier, slog.Default(), manila)
	return engine, store, registry, notifier
}

func mustCreate(t *testing.T, e *Engine, title, email string, date time.Time, status model.Status) model.Appointment {
	t.Helper()
	a, err := e.Create(context.Background(), Candidate{
		Title:  title,
		Email:  email,
		Date:   date,
		Status: status,
	})
	if err != nil {
		t.Fatalf("create %q: %v", title, err)
	}
	return a
}

func TestCreateDerivesCalendarFields(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)

	date := time.Date(2024, 3, 15, 9, 30, 0, 0, manila)
	a := mustCreate(t, engine, "Juan Dela Cruz", "juan@example.com", date, "")

	if a.Status != model.StatusPending {
		t.Errorf("default status = %q, want pending", a.Status)
	}
	if a.DateKey != "2024-03-15" {
		t.Errorf("dateKey = %q, want 2024-03-15", a.DateKey)
	}
	if a.TimeOfDay != "09:30" {
		t.Errorf("time = %q, want 09:30", a.TimeOfDay)
	}
}

func TestCreateValidation(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)

	var vErr *ValidationError
	_, err := engine.Create(context.Background(), Candidate{Date: time.Now()})
	if !errors.As(err, &vErr) {
		t.Fatalf("missing title: got %v, want ValidationError", err)
	}
	_, err = engine.Create(context.Background(), Candidate{Title: "x"})
	if !errors.As(err, &vErr) {
		t.Fatalf("missing date: got %v, want ValidationError", err)
	}
	_, err = engine.Create(context.Background(), Candidate{Title: "x", Date: time.Now(), Status: "archived"})
	if !errors.As(err, &vErr) {
		t.Fatalf("bad status: got %v, want ValidationError", err)
	}
}

func TestListSortedAndFiltered(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)

	base := time.Date(2024, 6, 1, 10, 0, 0, 0, manila)
	late := mustCreate(t, engine, "Late", "", base.AddDate(0, 0, 2), "")
	early := mustCreate(t, engine, "Early", "", base, "")
	mid := mustCreate(t, engine, "Mid", "", base.AddDate(0, 0, 1), model.StatusConfirmed)

	all := engine.List("")
	if len(all) != 3 {
		t.Fatalf("len(all) = %d, want 3", len(all))
	}
	if all[0].ID != early.ID || all[1].ID != mid.ID || all[2].ID != late.ID {
		t.Errorf("order = %s, %s, %s; want early, mid, late", all[0].Title, all[1].Title, all[2].Title)
	}

	pending := engine.List(model.StatusPending)
	if len(pending) != 2 {
		t.Errorf("len(pending) = %d, want 2", len(pending))
	}
	counts := engine.Counts()
	if counts.Pending != 2 || counts.Confirmed != 1 || counts.Cancelled != 0 || counts.All != 3 {
		t.Errorf("counts = %+v", counts)
	}
}

func TestApproveCreatesPatientOnce(t *testing.T) {
	engine, store, registry, notifier := newTestEngine(t)

	date := time.Date(2024, 3, 15, 9, 30, 0, 0, manila)
	a := mustCreate(t, engine, "Juan Dela Cruz", "juan@example.com", date, "")

	if err := engine.Approve(context.Background(), a.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	engine.Close()

	if got := registry.count(); got != 1 {
		t.Fatalf("patient records = %d, want 1", got)
	}
	if registry.created[0].PatientName != "Juan Dela Cruz" {
		t.Errorf("patient name = %q", registry.created[0].PatientName)
	}
	if registry.created[0].Note != "Initial record from booking." {
		t.Errorf("patient note = %q", registry.created[0].Note)
	}

	// Patient id written back durably and into the live list.
	if store.appts[a.ID].PatientID == "" {
		t.Error("patient id not written back to store")
	}
	confirmed := engine.List(model.StatusConfirmed)
	if len(confirmed) != 1 || confirmed[0].PatientID == "" {
		t.Error("patient id not reflected in the in-memory list")
	}

	sent := notifier.all()
	if len(sent) != 1 {
		t.Fatalf("notifications = %d, want 1", len(sent))
	}
	if sent[0].Status != "confirmed" || sent[0].Date != "2024-03-15" || sent[0].Time != "09:30" {
		t.Errorf("notification = %+v", sent[0])
	}

	// A repeated approve is a no-op and must not duplicate the saga.
	if err := engine.Approve(context.Background(), a.ID); err != nil {
		t.Fatalf("second approve: %v", err)
	}
	engine.Close()
	if got := registry.count(); got != 1 {
		t.Errorf("patient records after re-approve = %d, want 1", got)
	}
	if got := len(notifier.all()); got != 1 {
		t.Errorf("notifications after re-approve = %d, want 1", got)
	}
}

func TestDeclineIdempotent(t *testing.T) {
	engine, _, registry, notifier := newTestEngine(t)

	a := mustCreate(t, engine, "Ana", "ana@example.com", time.Date(2024, 4, 2, 14, 0, 0, 0, manila), "")

	if err := engine.Decline(context.Background(), a.ID); err != nil {
		t.Fatalf("decline: %v", err)
	}
	if err := engine.Decline(context.Background(), a.ID); err != nil {
		t.Fatalf("repeat decline should be a no-op, got %v", err)
	}
	engine.Close()

	if got := registry.count(); got != 0 {
		t.Errorf("decline must not create a patient record, got %d", got)
	}
	if got := len(notifier.all()); got != 1 {
		t.Errorf("notifications = %d, want 1", got)
	}
}

func TestTransitionRequiresPending(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)

	a := mustCreate(t, engine, "Ben", "", time.Date(2024, 4, 3, 8, 0, 0, 0, manila), "")
	if err := engine.Decline(context.Background(), a.ID); err != nil {
		t.Fatalf("decline: %v", err)
	}

	err := engine.Approve(context.Background(), a.ID)
	var trErr *TransitionError
	if !errors.As(err, &trErr) {
		t.Fatalf("approve after decline: got %v, want TransitionError", err)
	}
	if trErr.Err != nil {
		t.Errorf("rule violation should carry no wrapped error, got %v", trErr.Err)
	}
}

func TestTransitionMissingAppointment(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)

	var nfErr *NotFoundError
	if err := engine.Approve(context.Background(), "nope"); !errors.As(err, &nfErr) {
		t.Fatalf("got %v, want NotFoundError", err)
	}
}

func TestInFlightGuard(t *testing.T) {
	engine, store, _, _ := newTestEngine(t)

	a := mustCreate(t, engine, "Cara", "", time.Date(2024, 4, 4, 11, 0, 0, 0, manila), "")

	store.setStatusEntered = make(chan struct{})
	store.setStatusRelease = make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- engine.Approve(context.Background(), a.ID) }()

	// Wait until the first transition is inside the store write.
	<-store.setStatusEntered

	err := engine.Decline(context.Background(), a.ID)
	var trErr *TransitionError
	if !errors.As(err, &trErr) || trErr.Reason == "" {
		t.Fatalf("concurrent transition: got %v, want in-flight TransitionError", err)
	}

	close(store.setStatusRelease)
	if err := <-done; err != nil {
		t.Fatalf("first transition: %v", err)
	}
	engine.Close()
}

func TestRescheduleResetsToPending(t *testing.T) {
	engine, _, _, notifier := newTestEngine(t)

	a := mustCreate(t, engine, "Dan", "dan@example.com", time.Date(2024, 5, 1, 10, 0, 0, 0, manila), "")
	if err := engine.Decline(context.Background(), a.ID); err != nil {
		t.Fatalf("decline: %v", err)
	}

	newDate := time.Date(2024, 5, 20, 15, 45, 0, 0, manila)
	if err := engine.Reschedule(context.Background(), a.ID, newDate); err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	engine.Close()

	got := engine.List("")[0]
	if got.Status != model.StatusPending {
		t.Errorf("status = %q, want pending", got.Status)
	}
	if got.DateKey != "2024-05-20" || got.TimeOfDay != "15:45" {
		t.Errorf("derived fields = %q %q, want 2024-05-20 15:45", got.DateKey, got.TimeOfDay)
	}

	sent := notifier.all()
	var rescheduled *notify.Notification
	for i := range sent {
		if sent[i].Status == "Rescheduled (Pending Review)" {
			rescheduled = &sent[i]
		}
	}
	if rescheduled == nil {
		t.Fatal("no reschedule notification dispatched")
	}
	if rescheduled.Date != "2024-05-20" || rescheduled.Time != "15:45" {
		t.Errorf("notification slot = %q %q", rescheduled.Date, rescheduled.Time)
	}
}

func TestRescheduleRollsBackOnStoreFailure(t *testing.T) {
	engine, store, _, _ := newTestEngine(t)

	origDate := time.Date(2024, 5, 1, 10, 0, 0, 0, manila)
	a := mustCreate(t, engine, "Eve", "", origDate, "")

	store.rescheduleErr = errors.New("connection reset")
	err := engine.Reschedule(context.Background(), a.ID, origDate.AddDate(0, 0, 7))
	var trErr *TransitionError
	if !errors.As(err, &trErr) {
		t.Fatalf("got %v, want TransitionError", err)
	}

	got := engine.List("")[0]
	if got.DateKey != "2024-05-01" || got.TimeOfDay != "10:00" {
		t.Errorf("rollback failed: derived fields = %q %q", got.DateKey, got.TimeOfDay)
	}
}

func TestRemove(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)

	a := mustCreate(t, engine, "Fay", "", time.Date(2024, 6, 1, 9, 0, 0, 0, manila), "")
	if err := engine.Remove(context.Background(), a.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if got := len(engine.List("")); got != 0 {
		t.Fatalf("list after remove = %d items", got)
	}

	// Removing again is benign but reported.
	var nfErr *NotFoundError
	if err := engine.Remove(context.Background(), a.ID); !errors.As(err, &nfErr) {
		t.Fatalf("second remove: got %v, want NotFoundError", err)
	}
}

func TestSideEffectFailureIsReportedNotReturned(t *testing.T) {
	engine, _, _, notifier := newTestEngine(t)
	notifier.err = errors.New("relay down")

	var reported []error
	var mu sync.Mutex
	engine.Report = func(err error) {
		mu.Lock()
		reported = append(reported, err)
		mu.Unlock()
	}

	a := mustCreate(t, engine, "Gil", "gil@example.com", time.Date(2024, 6, 2, 9, 0, 0, 0, manila), "")
	if err := engine.Approve(context.Background(), a.ID); err != nil {
		t.Fatalf("approve must not surface notifier failure, got %v", err)
	}
	engine.Close()

	mu.Lock()
	defer mu.Unlock()
	if len(reported) == 0 {
		t.Fatal("side-effect failure was not reported")
	}
	var seErr *SideEffectError
	if !errors.As(reported[0], &seErr) || seErr.Stage != "notify" {
		t.Errorf("reported = %v, want SideEffectError at notify stage", reported[0])
	}
}

func TestNotificationSkippedWithoutEmail(t *testing.T) {
	engine, _, _, notifier := newTestEngine(t)

	a := mustCreate(t, engine, "Hana", "", time.Date(2024, 6, 3, 9, 0, 0, 0, manila), "")
	if err := engine.Decline(context.Background(), a.ID); err != nil {
		t.Fatalf("decline: %v", err)
	}
	engine.Close()

	if got := len(notifier.all()); got != 0 {
		t.Errorf("notifications = %d, want 0 without an email address", got)
	}
}

type fakeFeed struct {
	mu      sync.Mutex
	handler changefeed.Handler
}

func (f *fakeFeed) Subscribe(_ context.Context, handler changefeed.Handler) func() {
	f.mu.Lock()
	f.handler = handler
	f.mu.Unlock()
	return func() {}
}

func (f *fakeFeed) fire(ctx context.Context) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h != nil {
		h(ctx)
	}
}

func TestChangeFeedTriggersReload(t *testing.T) {
	engine, store, _, _ := newTestEngine(t)
	feed := &fakeFeed{}
	if err := engine.Start(context.Background(), feed); err != nil {
		t.Fatalf("start: %v", err)
	}

	// A mutation from another session lands in the store only.
	stored, err := store.Create(context.Background(), model.Appointment{
		Title:  "Walk-in",
		Status: model.StatusPending,
	}.WithDate(time.Date(2024, 7, 1, 10, 0, 0, 0, manila), manila))
	if err != nil {
		t.Fatalf("store create: %v", err)
	}
	if got := len(engine.List("")); got != 0 {
		t.Fatalf("list before notification = %d items", got)
	}

	feed.fire(context.Background())

	got := engine.List("")
	if len(got) != 1 || got[0].ID != stored.ID {
		t.Fatalf("list after notification = %+v, want the remote appointment", got)
	}
	engine.Close()
}
