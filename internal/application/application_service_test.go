package application_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/msdp-platform/msdp-flexstaff/internal/application"
	applicationerrors "github.com/msdp-platform/msdp-flexstaff/internal/application/errors"
	"github.com/msdp-platform/msdp-flexstaff/internal/events"
	"github.com/msdp-platform/msdp-flexstaff/internal/messaging/kafka/kafkatest"
	"github.com/msdp-platform/msdp-flexstaff/internal/shift"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

// memRepo keeps shifts, applications and assignments in maps and applies
// the same guarded increment the SQL repository uses.
type memRepo struct {
	shifts      map[string]*shift.Shift
	apps        map[string]*application.Application
	assignments []application.Assignment

	createAssignmentErr error
	updateErr           error
}

func newMemRepo() *memRepo {
	return &memRepo{
		shifts: map[string]*shift.Shift{},
		apps:   map[string]*application.Application{},
	}
}

func (m *memRepo) WithTx(*sql.Tx) application.Repository { return m }

func (m *memRepo) FindShift(_ context.Context, id string) (*shift.Shift, error) {
	sh, ok := m.shifts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *sh
	return &cp, nil
}

func (m *memRepo) FindShiftForEmployer(ctx context.Context, employerID, id string) (*shift.Shift, error) {
	sh, err := m.FindShift(ctx, id)
	if err != nil {
		return nil, err
	}
	if sh.EmployerID.String() != employerID {
		return nil, gorm.ErrRecordNotFound
	}
	return sh, nil
}

func (m *memRepo) LockShiftForEmployer(ctx context.Context, employerID, id string) (*shift.Shift, error) {
	return m.FindShiftForEmployer(ctx, employerID, id)
}

func (m *memRepo) IncrementFilled(_ context.Context, id string) (bool, error) {
	sh, ok := m.shifts[id]
	if !ok || sh.FilledPositions >= sh.TotalPositions {
		return false, nil
	}
	sh.FilledPositions++
	return true, nil
}

func (m *memRepo) Create(_ context.Context, a *application.Application) error {
	cp := *a
	m.apps[a.ID.String()] = &cp
	return nil
}

func (m *memRepo) FindByID(_ context.Context, id string) (*application.Application, error) {
	a, ok := m.apps[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memRepo) LockByID(ctx context.Context, id string) (*application.Application, error) {
	return m.FindByID(ctx, id)
}

func (m *memRepo) HasActiveApplication(_ context.Context, shiftID, workerID string) (bool, error) {
	for _, a := range m.apps {
		if a.ShiftID.String() == shiftID && a.WorkerID.String() == workerID && a.Status != application.StatusWithdrawn {
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepo) Update(_ context.Context, a *application.Application) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	cp := *a
	m.apps[a.ID.String()] = &cp
	return nil
}

func (m *memRepo) ListByShift(_ context.Context, shiftID string) ([]application.Application, error) {
	var out []application.Application
	for _, a := range m.apps {
		if a.ShiftID.String() == shiftID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memRepo) ListByWorker(_ context.Context, workerID string) ([]application.Application, error) {
	var out []application.Application
	for _, a := range m.apps {
		if a.WorkerID.String() == workerID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memRepo) CreateAssignment(_ context.Context, a *application.Assignment) error {
	if m.createAssignmentErr != nil {
		return m.createAssignmentErr
	}
	m.assignments = append(m.assignments, *a)
	return nil
}

func (m *memRepo) LockAssignmentForWorker(_ context.Context, workerID, id string) (*application.Assignment, error) {
	for i := range m.assignments {
		a := m.assignments[i]
		if a.ID.String() == id && a.WorkerID.String() == workerID {
			return &a, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memRepo) ConfirmAssignment(_ context.Context, id string, at time.Time) error {
	for i := range m.assignments {
		if m.assignments[i].ID.String() == id {
			m.assignments[i].ConfirmedByWorker = true
			m.assignments[i].ConfirmedAt = &at
		}
	}
	return nil
}

func (m *memRepo) ListAssignmentsByWorker(_ context.Context, workerID string) ([]application.Assignment, error) {
	var out []application.Assignment
	for _, a := range m.assignments {
		if a.WorkerID.String() == workerID {
			out = append(out, a)
		}
	}
	return out, nil
}

type recordingCache struct {
	invalidated []string
}

func (r *recordingCache) Invalidate(_ context.Context, id string) {
	r.invalidated = append(r.invalidated, id)
}

type appDeps struct {
	sqlMock sqlmock.Sqlmock
	repo    *memRepo
	outbox  *kafkatest.RecordingOutbox
	cache   *recordingCache
	service application.Service
}

func setupApplicationServiceTest(t *testing.T) *appDeps {
	t.Helper()
	db, sqlMock, err := sqlmock.New()
	assert.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := newMemRepo()
	outbox := &kafkatest.RecordingOutbox{}
	cache := &recordingCache{}
	svc := application.NewService(db, repo, outbox, cache)
	return &appDeps{sqlMock: sqlMock, repo: repo, outbox: outbox, cache: cache, service: svc}
}

func expectTx(t *testing.T, mock sqlmock.Sqlmock, commit bool) {
	t.Helper()
	mock.ExpectBegin()
	if commit {
		mock.ExpectCommit()
	} else {
		mock.ExpectRollback()
	}
}

func (d *appDeps) addShift(employerID uuid.UUID, status string, total, filled int) *shift.Shift {
	sh := &shift.Shift{
		ID:              uuid.New(),
		EmployerID:      employerID,
		Reference:       "SHF-000007",
		Title:           "Warehouse picker",
		ShiftDate:       time.Date(2026, 11, 9, 0, 0, 0, 0, time.UTC),
		StartTime:       "08:00",
		EndTime:         "16:00",
		TotalMinutes:    480,
		HourlyRate:      1150,
		TotalPositions:  total,
		FilledPositions: filled,
		Status:          status,
	}
	d.repo.shifts[sh.ID.String()] = sh
	return sh
}

func (d *appDeps) addApplication(sh *shift.Shift, status string) *application.Application {
	a := &application.Application{
		ID:        uuid.New(),
		ShiftID:   sh.ID,
		WorkerID:  uuid.New(),
		Status:    status,
		AppliedAt: time.Now().UTC(),
	}
	d.repo.apps[a.ID.String()] = a
	return a
}

func TestApplicationService_Apply(t *testing.T) {
	ctx := context.Background()
	employerID := uuid.New()

	t.Run("pending application notifies employer", func(t *testing.T) {
		deps := setupApplicationServiceTest(t)
		sh := deps.addShift(employerID, shift.StatusOpen, 2, 0)
		workerID := uuid.NewString()
		expectTx(t, deps.sqlMock, true)

		resp, err := deps.service.Apply(ctx, workerID, sh.ID.String(), application.ApplyRequest{Message: " Forklift licence "})

		assert.NoError(t, err)
		assert.Equal(t, application.StatusPending, resp.Status)
		assert.Equal(t, "Forklift licence", resp.Message)
		assert.Equal(t, []string{events.ApplicationSubmitted}, deps.outbox.EventTypes())

		var ev events.MarketplaceEvent
		assert.NoError(t, deps.outbox.Decode(0, &ev))
		assert.Equal(t, employerID.String(), ev.Recipients[0].ID)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("draft shift", func(t *testing.T) {
		deps := setupApplicationServiceTest(t)
		sh := deps.addShift(employerID, shift.StatusDraft, 2, 0)
		expectTx(t, deps.sqlMock, false)

		_, err := deps.service.Apply(ctx, uuid.NewString(), sh.ID.String(), application.ApplyRequest{})
		assert.ErrorIs(t, err, applicationerrors.ErrShiftNotOpen)
	})

	t.Run("fully booked shift", func(t *testing.T) {
		deps := setupApplicationServiceTest(t)
		sh := deps.addShift(employerID, shift.StatusOpen, 1, 1)
		expectTx(t, deps.sqlMock, false)

		_, err := deps.service.Apply(ctx, uuid.NewString(), sh.ID.String(), application.ApplyRequest{})
		assert.ErrorIs(t, err, applicationerrors.ErrCapacityExceeded)
		assert.Empty(t, deps.outbox.Rows)
	})

	t.Run("second active application is a duplicate", func(t *testing.T) {
		deps := setupApplicationServiceTest(t)
		sh := deps.addShift(employerID, shift.StatusOpen, 2, 0)
		workerID := uuid.NewString()

		expectTx(t, deps.sqlMock, true)
		_, err := deps.service.Apply(ctx, workerID, sh.ID.String(), application.ApplyRequest{})
		assert.NoError(t, err)

		expectTx(t, deps.sqlMock, false)
		_, err = deps.service.Apply(ctx, workerID, sh.ID.String(), application.ApplyRequest{})
		assert.ErrorIs(t, err, applicationerrors.ErrDuplicateApplication)
	})

	t.Run("withdrawn application allows reapplying", func(t *testing.T) {
		deps := setupApplicationServiceTest(t)
		sh := deps.addShift(employerID, shift.StatusOpen, 2, 0)
		old := deps.addApplication(sh, application.StatusWithdrawn)
		expectTx(t, deps.sqlMock, true)

		_, err := deps.service.Apply(ctx, old.WorkerID.String(), sh.ID.String(), application.ApplyRequest{})
		assert.NoError(t, err)
	})

	t.Run("unknown shift", func(t *testing.T) {
		deps := setupApplicationServiceTest(t)
		expectTx(t, deps.sqlMock, false)

		_, err := deps.service.Apply(ctx, uuid.NewString(), uuid.NewString(), application.ApplyRequest{})
		assert.ErrorIs(t, err, applicationerrors.ErrShiftNotFound)
	})

	t.Run("invalid ids never open a tx", func(t *testing.T) {
		deps := setupApplicationServiceTest(t)
		_, err := deps.service.Apply(ctx, "worker", uuid.NewString(), application.ApplyRequest{})
		assert.ErrorIs(t, err, applicationerrors.ErrInvalidWorkerID)
		_, err = deps.service.Apply(ctx, uuid.NewString(), "shift", application.ApplyRequest{})
		assert.ErrorIs(t, err, applicationerrors.ErrInvalidShiftID)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})
}

func TestApplicationService_Accept(t *testing.T) {
	ctx := context.Background()
	employerID := uuid.New()

	t.Run("creates assignment and fills a position", func(t *testing.T) {
		deps := setupApplicationServiceTest(t)
		sh := deps.addShift(employerID, shift.StatusOpen, 2, 0)
		app := deps.addApplication(sh, application.StatusPending)
		expectTx(t, deps.sqlMock, true)

		resp, err := deps.service.Accept(ctx, employerID.String(), app.ID.String())

		assert.NoError(t, err)
		assert.Equal(t, application.StatusAccepted, resp.Application.Status)
		assert.NotNil(t, resp.Application.RespondedAt)
		assert.Equal(t, 1, resp.FilledPositions)
		assert.Equal(t, 2, resp.TotalPositions)
		assert.False(t, resp.IsFullyBooked)
		assert.Equal(t, app.WorkerID.String(), resp.Assignment.WorkerID)
		assert.Equal(t, employerID.String(), resp.Assignment.EmployerID)
		assert.Len(t, deps.repo.assignments, 1)
		assert.Equal(t, 1, deps.repo.shifts[sh.ID.String()].FilledPositions)
		assert.Equal(t, []string{sh.ID.String()}, deps.cache.invalidated)
		assert.Equal(t, []string{events.ApplicationAccepted}, deps.outbox.EventTypes())
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("capacity is never exceeded", func(t *testing.T) {
		deps := setupApplicationServiceTest(t)
		sh := deps.addShift(employerID, shift.StatusOpen, 2, 0)
		apps := []*application.Application{
			deps.addApplication(sh, application.StatusPending),
			deps.addApplication(sh, application.StatusPending),
			deps.addApplication(sh, application.StatusPending),
		}

		expectTx(t, deps.sqlMock, true)
		_, err := deps.service.Accept(ctx, employerID.String(), apps[0].ID.String())
		assert.NoError(t, err)

		expectTx(t, deps.sqlMock, true)
		resp, err := deps.service.Accept(ctx, employerID.String(), apps[1].ID.String())
		assert.NoError(t, err)
		assert.True(t, resp.IsFullyBooked)

		expectTx(t, deps.sqlMock, false)
		_, err = deps.service.Accept(ctx, employerID.String(), apps[2].ID.String())
		assert.ErrorIs(t, err, applicationerrors.ErrCapacityExceeded)

		assert.Equal(t, 2, deps.repo.shifts[sh.ID.String()].FilledPositions)
		assert.Len(t, deps.repo.assignments, 2)
		assert.Equal(t, application.StatusPending, deps.repo.apps[apps[2].ID.String()].Status)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("applications on an open shift race for the last position at accept", func(t *testing.T) {
		deps := setupApplicationServiceTest(t)
		sh := deps.addShift(employerID, shift.StatusOpen, 1, 0)
		workerA, workerB := uuid.NewString(), uuid.NewString()

		expectTx(t, deps.sqlMock, true)
		appA, err := deps.service.Apply(ctx, workerA, sh.ID.String(), application.ApplyRequest{})
		assert.NoError(t, err)
		expectTx(t, deps.sqlMock, true)
		appB, err := deps.service.Apply(ctx, workerB, sh.ID.String(), application.ApplyRequest{})
		assert.NoError(t, err)

		expectTx(t, deps.sqlMock, true)
		_, err = deps.service.Accept(ctx, employerID.String(), appA.ID)
		assert.NoError(t, err)

		expectTx(t, deps.sqlMock, false)
		_, err = deps.service.Accept(ctx, employerID.String(), appB.ID)
		assert.ErrorIs(t, err, applicationerrors.ErrCapacityExceeded)
		assert.Equal(t, application.StatusPending, deps.repo.apps[appB.ID].Status)

		expectTx(t, deps.sqlMock, false)
		_, err = deps.service.Apply(ctx, uuid.NewString(), sh.ID.String(), application.ApplyRequest{})
		assert.ErrorIs(t, err, applicationerrors.ErrCapacityExceeded)

		assert.Equal(t, 1, deps.repo.shifts[sh.ID.String()].FilledPositions)
		assert.Len(t, deps.repo.assignments, 1)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("in progress shift still accepts", func(t *testing.T) {
		deps := setupApplicationServiceTest(t)
		sh := deps.addShift(employerID, shift.StatusInProgress, 2, 1)
		app := deps.addApplication(sh, application.StatusPending)
		expectTx(t, deps.sqlMock, true)

		_, err := deps.service.Accept(ctx, employerID.String(), app.ID.String())
		assert.NoError(t, err)
	})

	t.Run("cancelled shift", func(t *testing.T) {
		deps := setupApplicationServiceTest(t)
		sh := deps.addShift(employerID, shift.StatusCancelled, 2, 0)
		app := deps.addApplication(sh, application.StatusPending)
		expectTx(t, deps.sqlMock, false)

		_, err := deps.service.Accept(ctx, employerID.String(), app.ID.String())
		assert.ErrorIs(t, err, applicationerrors.ErrShiftNotOpen)
	})

	t.Run("already accepted", func(t *testing.T) {
		deps := setupApplicationServiceTest(t)
		sh := deps.addShift(employerID, shift.StatusOpen, 2, 1)
		app := deps.addApplication(sh, application.StatusAccepted)
		expectTx(t, deps.sqlMock, false)

		_, err := deps.service.Accept(ctx, employerID.String(), app.ID.String())
		assert.ErrorIs(t, err, applicationerrors.ErrInvalidStatusTransition)
		assert.Equal(t, 1, deps.repo.shifts[sh.ID.String()].FilledPositions)
	})

	t.Run("another employer sees not found", func(t *testing.T) {
		deps := setupApplicationServiceTest(t)
		sh := deps.addShift(employerID, shift.StatusOpen, 2, 0)
		app := deps.addApplication(sh, application.StatusPending)
		expectTx(t, deps.sqlMock, false)

		_, err := deps.service.Accept(ctx, uuid.NewString(), app.ID.String())
		assert.ErrorIs(t, err, applicationerrors.ErrApplicationNotFound)
	})

	t.Run("concurrent duplicate assignment", func(t *testing.T) {
		deps := setupApplicationServiceTest(t)
		sh := deps.addShift(employerID, shift.StatusOpen, 2, 0)
		app := deps.addApplication(sh, application.StatusPending)
		deps.repo.createAssignmentErr = &pgconn.PgError{Code: "23505"}
		expectTx(t, deps.sqlMock, false)

		_, err := deps.service.Accept(ctx, employerID.String(), app.ID.String())
		assert.ErrorIs(t, err, applicationerrors.ErrAssignmentExists)
		assert.Empty(t, deps.cache.invalidated)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("persist failure", func(t *testing.T) {
		deps := setupApplicationServiceTest(t)
		sh := deps.addShift(employerID, shift.StatusOpen, 2, 0)
		app := deps.addApplication(sh, application.StatusPending)
		deps.repo.updateErr = errors.New("db down")
		expectTx(t, deps.sqlMock, false)

		_, err := deps.service.Accept(ctx, employerID.String(), app.ID.String())
		assert.EqualError(t, err, "db down")
	})

	t.Run("invalid id", func(t *testing.T) {
		deps := setupApplicationServiceTest(t)
		_, err := deps.service.Accept(ctx, employerID.String(), "x")
		assert.ErrorIs(t, err, applicationerrors.ErrInvalidApplicationID)
	})
}

func TestApplicationService_RejectAndWithdraw(t *testing.T) {
	ctx := context.Background()
	employerID := uuid.New()

	t.Run("reject keeps the reason", func(t *testing.T) {
		deps := setupApplicationServiceTest(t)
		sh := deps.addShift(employerID, shift.StatusOpen, 1, 0)
		app := deps.addApplication(sh, application.StatusPending)
		expectTx(t, deps.sqlMock, true)

		resp, err := deps.service.Reject(ctx, employerID.String(), app.ID.String(), " no experience ")
		assert.NoError(t, err)
		assert.Equal(t, application.StatusRejected, resp.Status)
		assert.Equal(t, "no experience", *resp.RejectionReason)
		assert.Equal(t, []string{events.ApplicationRejected}, deps.outbox.EventTypes())
		assert.Equal(t, 0, deps.repo.shifts[sh.ID.String()].FilledPositions)
	})

	t.Run("reject of accepted application", func(t *testing.T) {
		deps := setupApplicationServiceTest(t)
		sh := deps.addShift(employerID, shift.StatusOpen, 1, 1)
		app := deps.addApplication(sh, application.StatusAccepted)
		expectTx(t, deps.sqlMock, false)

		_, err := deps.service.Reject(ctx, employerID.String(), app.ID.String(), "")
		assert.ErrorIs(t, err, applicationerrors.ErrInvalidStatusTransition)
	})

	t.Run("withdraw by owner", func(t *testing.T) {
		deps := setupApplicationServiceTest(t)
		sh := deps.addShift(employerID, shift.StatusOpen, 1, 0)
		app := deps.addApplication(sh, application.StatusPending)
		expectTx(t, deps.sqlMock, true)

		resp, err := deps.service.Withdraw(ctx, app.WorkerID.String(), app.ID.String())
		assert.NoError(t, err)
		assert.Equal(t, application.StatusWithdrawn, resp.Status)
		assert.Equal(t, []string{events.ApplicationWithdrawn}, deps.outbox.EventTypes())
	})

	t.Run("withdraw by another worker", func(t *testing.T) {
		deps := setupApplicationServiceTest(t)
		sh := deps.addShift(employerID, shift.StatusOpen, 1, 0)
		app := deps.addApplication(sh, application.StatusPending)
		expectTx(t, deps.sqlMock, false)

		_, err := deps.service.Withdraw(ctx, uuid.NewString(), app.ID.String())
		assert.ErrorIs(t, err, applicationerrors.ErrApplicationNotFound)
	})

	t.Run("withdraw after rejection", func(t *testing.T) {
		deps := setupApplicationServiceTest(t)
		sh := deps.addShift(employerID, shift.StatusOpen, 1, 0)
		app := deps.addApplication(sh, application.StatusRejected)
		expectTx(t, deps.sqlMock, false)

		_, err := deps.service.Withdraw(ctx, app.WorkerID.String(), app.ID.String())
		assert.ErrorIs(t, err, applicationerrors.ErrInvalidStatusTransition)
	})
}

func TestApplicationService_Lists(t *testing.T) {
	ctx := context.Background()
	employerID := uuid.New()

	deps := setupApplicationServiceTest(t)
	sh := deps.addShift(employerID, shift.StatusOpen, 3, 0)
	a := deps.addApplication(sh, application.StatusPending)
	deps.addApplication(sh, application.StatusRejected)

	list, err := deps.service.ListForShift(ctx, employerID.String(), sh.ID.String())
	assert.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = deps.service.ListForShift(ctx, uuid.NewString(), sh.ID.String())
	assert.ErrorIs(t, err, applicationerrors.ErrShiftNotFound)

	mine, err := deps.service.ListMine(ctx, a.WorkerID.String())
	assert.NoError(t, err)
	assert.Len(t, mine, 1)
	assert.Equal(t, a.ID.String(), mine[0].ID)
}

func TestApplicationService_ConfirmAssignment(t *testing.T) {
	ctx := context.Background()
	employerID := uuid.New()

	deps := setupApplicationServiceTest(t)
	sh := deps.addShift(employerID, shift.StatusOpen, 1, 0)
	app := deps.addApplication(sh, application.StatusPending)
	expectTx(t, deps.sqlMock, true)
	accepted, err := deps.service.Accept(ctx, employerID.String(), app.ID.String())
	assert.NoError(t, err)
	workerID := app.WorkerID.String()

	expectTx(t, deps.sqlMock, true)
	resp, err := deps.service.ConfirmAssignment(ctx, workerID, accepted.Assignment.ID)
	assert.NoError(t, err)
	assert.True(t, resp.ConfirmedByWorker)
	assert.NotNil(t, resp.ConfirmedAt)

	expectTx(t, deps.sqlMock, false)
	_, err = deps.service.ConfirmAssignment(ctx, workerID, accepted.Assignment.ID)
	assert.ErrorIs(t, err, applicationerrors.ErrAssignmentAlreadyConfirmed)

	expectTx(t, deps.sqlMock, false)
	_, err = deps.service.ConfirmAssignment(ctx, uuid.NewString(), accepted.Assignment.ID)
	assert.ErrorIs(t, err, applicationerrors.ErrAssignmentNotFound)

	mine, err := deps.service.ListMyAssignments(ctx, workerID)
	assert.NoError(t, err)
	assert.Len(t, mine, 1)
	assert.True(t, mine[0].ConfirmedByWorker)
	assert.Equal(t,
		[]string{events.ApplicationAccepted, events.AssignmentConfirmed},
		deps.outbox.EventTypes(),
	)
	assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
}
