package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/peereval-api/internal/dto"
	"github.com/noah-isme/peereval-api/internal/models"
	"github.com/noah-isme/peereval-api/internal/repository"
)

// disputeStore is an in-memory stand-in for the flag, evaluation and ticket tables.
type disputeStore struct {
	mu          sync.Mutex
	flags       map[uint]models.Flag
	evaluations map[uint]models.Evaluation
	tickets     map[uint]models.Ticket
	nextTicket  uint
	writes      int
	writeErr    error
}

func newDisputeStore() *disputeStore {
	return &disputeStore{
		flags:       map[uint]models.Flag{},
		evaluations: map[uint]models.Evaluation{},
		tickets:     map[uint]models.Ticket{},
		nextTicket:  100,
	}
}

type storeFlagRepo struct{ store *disputeStore }

func (r storeFlagRepo) GetByID(_ context.Context, id uint) (models.Flag, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	flag, ok := r.store.flags[id]
	if !ok {
		return models.Flag{}, gorm.ErrRecordNotFound
	}
	return flag, nil
}

func (r storeFlagRepo) List(_ context.Context, filter repository.FlagFilter) ([]models.Flag, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	allowed := map[uint]bool{}
	for _, id := range filter.BatchIDs {
		allowed[id] = true
	}

	var out []models.Flag
	for _, flag := range r.store.flags {
		if filter.Status != nil && flag.ResolutionStatus != *filter.Status {
			continue
		}
		if filter.Scoped && !allowed[r.store.evaluations[flag.EvaluationID].Exam.BatchID] {
			continue
		}
		out = append(out, flag)
	}
	return out, nil
}

func (r storeFlagRepo) ListByEvaluation(_ context.Context, evaluationID uint) ([]models.Flag, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []models.Flag
	for _, flag := range r.store.flags {
		if flag.EvaluationID == evaluationID {
			out = append(out, flag)
		}
	}
	return out, nil
}

func (r storeFlagRepo) CountByStatus(_ context.Context) (repository.FlagStatusCounts, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var counts repository.FlagStatusCounts
	for _, flag := range r.store.flags {
		switch flag.ResolutionStatus {
		case models.FlagStatusPending:
			counts.Pending++
		case models.FlagStatusResolved:
			counts.Resolved++
		case models.FlagStatusEscalated:
			counts.Escalated++
		}
	}
	return counts, nil
}

func (r storeFlagRepo) ListPendingBefore(context.Context, time.Time) ([]repository.StaleFlag, error) {
	return nil, nil
}

type storeEvaluationRepo struct{ store *disputeStore }

func (r storeEvaluationRepo) GetByID(_ context.Context, id uint) (models.Evaluation, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	evaluation, ok := r.store.evaluations[id]
	if !ok {
		return models.Evaluation{}, gorm.ErrRecordNotFound
	}
	evaluation.Marks = models.MarksOf(evaluation.Marks)
	return evaluation, nil
}

// storeDisputeRepo mirrors the revision checks of the GORM implementation.
type storeDisputeRepo struct{ store *disputeStore }

func (r storeDisputeRepo) ApplyResolution(_ context.Context, resolution repository.FlagResolution) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writeErr != nil {
		return s.writeErr
	}

	flag := resolution.Flag
	if s.flags[flag.ID].Revision != flag.Revision {
		return repository.ErrRevisionConflict
	}
	if evaluation := resolution.Evaluation; evaluation != nil {
		if s.evaluations[evaluation.ID].Revision != evaluation.Revision {
			return repository.ErrRevisionConflict
		}
		evaluation.Marks = models.MarksOf(resolution.Marks)
		evaluation.Feedback = resolution.Feedback
		evaluation.Status = models.EvaluationStatusCompleted
		evaluation.Revision++
		s.evaluations[evaluation.ID] = *evaluation
	}

	resolvedBy := resolution.ResolvedBy
	resolvedAt := resolution.ResolvedAt
	flag.ResolutionStatus = models.FlagStatusResolved
	flag.Resolution = resolution.Resolution
	flag.ResolvedBy = &resolvedBy
	flag.ResolvedAt = &resolvedAt
	flag.Revision++
	s.flags[flag.ID] = *flag
	s.writes++
	return nil
}

func (r storeDisputeRepo) ApplyEscalation(_ context.Context, escalation repository.FlagEscalation) (models.Ticket, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writeErr != nil {
		return models.Ticket{}, s.writeErr
	}

	flag := escalation.Flag
	if s.flags[flag.ID].Revision != flag.Revision {
		return models.Ticket{}, repository.ErrRevisionConflict
	}

	escalatedBy := escalation.EscalatedBy
	flag.ResolutionStatus = models.FlagStatusEscalated
	flag.EscalationReason = escalation.Reason
	flag.EscalatedBy = &escalatedBy
	flag.Revision++
	s.flags[flag.ID] = *flag
	s.writes++

	for id, ticket := range s.tickets {
		if ticket.FlagID != nil && *ticket.FlagID == flag.ID {
			ticket.Description = escalation.Ticket.Description
			ticket.EscalatedToTeacher = true
			s.tickets[id] = ticket
			return ticket, nil
		}
	}

	ticket := escalation.Ticket
	ticket.ID = s.nextTicket
	ticket.EscalatedToTeacher = true
	s.nextTicket++
	s.tickets[ticket.ID] = ticket
	return ticket, nil
}

type storeTicketRepo struct{ store *disputeStore }

func (r storeTicketRepo) GetByID(_ context.Context, id uint) (models.Ticket, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	ticket, ok := r.store.tickets[id]
	if !ok {
		return models.Ticket{}, gorm.ErrRecordNotFound
	}
	return ticket, nil
}

func (r storeTicketRepo) ListEscalated(_ context.Context) ([]models.Ticket, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []models.Ticket
	for _, ticket := range r.store.tickets {
		if ticket.EscalatedToTeacher {
			out = append(out, ticket)
		}
	}
	return out, nil
}

func (r storeTicketRepo) MarkResolved(_ context.Context, ticket *models.Ticket, resolvedBy uint, resolvedAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.tickets[ticket.ID].Revision != ticket.Revision {
		return repository.ErrRevisionConflict
	}
	ticket.Resolved = true
	ticket.ResolvedBy = &resolvedBy
	ticket.ResolvedAt = &resolvedAt
	ticket.Revision++
	r.store.tickets[ticket.ID] = *ticket
	r.store.writes++
	return nil
}

type staticUserRepo struct {
	byRole map[string][]uint
	err    error
}

func (r staticUserRepo) GetByID(_ context.Context, id uint) (models.User, error) {
	return models.User{ID: id}, nil
}

func (r staticUserRepo) ListIDsByRole(_ context.Context, role string) ([]uint, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.byRole[role], nil
}

// staticScopeRepo maps TA ids to the evaluations and batches they cover.
type staticScopeRepo struct {
	evaluations map[uint][]uint
	batches     map[uint][]uint
}

func (r staticScopeRepo) IsTAForEvaluation(_ context.Context, taID, evaluationID uint) (bool, error) {
	for _, id := range r.evaluations[taID] {
		if id == evaluationID {
			return true, nil
		}
	}
	return false, nil
}

func (r staticScopeRepo) BatchIDsForTA(_ context.Context, taID uint) ([]uint, error) {
	return r.batches[taID], nil
}

func (r staticScopeRepo) TAIDsForBatch(_ context.Context, batchID uint) ([]uint, error) {
	var ids []uint
	for taID, batches := range r.batches {
		for _, id := range batches {
			if id == batchID {
				ids = append(ids, taID)
			}
		}
	}
	return ids, nil
}

type recordingSink struct {
	mu      sync.Mutex
	sent    []dto.NotificationCreateRequest
	failFor map[uint]bool
}

func (s *recordingSink) Publish(_ context.Context, payload dto.NotificationCreateRequest) (dto.NotificationResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFor[payload.UserID] {
		return dto.NotificationResponse{}, errors.New("sink unavailable")
	}
	s.sent = append(s.sent, payload)
	return dto.NotificationResponse{UserID: payload.UserID, Type: payload.Type, Message: payload.Message}, nil
}

func (s *recordingSink) recipients() []uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]uint, 0, len(s.sent))
	for _, item := range s.sent {
		ids = append(ids, item.UserID)
	}
	return ids
}

type recordingActivity struct {
	mu      sync.Mutex
	entries []ActivityEntry
}

func (r *recordingActivity) Record(_ context.Context, entry ActivityEntry) (dto.ActivityResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return dto.ActivityResponse{Action: entry.Action}, nil
}

// disputeFixture wires the dispute services against the in-memory store.
type disputeFixture struct {
	store    *disputeStore
	sink     *recordingSink
	activity *recordingActivity
	deps     DisputeDeps
}

const (
	fixtureTA       uint = 11
	fixtureOtherTA  uint = 12
	fixtureStudent  uint = 21
	fixtureFlag     uint = 1
	fixtureEval     uint = 5
	fixtureExam     uint = 3
	fixtureBatch    uint = 2
	fixtureTeacherA uint = 31
)

func newDisputeFixture(t *testing.T, teachers ...uint) *disputeFixture {
	t.Helper()

	store := newDisputeStore()
	store.evaluations[fixtureEval] = models.Evaluation{
		ID:          fixtureEval,
		EvaluatorID: 40,
		EvaluateeID: fixtureStudent,
		ExamID:      fixtureExam,
		Marks:       models.MarksOf([]float64{10, 10, 10, 10, 10}),
		Feedback:    "initial feedback",
		Status:      models.EvaluationStatusCompleted,
		Exam: models.Exam{
			ID:           fixtureExam,
			BatchID:      fixtureBatch,
			NumQuestions: 5,
		},
	}
	store.flags[fixtureFlag] = models.Flag{
		ID:               fixtureFlag,
		EvaluationID:     fixtureEval,
		FlaggedBy:        fixtureStudent,
		Reason:           "question 3 was graded unfairly",
		ResolutionStatus: models.FlagStatusPending,
	}

	sink := &recordingSink{failFor: map[uint]bool{}}
	activity := &recordingActivity{}

	deps := DisputeDeps{
		Flags:       storeFlagRepo{store},
		Evaluations: storeEvaluationRepo{store},
		Disputes:    storeDisputeRepo{store},
		Users:       staticUserRepo{byRole: map[string][]uint{models.RoleTeacher: teachers}},
		Scope: NewScopeAuthorizer(staticScopeRepo{
			evaluations: map[uint][]uint{fixtureTA: {fixtureEval}},
			batches:     map[uint][]uint{fixtureTA: {fixtureBatch}, fixtureOtherTA: {99}},
		}),
		Notifier:        sink,
		Activity:        activity,
		StatsCache:      NewStatsCache(nil, 0, silentLogger()),
		Validator:       validator.New(validator.WithRequiredStructEnabled()),
		DefaultMaxMarks: models.DefaultMaxMarksPerQuestion,
	}

	return &disputeFixture{store: store, sink: sink, activity: activity, deps: deps}
}

func (f *disputeFixture) flag(t *testing.T) models.Flag {
	t.Helper()
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return f.store.flags[fixtureFlag]
}

func (f *disputeFixture) evaluation(t *testing.T) models.Evaluation {
	t.Helper()
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return f.store.evaluations[fixtureEval]
}

func silentLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func taActor() Actor {
	return Actor{ID: fixtureTA, Role: models.RoleTA}
}
