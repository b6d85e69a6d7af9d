// Package testutil builds throwaway SQLite databases seeded with a small dispute scenario.
package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/noah-isme/peereval-api/internal/database"
	"github.com/noah-isme/peereval-api/internal/models"
)

// OpenSQLite returns a migrated in-memory database private to the calling test.
func OpenSQLite(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Discard, TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection keeps shared-cache table locks out of transactional tests.
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = sqlDB.Close() })

	return db
}

// Scenario holds the identifiers of a seeded dispute.
type Scenario struct {
	Student      models.User
	Evaluator    models.User
	TA           models.User
	OtherTA      models.User
	Teachers     []models.User
	Batch        models.Batch
	OtherBatch   models.Batch
	Exam         models.Exam
	Evaluation   models.Evaluation
	PendingFlag  models.Flag
	ResolvedFlag models.Flag
	OtherFlag    models.Flag
}

// SeedScenario creates one course with two batches. TA supervises Batch; OtherTA supervises OtherBatch.
// PendingFlag and ResolvedFlag sit on Evaluation (Batch); OtherFlag sits on an evaluation in OtherBatch.
func SeedScenario(t *testing.T, db *gorm.DB) Scenario {
	t.Helper()

	var s Scenario
	s.Student = models.User{Name: "Sam Student", Email: "sam@example.com", Role: models.RoleStudent}
	s.Evaluator = models.User{Name: "Eve Evaluator", Email: "eve@example.com", Role: models.RoleStudent}
	s.TA = models.User{Name: "Tara TA", Email: "tara@example.com", Role: models.RoleTA}
	s.OtherTA = models.User{Name: "Omar TA", Email: "omar@example.com", Role: models.RoleTA}
	s.Teachers = []models.User{
		{Name: "Tess Teacher", Email: "tess@example.com", Role: models.RoleTeacher},
		{Name: "Theo Teacher", Email: "theo@example.com", Role: models.RoleTeacher},
	}
	for _, user := range []*models.User{&s.Student, &s.Evaluator, &s.TA, &s.OtherTA, &s.Teachers[0], &s.Teachers[1]} {
		require.NoError(t, db.Create(user).Error)
	}

	course := models.Course{Name: "Distributed Systems", Code: "CS-451", TeacherID: s.Teachers[0].ID}
	require.NoError(t, db.Create(&course).Error)

	s.Batch = models.Batch{Name: "A", CourseID: course.ID, TAs: []models.User{s.TA}}
	s.OtherBatch = models.Batch{Name: "B", CourseID: course.ID, TAs: []models.User{s.OtherTA}}
	require.NoError(t, db.Create(&s.Batch).Error)
	require.NoError(t, db.Create(&s.OtherBatch).Error)

	s.Exam = models.Exam{Title: "Midterm", CourseID: course.ID, BatchID: s.Batch.ID, NumQuestions: 5}
	otherExam := models.Exam{Title: "Midterm", CourseID: course.ID, BatchID: s.OtherBatch.ID, NumQuestions: 3, MaxMarksPerQuestion: 10}
	require.NoError(t, db.Create(&s.Exam).Error)
	require.NoError(t, db.Create(&otherExam).Error)

	s.Evaluation = models.Evaluation{
		EvaluatorID: s.Evaluator.ID,
		EvaluateeID: s.Student.ID,
		ExamID:      s.Exam.ID,
		Marks:       models.MarksOf([]float64{10, 10, 10, 10, 10}),
		Feedback:    "solid work",
		Status:      models.EvaluationStatusCompleted,
	}
	otherEvaluation := models.Evaluation{
		EvaluatorID: s.Student.ID,
		EvaluateeID: s.Evaluator.ID,
		ExamID:      otherExam.ID,
		Marks:       models.MarksOf([]float64{5, 5, 5}),
		Status:      models.EvaluationStatusCompleted,
	}
	require.NoError(t, db.Create(&s.Evaluation).Error)
	require.NoError(t, db.Create(&otherEvaluation).Error)

	old := time.Now().Add(-96 * time.Hour)
	s.PendingFlag = models.Flag{
		EvaluationID:     s.Evaluation.ID,
		FlaggedBy:        s.Student.ID,
		Reason:           "question 3 was graded unfairly",
		ResolutionStatus: models.FlagStatusPending,
		CreatedAt:        old,
	}
	s.ResolvedFlag = models.Flag{
		EvaluationID:     s.Evaluation.ID,
		FlaggedBy:        s.Student.ID,
		Reason:           "typo in feedback",
		ResolutionStatus: models.FlagStatusResolved,
		Resolution:       "acknowledged",
	}
	s.OtherFlag = models.Flag{
		EvaluationID:     otherEvaluation.ID,
		FlaggedBy:        s.Evaluator.ID,
		Reason:           "missing marks",
		ResolutionStatus: models.FlagStatusPending,
	}
	for _, flag := range []*models.Flag{&s.PendingFlag, &s.ResolvedFlag, &s.OtherFlag} {
		require.NoError(t, db.Create(flag).Error)
	}

	return s
}
