package dto

import (
	"encoding/json"
	"time"

	"github.com/noah-isme/peereval-api/internal/models"
)

// ResolveFlagRequest is the TA payload to close a flag, optionally correcting marks.
type ResolveFlagRequest struct {
	Resolution string          `json:"resolution" validate:"max=2000"`
	NewMarks   json.RawMessage `json:"new_marks"`
	Feedback   *string         `json:"feedback" validate:"omitempty,max=5000"`
}

// EscalateFlagRequest is the TA payload to hand a flag over to teachers.
type EscalateFlagRequest struct {
	Reason string `json:"reason" validate:"required,max=2000"`
}

// ExamLite summarises the exam an evaluation belongs to.
type ExamLite struct {
	ID                  uint    `json:"id"`
	Title               string  `json:"title"`
	BatchID             uint    `json:"batch_id"`
	NumQuestions        int     `json:"num_questions"`
	MaxMarksPerQuestion float64 `json:"max_marks_per_question"`
}

// EvaluationResponse is the expanded view of an evaluation.
type EvaluationResponse struct {
	ID        uint      `json:"id"`
	Marks     []float64 `json:"marks"`
	Feedback  string    `json:"feedback"`
	Status    string    `json:"status"`
	Evaluator *UserLite `json:"evaluator,omitempty"`
	Evaluatee *UserLite `json:"evaluatee,omitempty"`
	Exam      *ExamLite `json:"exam,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEvaluationResponse converts an evaluation model into its DTO.
func NewEvaluationResponse(model models.Evaluation) EvaluationResponse {
	marks := make([]float64, len(model.Marks))
	copy(marks, model.Marks)

	response := EvaluationResponse{
		ID:        model.ID,
		Marks:     marks,
		Feedback:  model.Feedback,
		Status:    model.Status,
		Evaluator: NewUserLite(model.Evaluator),
		Evaluatee: NewUserLite(model.Evaluatee),
		UpdatedAt: model.UpdatedAt,
	}

	if model.Exam.ID != 0 {
		response.Exam = &ExamLite{
			ID:                  model.Exam.ID,
			Title:               model.Exam.Title,
			BatchID:             model.Exam.BatchID,
			NumQuestions:        model.Exam.NumQuestions,
			MaxMarksPerQuestion: model.Exam.MaxMarks(models.DefaultMaxMarksPerQuestion),
		}
	}

	return response
}

// FlagResponse is the expanded view of a flag.
type FlagResponse struct {
	ID               uint                `json:"id"`
	EvaluationID     uint                `json:"evaluation_id"`
	Reason           string              `json:"reason"`
	ResolutionStatus string              `json:"resolution_status"`
	Resolution       string              `json:"resolution,omitempty"`
	ResolvedBy       *uint               `json:"resolved_by,omitempty"`
	EscalationReason string              `json:"escalation_reason,omitempty"`
	FlaggedBy        uint                `json:"flagged_by"`
	Flagger          *UserLite           `json:"flagger,omitempty"`
	Evaluation       *EvaluationResponse `json:"evaluation,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
}

// NewFlagResponse converts a flag model into its DTO.
func NewFlagResponse(model models.Flag) FlagResponse {
	response := FlagResponse{
		ID:               model.ID,
		EvaluationID:     model.EvaluationID,
		Reason:           model.Reason,
		ResolutionStatus: string(model.ResolutionStatus),
		Resolution:       model.Resolution,
		ResolvedBy:       model.ResolvedBy,
		EscalationReason: model.EscalationReason,
		FlaggedBy:        model.FlaggedBy,
		Flagger:          NewUserLite(model.Flagger),
		CreatedAt:        model.CreatedAt,
	}

	if model.Evaluation.ID != 0 {
		evaluation := NewEvaluationResponse(model.Evaluation)
		response.Evaluation = &evaluation
	}

	return response
}

// NewFlagResponseSlice converts flag models into DTOs.
func NewFlagResponseSlice(items []models.Flag) []FlagResponse {
	out := make([]FlagResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewFlagResponse(item))
	}
	return out
}

// FlagResolutionResponse acknowledges a TA resolution.
type FlagResolutionResponse struct {
	FlagID     uint                `json:"flag_id"`
	Resolution string              `json:"resolution"`
	Status     string              `json:"status"`
	ResolvedBy uint                `json:"resolved_by"`
	Evaluation *EvaluationResponse `json:"evaluation,omitempty"`
}

// EscalationResponse acknowledges an escalation to teachers.
type EscalationResponse struct {
	FlagID           uint   `json:"flag_id"`
	Reason           string `json:"reason"`
	Status           string `json:"status"`
	TicketID         uint   `json:"ticket_id"`
	NotifiedTeachers int    `json:"notified_teachers"`
}

// EvaluationDetailResponse bundles an evaluation with every flag raised against it.
type EvaluationDetailResponse struct {
	Evaluation EvaluationResponse `json:"evaluation"`
	Flags      []FlagResponse     `json:"flags"`
}

// FlagStatsResponse summarises flags per resolution status.
type FlagStatsResponse struct {
	PendingFlags   int64 `json:"pending_flags"`
	ResolvedFlags  int64 `json:"resolved_flags"`
	EscalatedFlags int64 `json:"escalated_flags"`
	TotalFlags     int64 `json:"total_flags"`
	CacheHit       bool  `json:"cache_hit"`
}
