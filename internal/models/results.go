package models

import (
	"time"

	"github.com/RishiKendai/textguard/internal/plagiarism"
)

type Step string

const (
	StepIdle      Step = "idle"
	StepInitiated Step = "initiated"
	StepLoading   Step = "loading"
	StepComparing Step = "comparing"
	StepCompleted Step = "completed"
	StepFailed    Step = "failed"
)

// Report lifecycle stored on ReportRecord.Status
const (
	ReportPending   = "pending"
	ReportCompleted = "completed"
	ReportFailed    = "failed"
)

// ReportRecord is a comparison run persisted in MongoDB
type ReportRecord struct {
	RunID       string             `bson:"runId" json:"runId"`
	Method      plagiarism.Method  `bson:"method" json:"method"`
	DocumentIDs []string           `bson:"documentIds" json:"documentIds"`
	Status      string             `bson:"status" json:"status"`
	Error       string             `bson:"error,omitempty" json:"error,omitempty"`
	Report      *plagiarism.Report `bson:"report,omitempty" json:"report,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	CompletedAt *time.Time         `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
}

// ComputeRequest starts a comparison run. Without documentIds every stored document is compared.
type ComputeRequest struct {
	Method      string   `json:"method"`
	DocumentIDs []string `json:"documentIds"`
}

type ComputeResponse struct {
	Step  Step   `json:"step"`
	RunID string `json:"runId"`
}

type StatusResponse struct {
	RunID string `json:"runId"`
	Step  Step   `json:"step"`
}
