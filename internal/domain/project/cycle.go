// internal/domain/project/cycle.go
package project

import (
	"database/sql"
	"math"
	"time"

	"github.com/google/uuid"
)

// CycleStatus is the state of a single funding period.
type CycleStatus string

const (
	CycleStatusActive    CycleStatus = "active"
	CycleStatusCompleted CycleStatus = "completed"
)

// Cycle is one time-boxed funding period of a project.
// Corresponds to the 'project_cycles' table.
type Cycle struct {
	ID                 uuid.UUID
	ProjectID          uuid.UUID
	CycleNumber        int // unique within the project
	StartDate          time.Time
	EndDate            time.Time
	TargetAmount       float64 // copied from the project when the cycle opens
	CurrentAmount      float64
	Status             CycleStatus
	ProgressPercentage float64
	CompletedAt        sql.NullTime
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ProgressPercentage returns current/target*100, or 0 when target is not positive.
func ProgressPercentage(current, target float64) float64 {
	if target <= 0 {
		return 0
	}
	return current / target * 100
}

// ValidAmount reports whether amount can be recorded as a contribution:
// positive and finite.
func ValidAmount(amount float64) bool {
	return amount > 0 && !math.IsInf(amount, 0)
}

// CycleStats summarises the cycles of one project.
type CycleStats struct {
	ProjectID       uuid.UUID
	TotalCycles     int
	CompletedCycles int
	ActiveCycles    int
	TotalRaised     float64
}

// AdvanceResult describes what a single advancement did.
type AdvanceResult struct {
	Project     *Project
	ClosedCycle *Cycle // nil when there was no active cycle
	NewCycle    *Cycle // nil when the project was completed instead
	Completed   bool
	Skipped     bool // no longer due once the row lock was taken
}
