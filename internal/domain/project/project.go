// internal/domain/project/project.go
package project

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a recurring project.
type Status string

const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// IsFinal reports whether the status is terminal.
func (s Status) IsFinal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// DurationUnit is the named cadence of a project's cycles.
type DurationUnit string

const (
	DurationWeekly    DurationUnit = "weekly"
	DurationMonthly   DurationUnit = "monthly"
	DurationQuarterly DurationUnit = "quarterly"
	DurationYearly    DurationUnit = "yearly"
	DurationCustom    DurationUnit = "custom" // cycle_duration_days must be set
)

// DefaultCycleDays is used when neither an explicit day count nor a known unit is set.
const DefaultCycleDays = 30

var unitDays = map[DurationUnit]int{
	DurationWeekly:    7,
	DurationMonthly:   30,
	DurationQuarterly: 90,
	DurationYearly:    365,
}

// Project is a recurring funding campaign.
// Corresponds to the 'projects' table.
type Project struct {
	ID                 uuid.UUID
	Name               string
	TargetAmount       float64 // per cycle
	CurrentAmount      float64 // sum over all cycles
	Status             Status
	CycleDuration      DurationUnit
	CycleDurationDays  sql.NullInt32
	CurrentCycleNumber int
	TotalCycles        sql.NullInt32 // optional cap
	LastCycleDate      sql.NullTime
	NextCycleDate      sql.NullTime
	AutoProgress       bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// CycleDays resolves the length of one cycle in days.
func (p *Project) CycleDays() int {
	if p.CycleDurationDays.Valid && p.CycleDurationDays.Int32 > 0 {
		return int(p.CycleDurationDays.Int32)
	}
	if d, ok := unitDays[p.CycleDuration]; ok {
		return d
	}
	return DefaultCycleDays
}

// CapReached reports whether the project has already run all of its configured cycles.
func (p *Project) CapReached() bool {
	return p.TotalCycles.Valid && p.CurrentCycleNumber >= int(p.TotalCycles.Int32)
}

// IsDue reports whether the project takes part in automatic advancement at now.
func (p *Project) IsDue(now time.Time) bool {
	return p.Status == StatusActive &&
		p.AutoProgress &&
		p.NextCycleDate.Valid &&
		!p.NextCycleDate.Time.After(now)
}
