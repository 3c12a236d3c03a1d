package models

import "time"

// MigrationRun is the audit row written for every migrate invocation.
type MigrationRun struct {
	ID         string
	Mode       string
	StartedAt  time.Time
	FinishedAt time.Time
	Migrated   int
	Failed     int
	AllMatch   bool
}
