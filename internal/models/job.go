package models

import (
	"fmt"
	"strings"
	"time"
)

// JobStatus is the lifecycle status of a server-side scrape job
type JobStatus string

const (
	JobIdle       JobStatus = "idle"
	JobStarting   JobStatus = "starting"
	JobRunning    JobStatus = "running"
	JobFinished   JobStatus = "finished"
	JobFailed     JobStatus = "failed"
	JobCancelled  JobStatus = "cancelled"
	JobRestarting JobStatus = "restarting"
)

// ParseJobStatus converts a raw server string to a JobStatus, returning an
// error for unknown values. Matching is case-insensitive and accepts the
// "canceled" spelling.
func ParseJobStatus(s string) (JobStatus, error) {
	switch st := JobStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case JobIdle, JobStarting, JobRunning, JobFinished, JobFailed, JobCancelled, JobRestarting:
		return st, nil
	case "canceled":
		return JobCancelled, nil
	}
	return "", fmt.Errorf("unknown job status %q", s)
}

// IsActive returns true while a job occupies the service
func (s JobStatus) IsActive() bool {
	return s == JobStarting || s == JobRunning
}

// IsTerminal returns true for statuses a job never leaves on its own
func (s JobStatus) IsTerminal() bool {
	return s == JobFinished || s == JobFailed || s == JobCancelled
}

// Job is the server-owned view of one scrape run, keyed by StartedAt
type Job struct {
	StartedAt    string
	Status       JobStatus
	Phase        string
	Done         int
	Total        int // 0 = indeterminate
	ResultsReady bool
	Error        string
	LastCount    int
}

// ScrapeMode selects what POST /scrape does
type ScrapeMode string

const (
	ModeNew    ScrapeMode = "new"    // start a job
	ModeOld    ScrapeMode = "old"    // return the accumulated history directly
	ModeLatest ScrapeMode = "latest" // return the results of the last finished job
)

// ScrapeFilters are the filters submitted along with a scrape request
type ScrapeFilters struct {
	Subcategories []string
	DateStart     time.Time // zero = unset
	DateEnd       time.Time // zero = unset
}

// Categories is the fixed list of listing subcategories the service scrapes
var Categories = []string{
	"Byty",
	"Domy",
	"Nové projekty",
	"Garáže",
	"Hotely, reštaurácie",
	"Chalupy, Chaty",
	"Kancelárie",
	"Obchodné priestory",
	"Pozemky",
	"Sklady",
	"Záhrady",
	"Ostatné",
}
