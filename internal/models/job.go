package models

import (
	"fmt"
	"strings"
	"time"
)

// Job is the slice of the job CRUD subsystem's record that calendar sync
// consumes. It is owned elsewhere; this package only reads it.
type Job struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	Date         time.Time `json:"date"`
	Address      string    `json:"address,omitempty"`
	AssignedTeam string    `json:"assigned_team,omitempty"`
	JobNumber    string    `json:"job_number,omitempty"`
	CustomerID   string    `json:"customer_id,omitempty"`
	Type         string    `json:"type,omitempty"`
	Status       string    `json:"status,omitempty"`
}

// Team colors recognized by the calendar UI. Anything else renders gray.
const (
	TeamColorRed   = "red"
	TeamColorBlue  = "blue"
	TeamColorGreen = "green"
	TeamColorGray  = "gray"
)

// DefaultEventDuration is assumed when a job has no end time of its own.
const DefaultEventDuration = 2 * time.Hour

// TeamColor maps an assigned team name to its calendar color using a
// case-insensitive substring match ("Red Team Alpha" -> "red").
func TeamColor(assignedTeam string) string {
	team := strings.ToLower(assignedTeam)
	for _, color := range []string{TeamColorRed, TeamColorBlue, TeamColorGreen} {
		if strings.Contains(team, color) {
			return color
		}
	}
	return TeamColorGray
}

// EventFromJob projects a job onto its calendar event representation.
// The event reuses the job's id, so reconciliation can match the two.
// Job events are all-day; there is no time-of-day modeling for jobs.
func EventFromJob(job *Job) *CalendarEvent {
	return &CalendarEvent{
		ID:        job.ID,
		Title:     job.Title,
		Start:     job.Date,
		AllDay:    true,
		Type:      EventTypeJob,
		Status:    job.Status,
		TeamColor: TeamColor(job.AssignedTeam),
		Location:  job.Address,
		Metadata: map[string]any{
			"jobNumber":  job.JobNumber,
			"customerId": job.CustomerID,
			"jobType":    job.Type,
		},
	}
}

// PayloadFromJob builds the wire payload sent to the sync handler for one
// job. End defaults to start plus DefaultEventDuration.
func PayloadFromJob(job *Job) EventPayload {
	description := job.Description
	if description == "" {
		description = fmt.Sprintf("Job #%s", job.JobNumber)
	}

	return EventPayload{
		ID:          job.ID,
		Title:       job.Title,
		Description: description,
		Location:    job.Address,
		Start:       job.Date.Format(time.RFC3339),
		End:         job.Date.Add(DefaultEventDuration).Format(time.RFC3339),
	}
}
