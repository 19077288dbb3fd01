package services

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/hundred-days/errs"
	"github.com/rpupo63/hundred-days/models"
)

const DefaultEventSubject = "projects"

// Event kinds, appended to the base subject ("projects.created").
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// Conn is the part of *nats.Conn the publisher uses.
type Conn interface {
	Publish(subject string, data []byte) error
}

type ProjectEvent struct {
	Kind      string    `json:"kind"`
	ID        uint      `json:"id"`
	Slug      string    `json:"slug"`
	DayNumber int       `json:"day_number"`
	Title     string    `json:"title"`
	At        time.Time `json:"at"`
}

// ProjectEvents announces admin writes. A nil *ProjectEvents is valid and
// publishes nothing, which is how the site runs without NATS_URL.
type ProjectEvents struct {
	conn    Conn
	subject string
	now     func() time.Time
	logger  zerolog.Logger
}

func NewProjectEvents(conn Conn, subject string) *ProjectEvents {
	if subject == "" {
		subject = DefaultEventSubject
	}
	return &ProjectEvents{
		conn:    conn,
		subject: subject,
		now:     time.Now,
		logger:  log.With().Str("service", "events").Logger(),
	}
}

func (e *ProjectEvents) Created(p *models.Project) error {
	return e.publish(EventCreated, p)
}

func (e *ProjectEvents) Updated(p *models.Project) error {
	return e.publish(EventUpdated, p)
}

func (e *ProjectEvents) Deleted(p *models.Project) error {
	return e.publish(EventDeleted, p)
}

func (e *ProjectEvents) publish(kind string, p *models.Project) error {
	if e == nil || e.conn == nil {
		return nil
	}

	subject := e.subject + "." + kind
	data, err := json.Marshal(ProjectEvent{
		Kind:      kind,
		ID:        p.ID,
		Slug:      p.Slug,
		DayNumber: p.DayNumber,
		Title:     p.Title,
		At:        e.now().UTC(),
	})
	if err != nil {
		return errs.NewEventPublishError(subject, err)
	}
	if err := e.conn.Publish(subject, data); err != nil {
		return errs.NewEventPublishError(subject, err)
	}

	e.logger.Debug().Str("subject", subject).Uint("projectID", p.ID).Msg("Published project event")
	return nil
}
