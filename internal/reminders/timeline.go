// Package reminders renders payment-reminder workflows and scores client
// collection risk. Level advancement belongs to the dispatcher; this package
// only classifies what is already stored.
package reminders

import (
	"time"

	"github.com/google/uuid"
)

// Level is a reminder escalation stage.
type Level string

const (
	LevelNotice1      Level = "notice_1"
	LevelNotice2      Level = "notice_2"
	LevelNotice3      Level = "notice_3"
	LevelFormalNotice Level = "formal_notice"
	LevelLitigation   Level = "litigation"
)

// Levels lists every stage in escalation order.
var Levels = []Level{LevelNotice1, LevelNotice2, LevelNotice3, LevelFormalNotice, LevelLitigation}

// Order returns the zero-based rank of the level, or -1 when unknown.
func (l Level) Order() int {
	for i, candidate := range Levels {
		if candidate == l {
			return i
		}
	}
	return -1
}

// Valid reports whether the level is part of the escalation ladder.
func (l Level) Valid() bool { return l.Order() >= 0 }

// ParseLevel returns the level for a stored value. Unknown values are
// returned unchanged with ok=false.
func ParseLevel(raw string) (Level, bool) {
	l := Level(raw)
	return l, l.Valid()
}

// Channel is how a reminder message was delivered.
type Channel string

const (
	ChannelEmail  Channel = "email"
	ChannelSMS    Channel = "sms"
	ChannelLetter Channel = "letter"
	ChannelPhone  Channel = "phone"
)

// MessageStatus is the delivery state of a message.
type MessageStatus string

const (
	MessagePending MessageStatus = "pending"
	MessageSent    MessageStatus = "sent"
	MessageFailed  MessageStatus = "failed"
)

// Workflow is the escalation process attached to one unpaid invoice.
type Workflow struct {
	ID            uuid.UUID  `json:"id"`
	CompanyID     uuid.UUID  `json:"company_id"`
	ClientID      uuid.UUID  `json:"client_id"`
	InvoiceID     uuid.UUID  `json:"invoice_id"`
	IsActive      bool       `json:"is_active"`
	CurrentLevel  Level      `json:"current_level"`
	CreatedAt     time.Time  `json:"created_at"`
	StoppedAt     *time.Time `json:"stopped_at,omitempty"`
	StoppedReason string     `json:"stopped_reason,omitempty"`
}

// Message is one reminder sent, or attempted, at a level.
type Message struct {
	ID           uuid.UUID     `json:"id"`
	WorkflowID   uuid.UUID     `json:"workflow_id"`
	Level        Level         `json:"level"`
	Channel      Channel       `json:"channel"`
	Status       MessageStatus `json:"status"`
	SentAt       *time.Time    `json:"sent_at,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
}

// Position places a stage relative to the workflow's current level.
type Position string

const (
	PositionPast    Position = "past"
	PositionCurrent Position = "current"
	PositionFuture  Position = "future"
)

// Stage is one level of a rendered timeline.
type Stage struct {
	Level    Level     `json:"level"`
	Position Position  `json:"position"`
	Messages []Message `json:"messages"`
	Sent     int       `json:"sent"`
	Pending  int       `json:"pending"`
	Failed   int       `json:"failed"`
	// Anomaly marks a level the workflow passed without sending anything.
	Anomaly bool `json:"anomaly"`
}

// Timeline is the read-only rendering of a workflow.
type Timeline struct {
	WorkflowID    uuid.UUID  `json:"workflow_id"`
	CurrentLevel  Level      `json:"current_level"`
	Stages        []Stage    `json:"stages"`
	Frozen        bool       `json:"frozen"`
	Terminal      bool       `json:"terminal"`
	StoppedAt     *time.Time `json:"stopped_at,omitempty"`
	StoppedReason string     `json:"stopped_reason,omitempty"`
	// Orphans holds messages whose level is not on the ladder.
	Orphans []Message `json:"orphans,omitempty"`
}

// BuildTimeline classifies every level against the workflow's current level
// and groups the messages under it, keeping their input order. An unknown
// current level leaves every stage in the future.
func BuildTimeline(w Workflow, messages []Message) Timeline {
	byLevel := make(map[Level][]Message, len(Levels))
	var orphans []Message
	for _, m := range messages {
		if m.WorkflowID != uuid.Nil && w.ID != uuid.Nil && m.WorkflowID != w.ID {
			continue
		}
		if !m.Level.Valid() {
			orphans = append(orphans, m)
			continue
		}
		byLevel[m.Level] = append(byLevel[m.Level], m)
	}

	current := w.CurrentLevel.Order()
	stages := make([]Stage, 0, len(Levels))
	for i, level := range Levels {
		stage := Stage{Level: level, Position: position(i, current), Messages: byLevel[level]}
		if stage.Messages == nil {
			stage.Messages = []Message{}
		}
		for _, m := range stage.Messages {
			switch m.Status {
			case MessageSent:
				stage.Sent++
			case MessagePending:
				stage.Pending++
			case MessageFailed:
				stage.Failed++
			}
		}
		stage.Anomaly = stage.Position == PositionPast && len(stage.Messages) == 0
		stages = append(stages, stage)
	}

	frozen := !w.IsActive
	return Timeline{
		WorkflowID:    w.ID,
		CurrentLevel:  w.CurrentLevel,
		Stages:        stages,
		Frozen:        frozen,
		Terminal:      frozen || w.CurrentLevel == LevelLitigation,
		StoppedAt:     w.StoppedAt,
		StoppedReason: w.StoppedReason,
		Orphans:       orphans,
	}
}

func position(order, current int) Position {
	switch {
	case current < 0:
		return PositionFuture
	case order < current:
		return PositionPast
	case order == current:
		return PositionCurrent
	default:
		return PositionFuture
	}
}
