// Package domain contains core concepts of the collaboration session.
// This file defines Participant entities and related invariants.
// No runtime, network, or UI logic should be added here.
package domain

import "time"

// Participant is one connected session member. Identity is the opaque ID;
// two participants are the same participant iff their IDs are equal.
type Participant struct {
	ID           string `validate:"required"`
	Username     string `validate:"required"`
	Online       bool
	AudioEnabled bool
	Muted        bool
	LastActivity time.Time
}

func NewParticipant(id, username string) Participant {
	return Participant{
		ID:           id,
		Username:     username,
		Online:       true,
		LastActivity: time.Now().UTC(),
	}
}

// Touch refreshes the activity timestamp.
func (p *Participant) Touch() {
	p.LastActivity = time.Now().UTC()
}

func (p Participant) Equal(other Participant) bool {
	return p.ID == other.ID
}
