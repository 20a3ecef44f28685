package domain

import "time"

// SessionState enumerates session lifecycle states. TERMINATED is terminal;
// there is no resurrection path.
type SessionState string

const (
	SessionActive     SessionState = "ACTIVE"
	SessionTerminated SessionState = "TERMINATED"
)

// Session represents one authenticated device binding for a user, carrying
// the currently active profession and organization context.
type Session struct {
	ID                string
	UserID            string
	ActiveProfession  Profession
	OrganizationID    *string
	RefreshTokenID    *string
	State             SessionState
	TerminationReason *string
	IP                *string
	UserAgent         *string
	DeviceLabel       *string
	CreatedAt         time.Time
	LastSeenAt        time.Time
	ExpiresAt         time.Time
	TerminatedAt      *time.Time
}

// IsActive reports whether the session can still authenticate requests at
// the supplied moment.
func (s Session) IsActive(at time.Time) bool {
	if s.State != SessionActive {
		return false
	}
	return s.ExpiresAt.After(at)
}

// Touch updates last-seen metadata when activity occurs.
func (s *Session) Touch(at time.Time, ip, userAgent *string) {
	s.LastSeenAt = at
	if ip != nil {
		v := *ip
		s.IP = &v
	}
	if userAgent != nil {
		v := *userAgent
		s.UserAgent = &v
	}
}

// Terminate moves the session to the terminal state. Returns true when the
// session changed state, false if it was already terminated.
func (s *Session) Terminate(at time.Time, reason string) bool {
	if s.State == SessionTerminated {
		return false
	}
	s.State = SessionTerminated
	ts := at
	s.TerminatedAt = &ts
	s.TerminationReason = &reason
	return true
}

// SwitchProfession updates the active role in place. The caller is
// responsible for verifying the user holds a usable assignment.
func (s *Session) SwitchProfession(p Profession) {
	s.ActiveProfession = p
}
