package postgres

import "github.com/jackc/pgx/v5/pgxpool"

// Repositories groups concrete PostgreSQL repository implementations.
type Repositories struct {
	Users       *UserRepository
	Assignments *RoleAssignmentRepository
	CustomRoles *CustomRoleRepository
	Sessions    *SessionRepository
	Tokens      *TokenRepository
}

// NewRepositories wires all repositories backed by the provided pool.
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Users:       NewUserRepository(pool),
		Assignments: NewRoleAssignmentRepository(pool),
		CustomRoles: NewCustomRoleRepository(pool),
		Sessions:    NewSessionRepository(pool),
		Tokens:      NewTokenRepository(pool),
	}
}
