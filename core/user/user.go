package user

import "time"

// User is the slice of the user aggregate this service needs: enough to
// resolve an authenticated user id passed in by the caller. Registration,
// credentials and profile management live in a separate service.
type User struct {
	ID        string    `json:"id" db:"user_id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
