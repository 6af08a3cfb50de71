package domain

// Profile is one row of the "profiles" table. It is read-only from the
// dashboard's point of view.
type Profile struct {
	ID        string  `json:"id" db:"id"`
	FullName  *string `json:"full_name,omitempty" db:"full_name"`
	Username  *string `json:"username,omitempty" db:"username"`
	UpdatedAt *string `json:"updated_at,omitempty" db:"updated_at"`
}
