package model

import "time"

// Project is a named unit of work that users log time against.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`

	// Members is populated only by roster operations.
	Members []*User `json:"-"`
}

// UserProjects pairs a user with the projects assigned to them.
type UserProjects struct {
	User     *User
	Projects []*Project
}
