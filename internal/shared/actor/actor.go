package actor

import "github.com/gin-gonic/gin"

const (
	RoleEmployer = "EMPLOYER"
	RoleWorker   = "WORKER"
	RoleAdmin    = "ADMIN"
)

// Gin context keys written by the auth middleware.
const (
	KeyUserID    = "user_id"
	KeyRole      = "role"
	KeyProfileID = "profile_id"
)

// Actor is the authenticated caller. ProfileID is the employer or worker
// profile id for those roles and the user id for admins.
type Actor struct {
	UserID    string
	Role      string
	ProfileID string
}

func FromGin(c *gin.Context) Actor {
	return Actor{
		UserID:    c.GetString(KeyUserID),
		Role:      c.GetString(KeyRole),
		ProfileID: c.GetString(KeyProfileID),
	}
}

func (a Actor) IsEmployer() bool { return a.Role == RoleEmployer }
func (a Actor) IsWorker() bool   { return a.Role == RoleWorker }
func (a Actor) IsAdmin() bool    { return a.Role == RoleAdmin }
