// Package workplace is the read-only data-access layer over the directory,
// calendar and location APIs.
package workplace

import (
	"context"
	"time"

	"github.com/tanpawarit/chative-workplace-assistant/pkg/apiclient"
)

// ErrNotFound is returned when the downstream API has no such entity.
var ErrNotFound = apiclient.ErrNotFound

type User struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Title      string `json:"title,omitempty"`
	Department string `json:"department,omitempty"`
	ManagerID  string `json:"manager_id,omitempty"`
	Location   string `json:"location,omitempty"`
}

type Event struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Location  string    `json:"location,omitempty"`
	Attendees []string  `json:"attendees,omitempty"`
}

type Place struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Category       string  `json:"category,omitempty"`
	Address        string  `json:"address,omitempty"`
	DistanceMeters float64 `json:"distance_meters"`
}

type Directory interface {
	GetUser(ctx context.Context, userID string) (User, error)
	GetManager(ctx context.Context, userID string) (User, error)
	ListDirectReports(ctx context.Context, managerID string) ([]User, error)
	SearchUsers(ctx context.Context, query string, limit int) ([]User, error)
	// UserExists reports whether an account with the given email exists.
	UserExists(ctx context.Context, email string) (bool, error)
}

type Calendar interface {
	ListEvents(ctx context.Context, userID string, from, to time.Time) ([]Event, error)
}

type Locations interface {
	SearchNearby(ctx context.Context, near, category string, radiusMeters int) ([]Place, error)
}
