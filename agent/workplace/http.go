package workplace

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"time"
)

// API is the subset of apiclient.Client the HTTP implementations use.
type API interface {
	GetJSON(ctx context.Context, path string, query url.Values, out any) error
}

type HTTPDirectory struct {
	api API
}

func NewHTTPDirectory(api API) *HTTPDirectory {
	return &HTTPDirectory{api: api}
}

func (d *HTTPDirectory) GetUser(ctx context.Context, userID string) (User, error) {
	var u User
	err := d.api.GetJSON(ctx, "/users/"+url.PathEscape(userID), nil, &u)
	return u, err
}

func (d *HTTPDirectory) GetManager(ctx context.Context, userID string) (User, error) {
	var u User
	err := d.api.GetJSON(ctx, "/users/"+url.PathEscape(userID)+"/manager", nil, &u)
	return u, err
}

func (d *HTTPDirectory) ListDirectReports(ctx context.Context, managerID string) ([]User, error) {
	var out struct {
		Users []User `json:"users"`
	}
	if err := d.api.GetJSON(ctx, "/users/"+url.PathEscape(managerID)+"/reports", nil, &out); err != nil {
		return nil, err
	}
	return nonNil(out.Users), nil
}

func (d *HTTPDirectory) SearchUsers(ctx context.Context, query string, limit int) ([]User, error) {
	q := url.Values{"q": {query}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out struct {
		Users []User `json:"users"`
	}
	if err := d.api.GetJSON(ctx, "/users", q, &out); err != nil {
		return nil, err
	}
	return nonNil(out.Users), nil
}

func (d *HTTPDirectory) UserExists(ctx context.Context, email string) (bool, error) {
	err := d.api.GetJSON(ctx, "/users/lookup", url.Values{"email": {email}}, nil)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

type HTTPCalendar struct {
	api API
}

func NewHTTPCalendar(api API) *HTTPCalendar {
	return &HTTPCalendar{api: api}
}

func (c *HTTPCalendar) ListEvents(ctx context.Context, userID string, from, to time.Time) ([]Event, error) {
	q := url.Values{
		"from": {from.UTC().Format(time.RFC3339)},
		"to":   {to.UTC().Format(time.RFC3339)},
	}
	var out struct {
		Events []Event `json:"events"`
	}
	if err := c.api.GetJSON(ctx, "/users/"+url.PathEscape(userID)+"/events", q, &out); err != nil {
		return nil, err
	}
	return nonNil(out.Events), nil
}

type HTTPLocations struct {
	api API
}

func NewHTTPLocations(api API) *HTTPLocations {
	return &HTTPLocations{api: api}
}

func (l *HTTPLocations) SearchNearby(ctx context.Context, near, category string, radiusMeters int) ([]Place, error) {
	q := url.Values{"near": {near}}
	if category != "" {
		q.Set("category", category)
	}
	if radiusMeters > 0 {
		q.Set("radius", strconv.Itoa(radiusMeters))
	}
	var out struct {
		Places []Place `json:"places"`
	}
	if err := l.api.GetJSON(ctx, "/places/nearby", q, &out); err != nil {
		return nil, err
	}
	return nonNil(out.Places), nil
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
