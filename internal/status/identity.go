package status

import (
	"strconv"
	"strings"
)

// Sender carries the identity fields the transport reports for a message author.
type Sender struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
}

// Resolver maps senders to display names using a static roster.
// The roster is copied on construction and never mutated afterwards, so a
// Resolver is safe for concurrent use.
type Resolver struct {
	roster map[int64]string
}

// NewResolver creates a resolver over a copy of roster.
func NewResolver(roster map[int64]string) *Resolver {
	r := &Resolver{roster: make(map[int64]string, len(roster))}
	for id, name := range roster {
		if name = strings.TrimSpace(name); name != "" {
			r.roster[id] = name
		}
	}
	return r
}

// Resolve returns the display name for s. The roster entry wins, then the
// transport handle, then the trimmed first and last name, then "ID:<id>".
// The result is never empty.
func (r *Resolver) Resolve(s Sender) string {
	if name, ok := r.roster[s.ID]; ok {
		return name
	}
	if s.Username != "" {
		return s.Username
	}
	if full := strings.TrimSpace(s.FirstName + " " + s.LastName); full != "" {
		return full
	}
	return "ID:" + strconv.FormatInt(s.ID, 10)
}

// Known reports whether id has a roster entry.
func (r *Resolver) Known(id int64) bool {
	_, ok := r.roster[id]
	return ok
}
