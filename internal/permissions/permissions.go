// Package permissions holds the authorization model: which family member,
// identified by any of their email aliases, may perform which action on
// which calendar. The model is loaded once from a YAML document at startup
// and can be reloaded at runtime; readers always observe a complete
// document, never a partial update.
package permissions

import (
	"fmt"
	"os"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// Action is one of the four calendar permissions.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Calendar describes one permission-scoped calendar.
type Calendar struct {
	ID    string `yaml:"-" json:"id"`
	Name  string `yaml:"name" json:"name"`
	Color string `yaml:"color" json:"color"`

	// Permissions maps user id to role name. A user with no entry has no
	// access to this calendar.
	Permissions map[string]string `yaml:"permissions" json:"-"`
}

// document is one immutable snapshot of the three permission maps.
type document struct {
	// Users maps user id to that user's known email aliases.
	Users map[string][]string `yaml:"users"`
	// Roles maps role name to the actions it grants.
	Roles map[string][]Action `yaml:"roles"`
	// Calendars maps calendar id to its definition.
	Calendars map[string]Calendar `yaml:"calendars"`
}

func parseDocument(data []byte) (*document, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse permissions document: %w", err)
	}

	// All three top-level maps are required; running without any of them
	// would silently deny or grant everything.
	if doc.Users == nil {
		return nil, fmt.Errorf("permissions document is missing the users section")
	}
	if doc.Roles == nil {
		return nil, fmt.Errorf("permissions document is missing the roles section")
	}
	if doc.Calendars == nil {
		return nil, fmt.Errorf("permissions document is missing the calendars section")
	}

	for id, cal := range doc.Calendars {
		cal.ID = id
		doc.Calendars[id] = cal
	}

	return &doc, nil
}

// Engine answers authorization questions against the loaded document.
// Reads go through an atomic pointer so Reload is a single swap.
type Engine struct {
	path string
	doc  atomic.Pointer[document]
}

// Load reads and validates the permissions document at path. Errors here
// are fatal by contract: the caller must abort startup rather than run
// with no permission model.
func Load(path string) (*Engine, error) {
	e := &Engine{path: path}
	if err := e.Reload(); err != nil {
		return nil, err
	}
	return e, nil
}

// Reload re-reads the document from disk and atomically replaces the
// in-memory state. On error the previous document stays in effect.
func (e *Engine) Reload() error {
	data, err := os.ReadFile(e.path)
	if err != nil {
		return fmt.Errorf("failed to read permissions file: %w", err)
	}

	doc, err := parseDocument(data)
	if err != nil {
		return err
	}

	e.doc.Store(doc)
	return nil
}

// resolveUser maps an email address to a user id via the users' alias
// lists. Two users sharing an alias is a configuration error; the first
// match wins.
func (doc *document) resolveUser(email string) (string, bool) {
	for userID, aliases := range doc.Users {
		for _, alias := range aliases {
			if alias == email {
				return userID, true
			}
		}
	}
	return "", false
}

// roleFor returns the role a user holds on a calendar, if any.
func (doc *document) roleFor(userID, calendarID string) (string, bool) {
	cal, ok := doc.Calendars[calendarID]
	if !ok {
		return "", false
	}
	role, ok := cal.Permissions[userID]
	return role, ok
}

// ResolveUser maps an email address to a user id against the current
// document.
func (e *Engine) ResolveUser(email string) (string, bool) {
	return e.doc.Load().resolveUser(email)
}

// RoleFor returns the role a user holds on a calendar, if any.
func (e *Engine) RoleFor(userID, calendarID string) (string, bool) {
	return e.doc.Load().roleFor(userID, calendarID)
}

// PermissionsOf returns the actions a role grants. Unknown roles grant
// nothing.
func (e *Engine) PermissionsOf(role string) []Action {
	return e.doc.Load().Roles[role]
}

// Authorize reports whether the principal behind email may perform action
// on the calendar. Every lookup failure along the way (unknown email,
// unknown calendar, unknown role, action not granted) yields false. The
// document pointer is loaded exactly once, so a call racing a Reload
// answers from one coherent document, old or new, never a mix of both.
func (e *Engine) Authorize(email, calendarID string, action Action) bool {
	doc := e.doc.Load()

	userID, ok := doc.resolveUser(email)
	if !ok {
		return false
	}
	role, ok := doc.roleFor(userID, calendarID)
	if !ok {
		return false
	}
	for _, granted := range doc.Roles[role] {
		if granted == action {
			return true
		}
	}
	return false
}

// CalendarsFor lists every calendar on which the resolved user holds any
// role, whatever actions that role grants. Unknown emails see nothing.
// Like Authorize, it reads a single document snapshot.
func (e *Engine) CalendarsFor(email string) []Calendar {
	doc := e.doc.Load()

	userID, ok := doc.resolveUser(email)
	if !ok {
		return nil
	}

	var out []Calendar
	for _, cal := range doc.Calendars {
		if _, ok := cal.Permissions[userID]; ok {
			out = append(out, cal)
		}
	}
	return out
}
