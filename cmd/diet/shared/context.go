// Package shared holds the context passed to all CLI commands.
package shared

import (
	"errors"
	"fmt"

	"github.com/go-ports/dietvault/internal/config"
	"github.com/go-ports/dietvault/internal/service"
	"github.com/go-ports/dietvault/internal/session"
)

// Context carries global CLI state (flags set on the root command).
type Context struct {
	// DietHome overrides the diet home directory.
	// When empty, resolution falls through to DIET_HOME env var → persisted config → ~/.dietvault.
	DietHome string
	Verbose  bool
}

// Home returns the effective diet home.
func (c *Context) Home() string {
	if c.DietHome != "" {
		return c.DietHome
	}
	return config.GetDietHome()
}

// Open starts a Service on the diet home and loads the CLI session.
// The caller closes the service.
func (c *Context) Open() (*service.Service, *session.Session, error) {
	svc, err := service.New(c.Home())
	if err != nil {
		return nil, nil, err
	}
	sess, err := svc.LoadSession()
	if err != nil {
		_ = svc.Close()
		return nil, nil, err
	}
	return svc, sess, nil
}

// Run opens the service and session, runs fn, and saves the session after a
// successful fn.
func (c *Context) Run(fn func(svc *service.Service, sess *session.Session) error) error {
	svc, sess, err := c.Open()
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := fn(svc, sess); err != nil {
		return Hint(err)
	}
	if err := svc.SaveSession(sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Hint points a logged-out user at the login command.
func Hint(err error) error {
	if errors.Is(err, service.ErrNotLoggedIn) {
		return fmt.Errorf("%w: run `diet login <username>` first", err)
	}
	return err
}
