// Package authz decides which roles hold which capabilities.
// The role/capability table is a casbin policy embedded in the binary.
package authz

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/casbin/casbin/v3"

	"github.com/tallyhours/tally/internal/model"
)

//go:embed model.conf policy.csv
var embedFS embed.FS

// Capability names one permission checked at the HTTP boundary.
type Capability string

// Capabilities.
const (
	ProjectCreate Capability = "project:create"
	ProjectAssign Capability = "project:assign"
	ProjectList   Capability = "project:list"
	UserList      Capability = "user:list"
	TimeLogWrite  Capability = "timelog:write"
	TimeLogRead   Capability = "timelog:read"
	TimeLogReport Capability = "timelog:report"
	TimerUse      Capability = "timer:use"
	DashboardView Capability = "dashboard:view"
	SessionManage Capability = "session:manage"
)

// Authorizer evaluates the embedded policy.
type Authorizer struct {
	enforcer *casbin.Enforcer
}

// New loads the embedded model and policy.
func New() (*Authorizer, error) {
	dir, err := os.MkdirTemp("", "tally-casbin-*")
	if err != nil {
		return nil, fmt.Errorf("create policy dir: %w", err)
	}
	defer os.RemoveAll(dir)

	for _, name := range []string{"model.conf", "policy.csv"} {
		data, err := embedFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read embedded %s: %w", name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o600); err != nil {
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
	}

	enforcer, err := casbin.NewEnforcer(
		filepath.Join(dir, "model.conf"),
		filepath.Join(dir, "policy.csv"),
	)
	if err != nil {
		return nil, fmt.Errorf("load authorization policy: %w", err)
	}

	return &Authorizer{enforcer: enforcer}, nil
}

// Allowed reports whether role holds capability.
func (a *Authorizer) Allowed(role model.Role, capability Capability) (bool, error) {
	ok, err := a.enforcer.Enforce(string(role), string(capability))
	if err != nil {
		return false, fmt.Errorf("evaluate policy: %w", err)
	}
	return ok, nil
}
