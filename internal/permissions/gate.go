package permissions

import (
	"fmt"
	"log/slog"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
	"github.com/google/uuid"
)

const (
	ActionRead   = "read"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Actor is the authenticated caller. The zero value is an anonymous actor.
type Actor struct {
	ID    uuid.UUID
	Roles []string
}

func (a Actor) Anonymous() bool {
	return a.ID == uuid.Nil
}

// Gate decides whether an actor may perform an action on a resource.
type Gate interface {
	Allowed(actor Actor, resource, action string) bool
}

// rbacModel maps role subjects to (resource, action) grants. A "*" action
// grants every verb on the resource.
const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && (r.act == p.act || p.act == "*")
`

// DefaultPolicy is used when no policy file is configured.
var DefaultPolicy = [][]string{
	{"admin", "user", "*"},
}

type CasbinGate struct {
	enforcer *casbin.SyncedEnforcer
}

// NewCasbinGate loads policies from a casbin CSV file, or DefaultPolicy
// when policyPath is empty.
func NewCasbinGate(policyPath string) (*CasbinGate, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rbac model: %w", err)
	}

	var enforcer *casbin.SyncedEnforcer
	if policyPath != "" {
		enforcer, err = casbin.NewSyncedEnforcer(m, fileadapter.NewAdapter(policyPath))
	} else {
		enforcer, err = casbin.NewSyncedEnforcer(m)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create enforcer: %w", err)
	}

	if policyPath == "" {
		if _, err := enforcer.AddPolicies(DefaultPolicy); err != nil {
			return nil, fmt.Errorf("failed to load default policy: %w", err)
		}
	}
	return &CasbinGate{enforcer: enforcer}, nil
}

// Allowed grants access when any of the actor's roles is granted. Anonymous
// actors carry no roles and are always denied.
func (g *CasbinGate) Allowed(actor Actor, resource, action string) bool {
	for _, role := range actor.Roles {
		ok, err := g.enforcer.Enforce(role, resource, action)
		if err != nil {
			slog.Error("permission check failed", "role", role, "resource", resource, "action", action, "error", err)
			continue
		}
		if ok {
			return true
		}
	}
	return false
}

// Grant adds a policy line at runtime.
func (g *CasbinGate) Grant(role, resource, action string) error {
	_, err := g.enforcer.AddPolicy(role, resource, action)
	return err
}

// Inherit makes role inherit every grant of parent.
func (g *CasbinGate) Inherit(role, parent string) error {
	_, err := g.enforcer.AddGroupingPolicy(role, parent)
	return err
}
