package policy

import (
	"context"

	"github.com/google/uuid"

	"github.com/diewo77/faktura/gate"
)

// Ownable is an interface for resources that have an owner.
type Ownable interface {
	GetUserID() uuid.UUID
}

// Owner is the bare ownership fact of a row, loaded by id before a
// mutation when the full row is not needed.
type Owner struct {
	UserID uuid.UUID
}

func (o Owner) GetUserID() uuid.UUID { return o.UserID }

// OwnershipPolicy allows an action when the user owns the resource.
type OwnershipPolicy struct{}

// NewOwnershipPolicy creates a new ownership policy.
func NewOwnershipPolicy() *OwnershipPolicy {
	return &OwnershipPolicy{}
}

// Can checks if the user owns the resource.
// For list/create actions (resource is nil) there is no row to check; the
// query itself is scoped to the user.
func (p *OwnershipPolicy) Can(_ context.Context, userID uuid.UUID, _ gate.Action, resource any) bool {
	if resource == nil {
		return true
	}
	ownable, ok := resource.(Ownable)
	if !ok {
		// deny resources without an owner
		return false
	}
	owner := ownable.GetUserID()
	return owner != uuid.Nil && owner == userID
}

// NewOwnershipGate returns a gate with the ownership policy registered for
// every user-owned table.
func NewOwnershipGate(tables ...string) *gate.Gate[uuid.UUID] {
	g := gate.NewGate[uuid.UUID]()
	p := NewOwnershipPolicy()
	for _, t := range tables {
		g.Register(t, p)
	}
	return g
}
