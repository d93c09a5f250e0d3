package statemachine

import (
	"fmt"
	"strings"

	"restaurant-ordering-api/models"
)

// Actor is the kind of caller driving a transition
type Actor string

const (
	ActorStaff    Actor = "staff" // staff and admin
	ActorCustomer Actor = "customer"
)

// ActorFor maps an account role to the actor it plays in the order lifecycle
func ActorFor(role models.UserRole) Actor {
	if role.IsStaff() {
		return ActorStaff
	}
	return ActorCustomer
}

// Transition defines a valid state change and who can perform it
type Transition struct {
	From  models.OrderStatus `json:"from"`
	To    models.OrderStatus `json:"to"`
	Actor Actor              `json:"actor"`
}

// validTransitions is the authoritative state machine definition
var validTransitions = []Transition{
	// Kitchen accepts the order
	{From: models.StatusPending, To: models.StatusConfirmed, Actor: ActorStaff},
	// Pending and confirmed orders can still be cancelled by either side
	{From: models.StatusPending, To: models.StatusCancelled, Actor: ActorStaff},
	{From: models.StatusPending, To: models.StatusCancelled, Actor: ActorCustomer},
	{From: models.StatusConfirmed, To: models.StatusPreparing, Actor: ActorStaff},
	{From: models.StatusConfirmed, To: models.StatusCancelled, Actor: ActorStaff},
	{From: models.StatusConfirmed, To: models.StatusCancelled, Actor: ActorCustomer},
	{From: models.StatusPreparing, To: models.StatusReady, Actor: ActorStaff},
	{From: models.StatusReady, To: models.StatusDelivering, Actor: ActorStaff},
	{From: models.StatusDelivering, To: models.StatusDelivered, Actor: ActorStaff},
}

type transitionKey struct {
	From  models.OrderStatus
	To    models.OrderStatus
	Actor Actor
}

var transitionMap = func() map[transitionKey]bool {
	m := make(map[transitionKey]bool)
	for _, t := range validTransitions {
		m[transitionKey{t.From, t.To, t.Actor}] = true
	}
	return m
}()

// CancellableStatuses are the states from which an order may be cancelled
var CancellableStatuses = []models.OrderStatus{models.StatusPending, models.StatusConfirmed}

// ValidTransitionsFrom returns all valid next states from a given state
func ValidTransitionsFrom(status models.OrderStatus) []models.OrderStatus {
	nexts := []models.OrderStatus{}
	seen := map[models.OrderStatus]bool{}
	for _, t := range validTransitions {
		if t.From == status && !seen[t.To] {
			nexts = append(nexts, t.To)
			seen[t.To] = true
		}
	}
	return nexts
}

// CanTransition checks if a given actor can move from one state to another
func CanTransition(from, to models.OrderStatus, actor Actor) error {
	if transitionMap[transitionKey{From: from, To: to, Actor: actor}] {
		return nil
	}
	return fmt.Errorf("invalid transition: %s → %s is not allowed for %s. Valid transitions from %s are: %s",
		from, to, actor, from, describeValidFrom(from))
}

// IsCancellable reports whether an order in status can still be cancelled
func IsCancellable(status models.OrderStatus) bool {
	for _, s := range CancellableStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func describeValidFrom(status models.OrderStatus) string {
	nexts := ValidTransitionsFrom(status)
	if len(nexts) == 0 {
		return "none (terminal state)"
	}
	parts := make([]string, len(nexts))
	for i, s := range nexts {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}

// GetAllTransitions returns the full state machine for documentation
func GetAllTransitions() []Transition {
	out := make([]Transition, len(validTransitions))
	copy(out, validTransitions)
	return out
}
