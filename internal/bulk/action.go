package bulk

import (
	"fmt"

	"github.com/sirupsen/logrus"

	apperrors "killay/internal/errors"
)

// Action bundles everything one import type needs: its columns, its store
// checks, and its write phase
type Action struct {
	Type        string
	Name        string
	Description string
	Schema      Schema
	Store       StoreValidation
	Execute     ExecuteFunc
	Transactor  Transactor
	Coercer     *Coercer
}

// Validator builds a validator for the action
func (a *Action) Validator() *Validator {
	return NewValidator(a.Schema, a.Coercer, a.Store)
}

// Executor builds a fresh, pending executor for the action
func (a *Action) Executor(logger *logrus.Entry) *Executor {
	return NewExecutor(a.Type, a.Transactor, a.Execute, logger)
}

// Headers returns the template header row for the action
func (a *Action) Headers() []string {
	return a.Schema.Headers()
}

// TemplateFilename is the download name of the action's spreadsheet template
func TemplateFilename(actionType string) string {
	return fmt.Sprintf("template_%s.xlsx", actionType)
}

// Registry is the set of known actions, kept in registration order
type Registry struct {
	actions map[string]*Action
	order   []string
}

// NewRegistry registers actions; a duplicate type replaces the earlier one
func NewRegistry(actions ...*Action) *Registry {
	r := &Registry{actions: make(map[string]*Action, len(actions))}
	for _, a := range actions {
		r.Register(a)
	}
	return r
}

// Register adds or replaces an action
func (r *Registry) Register(a *Action) {
	if _, exists := r.actions[a.Type]; !exists {
		r.order = append(r.order, a.Type)
	}
	r.actions[a.Type] = a
}

// Get returns the action for actionType or ErrUnknownAction
func (r *Registry) Get(actionType string) (*Action, error) {
	a, ok := r.actions[actionType]
	if !ok {
		return nil, apperrors.Wrapf(ErrUnknownAction, "action %q", actionType)
	}
	return a, nil
}

// Actions lists registered actions in registration order
func (r *Registry) Actions() []*Action {
	list := make([]*Action, 0, len(r.order))
	for _, t := range r.order {
		list = append(list, r.actions[t])
	}
	return list
}
