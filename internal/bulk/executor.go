package bulk

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	apperrors "killay/internal/errors"
)

// State is the lifecycle position of an Executor
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCommitted State = "committed"
	StateAborted   State = "aborted"
)

// ErrExecutorUsed is returned when Run is called on an executor that already ran
var ErrExecutorUsed = errors.New("executor already ran")

// Transactor opens one all-or-nothing scope; fn receives the scoped context
// and a non-nil return rolls everything back
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ExecuteFunc persists a validated batch and describes each created record
type ExecuteFunc func(ctx context.Context, rows []Row) ([]Result, error)

// ResultField is one labelled value of a result, linked when it names a record
type ResultField struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Link  string `json:"link,omitempty"`
}

// Result describes the records created from one input row
type Result struct {
	Row      int           `json:"row"`
	Fields   []ResultField `json:"fields"`
	Instance any           `json:"-"`
}

// Field returns the named result field
func (r Result) Field(name string) (ResultField, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return ResultField{}, false
}

// Executor runs one action's write phase exactly once
type Executor struct {
	action  string
	tx      Transactor
	execute ExecuteFunc
	logger  *logrus.Entry

	mu    sync.Mutex
	state State
}

// NewExecutor creates a pending executor
func NewExecutor(action string, tx Transactor, execute ExecuteFunc, logger *logrus.Entry) *Executor {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Executor{
		action:  action,
		tx:      tx,
		execute: execute,
		logger:  logger.WithField("action", action),
		state:   StatePending,
	}
}

// State returns the current lifecycle state
func (e *Executor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Executor) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// Run executes rows inside a single transaction. Any failure aborts the whole
// batch and comes back as an *ExecutionError.
func (e *Executor) Run(ctx context.Context, rows []Row) ([]Result, error) {
	e.mu.Lock()
	if e.state != StatePending {
		e.mu.Unlock()
		return nil, ErrExecutorUsed
	}
	e.state = StateRunning
	e.mu.Unlock()

	e.logger.WithField("rows", len(rows)).Info("executing bulk action")

	var results []Result
	err := e.tx.InTx(ctx, func(txCtx context.Context) error {
		var execErr error
		results, execErr = e.safeExecute(txCtx, rows)
		return execErr
	})
	if err != nil {
		e.setState(StateAborted)
		e.logger.WithError(err).Warn("bulk action aborted")
		return nil, &ExecutionError{
			Code:    apperrors.CodeExecutionFailed,
			Message: err.Error(),
			Kind:    ExecutionKindUnknown,
			Cause:   err,
		}
	}

	e.setState(StateCommitted)
	e.logger.WithField("results", len(results)).Info("bulk action committed")
	return results, nil
}

// safeExecute turns a panic in the hook into an error so the scope rolls back
func (e *Executor) safeExecute(ctx context.Context, rows []Row) (results []Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during execution: %v", r)
		}
	}()
	return e.execute(ctx, rows)
}
