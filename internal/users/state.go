package users

import "go.uber.org/zap"

// State is a step of the registration workflow.
type State int

const (
	StateStart State = iota
	StateIdentityProviderCreated
	StatePasswordEncrypted
	StatePersisted
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "START"
	case StateIdentityProviderCreated:
		return "IDENTITY_PROVIDER_CREATED"
	case StatePasswordEncrypted:
		return "PASSWORD_ENCRYPTED"
	case StatePersisted:
		return "PERSISTED"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// workflow tracks the current state of one registration and which side
// effects have committed, so compensation only undoes what happened.
type workflow struct {
	state           State
	identityCreated bool
	rowPersisted    bool
	userID          int64
	logger          *zap.Logger
}

func newWorkflow(logger *zap.Logger) *workflow {
	return &workflow{state: StateStart, logger: logger}
}

func (w *workflow) advance(next State) {
	w.logger.Debug("registration state", zap.Stringer("from", w.state), zap.Stringer("to", next))
	w.state = next
	switch next {
	case StateIdentityProviderCreated:
		w.identityCreated = true
	case StatePersisted:
		w.rowPersisted = true
	}
}
