package domain

// Reason names the branch of the status policy that produced a decision.
type Reason string

const (
	// ReasonNoDependencies means the task has no dependencies and is only ever un-blocked.
	ReasonNoDependencies Reason = "no_dependencies"
	// ReasonBlocked means at least one dependency is blocked.
	ReasonBlocked Reason = "dependency_blocked"
	// ReasonReady means every dependency is completed.
	ReasonReady Reason = "dependencies_completed"
	// ReasonWaiting means dependencies exist, none is blocked, and not all are completed.
	ReasonWaiting Reason = "dependencies_pending"
)

// Decision is the outcome of applying a Policy to a task.
type Decision struct {
	Status Status
	Reason Reason
}

// Policy decides a task's status from the statuses of its direct dependencies.
//
// ReadyStatus is the status assigned when every dependency is completed. It defaults to
// StatusPending, which makes the ready and waiting branches produce the same status. They are
// kept apart so the ready branch can be promoted (for example to StatusInProgress) without
// touching the waiting branch.
//
// KeepActiveWhenReady leaves in_progress and completed tasks alone when every dependency is
// completed, instead of resetting them to ReadyStatus.
type Policy struct {
	ReadyStatus         Status
	KeepActiveWhenReady bool
}

// DefaultPolicy returns the reference policy.
func DefaultPolicy() Policy {
	return Policy{ReadyStatus: StatusPending}
}

// Resolve applies the default policy.
func Resolve(current Status, deps []Status) Status {
	return DefaultPolicy().Resolve(current, deps)
}

// Resolve returns the status the task should have.
func (p Policy) Resolve(current Status, deps []Status) Status {
	return p.Decide(current, deps).Status
}

// Decide returns the status the task should have together with the branch that chose it.
// It is a pure function of its inputs.
func (p Policy) Decide(current Status, deps []Status) Decision {
	if len(deps) == 0 {
		if current == StatusBlocked {
			return Decision{Status: StatusPending, Reason: ReasonNoDependencies}
		}
		return Decision{Status: current, Reason: ReasonNoDependencies}
	}

	allCompleted := true
	for _, dep := range deps {
		if dep == StatusBlocked {
			return Decision{Status: StatusBlocked, Reason: ReasonBlocked}
		}
		if dep != StatusCompleted {
			allCompleted = false
		}
	}

	if allCompleted {
		if p.KeepActiveWhenReady && (current == StatusInProgress || current == StatusCompleted) {
			return Decision{Status: current, Reason: ReasonReady}
		}
		return Decision{Status: p.readyStatus(), Reason: ReasonReady}
	}

	return Decision{Status: StatusPending, Reason: ReasonWaiting}
}

func (p Policy) readyStatus() Status {
	if p.ReadyStatus == "" {
		return StatusPending
	}
	return p.ReadyStatus
}
