package creation

// PlatformStatus is the lifecycle phase of the platform, as announced by the
// consensus layer.
type PlatformStatus uint32

const (
	// StartingUp ...
	StartingUp PlatformStatus = iota
	// Active ...
	Active
	// ReplayingEvents ...
	ReplayingEvents
	// Observing ...
	Observing
	// Checking ...
	Checking
	// Freezing ...
	Freezing
	// FreezeComplete ...
	FreezeComplete
	// Behind ...
	Behind
	// ReconnectComplete ...
	ReconnectComplete
	// CatastrophicFailure ...
	CatastrophicFailure
)

func (s PlatformStatus) String() string {
	switch s {
	case StartingUp:
		return "StartingUp"
	case Active:
		return "Active"
	case ReplayingEvents:
		return "ReplayingEvents"
	case Observing:
		return "Observing"
	case Checking:
		return "Checking"
	case Freezing:
		return "Freezing"
	case FreezeComplete:
		return "FreezeComplete"
	case Behind:
		return "Behind"
	case ReconnectComplete:
		return "ReconnectComplete"
	case CatastrophicFailure:
		return "CatastrophicFailure"
	default:
		return "Unknown"
	}
}

// QuiescenceCommand tells the node whether it should stop creating events.
type QuiescenceCommand uint32

const (
	// DontQuiesce is normal operation.
	DontQuiesce QuiescenceCommand = iota
	// Quiesce stops event creation.
	Quiesce
	// BreakQuiesce permits the next event, then falls back to DontQuiesce.
	BreakQuiesce
)

func (c QuiescenceCommand) String() string {
	switch c {
	case DontQuiesce:
		return "DontQuiesce"
	case Quiesce:
		return "Quiesce"
	case BreakQuiesce:
		return "BreakQuiesce"
	default:
		return "Unknown"
	}
}

// EventCreationStatus describes the outcome of the last creation attempt.
// It is diagnostic only.
type EventCreationStatus uint32

const (
	// Idle means no attempt is in progress.
	Idle EventCreationStatus = iota
	// AttemptingCreation means the rules permitted creation and the Creator
	// was invoked.
	AttemptingCreation
	// PlatformStatusBlocked means the platform status forbids creation.
	PlatformStatusBlocked
	// Quiescence means the node was told to quiesce.
	Quiescence
	// Overloaded means the node has been unhealthy for too long.
	Overloaded
	// RateLimited means the maximum creation rate was reached.
	RateLimited
	// SyncLagged means the node is too far behind its peers.
	SyncLagged
	// NoEligibleParents means the Creator had nothing to build on.
	NoEligibleParents
)

func (s EventCreationStatus) String() string {
	switch s {
	case Idle:
		return "Idle"
	case AttemptingCreation:
		return "AttemptingCreation"
	case PlatformStatusBlocked:
		return "PlatformStatusBlocked"
	case Quiescence:
		return "Quiescence"
	case Overloaded:
		return "Overloaded"
	case RateLimited:
		return "RateLimited"
	case SyncLagged:
		return "SyncLagged"
	case NoEligibleParents:
		return "NoEligibleParents"
	default:
		return "Unknown"
	}
}
