package creation

import (
	"time"

	"golang.org/x/time/rate"
)

// Rule decides whether an event may be created now.
type Rule interface {
	// IsEventCreationPermitted has no side effects.
	IsEventCreationPermitted() bool
	// EventWasCreated is called after every successful creation.
	EventWasCreated()
	// EventCreationStatus explains why the rule forbids creation. It is only
	// meaningful while IsEventCreationPermitted returns false.
	EventCreationStatus() EventCreationStatus
}

// SyncLagSource ...
type SyncLagSource interface {
	SyncRoundLag() float64
}

/*******************************************************************************
Rules
*******************************************************************************/

// Rules is an ordered conjunction of rules. Evaluation stops at the first rule
// that forbids creation, and that rule's status is reported.
type Rules []Rule

// IsEventCreationPermitted implements Rule
func (rs Rules) IsEventCreationPermitted() bool {
	_, ok := rs.firstForbidding()
	return !ok
}

// EventWasCreated notifies every rule.
func (rs Rules) EventWasCreated() {
	for _, r := range rs {
		r.EventWasCreated()
	}
}

// EventCreationStatus implements Rule
func (rs Rules) EventCreationStatus() EventCreationStatus {
	if r, ok := rs.firstForbidding(); ok {
		return r.EventCreationStatus()
	}
	return Idle
}

func (rs Rules) firstForbidding() (Rule, bool) {
	for _, r := range rs {
		if !r.IsEventCreationPermitted() {
			return r, true
		}
	}
	return nil, false
}

/*******************************************************************************
PlatformStatusRule
*******************************************************************************/

// PlatformStatusRule permits creation while the platform is Active or
// Checking. While Freezing, it permits creation only to flush buffered
// signature transactions.
type PlatformStatusRule struct {
	status func() PlatformStatus
	pool   TransactionPool
}

// NewPlatformStatusRule ...
func NewPlatformStatusRule(status func() PlatformStatus, pool TransactionPool) *PlatformStatusRule {
	return &PlatformStatusRule{
		status: status,
		pool:   pool,
	}
}

// IsEventCreationPermitted implements Rule
func (r *PlatformStatusRule) IsEventCreationPermitted() bool {
	switch r.status() {
	case Active, Checking:
		return true
	case Freezing:
		return r.pool.HasBufferedSignatureTransactions()
	default:
		return false
	}
}

// EventWasCreated implements Rule
func (r *PlatformStatusRule) EventWasCreated() {}

// EventCreationStatus implements Rule
func (r *PlatformStatusRule) EventCreationStatus() EventCreationStatus {
	return PlatformStatusBlocked
}

/*******************************************************************************
QuiescenceRule
*******************************************************************************/

// QuiescenceRule forbids creation while the node is told to quiesce.
type QuiescenceRule struct {
	command func() QuiescenceCommand
}

// NewQuiescenceRule ...
func NewQuiescenceRule(command func() QuiescenceCommand) *QuiescenceRule {
	return &QuiescenceRule{command: command}
}

// IsEventCreationPermitted implements Rule
func (r *QuiescenceRule) IsEventCreationPermitted() bool {
	return r.command() != Quiesce
}

// EventWasCreated implements Rule
func (r *QuiescenceRule) EventWasCreated() {}

// EventCreationStatus implements Rule
func (r *QuiescenceRule) EventCreationStatus() EventCreationStatus {
	return Quiescence
}

/*******************************************************************************
SyncLagRule
*******************************************************************************/

// SyncLagRule forbids creation while the median round lag of the peers is
// greater or equal to the maximum.
type SyncLagRule struct {
	source SyncLagSource
	maxLag int64
}

// NewSyncLagRule ...
func NewSyncLagRule(source SyncLagSource, maxLag int64) *SyncLagRule {
	return &SyncLagRule{
		source: source,
		maxLag: maxLag,
	}
}

// IsEventCreationPermitted implements Rule
func (r *SyncLagRule) IsEventCreationPermitted() bool {
	return r.source.SyncRoundLag() < float64(r.maxLag)
}

// EventWasCreated implements Rule
func (r *SyncLagRule) EventWasCreated() {}

// EventCreationStatus implements Rule
func (r *SyncLagRule) EventCreationStatus() EventCreationStatus {
	return SyncLagged
}

/*******************************************************************************
MaximumRateRule
*******************************************************************************/

// MaximumRateRule caps the number of events created per second. A
// non-positive rate disables the rule.
type MaximumRateRule struct {
	limiter *rate.Limiter
	now     func() time.Time
}

// NewMaximumRateRule creates a MaximumRateRule. If now is nil, time.Now is
// used.
func NewMaximumRateRule(perSecond float64, now func() time.Time) *MaximumRateRule {
	if now == nil {
		now = time.Now
	}

	r := &MaximumRateRule{now: now}
	if perSecond > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}

	return r
}

// IsEventCreationPermitted implements Rule
func (r *MaximumRateRule) IsEventCreationPermitted() bool {
	if r.limiter == nil {
		return true
	}
	return r.limiter.TokensAt(r.now()) >= 1
}

// EventWasCreated consumes a token.
func (r *MaximumRateRule) EventWasCreated() {
	if r.limiter == nil {
		return
	}
	r.limiter.AllowN(r.now(), 1)
}

// EventCreationStatus implements Rule
func (r *MaximumRateRule) EventCreationStatus() EventCreationStatus {
	return RateLimited
}

/*******************************************************************************
HealthRule
*******************************************************************************/

// HealthRule forbids creation while the node has been unhealthy for longer
// than the maximum.
type HealthRule struct {
	unhealthy func() time.Duration
	max       time.Duration
}

// NewHealthRule ...
func NewHealthRule(unhealthy func() time.Duration, max time.Duration) *HealthRule {
	return &HealthRule{
		unhealthy: unhealthy,
		max:       max,
	}
}

// IsEventCreationPermitted implements Rule
func (r *HealthRule) IsEventCreationPermitted() bool {
	return r.unhealthy() <= r.max
}

// EventWasCreated implements Rule
func (r *HealthRule) EventWasCreated() {}

// EventCreationStatus implements Rule
func (r *HealthRule) EventCreationStatus() EventCreationStatus {
	return Overloaded
}
