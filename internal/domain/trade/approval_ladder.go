package trade

import (
	"slices"
	"sort"

	"github.com/Massea0/entrepriseOS-complete-sub002/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ApprovalLevel is one rung of the approval ladder.
//
// MinAmount decides whether the level applies to an order at all: an order whose total is below it
// skips the level. MaxAmount caps the authority of the level: it may only be the final approval for
// totals up to MaxAmount. Nil bounds are open.
type ApprovalLevel struct {
	Level     int
	Name      string
	Approvers []string
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal
}

// Applies reports whether an order with the given total must pass this level
func (l ApprovalLevel) Applies(total decimal.Decimal) bool {
	return l.MinAmount == nil || total.GreaterThanOrEqual(*l.MinAmount)
}

// Covers reports whether this level has authority for the given total
func (l ApprovalLevel) Covers(total decimal.Decimal) bool {
	return l.MaxAmount == nil || total.LessThanOrEqual(*l.MaxAmount)
}

// HasApprover reports whether actorID is listed on the level
func (l ApprovalLevel) HasApprover(actorID string) bool {
	return slices.Contains(l.Approvers, actorID)
}

// Actor is the identity performing a command, with the ladder levels it belongs to
// beyond the ids listed on each level.
type Actor struct {
	ID     string
	Levels []int
}

// NewActor creates an actor with explicit level memberships
func NewActor(id string, levels ...int) Actor {
	return Actor{ID: id, Levels: levels}
}

// IsMemberOf reports whether the actor may act on the given level
func (a Actor) IsMemberOf(level ApprovalLevel) bool {
	if a.ID == "" {
		return false
	}
	return level.HasApprover(a.ID) || slices.Contains(a.Levels, level.Level)
}

// ApprovalLadder is the ordered, read-only approval configuration shared by all orders
type ApprovalLadder struct {
	levels []ApprovalLevel
}

// NewApprovalLadder validates and sorts the levels.
// Levels must be numbered 1..N without gaps, list at least one approver and have min ≤ max.
func NewApprovalLadder(levels []ApprovalLevel) (*ApprovalLadder, error) {
	sorted := make([]ApprovalLevel, len(levels))
	copy(sorted, levels)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Level < sorted[j].Level })

	for i, level := range sorted {
		if level.Level != i+1 {
			return nil, shared.NewDomainErrorf(shared.CodeValidation,
				"approval levels must be numbered 1..%d without gaps, found level %d at position %d", len(sorted), level.Level, i+1)
		}
		if len(level.Approvers) == 0 {
			return nil, shared.NewDomainErrorf(shared.CodeValidation, "approval level %d has no approvers", level.Level)
		}
		if level.MinAmount != nil && level.MinAmount.IsNegative() {
			return nil, shared.NewDomainErrorf(shared.CodeValidation, "approval level %d has a negative minimum", level.Level)
		}
		if level.MinAmount != nil && level.MaxAmount != nil && level.MinAmount.GreaterThan(*level.MaxAmount) {
			return nil, shared.NewDomainErrorf(shared.CodeValidation,
				"approval level %d minimum %s exceeds maximum %s", level.Level, level.MinAmount, level.MaxAmount)
		}
		sorted[i].Approvers = slices.Clone(level.Approvers)
	}
	return &ApprovalLadder{levels: sorted}, nil
}

// MustApprovalLadder is NewApprovalLadder for static configuration; it panics on error
func MustApprovalLadder(levels []ApprovalLevel) *ApprovalLadder {
	ladder, err := NewApprovalLadder(levels)
	if err != nil {
		panic(err)
	}
	return ladder
}

// Levels returns a copy of the configured levels
func (l *ApprovalLadder) Levels() []ApprovalLevel {
	out := make([]ApprovalLevel, len(l.levels))
	copy(out, l.levels)
	return out
}

// Level returns the configured level with the given number
func (l *ApprovalLadder) Level(number int) (ApprovalLevel, bool) {
	if number < 1 || number > len(l.levels) {
		return ApprovalLevel{}, false
	}
	return l.levels[number-1], true
}

// MaxLevel returns N, the highest configured level
func (l *ApprovalLadder) MaxLevel() int {
	return len(l.levels)
}

// RequiredLevels lists, in order, the levels an order with the given total must pass
func (l *ApprovalLadder) RequiredLevels(total decimal.Decimal) []ApprovalLevel {
	required := make([]ApprovalLevel, 0, len(l.levels))
	for _, level := range l.levels {
		if level.Applies(total) {
			required = append(required, level)
		}
	}
	return required
}

func (l *ApprovalLadder) nextLevel(current int, total decimal.Decimal) (ApprovalLevel, bool) {
	for _, level := range l.levels {
		if level.Level > current && level.Applies(total) {
			return level, true
		}
	}
	return ApprovalLevel{}, false
}

// NextLevelFor returns the next level the order has to pass.
// It returns false once every required level has approved.
func (l *ApprovalLadder) NextLevelFor(order *PurchaseOrder) (ApprovalLevel, bool) {
	return l.nextLevel(order.CurrentApprovalLevel, order.Total.Amount())
}

// IsAmountInRange reports whether the level may approve an order with the given total.
// The last required level must also cover the total.
func (l *ApprovalLadder) IsAmountInRange(level ApprovalLevel, total decimal.Decimal) bool {
	if !level.Applies(total) {
		return false
	}
	if _, more := l.nextLevel(level.Level, total); more {
		return true
	}
	return level.Covers(total)
}

// CanAct reports whether the actor may approve or reject the order at its next level
func (l *ApprovalLadder) CanAct(actor Actor, order *PurchaseOrder) bool {
	next, ok := l.NextLevelFor(order)
	if !ok {
		return false
	}
	return actor.IsMemberOf(next) && l.IsAmountInRange(next, order.Total.Amount())
}

// LevelsOf returns the level numbers listing actorID as an approver
func (l *ApprovalLadder) LevelsOf(actorID string) []int {
	var levels []int
	for _, level := range l.levels {
		if level.HasApprover(actorID) {
			levels = append(levels, level.Level)
		}
	}
	return levels
}
