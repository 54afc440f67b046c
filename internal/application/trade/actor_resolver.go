package trade

import (
	"context"
	"slices"
	"strings"

	"github.com/Massea0/entrepriseOS-complete-sub002/internal/domain/shared"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/domain/trade"
)

// ActorResolver turns the authenticated caller into a domain actor with ladder memberships
type ActorResolver interface {
	Resolve(ctx context.Context, ref ActorRef) (trade.Actor, error)
}

// LadderActorResolver derives memberships from the configured approver lists.
// When trustClaims is set, the approval levels carried in the caller's token are added.
type LadderActorResolver struct {
	ladder      *trade.ApprovalLadder
	trustClaims bool
}

// NewLadderActorResolver creates a resolver for the given ladder
func NewLadderActorResolver(ladder *trade.ApprovalLadder, trustClaims bool) *LadderActorResolver {
	return &LadderActorResolver{ladder: ladder, trustClaims: trustClaims}
}

// Resolve implements ActorResolver
func (r *LadderActorResolver) Resolve(_ context.Context, ref ActorRef) (trade.Actor, error) {
	id := strings.TrimSpace(ref.ID)
	if id == "" {
		return trade.Actor{}, shared.NewDomainError(shared.CodeUnauthorized, "Caller identity is required")
	}
	levels := r.ladder.LevelsOf(id)
	if r.trustClaims {
		for _, level := range ref.Levels {
			if _, ok := r.ladder.Level(level); ok && !slices.Contains(levels, level) {
				levels = append(levels, level)
			}
		}
		slices.Sort(levels)
	}
	return trade.NewActor(id, levels...), nil
}
