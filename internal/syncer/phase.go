package syncer

import "github.com/solmercado/storefront-core/internal/authstate"

// Phase is the derived synchronization state. It is reconstructed from
// the auth snapshot and the merge guard on demand.
type Phase string

const (
	PhaseAnonymous            Phase = "anonymous"
	PhaseAuthPendingToken     Phase = "auth_pending_token"
	PhaseAuthenticatedPending Phase = "authenticated_unmerged"
	PhaseAuthenticatedMerged  Phase = "authenticated_merged"
)

func derivePhase(snap authstate.Snapshot, merged bool) Phase {
	switch {
	case !snap.IsAuthenticated:
		return PhaseAnonymous
	case !snap.HasToken():
		return PhaseAuthPendingToken
	case !merged:
		return PhaseAuthenticatedPending
	default:
		return PhaseAuthenticatedMerged
	}
}
