package reaction

import (
	"jan-server/services/helpdesk-api/internal/domain/message"
	"jan-server/services/helpdesk-api/internal/domain/update"
)

// Merge applies one actor's reaction change to the stored aggregate and returns a new
// map. Reactions the actor dropped lose the actor (and the key once empty); reactions
// in the new set gain the actor at most once. Applying the same change twice is a no-op.
func Merge(stored message.Reactions, oldReactions, newReactions []update.ReactionType, actor string) message.Reactions {
	out := stored.Clone()

	current := make(map[string]struct{}, len(newReactions))
	for _, r := range newReactions {
		if key := r.Key(); key != "" {
			current[key] = struct{}{}
		}
	}

	for _, r := range oldReactions {
		key := r.Key()
		if _, kept := current[key]; kept || key == "" {
			continue
		}
		out[key] = without(out[key], actor)
		if len(out[key]) == 0 {
			delete(out, key)
		}
	}

	for _, r := range newReactions {
		key := r.Key()
		if key == "" {
			continue
		}
		if !contains(out[key], actor) {
			out[key] = append(out[key], actor)
		}
	}

	return out
}

func without(actors []string, actor string) []string {
	out := actors[:0:0]
	for _, a := range actors {
		if a != actor {
			out = append(out, a)
		}
	}
	return out
}

func contains(actors []string, actor string) bool {
	for _, a := range actors {
		if a == actor {
			return true
		}
	}
	return false
}
