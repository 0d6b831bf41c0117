package identity

import (
	"go.uber.org/zap"

	"github.com/DockeryAI/competitor-intel/internal/model"
)

// DedupeProfiles removes profiles whose normalized name already appeared
// earlier in the slice. First occurrence wins; order is preserved.
func DedupeProfiles(profiles []model.CompetitorProfile) []model.CompetitorProfile {
	seen := make(map[string]string, len(profiles))
	out := make([]model.CompetitorProfile, 0, len(profiles))
	for _, p := range profiles {
		key := Normalize(p.Name)
		if key == "" {
			continue
		}
		if first, dup := seen[key]; dup {
			zap.L().Debug("identity: dropping duplicate competitor",
				zap.String("name", p.Name),
				zap.String("kept", first),
			)
			continue
		}
		seen[key] = p.Name
		out = append(out, p)
	}
	return out
}

// ContainsName reports whether any profile in the set has a name
// equivalent to the given one.
func ContainsName(profiles []model.CompetitorProfile, name string) bool {
	key := Normalize(name)
	for _, p := range profiles {
		if Normalize(p.Name) == key {
			return true
		}
	}
	return false
}
