package swarm

import (
	"fmt"
	"strings"
)

// Role is a bot's fixed specialization, assigned once at registration.
type Role string

const (
	RoleGuardian  Role = "GUARDIAN"
	RoleMiner     Role = "MINER"
	RoleHarvester Role = "HARVESTER"
	RoleScout     Role = "SCOUT"
	RoleBuilder   Role = "BUILDER"
	RoleCrafter   Role = "CRAFTER"
	RoleGeneral   Role = "GENERAL"
)

var knownRoles = map[Role]struct{}{
	RoleGuardian:  {},
	RoleMiner:     {},
	RoleHarvester: {},
	RoleScout:     {},
	RoleBuilder:   {},
	RoleCrafter:   {},
	RoleGeneral:   {},
}

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if r == "" {
		return "", fmt.Errorf("empty role")
	}
	if _, ok := knownRoles[r]; !ok {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// rolePreference is the fill order for a fleet with no explicit roles: the
// first role not yet present among current bots is taken.
var rolePreference = []Role{RoleGuardian, RoleMiner, RoleHarvester, RoleScout}

// capabilityRoles maps capability keywords to an inferred role, checked in
// this order when the preference list is exhausted.
var capabilityRoles = []struct {
	keyword string
	role    Role
}{
	{"combat", RoleGuardian},
	{"mining", RoleMiner},
	{"farming", RoleHarvester},
	{"building", RoleBuilder},
	{"crafting", RoleCrafter},
	{"exploration", RoleScout},
}

// assignRole picks a role for a new bot that did not request one.
func (s *Swarm) assignRole(caps map[string]bool) Role {
	taken := map[Role]bool{}
	for _, id := range s.order {
		if b := s.bots[id]; b != nil {
			taken[b.Role] = true
		}
	}
	for _, r := range rolePreference {
		if !taken[r] {
			return r
		}
	}
	for _, cr := range capabilityRoles {
		if caps[cr.keyword] {
			return cr.role
		}
	}
	return RoleGeneral
}
