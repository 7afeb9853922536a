package swarm

import "hivemind.ai/internal/protocol"

// handleReserve takes an advisory claim on a bot's planned waypoints. The
// reservation is all-or-nothing: if any waypoint comes within the collision
// radius of any waypoint reserved by another bot, nothing is mutated and
// the caller is expected to replan. A successful reservation replaces the
// bot's previous one.
func (s *Swarm) handleReserve(botID string, waypoints []protocol.Vec3) bool {
	if botID == "" || len(waypoints) == 0 {
		s.logf("path.reserve: %s", protocol.ErrBadRequest)
		return false
	}
	for otherID, reserved := range s.paths {
		if otherID == botID {
			continue
		}
		for _, wp := range waypoints {
			for _, other := range reserved {
				if distance(wp, other) < s.cfg.PathCollisionRadius {
					s.logf("path.reserve %s: %s with %s", botID, protocol.ErrPathConflict, otherID)
					return false
				}
			}
		}
	}
	s.paths[botID] = waypoints
	return true
}

func (s *Swarm) handleRelease(botID string) {
	delete(s.paths, botID)
}
