package swarm

import (
	"fmt"
	"strings"
	"time"

	"hivemind.ai/internal/protocol"
)

// Resource is one discovered world resource, keyed by type and truncated
// coordinate so repeat sightings of the same block dedup to one entry.
type Resource struct {
	Key          string
	Type         string
	Location     protocol.Vec3
	DiscoveredBy string
	Quantity     int
	Claimed      bool
	ClaimedBy    string
	ReportedAt   time.Time
}

type resourceLedger struct {
	cap     int
	entries *boundedMap[*Resource]
}

func newResourceLedger(cap int) *resourceLedger {
	return &resourceLedger{cap: cap, entries: newBoundedMap[*Resource]()}
}

func resourceKey(typ string, loc protocol.Vec3) string {
	x, y, z := truncate(loc)
	return fmt.Sprintf("%s:%d,%d,%d", typ, x, y, z)
}

func (l *resourceLedger) len() int { return l.entries.len() }

func (l *resourceLedger) get(key string) (*Resource, bool) { return l.entries.get(key) }

// insert records a first sighting. Returns false (no-op) when the key is
// already known: the first reporter keeps discovery credit. Overflow evicts
// the oldest unclaimed entry; claimed entries are never evicted so an
// in-flight claim cannot be invalidated underneath its holder.
func (l *resourceLedger) insert(r *Resource) bool {
	if _, ok := l.entries.get(r.Key); ok {
		return false
	}
	l.entries.put(r.Key, r)
	if l.entries.len() > l.cap {
		l.entries.evictOldest(func(e *Resource) bool { return !e.Claimed })
	}
	return true
}

func (l *resourceLedger) claim(botID, key string) bool {
	r, ok := l.entries.get(key)
	if !ok || r.Claimed {
		return false
	}
	r.Claimed = true
	r.ClaimedBy = botID
	return true
}

func (l *resourceLedger) unclaimAll(botID string) int {
	n := 0
	l.entries.each(func(_ string, r *Resource) bool {
		if r.Claimed && r.ClaimedBy == botID {
			r.Claimed = false
			r.ClaimedBy = ""
			n++
		}
		return true
	})
	return n
}

func (l *resourceLedger) remove(key string) bool { return l.entries.remove(key) }

// nearest scans unclaimed entries for the closest match. typeFilter "" means
// any type.
func (l *resourceLedger) nearest(pos protocol.Vec3, typeFilter string) *Resource {
	var best *Resource
	var bestDist float64
	l.entries.each(func(_ string, r *Resource) bool {
		if r.Claimed {
			return true
		}
		if typeFilter != "" && r.Type != typeFilter {
			return true
		}
		if d := distance(pos, r.Location); best == nil || d < bestDist {
			best = r
			bestDist = d
		}
		return true
	})
	return best
}

// oreNames marks resource types that feed the mining network; matching is
// by substring so "deepslate_iron_ore" still counts as iron.
var oreNames = []string{
	"coal", "iron", "copper", "gold", "redstone",
	"lapis", "diamond", "emerald", "quartz", "crystal",
}

func oreTypeOf(resourceType string) (string, bool) {
	lower := strings.ToLower(resourceType)
	for _, ore := range oreNames {
		if strings.Contains(lower, ore) {
			return ore, true
		}
	}
	return "", false
}

// miningNetwork is the derived per-ore index of discovered ore locations:
// a sliding window per ore type, deduplicated within dedupRadius blocks.
type miningNetwork struct {
	window      int
	dedupRadius float64
	veins       map[string][]protocol.Vec3
}

func newMiningNetwork(window int, dedupRadius float64) *miningNetwork {
	return &miningNetwork{window: window, dedupRadius: dedupRadius, veins: map[string][]protocol.Vec3{}}
}

func (m *miningNetwork) add(ore string, loc protocol.Vec3) bool {
	x, y, z := truncate(loc)
	p := protocol.Vec3{X: float64(x), Y: float64(y), Z: float64(z)}
	for _, v := range m.veins[ore] {
		if distance(v, p) < m.dedupRadius {
			return false
		}
	}
	m.veins[ore] = append(m.veins[ore], p)
	if len(m.veins[ore]) > m.window {
		m.veins[ore] = m.veins[ore][1:]
	}
	return true
}

func (m *miningNetwork) locations(ore string) []protocol.Vec3 {
	return m.veins[ore]
}

// ---- coordinator handlers ----

func (s *Swarm) handleResourceFound(m protocol.ResourceFoundMsg) bool {
	if m.Type == "" || m.BotID == "" {
		s.logf("resource.found: %s", protocol.ErrBadRequest)
		return false
	}
	key := resourceKey(m.Type, m.Location)
	r := &Resource{
		Key:          key,
		Type:         m.Type,
		Location:     m.Location,
		DiscoveredBy: m.BotID,
		Quantity:     m.Quantity,
		ReportedAt:   s.now(),
	}
	if !s.resources.insert(r) {
		return false
	}
	if ore, ok := oreTypeOf(m.Type); ok {
		s.mining.add(ore, m.Location)
	}
	s.emit(protocol.TopicResourceShared, protocol.ResourceSharedMsg{
		Key:          key,
		Type:         m.Type,
		Location:     m.Location,
		DiscoveredBy: m.BotID,
		Quantity:     m.Quantity,
	})
	return true
}

func (s *Swarm) handleClaim(botID, key string) bool {
	if !s.resources.claim(botID, key) {
		s.logf("resource.claim %s by %s: %s", key, botID, protocol.ErrAlreadyClaimed)
		return false
	}
	s.emit(protocol.TopicResourceClaimed, protocol.ResourceClaimedMsg{Key: key, BotID: botID})
	return true
}

func (s *Swarm) handleDeplete(key string) bool {
	if !s.resources.remove(key) {
		s.logf("resource.depleted %s: %s", key, protocol.ErrUnknownKey)
		return false
	}
	s.gathered++
	s.emit(protocol.TopicResourceDepleted, protocol.ResourceDepletedEvent{Key: key, Gathered: s.gathered})
	return true
}
