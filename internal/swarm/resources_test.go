package swarm

import (
	"testing"

	"hivemind.ai/internal/protocol"
)

func TestResourceKey_TruncatesCoordinates(t *testing.T) {
	got := resourceKey("diamond_ore", protocol.Vec3{X: 100.7, Y: 12.2, Z: -40.3})
	if want := "diamond_ore:100,12,-41"; got != want {
		t.Fatalf("key=%q want %q", got, want)
	}
}

func TestResourceFound_FirstReporterKeepsCredit(t *testing.T) {
	s, sink, _ := newTestSwarm(t, Config{})
	loc := protocol.Vec3{X: 100.2, Y: 12, Z: -40.1}
	if !s.handleResourceFound(protocol.ResourceFoundMsg{BotID: "scout", Type: "iron_ore", Quantity: 3, Location: loc}) {
		t.Fatalf("first report rejected")
	}
	// Same block, fractional offset: same key, deduplicated.
	if s.handleResourceFound(protocol.ResourceFoundMsg{BotID: "miner", Type: "iron_ore", Quantity: 3, Location: protocol.Vec3{X: 100.9, Y: 12.4, Z: -40.9}}) {
		t.Fatalf("duplicate sighting accepted")
	}

	r, ok := s.resources.get(resourceKey("iron_ore", loc))
	if !ok {
		t.Fatalf("resource missing")
	}
	if r.DiscoveredBy != "scout" {
		t.Fatalf("discoveredBy=%s want scout", r.DiscoveredBy)
	}
	if got := sink.byTopic(protocol.TopicResourceShared); len(got) != 1 {
		t.Fatalf("resource.shared events=%d want 1", len(got))
	}
}

func TestResourceClaim_ExclusiveUntilReleased(t *testing.T) {
	s, _, _ := newTestSwarm(t, Config{})
	loc := protocol.Vec3{X: 1, Y: 2, Z: 3}
	s.handleResourceFound(protocol.ResourceFoundMsg{BotID: "a", Type: "coal_ore", Quantity: 1, Location: loc})
	key := resourceKey("coal_ore", loc)

	if !s.handleClaim("a", key) {
		t.Fatalf("claim rejected")
	}
	if s.handleClaim("b", key) {
		t.Fatalf("double claim accepted")
	}
	if s.handleClaim("a", "coal_ore:9,9,9") {
		t.Fatalf("claim of unknown key accepted")
	}

	if n := s.resources.unclaimAll("a"); n != 1 {
		t.Fatalf("unclaimed=%d want 1", n)
	}
	if !s.handleClaim("b", key) {
		t.Fatalf("claim after release rejected")
	}
}

func TestResourceDeplete_RemovesAndCountsGathered(t *testing.T) {
	s, sink, _ := newTestSwarm(t, Config{})
	loc := protocol.Vec3{X: 1, Y: 2, Z: 3}
	s.handleResourceFound(protocol.ResourceFoundMsg{BotID: "a", Type: "coal_ore", Quantity: 1, Location: loc})
	key := resourceKey("coal_ore", loc)

	if !s.handleDeplete(key) {
		t.Fatalf("deplete rejected")
	}
	if s.gathered != 1 {
		t.Fatalf("gathered=%d want 1", s.gathered)
	}
	if s.handleDeplete(key) {
		t.Fatalf("second deplete accepted")
	}
	if got := sink.byTopic(protocol.TopicResourceDepleted); len(got) != 1 {
		t.Fatalf("resource.depleted events=%d want 1", len(got))
	}
}

func TestResourceLedger_OverflowEvictsOldestUnclaimed(t *testing.T) {
	s, _, _ := newTestSwarm(t, Config{ResourceCacheCap: 3})
	at := func(x float64) protocol.Vec3 { return protocol.Vec3{X: x} }

	s.handleResourceFound(protocol.ResourceFoundMsg{BotID: "a", Type: "coal_ore", Quantity: 1, Location: at(1)})
	s.handleResourceFound(protocol.ResourceFoundMsg{BotID: "a", Type: "coal_ore", Quantity: 1, Location: at(2)})
	s.handleResourceFound(protocol.ResourceFoundMsg{BotID: "a", Type: "coal_ore", Quantity: 1, Location: at(3)})

	oldest := resourceKey("coal_ore", at(1))
	if !s.handleClaim("a", oldest) {
		t.Fatalf("claim rejected")
	}

	s.handleResourceFound(protocol.ResourceFoundMsg{BotID: "a", Type: "coal_ore", Quantity: 1, Location: at(4)})
	if s.resources.len() != 3 {
		t.Fatalf("ledger len=%d want 3", s.resources.len())
	}
	// The claimed oldest entry survives; the oldest unclaimed one goes.
	if _, ok := s.resources.get(oldest); !ok {
		t.Fatalf("claimed entry evicted")
	}
	if _, ok := s.resources.get(resourceKey("coal_ore", at(2))); ok {
		t.Fatalf("oldest unclaimed entry not evicted")
	}
}

func TestResourceLedger_Nearest(t *testing.T) {
	s, _, _ := newTestSwarm(t, Config{})
	s.handleResourceFound(protocol.ResourceFoundMsg{BotID: "a", Type: "iron_ore", Quantity: 1, Location: protocol.Vec3{X: 100}})
	s.handleResourceFound(protocol.ResourceFoundMsg{BotID: "a", Type: "iron_ore", Quantity: 1, Location: protocol.Vec3{X: 10}})
	s.handleResourceFound(protocol.ResourceFoundMsg{BotID: "a", Type: "coal_ore", Quantity: 1, Location: protocol.Vec3{X: 1}})

	r := s.resources.nearest(protocol.Vec3{}, "iron_ore")
	if r == nil || r.Location.X != 10 {
		t.Fatalf("nearest iron: %+v", r)
	}
	// Claimed entries are invisible to nearest.
	s.handleClaim("b", r.Key)
	r = s.resources.nearest(protocol.Vec3{}, "iron_ore")
	if r == nil || r.Location.X != 100 {
		t.Fatalf("nearest skipping claimed: %+v", r)
	}
	if r := s.resources.nearest(protocol.Vec3{}, "emerald_ore"); r != nil {
		t.Fatalf("nearest of absent type: %+v", r)
	}
}

func TestMiningNetwork_DedupsWithinRadiusAndSlidesWindow(t *testing.T) {
	m := newMiningNetwork(3, 5)

	if !m.add("diamond", protocol.Vec3{X: 100.4, Y: 12.7, Z: -40.2}) {
		t.Fatalf("first vein rejected")
	}
	// 2.83 blocks from the first: same vein.
	if m.add("diamond", protocol.Vec3{X: 102, Y: 12, Z: -39}) {
		t.Fatalf("nearby duplicate accepted")
	}
	if !m.add("diamond", protocol.Vec3{X: 110, Y: 12, Z: -40}) {
		t.Fatalf("distinct vein rejected")
	}
	if got := len(m.locations("diamond")); got != 2 {
		t.Fatalf("veins=%d want 2", got)
	}

	// Window slides: the oldest vein falls off.
	m.add("diamond", protocol.Vec3{X: 200})
	m.add("diamond", protocol.Vec3{X: 300})
	locs := m.locations("diamond")
	if len(locs) != 3 {
		t.Fatalf("veins=%d want window 3", len(locs))
	}
	if locs[0].X != 110 {
		t.Fatalf("oldest surviving vein x=%v want 110", locs[0].X)
	}
}

func TestOreTypeOf_SubstringMatch(t *testing.T) {
	if ore, ok := oreTypeOf("deepslate_iron_ore"); !ok || ore != "iron" {
		t.Fatalf("got %q/%v", ore, ok)
	}
	if _, ok := oreTypeOf("oak_log"); ok {
		t.Fatalf("non-ore matched")
	}
}

func TestResourceFound_OreFeedsMiningNetwork(t *testing.T) {
	s, _, _ := newTestSwarm(t, Config{})
	s.handleResourceFound(protocol.ResourceFoundMsg{BotID: "a", Type: "deepslate_gold_ore", Quantity: 2, Location: protocol.Vec3{X: 7, Y: 8, Z: 9}})
	if got := len(s.mining.locations("gold")); got != 1 {
		t.Fatalf("gold veins=%d want 1", got)
	}
	s.handleResourceFound(protocol.ResourceFoundMsg{BotID: "a", Type: "wheat", Quantity: 2, Location: protocol.Vec3{X: 1, Y: 1, Z: 1}})
	if got := len(s.mining.veins); got != 1 {
		t.Fatalf("ore types=%d want 1 (wheat is not an ore)", got)
	}
}
