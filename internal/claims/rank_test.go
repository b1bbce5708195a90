package claims

import "testing"

func TestCanPerform(t *testing.T) {
	tests := []struct {
		name     string
		required Rank
		actual   Rank
		want     bool
	}{
		{name: "Ally below friend", required: RankFriend, actual: RankAlly, want: false},
		{name: "Manager above friend", required: RankFriend, actual: RankManager, want: true},
		{name: "Equal ranks", required: RankFriend, actual: RankFriend, want: true},
		{name: "Co-owner passes everything", required: RankCoOwner, actual: RankCoOwner, want: true},
		{name: "Stranger needs passive", required: RankPassive, actual: StrangerRank, want: true},
		{name: "Enemy blocked from passive", required: RankPassive, actual: RankEnemy, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanPerform(tt.required, tt.actual); got != tt.want {
				t.Errorf("CanPerform(%s, %s) = %v, want %v", tt.required, tt.actual, got, tt.want)
			}
		})
	}
}

func TestRanksAreOrdered(t *testing.T) {
	ordered := []Rank{RankAlly, RankFriend, RankManager, RankCoOwner}
	for i := 1; i < len(ordered); i++ {
		if ordered[i-1] >= ordered[i] {
			t.Errorf("%s should rank below %s", ordered[i-1], ordered[i])
		}
	}
	if got := Ranks(); len(got) != 6 || got[0] != RankEnemy || got[5] != MostRestrictiveRank {
		t.Errorf("Ranks() = %v", got)
	}
}

func TestParseRank(t *testing.T) {
	for _, r := range Ranks() {
		parsed, err := ParseRank(r.String())
		if err != nil {
			t.Fatalf("ParseRank(%q) error = %v", r.String(), err)
		}
		if parsed != r {
			t.Errorf("ParseRank(%q) = %v, want %v", r.String(), parsed, r)
		}
	}

	if _, err := ParseRank("OVERLORD"); err == nil {
		t.Error("ParseRank() expected error for unknown rank")
	}
	if got := Rank(42).String(); got != "Rank(42)" {
		t.Errorf("String() = %q for invalid rank", got)
	}
}

func TestDefaults_RankRequirementIsTotal(t *testing.T) {
	var empty Defaults
	for _, p := range Permissions() {
		if got := empty.RankRequirement(p); got != MostRestrictiveRank {
			t.Errorf("empty defaults: RankRequirement(%s) = %s, want %s", p, got, MostRestrictiveRank)
		}
	}
	if got := BuiltinDefaults().RankRequirement(Permission("TELEPORT")); got != MostRestrictiveRank {
		t.Errorf("unknown permission requirement = %s, want %s", got, MostRestrictiveRank)
	}
}

func TestDefaults_WithOverrides(t *testing.T) {
	base := BuiltinDefaults()
	d, err := base.WithOverrides(
		map[string]string{"BUILD": "FRIEND"},
		map[string]bool{"PLAYER_COMBAT": false},
		map[string]bool{"CROP_AUTOREPLANT": true},
	)
	if err != nil {
		t.Fatalf("WithOverrides() error = %v", err)
	}
	if d.RankRequirement(PermBuild) != RankFriend {
		t.Errorf("BUILD requirement = %s, want FRIEND", d.RankRequirement(PermBuild))
	}
	if d.Wilderness(SettingPlayerCombat) {
		t.Error("PLAYER_COMBAT wilderness default should be overridden to false")
	}
	if !d.ClaimSetting(SettingCropAutoReplant) {
		t.Error("CROP_AUTOREPLANT claim default should be overridden to true")
	}
	if base.RankRequirement(PermBuild) != RankAlly {
		t.Error("WithOverrides must not modify the receiver")
	}

	tests := []struct {
		name  string
		ranks map[string]string
		wild  map[string]bool
	}{
		{name: "Unknown permission", ranks: map[string]string{"FLY": "ALLY"}},
		{name: "Unknown rank", ranks: map[string]string{"BUILD": "KING"}},
		{name: "Unknown setting", wild: map[string]bool{"WEATHER": true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := base.WithOverrides(tt.ranks, tt.wild, nil); err == nil {
				t.Error("WithOverrides() expected error")
			}
		})
	}
}

func TestChunkOf(t *testing.T) {
	tests := []struct {
		name string
		pos  BlockPos
		want ChunkKey
	}{
		{name: "Origin", pos: BlockPos{X: 0, Z: 0}, want: ChunkKey{X: 0, Z: 0}},
		{name: "Inside first chunk", pos: BlockPos{X: 15, Y: 70, Z: 15}, want: ChunkKey{X: 0, Z: 0}},
		{name: "Next chunk", pos: BlockPos{X: 16, Z: 33}, want: ChunkKey{X: 1, Z: 2}},
		{name: "Negative floors", pos: BlockPos{X: -1, Z: -16}, want: ChunkKey{X: -1, Z: -1}},
		{name: "Negative boundary", pos: BlockPos{X: -17, Z: -32}, want: ChunkKey{X: -2, Z: -2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ChunkOf(0, tt.pos); got != tt.want {
				t.Errorf("ChunkOf(%+v) = %+v, want %+v", tt.pos, got, tt.want)
			}
		})
	}

	if got := (ChunkKey{X: -2, Z: 3}).BlockOrigin(); got != (BlockPos{X: -32, Y: 0, Z: 48}) {
		t.Errorf("BlockOrigin() = %+v", got)
	}
}
