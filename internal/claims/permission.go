package claims

import (
	"fmt"
	"maps"
)

// Permission is an action category gated by rank inside a claim.
type Permission string

const (
	PermBuild      Permission = "BUILD"
	PermDoors      Permission = "DOORS"
	PermContainers Permission = "CONTAINERS"
	PermTrading    Permission = "TRADING"
	PermHarvest    Permission = "HARVEST"
	PermCreatures  Permission = "CREATURES"
	PermRiding     Permission = "RIDING"
	PermPickup     Permission = "PICKUP"
	PermCrafting   Permission = "CRAFTING"
	PermBeds       Permission = "BEDS"
)

var allPermissions = []Permission{
	PermBuild, PermDoors, PermContainers, PermTrading, PermHarvest,
	PermCreatures, PermRiding, PermPickup, PermCrafting, PermBeds,
}

func Permissions() []Permission {
	return append([]Permission(nil), allPermissions...)
}

func (p Permission) Valid() bool {
	for _, known := range allPermissions {
		if p == known {
			return true
		}
	}
	return false
}

// Setting is a per-claim toggle such as whether players may fight.
type Setting string

const (
	SettingPlayerCombat     Setting = "PLAYER_COMBAT"
	SettingExplosions       Setting = "EXPLOSIONS"
	SettingEndermanGriefing Setting = "ENDERMAN_GRIEFING"
	SettingHurtTamed        Setting = "HURT_TAMED"
	SettingCropAutoReplant  Setting = "CROP_AUTOREPLANT"
)

var allSettings = []Setting{
	SettingPlayerCombat, SettingExplosions, SettingEndermanGriefing,
	SettingHurtTamed, SettingCropAutoReplant,
}

func Settings() []Setting {
	return append([]Setting(nil), allSettings...)
}

func (s Setting) Valid() bool {
	for _, known := range allSettings {
		if s == known {
			return true
		}
	}
	return false
}

// Defaults supplies the values used when a claimant has not configured a
// permission or setting, and the values that apply outside any claim.
type Defaults struct {
	ranks      map[Permission]Rank
	wilderness map[Setting]bool
	claim      map[Setting]bool
}

func BuiltinDefaults() Defaults {
	return Defaults{
		ranks: map[Permission]Rank{
			PermBuild:      RankAlly,
			PermDoors:      RankAlly,
			PermContainers: RankAlly,
			PermTrading:    RankPassive,
			PermHarvest:    RankAlly,
			PermCreatures:  RankAlly,
			PermRiding:     RankAlly,
			PermPickup:     RankAlly,
			PermCrafting:   RankPassive,
			PermBeds:       RankAlly,
		},
		wilderness: map[Setting]bool{
			SettingPlayerCombat:     true,
			SettingExplosions:       true,
			SettingEndermanGriefing: true,
			SettingHurtTamed:        true,
			SettingCropAutoReplant:  false,
		},
		claim: map[Setting]bool{
			SettingPlayerCombat:     false,
			SettingExplosions:       false,
			SettingEndermanGriefing: false,
			SettingHurtTamed:        false,
			SettingCropAutoReplant:  false,
		},
	}
}

// WithOverrides returns a copy of d with the named entries replaced. Unknown
// permission, setting or rank names are rejected.
func (d Defaults) WithOverrides(ranks map[string]string, wilderness, claim map[string]bool) (Defaults, error) {
	next := Defaults{
		ranks:      maps.Clone(d.ranks),
		wilderness: maps.Clone(d.wilderness),
		claim:      maps.Clone(d.claim),
	}
	if next.ranks == nil {
		next.ranks = make(map[Permission]Rank)
	}
	if next.wilderness == nil {
		next.wilderness = make(map[Setting]bool)
	}
	if next.claim == nil {
		next.claim = make(map[Setting]bool)
	}

	for name, rankName := range ranks {
		perm := Permission(name)
		if !perm.Valid() {
			return d, fmt.Errorf("unknown permission %q", name)
		}
		rank, err := ParseRank(rankName)
		if err != nil {
			return d, fmt.Errorf("permission %s: %w", name, err)
		}
		next.ranks[perm] = rank
	}
	for name, v := range wilderness {
		if !Setting(name).Valid() {
			return d, fmt.Errorf("unknown setting %q", name)
		}
		next.wilderness[Setting(name)] = v
	}
	for name, v := range claim {
		if !Setting(name).Valid() {
			return d, fmt.Errorf("unknown setting %q", name)
		}
		next.claim[Setting(name)] = v
	}
	return next, nil
}

// RankRequirement never fails: unknown permissions need the most
// restrictive rank.
func (d Defaults) RankRequirement(p Permission) Rank {
	if r, ok := d.ranks[p]; ok {
		return r
	}
	return MostRestrictiveRank
}

func (d Defaults) Wilderness(s Setting) bool {
	return d.wilderness[s]
}

func (d Defaults) ClaimSetting(s Setting) bool {
	return d.claim[s]
}
