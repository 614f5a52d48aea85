package opendota

import (
	"encoding/json"
	"fmt"
)

// Player is the subset of GET /players/{account_id} the bot renders
type Player struct {
	Profile         Profile     `json:"profile"`
	RankTier        *int        `json:"rank_tier"`
	LeaderboardRank *int        `json:"leaderboard_rank"`
	MMREstimate     MMREstimate `json:"mmr_estimate"`
}

// Profile holds the Steam-side identity of a player
type Profile struct {
	AccountID   int64  `json:"account_id"`
	PersonaName string `json:"personaname"`
	Avatar      string `json:"avatarfull"`
	ProfileURL  string `json:"profileurl"`
}

// MMREstimate is OpenDota's own MMR guess
type MMREstimate struct {
	Estimate *int `json:"estimate"`
}

// Name returns the persona name, or fallback when the profile is private or missing
func (p *Player) Name(fallback string) string {
	if p == nil || p.Profile.PersonaName == "" {
		return fallback
	}
	return p.Profile.PersonaName
}

// EstimatedMMR prefers the explicit estimate and falls back to the rank tier table
func (p *Player) EstimatedMMR() (int, bool) {
	if p == nil {
		return 0, false
	}
	if p.MMREstimate.Estimate != nil {
		return *p.MMREstimate.Estimate, true
	}
	if p.RankTier != nil {
		mmr, ok := RankTierMMR[*p.RankTier]
		return mmr, ok
	}
	return 0, false
}

// RankTierMMR maps medal tiers (tens digit = medal, units = stars) to a rough MMR
var RankTierMMR = map[int]int{
	11: 10, 12: 160, 13: 310, 14: 460, 15: 610,
	21: 760, 22: 910, 23: 1060, 24: 1210, 25: 1360,
	31: 1510, 32: 1660, 33: 1810, 34: 1960, 35: 2110,
	41: 2260, 42: 2410, 43: 2560, 44: 2710, 45: 2860,
	51: 3010, 52: 3160, 53: 3310, 54: 3460, 55: 3610,
	61: 3760, 62: 3910, 63: 4060, 64: 4210, 65: 4360,
	71: 4510, 72: 4660, 73: 4810, 74: 4960, 75: 5110,
	80: 6000,
}

// RecentMatch is one element of GET /players/{account_id}/recentMatches
type RecentMatch struct {
	MatchID    int64 `json:"match_id"`
	HeroID     int   `json:"hero_id"`
	Kills      int   `json:"kills"`
	Deaths     int   `json:"deaths"`
	Assists    int   `json:"assists"`
	PlayerSlot int   `json:"player_slot"`
	RadiantWin bool  `json:"radiant_win"`
	Duration   int   `json:"duration"`
	GoldPerMin int   `json:"gold_per_min"`
	XPPerMin   int   `json:"xp_per_min"`
	StartTime  int64 `json:"start_time"`
}

// Won reports whether the player's side won. Slots below 128 are Radiant.
func (m RecentMatch) Won() bool {
	return (m.PlayerSlot < 128) == m.RadiantWin
}

// KDA formats kills/deaths/assists
func (m RecentMatch) KDA() string {
	return fmt.Sprintf("%d/%d/%d", m.Kills, m.Deaths, m.Assists)
}

// BenchmarkPoint is a single percentile sample for a metric
type BenchmarkPoint struct {
	Percentile float64 `json:"percentile"`
	Value      float64 `json:"value"`
}

// Benchmarks holds per-metric percentile series. Values that are not
// percentile lists are ignored.
type Benchmarks struct {
	metrics map[string][]BenchmarkPoint
}

// UnmarshalJSON accepts either a flat {metric: [...]} object or one nested under "result"
func (b *Benchmarks) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if nested, ok := raw["result"]; ok {
		var inner map[string]json.RawMessage
		if err := json.Unmarshal(nested, &inner); err == nil {
			raw = inner
		}
	}

	b.metrics = make(map[string][]BenchmarkPoint, len(raw))
	for key, value := range raw {
		var points []BenchmarkPoint
		if err := json.Unmarshal(value, &points); err != nil {
			continue
		}
		b.metrics[key] = points
	}
	return nil
}

// Latest returns the last sample of a metric
func (b *Benchmarks) Latest(metric string) (BenchmarkPoint, bool) {
	if b == nil {
		return BenchmarkPoint{}, false
	}
	points := b.metrics[metric]
	if len(points) == 0 {
		return BenchmarkPoint{}, false
	}
	return points[len(points)-1], true
}
