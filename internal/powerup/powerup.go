// Package powerup implements the power-up spawn/collect/expiry module
// (§4.2). It is grounded on the teacher's food spawn-cadence pattern
// (sonpython-slether's World.MaintainFoodCount / NewFoodCluster: random
// free-cell placement, a resampled spawn interval) generalized from an
// unbounded food budget to a capped, typed, expiring item set, and on the
// effect-duration bookkeeping pattern from the NPC/door "expiry as a
// stored epoch-ms map" idiom used throughout the pack's tick-driven
// engines (e.g. other_examples' bonus/effect timers).
package powerup

import (
	"math/rand"
	"strconv"

	"snake-arena-server/internal/grid"
	"snake-arena-server/internal/model"
)

const (
	// MaxActive caps concurrently spawned, uncollected power-ups.
	MaxActive = 2
	// EffectDurationMs is how long a collected effect lasts on a player.
	EffectDurationMs = 7000
	// ItemLifetimeMs is how long an uncollected item stays on the board.
	ItemLifetimeMs = 30000
	minSpawnGapMs  = 12000
	maxSpawnGapMs  = 20000
)

// Collection is emitted upstream for each power-up a player picked up
// this tick, so the room actor can broadcast powerUpCollected.
type Collection struct {
	PlayerID string
	Type     model.PowerupType
}

// Service is the power-up module contract (§4.2). Interface seam per
// the spec's §9 "explicit interface seams" re-architecture: the
// simulation engine always holds a Service, using NoopService when the
// powerups feature flag is off.
type Service interface {
	MaybeSpawn(state *model.GameState, nowMs int64)
	CheckCollect(state *model.GameState, nowMs int64) []Collection
	Tick(state *model.GameState, nowMs int64)
	IsActive(p *model.Player, effect model.PowerupType, nowMs int64) bool
}

type service struct {
	idCounter int
}

// New returns the enabled power-up service.
func New() Service {
	return &service{}
}

func (s *service) nextID() string {
	s.idCounter++
	return "pu" + strconv.Itoa(s.idCounter)
}

// MaybeSpawn is called once per tick. On the very first call it only
// records lastSpawnEpochMs and returns, matching the teacher's
// "first call just primes the clock" cadence idiom.
func (s *service) MaybeSpawn(state *model.GameState, nowMs int64) {
	if state.PowerupLastSpawnEpochMs == 0 {
		state.PowerupLastSpawnEpochMs = nowMs
		state.PowerupNextSpawnDelayMs = sampleSpawnGap()
		return
	}
	if len(state.Powerups) >= MaxActive {
		return
	}
	if nowMs-state.PowerupLastSpawnEpochMs < state.PowerupNextSpawnDelayMs {
		return
	}
	pos, ok := freeCell(state)
	if !ok {
		return
	}
	typ := model.AllPowerupTypes[rand.Intn(len(model.AllPowerupTypes))]
	id := s.nextID()
	state.Powerups[id] = &model.Powerup{
		ID:           id,
		Position:     pos,
		Type:         typ,
		SpawnEpochMs: nowMs,
	}
	state.PowerupLastSpawnEpochMs = nowMs
	state.PowerupNextSpawnDelayMs = sampleSpawnGap()
}

func sampleSpawnGap() int64 {
	return minSpawnGapMs + rand.Int63n(maxSpawnGapMs-minSpawnGapMs+1)
}

// freeCell picks a uniformly random cell occupied by no alive snake, no
// food, and no existing power-up. Returns false if the board is full
// (practically unreachable at W=H=30).
func freeCell(state *model.GameState) (model.Position, bool) {
	occupied := make(map[model.Position]bool)
	for _, p := range state.Players {
		if !p.Alive {
			continue
		}
		for _, seg := range p.Snake {
			occupied[seg] = true
		}
	}
	for f := range state.Food {
		occupied[f] = true
	}
	for _, pu := range state.Powerups {
		occupied[pu.Position] = true
	}
	const maxAttempts = 200
	for i := 0; i < maxAttempts; i++ {
		cand := model.Position{X: rand.Intn(grid.W), Y: rand.Intn(grid.H)}
		if !occupied[cand] {
			return cand, true
		}
	}
	// Exhaustive scan fallback.
	for x := 0; x < grid.W; x++ {
		for y := 0; y < grid.H; y++ {
			cand := model.Position{X: x, Y: y}
			if !occupied[cand] {
				return cand, true
			}
		}
	}
	return model.Position{}, false
}

// CheckCollect applies effects for every alive player whose head sits on
// a power-up cell and removes the collected items.
func (s *service) CheckCollect(state *model.GameState, nowMs int64) []Collection {
	var collected []Collection
	for _, p := range state.Players {
		if !p.Alive {
			continue
		}
		head := p.Head()
		for id, pu := range state.Powerups {
			if pu.Position != head {
				continue
			}
			s.apply(p, pu.Type, state, nowMs)
			delete(state.Powerups, id)
			collected = append(collected, Collection{PlayerID: p.ID, Type: pu.Type})
		}
	}
	return collected
}

// apply implements the per-type effect application rules of §4.2.
func (s *service) apply(p *model.Player, typ model.PowerupType, state *model.GameState, nowMs int64) {
	if p.ActivePowerups == nil {
		p.ActivePowerups = make(map[model.PowerupType]int64)
	}
	expiry := nowMs + EffectDurationMs

	switch typ {
	case model.PowerupShield, model.PowerupSpeedBoost, model.PowerupShrink:
		// Non-stacking: a newer non-slowed effect clears any existing
		// non-slowed effect on the collector (shield+speed can never
		// coexist on the same player — see DESIGN.md open-question log).
		for k := range p.ActivePowerups {
			if k != model.EffectSlowed {
				delete(p.ActivePowerups, k)
			}
		}
		p.ActivePowerups[typ] = expiry
		if typ == model.PowerupShrink {
			drop := 3
			for i := 0; i < drop && len(p.Snake) > 1; i++ {
				p.Snake = p.Snake[:len(p.Snake)-1]
			}
		}
	case model.PowerupSlowOthers:
		for _, other := range state.Players {
			if other.ID == p.ID || !other.Alive {
				continue
			}
			if other.ActivePowerups == nil {
				other.ActivePowerups = make(map[model.PowerupType]int64)
			}
			other.ActivePowerups[model.EffectSlowed] = expiry
		}
	}
}

// Tick purges power-ups uncollected for 30s and expired per-player
// effects.
func (s *service) Tick(state *model.GameState, nowMs int64) {
	for id, pu := range state.Powerups {
		if nowMs-pu.SpawnEpochMs >= ItemLifetimeMs {
			delete(state.Powerups, id)
		}
	}
	for _, p := range state.Players {
		for effect, expiry := range p.ActivePowerups {
			if nowMs >= expiry {
				delete(p.ActivePowerups, effect)
			}
		}
		if len(p.ActivePowerups) == 0 {
			p.ActivePowerups = nil
		}
	}
}

func (s *service) IsActive(p *model.Player, effect model.PowerupType, nowMs int64) bool {
	return p.HasEffect(effect, nowMs)
}

// SpeedFactor implements the §4.2 speed-factor contract consumed by the
// simulation engine's accumulator step.
func SpeedFactor(p *model.Player, nowMs int64) float64 {
	slowed := p.HasEffect(model.EffectSlowed, nowMs)
	boosted := p.HasEffect(model.PowerupSpeedBoost, nowMs)
	switch {
	case slowed && boosted:
		return 1.0
	case slowed:
		return 0.5
	case boosted:
		return 2.0
	default:
		return 1.0
	}
}

// NoopService is wired in when the powerups feature flag is disabled;
// the simulation engine calls it unconditionally either way (spec §9).
type NoopService struct{}

func (NoopService) MaybeSpawn(*model.GameState, int64)                                  {}
func (NoopService) CheckCollect(*model.GameState, int64) []Collection                   { return nil }
func (NoopService) Tick(*model.GameState, int64)                                        {}
func (NoopService) IsActive(*model.Player, model.PowerupType, int64) bool               { return false }
