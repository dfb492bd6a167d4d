package powerup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snake-arena-server/internal/model"
)

func newState() *model.GameState {
	return model.NewGameState(false, false, nil, 0)
}

func TestMaybeSpawnPrimesClockOnFirstCall(t *testing.T) {
	s := New().(*service)
	st := newState()

	s.MaybeSpawn(st, 1000)

	assert.Equal(t, int64(1000), st.PowerupLastSpawnEpochMs)
	assert.GreaterOrEqual(t, st.PowerupNextSpawnDelayMs, int64(minSpawnGapMs))
	assert.LessOrEqual(t, st.PowerupNextSpawnDelayMs, int64(maxSpawnGapMs))
	assert.Empty(t, st.Powerups)
}

func TestMaybeSpawnRespectsCapAndCadence(t *testing.T) {
	s := New().(*service)
	st := newState()
	s.MaybeSpawn(st, 1000) // primes

	// Before the sampled delay elapses, nothing spawns.
	s.MaybeSpawn(st, 1001)
	assert.Empty(t, st.Powerups)

	// Force past the longest possible delay.
	s.MaybeSpawn(st, 1000+maxSpawnGapMs)
	require.Len(t, st.Powerups, 1)

	// Manually fill to the cap and confirm no further spawn occurs.
	for len(st.Powerups) < MaxActive {
		st.Powerups["extra"] = &model.Powerup{ID: "extra", Position: model.Position{X: 1, Y: 1}}
	}
	before := len(st.Powerups)
	st.PowerupLastSpawnEpochMs = 1 // long past any delay, so only the cap blocks
	s.MaybeSpawn(st, maxSpawnGapMs*10)
	assert.Equal(t, before, len(st.Powerups))
}

func TestApplyNonStackingEffectsReplace(t *testing.T) {
	s := New().(*service)
	st := newState()
	p := &model.Player{ID: "p1", Alive: true, Snake: []model.Position{{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 0, Y: 2}, {X: 0, Y: 3}}}
	st.Players[p.ID] = p

	s.apply(p, model.PowerupShield, st, 0)
	assert.True(t, p.HasEffect(model.PowerupShield, 0))

	s.apply(p, model.PowerupSpeedBoost, st, 0)
	assert.False(t, p.HasEffect(model.PowerupShield, 0))
	assert.True(t, p.HasEffect(model.PowerupSpeedBoost, 0))
}

func TestApplyShrinkDropsSegments(t *testing.T) {
	s := New().(*service)
	st := newState()
	p := &model.Player{ID: "p1", Alive: true, Snake: []model.Position{{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 0, Y: 2}, {X: 0, Y: 3}, {X: 0, Y: 4}}}
	st.Players[p.ID] = p

	s.apply(p, model.PowerupShrink, st, 0)
	assert.Len(t, p.Snake, 2)
}

func TestApplySlowOthersAffectsEveryoneButSelf(t *testing.T) {
	s := New().(*service)
	st := newState()
	p1 := &model.Player{ID: "p1", Alive: true}
	p2 := &model.Player{ID: "p2", Alive: true}
	p3dead := &model.Player{ID: "p3", Alive: false}
	st.Players = map[string]*model.Player{"p1": p1, "p2": p2, "p3": p3dead}

	s.apply(p1, model.PowerupSlowOthers, st, 100)

	assert.False(t, p1.HasEffect(model.EffectSlowed, 100))
	assert.True(t, p2.HasEffect(model.EffectSlowed, 100))
	assert.False(t, p3dead.HasEffect(model.EffectSlowed, 100))
}

func TestSlowedCanCoexistWithBoost(t *testing.T) {
	s := New().(*service)
	st := newState()
	p := &model.Player{ID: "p1", Alive: true}
	st.Players[p.ID] = p

	s.apply(p, model.PowerupSpeedBoost, st, 0)
	p.ActivePowerups[model.EffectSlowed] = 7000

	assert.True(t, p.HasEffect(model.PowerupSpeedBoost, 0))
	assert.True(t, p.HasEffect(model.EffectSlowed, 0))
}

func TestSpeedFactorPriority(t *testing.T) {
	p := &model.Player{ID: "p1", ActivePowerups: map[model.PowerupType]int64{}}
	assert.Equal(t, 1.0, SpeedFactor(p, 0))

	p.ActivePowerups[model.PowerupSpeedBoost] = 1000
	assert.Equal(t, 2.0, SpeedFactor(p, 0))

	p.ActivePowerups[model.EffectSlowed] = 1000
	assert.Equal(t, 1.0, SpeedFactor(p, 0)) // slowed+boosted cancel out

	delete(p.ActivePowerups, model.PowerupSpeedBoost)
	assert.Equal(t, 0.5, SpeedFactor(p, 0))
}

func TestCheckCollectRemovesItemAndAppliesEffect(t *testing.T) {
	s := New().(*service)
	st := newState()
	p := &model.Player{ID: "p1", Alive: true, Snake: []model.Position{{X: 2, Y: 2}}}
	st.Players[p.ID] = p
	st.Powerups["pu1"] = &model.Powerup{ID: "pu1", Position: model.Position{X: 2, Y: 2}, Type: model.PowerupShield}

	collected := s.CheckCollect(st, 500)

	require.Len(t, collected, 1)
	assert.Equal(t, "p1", collected[0].PlayerID)
	assert.Empty(t, st.Powerups)
	assert.True(t, p.HasEffect(model.PowerupShield, 500))
}

func TestTickExpiresItemsAndEffects(t *testing.T) {
	s := New().(*service)
	st := newState()
	st.Powerups["old"] = &model.Powerup{ID: "old", SpawnEpochMs: 0}
	p := &model.Player{ID: "p1", ActivePowerups: map[model.PowerupType]int64{model.PowerupShield: 100}}
	st.Players[p.ID] = p

	s.Tick(st, ItemLifetimeMs+1)

	assert.Empty(t, st.Powerups)
	assert.Nil(t, p.ActivePowerups)
}

func TestNoopServiceIsInert(t *testing.T) {
	var svc Service = NoopService{}
	st := newState()
	svc.MaybeSpawn(st, 0)
	svc.Tick(st, 0)
	assert.Empty(t, svc.CheckCollect(st, 0))
	assert.False(t, svc.IsActive(&model.Player{}, model.PowerupShield, 0))
}
