package simulation

import (
	"sort"

	"snake-arena-server/internal/model"
)

const survivorGraceMs = 5000

// CheckWinCondition implements §4.4's checkWinCondition(timeoutReached,
// room). It may mutate state (survival bonuses, lastSurvivorSinceEpochMs)
// even when it returns nil; callers should persist state.Winner whenever
// a non-nil winner is returned, and stop the room's ticker.
func CheckWinCondition(state *model.GameState, mode model.Mode, timeoutReached bool, nowMs int64) *model.Winner {
	if timeoutReached {
		for _, p := range state.Players {
			if p.Alive {
				p.Score += 50
			}
		}
	}

	var humans, alive []*model.Player
	for _, p := range state.Players {
		if p.Kind == model.KindHuman {
			humans = append(humans, p)
		}
		if p.Alive {
			alive = append(alive, p)
		}
	}

	switch {
	case mode == model.ModeSingle && len(humans) == 1 && len(state.Players) > 1:
		human := humans[0]
		if human.Alive {
			return nil
		}
		return &model.Winner{PlayerID: human.ID, Name: human.DisplayName, Score: human.Score, IsLoser: true}

	case mode == model.ModeSolo && len(state.Players) == 1:
		var solo *model.Player
		for _, p := range state.Players {
			solo = p
		}
		if solo.Alive {
			return nil
		}
		return &model.Winner{PlayerID: solo.ID, Name: solo.DisplayName, Score: solo.Score, IsLoser: true}

	default: // multi
		return checkMultiWin(state, alive, nowMs)
	}
}

func sortedByRank(players []*model.Player) []*model.Player {
	sorted := append([]*model.Player(nil), players...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Alive != b.Alive {
			return a.Alive // alive first
		}
		return a.SurvivalDurationMs > b.SurvivalDurationMs
	})
	return sorted
}

func allPlayers(state *model.GameState) []*model.Player {
	out := make([]*model.Player, 0, len(state.Players))
	for _, p := range state.Players {
		out = append(out, p)
	}
	return out
}

func checkMultiWin(state *model.GameState, alive []*model.Player, nowMs int64) *model.Winner {
	all := allPlayers(state)
	sorted := sortedByRank(all)

	if len(alive) == 0 {
		if len(sorted) == 0 {
			return nil
		}
		top := sorted[0]
		if top.Score >= 0 {
			return &model.Winner{PlayerID: top.ID, Name: top.DisplayName, Score: top.Score}
		}
		return nil
	}

	if len(alive) == 1 && len(state.Players) > 1 {
		totalScore := 0
		for _, p := range all {
			totalScore += p.Score
		}
		if totalScore == 0 {
			if state.LastSurvivorSinceEpochMs == 0 {
				state.LastSurvivorSinceEpochMs = nowMs
			}
			if nowMs-state.LastSurvivorSinceEpochMs < survivorGraceMs {
				return nil
			}
		}
		survivor := alive[0]
		survivor.Score += 50
		resorted := sortedByRank(all)
		top := resorted[0]
		return &model.Winner{PlayerID: top.ID, Name: top.DisplayName, Score: top.Score}
	}

	state.LastSurvivorSinceEpochMs = 0
	return nil
}
