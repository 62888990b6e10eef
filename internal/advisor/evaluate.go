package advisor

import "github.com/Pszemocny/4-in-a-row/internal/game"

// Heuristic weights. The opponent-three penalty is 1.5x ScoreThree so that
// blocking outranks building a three of one's own.
const (
	ScoreFour          = WinScore
	ScoreThree         = 100
	ScoreTwo           = 10
	ScoreOpponentThree = -ScoreThree * 3 / 2
	ScoreOpponentTwo   = -ScoreTwo
	CenterBonus        = 3
)

var centerCells = [4]game.Move{
	{Row: game.Size/2 - 1, Col: game.Size/2 - 1},
	{Row: game.Size/2 - 1, Col: game.Size / 2},
	{Row: game.Size / 2, Col: game.Size/2 - 1},
	{Row: game.Size / 2, Col: game.Size / 2},
}

// windowStep lists the four line directions used to walk a window
var windowStep = [4][2]int{
	{0, 1},
	{1, 0},
	{1, 1},
	{1, -1},
}

// Evaluate scores board from player's point of view: every window of
// WinLength cells in the four directions plus a bonus for each centre cell
// player owns. It has no side effects.
func Evaluate(board game.Board, player game.Player) int {
	opponent := player.Opponent()
	score := 0

	for _, step := range windowStep {
		dr, dc := step[0], step[1]
		for row := 0; row < game.Size; row++ {
			for col := 0; col < game.Size; col++ {
				endRow := row + dr*(game.WinLength-1)
				endCol := col + dc*(game.WinLength-1)
				if !game.InBounds(endRow, endCol) {
					continue
				}
				var own, opp, empty int
				for i := 0; i < game.WinLength; i++ {
					switch board[row+dr*i][col+dc*i] {
					case player:
						own++
					case opponent:
						opp++
					default:
						empty++
					}
				}
				score += scoreWindow(own, opp, empty)
			}
		}
	}

	for _, c := range centerCells {
		if board[c.Row][c.Col] == player {
			score += CenterBonus
		}
	}
	return score
}

// scoreWindow adds the mover's shape score and the opponent's blocking
// penalty for one window. Both sides are scored independently.
func scoreWindow(own, opp, empty int) int {
	score := 0
	switch {
	case own == 4:
		score += ScoreFour
	case own == 3 && empty == 1:
		score += ScoreThree
	case own == 2 && empty == 2:
		score += ScoreTwo
	}

	switch {
	case opp == 3 && empty == 1:
		score += ScoreOpponentThree
	case opp == 2 && empty == 2:
		score += ScoreOpponentTwo
	}
	return score
}
