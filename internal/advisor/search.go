package advisor

import (
	"math"

	"github.com/Pszemocny/4-in-a-row/internal/game"
)

// search carries the per-call state of one FindBestMove: the two roles and
// a node counter. It is never shared between calls.
type search struct {
	max   game.Player
	min   game.Player
	nodes int
}

// minimax returns the value of board for s.max with depth plies left.
// alpha is the best value the maximizer can already guarantee and beta the
// best for the minimizer; siblings are skipped once beta <= alpha.
func (s *search) minimax(board game.Board, depth, alpha, beta int, maximizing bool) int {
	s.nodes++

	maxFour, minFour := s.fours(board)
	switch {
	case maxFour:
		return WinScore + depth
	case minFour:
		return -WinScore - depth
	case board.Full():
		return 0
	case depth == 0:
		return Evaluate(board, s.max)
	}

	// Children are generated in row-major order without building a move list
	if maximizing {
		value := math.MinInt
		for row := 0; row < game.Size; row++ {
			for col := 0; col < game.Size; col++ {
				if board[row][col] != game.PlayerNone {
					continue
				}
				child := board
				child[row][col] = s.max
				score := s.minimax(child, depth-1, alpha, beta, false)
				if score > value {
					value = score
				}
				if score > alpha {
					alpha = score
				}
				if beta <= alpha {
					return value
				}
			}
		}
		return value
	}

	value := math.MaxInt
	for row := 0; row < game.Size; row++ {
		for col := 0; col < game.Size; col++ {
			if board[row][col] != game.PlayerNone {
				continue
			}
			child := board
			child[row][col] = s.min
			score := s.minimax(child, depth-1, alpha, beta, true)
			if score < value {
				value = score
			}
			if score < beta {
				beta = score
			}
			if beta <= alpha {
				return value
			}
		}
	}
	return value
}

// fours maps the single-pass board scan onto the search roles
func (s *search) fours(board game.Board) (maxFour, minFour bool) {
	fourA, fourB := board.Fours()
	if s.max == game.PlayerA {
		return fourA, fourB
	}
	return fourB, fourA
}
