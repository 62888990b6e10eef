package game

import (
	"fmt"
	"strings"
)

const (
	// Size is the side length of the square board
	Size = 6
	// WinLength is how many stones in a row win the game
	WinLength = 4
)

// Player identifies the owner of a cell. PlayerNone marks an empty cell.
type Player int

const (
	PlayerNone Player = iota
	PlayerA
	PlayerB
)

// Opponent returns the other player. PlayerNone has no opponent and maps to itself.
func (p Player) Opponent() Player {
	switch p {
	case PlayerA:
		return PlayerB
	case PlayerB:
		return PlayerA
	default:
		return PlayerNone
	}
}

// Valid reports whether p is one of the two players
func (p Player) Valid() bool {
	return p == PlayerA || p == PlayerB
}

func (p Player) String() string {
	switch p {
	case PlayerA:
		return "A"
	case PlayerB:
		return "B"
	default:
		return "-"
	}
}

// Move is a 0-indexed board coordinate
type Move struct {
	Row int
	Col int
}

// direction is one of the four canonical line directions
type direction struct {
	dr, dc int
}

var directions = [4]direction{
	{0, 1},  // horizontal
	{1, 0},  // vertical
	{1, 1},  // diagonal \
	{1, -1}, // diagonal /
}

// Board is a value type; assigning or passing it copies every cell.
type Board [Size][Size]Player

// InBounds reports whether (row, col) lies on the board
func InBounds(row, col int) bool {
	return row >= 0 && row < Size && col >= 0 && col < Size
}

// At returns the owner of (row, col). Out-of-bounds cells read as empty.
func (b Board) At(row, col int) Player {
	if !InBounds(row, col) {
		return PlayerNone
	}
	return b[row][col]
}

// With returns a copy of the board with p placed on m
func (b Board) With(m Move, p Player) Board {
	b[m.Row][m.Col] = p
	return b
}

// Full reports whether no empty cell remains
func (b Board) Full() bool {
	for row := 0; row < Size; row++ {
		for col := 0; col < Size; col++ {
			if b[row][col] == PlayerNone {
				return false
			}
		}
	}
	return true
}

// EmptyCells lists the empty cells in row-major order
func (b Board) EmptyCells() []Move {
	moves := make([]Move, 0, Size*Size)
	for row := 0; row < Size; row++ {
		for col := 0; col < Size; col++ {
			if b[row][col] == PlayerNone {
				moves = append(moves, Move{Row: row, Col: col})
			}
		}
	}
	return moves
}

// Fours reports in a single pass whether each player has WinLength stones
// in a row. Only windows starting at a stone are checked.
func (b Board) Fours() (fourA, fourB bool) {
	for row := 0; row < Size; row++ {
		for col := 0; col < Size; col++ {
			p := b[row][col]
			if p == PlayerNone || (p == PlayerA && fourA) || (p == PlayerB && fourB) {
				continue
			}
			for _, d := range directions {
				endRow, endCol := row+d.dr*(WinLength-1), col+d.dc*(WinLength-1)
				if !InBounds(endRow, endCol) {
					continue
				}
				k := 1
				for k < WinLength && b[row+d.dr*k][col+d.dc*k] == p {
					k++
				}
				if k == WinLength {
					if p == PlayerA {
						fourA = true
					} else {
						fourB = true
					}
					break
				}
			}
			if fourA && fourB {
				return fourA, fourB
			}
		}
	}
	return fourA, fourB
}

// HasFour scans the whole board for WinLength stones of p in a row
func (b Board) HasFour(p Player) bool {
	if !p.Valid() {
		return false
	}
	for row := 0; row < Size; row++ {
		for col := 0; col < Size; col++ {
			if b[row][col] != p {
				continue
			}
			for _, d := range directions {
				count := 1
				r, c := row+d.dr, col+d.dc
				for InBounds(r, c) && b[r][c] == p {
					count++
					r += d.dr
					c += d.dc
				}
				if count >= WinLength {
					return true
				}
			}
		}
	}
	return false
}

// LineThrough looks for a winning run through the stone at (row, col).
// It returns the first WinLength cells of the run, ordered from the earliest
// cell along the direction, or nil when no direction reaches WinLength.
func (b Board) LineThrough(row, col int) []Move {
	p := b.At(row, col)
	if p == PlayerNone {
		return nil
	}
	for _, d := range directions {
		cells := b.run(row, col, d, p)
		if len(cells) >= WinLength {
			return cells[:WinLength:WinLength]
		}
	}
	return nil
}

// run collects the contiguous stones of p through (row, col) along d:
// the backward run first, then the cell itself, then the forward run.
func (b Board) run(row, col int, d direction, p Player) []Move {
	var back []Move
	r, c := row-d.dr, col-d.dc
	for InBounds(r, c) && b[r][c] == p {
		back = append(back, Move{Row: r, Col: c})
		r -= d.dr
		c -= d.dc
	}

	cells := make([]Move, 0, len(back)+Size)
	for i := len(back) - 1; i >= 0; i-- {
		cells = append(cells, back[i])
	}
	cells = append(cells, Move{Row: row, Col: col})

	r, c = row+d.dr, col+d.dc
	for InBounds(r, c) && b[r][c] == p {
		cells = append(cells, Move{Row: r, Col: c})
		r += d.dr
		c += d.dc
	}
	return cells
}

// Grid converts the board to the wire form: rows of 0, 1 or 2
func (b Board) Grid() [][]int {
	grid := make([][]int, Size)
	for row := 0; row < Size; row++ {
		grid[row] = make([]int, Size)
		for col := 0; col < Size; col++ {
			grid[row][col] = int(b[row][col])
		}
	}
	return grid
}

// String renders one line per row using '.', '1' and '2'
func (b Board) String() string {
	var sb strings.Builder
	for row := 0; row < Size; row++ {
		for col := 0; col < Size; col++ {
			switch b[row][col] {
			case PlayerA:
				sb.WriteByte('1')
			case PlayerB:
				sb.WriteByte('2')
			default:
				sb.WriteByte('.')
			}
		}
		if row < Size-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// ParseBoard reads a board written as Size*Size characters of '.', '0', '1'
// or '2' in row-major order. Whitespace and '/' separators are ignored.
func ParseBoard(s string) (Board, error) {
	var b Board
	i := 0
	for _, ch := range s {
		switch ch {
		case ' ', '\t', '\n', '\r', '/':
			continue
		}
		if i >= Size*Size {
			return Board{}, fmt.Errorf("board has more than %d cells", Size*Size)
		}
		switch ch {
		case '.', '0':
			b[i/Size][i%Size] = PlayerNone
		case '1':
			b[i/Size][i%Size] = PlayerA
		case '2':
			b[i/Size][i%Size] = PlayerB
		default:
			return Board{}, fmt.Errorf("invalid cell %q at index %d", ch, i)
		}
		i++
	}
	if i != Size*Size {
		return Board{}, fmt.Errorf("board has %d cells, want %d", i, Size*Size)
	}
	return b, nil
}

// BoardFromGrid converts the wire form back into a Board
func BoardFromGrid(grid [][]int) (Board, error) {
	var b Board
	if len(grid) != Size {
		return Board{}, fmt.Errorf("grid has %d rows, want %d", len(grid), Size)
	}
	for row, cells := range grid {
		if len(cells) != Size {
			return Board{}, fmt.Errorf("row %d has %d cells, want %d", row, len(cells), Size)
		}
		for col, v := range cells {
			p := Player(v)
			if p != PlayerNone && !p.Valid() {
				return Board{}, fmt.Errorf("invalid cell value %d at (%d,%d)", v, row, col)
			}
			b[row][col] = p
		}
	}
	return b, nil
}
