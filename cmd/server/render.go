package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"

	"github.com/Pszemocny/4-in-a-row/internal/game"
	"github.com/Pszemocny/4-in-a-row/internal/store"
)

// renderBoard writes b with column and row labels. Stones take the default
// player colours; the suggested cell, if any, is marked with '*'.
func renderBoard(w io.Writer, out *termenv.Output, b game.Board, mark *game.Move) {
	colors := map[game.Player]termenv.Color{
		game.PlayerA: out.Color(store.DefaultPlayer1.Color),
		game.PlayerB: out.Color(store.DefaultPlayer2.Color),
	}

	var sb strings.Builder
	sb.WriteString("  ")
	for col := 0; col < game.Size; col++ {
		fmt.Fprintf(&sb, " %d", col)
	}
	sb.WriteByte('\n')

	for row := 0; row < game.Size; row++ {
		fmt.Fprintf(&sb, "%d ", row)
		for col := 0; col < game.Size; col++ {
			sb.WriteByte(' ')
			p := b.At(row, col)
			switch {
			case p != game.PlayerNone:
				sb.WriteString(out.String(cellSymbol(p)).Foreground(colors[p]).Bold().String())
			case mark != nil && mark.Row == row && mark.Col == col:
				sb.WriteString(out.String("*").Reverse().String())
			default:
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	_, _ = io.WriteString(w, sb.String())
}

func cellSymbol(p game.Player) string {
	if p == game.PlayerA {
		return "1"
	}
	return "2"
}

// parsePlayer accepts 1, 2, A or B
func parsePlayer(s string) (game.Player, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "1", "A":
		return game.PlayerA, nil
	case "2", "B":
		return game.PlayerB, nil
	default:
		return game.PlayerNone, fmt.Errorf("player must be 1 or 2, got %q", s)
	}
}
