package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/Pszemocny/4-in-a-row/internal/advisor"
	"github.com/Pszemocny/4-in-a-row/internal/game"
	"github.com/Pszemocny/4-in-a-row/internal/store"
)

var (
	suggestBoard  string
	suggestPlayer string
	suggestDepth  int
	resetAll      bool

	suggestCmd = &cobra.Command{
		Use:   "suggest",
		Short: "Print the advisor's move for a position",
		Long: `Suggest reads a 6x6 board as 36 cells, row by row: '.' or '0' for empty,
'1' and '2' for the players. Spaces and '/' are ignored, so
"..../..../" style layouts work.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			board, err := game.ParseBoard(suggestBoard)
			if err != nil {
				return err
			}
			player, err := parsePlayer(suggestPlayer)
			if err != nil {
				return err
			}
			depth := cfg.AdvisorDepth
			if suggestDepth > 0 {
				depth = suggestDepth
			}
			return runSuggest(cmd.OutOrStdout(), termenv.NewOutput(cmd.OutOrStdout()), board, player, depth)
		},
	}

	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "List stored matches, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			return printHistory(cmd.OutOrStdout(), st)
		},
	}

	statsCmd = &cobra.Command{
		Use:   "stats <name>",
		Short: "Show wins, losses and draws of a player",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			s, err := st.PlayerStats(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d wins, %d losses, %d draws (%d games)\n",
				args[0], s.Wins, s.Losses, s.Draws, s.Total)
			return nil
		},
	}

	resetCmd = &cobra.Command{
		Use:   "reset",
		Short: "Clear match history and the running score",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			if resetAll {
				if err := st.ResetAll(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "All saved data cleared")
				return nil
			}
			if err := st.ResetScores(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "History and score cleared, players kept")
			return nil
		},
	}
)

func init() {
	rootCmd.AddCommand(suggestCmd)
	suggestCmd.Flags().StringVarP(&suggestBoard, "board", "b", "", "Board as 36 cells (. 1 2)")
	suggestCmd.Flags().StringVarP(&suggestPlayer, "player", "p", "1", "Player to move: 1 or 2")
	suggestCmd.Flags().IntVarP(&suggestDepth, "depth", "d", 0, "Search depth (defaults to the configured depth)")
	_ = suggestCmd.MarkFlagRequired("board")

	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statsCmd)

	rootCmd.AddCommand(resetCmd)
	resetCmd.Flags().BoolVar(&resetAll, "all", false, "Also forget saved player names and colours")
}

func runSuggest(w io.Writer, out *termenv.Output, board game.Board, player game.Player, depth int) error {
	if fourA, fourB := board.Fours(); fourA || fourB {
		renderBoard(w, out, board, nil)
		fmt.Fprintln(w, "Game is already won")
		return nil
	}

	s, ok := advisor.New(advisor.WithDepth(depth)).FindBestMove(board, player)
	if !ok {
		renderBoard(w, out, board, nil)
		fmt.Fprintln(w, "No move available")
		return nil
	}

	renderBoard(w, out, board, &s.Move)
	fmt.Fprintf(w, "Player %d should play row %d, column %d (score %d, %d nodes)\n",
		int(player), s.Move.Row, s.Move.Col, s.Score, s.Nodes)
	return nil
}

func printHistory(w io.Writer, st *store.Store) error {
	history, err := st.History()
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Fprintln(w, "No matches played yet")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tPLAYER 1\tPLAYER 2\tWINNER")
	for _, m := range history {
		winner := "draw"
		switch {
		case m.Winner != nil && *m.Winner == 1:
			winner = m.Player1Name
		case m.Winner != nil && *m.Winner == 2:
			winner = m.Player2Name
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.Date.Local().Format("2006-01-02 15:04"), m.Player1Name, m.Player2Name, winner)
	}
	return tw.Flush()
}
