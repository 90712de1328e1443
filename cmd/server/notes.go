package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"notecards/internal/notes"
)

var (
	listJSON  bool
	listLimit int
)

var notesCmd = &cobra.Command{
	Use:   "notes",
	Short: "Manage notes from the command line",
}

var notesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes, newest first",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		svc, closeFn := openService(cmd.Context())
		defer closeFn()

		noteList, err := svc.List(cmd.Context(), notes.ListQuery{Limit: listLimit})
		if err != nil {
			fatal("Error listing notes", err)
		}

		if listJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(noteList); err != nil {
				fatal("Error encoding JSON", err)
			}
			return
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tCREATED\tCONTENT")
		for _, n := range noteList {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", n.ID.Hex(), svc.RelativeTime(n.CreatedAt), preview(n.Content, 60))
		}
		tw.Flush()
	},
}

var notesAddCmd = &cobra.Command{
	Use:   "add <content>...",
	Short: "Create a note from the arguments",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		svc, closeFn := openService(cmd.Context())
		defer closeFn()

		note, err := svc.Create(cmd.Context(), notes.CreateNoteInput{Content: strings.Join(args, " ")})
		if err != nil {
			fatal("Error creating note", err)
		}
		fmt.Println(note.ID.Hex())
	},
}

var notesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a note",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		svc, closeFn := openService(cmd.Context())
		defer closeFn()

		if err := svc.Delete(cmd.Context(), args[0]); err != nil {
			fatal("Error deleting note", err)
		}
	},
}

func init() {
	notesListCmd.Flags().BoolVar(&listJSON, "json", false, "Output as JSON")
	notesListCmd.Flags().IntVar(&listLimit, "limit", 50, "Maximum number of notes")
	notesCmd.AddCommand(notesListCmd, notesAddCmd, notesDeleteCmd)
	rootCmd.AddCommand(notesCmd)
}

func openService(ctx context.Context) (*notes.Service, func()) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig()
	if err != nil {
		fatal("Error loading config", err)
	}
	store, closeFn, err := openStore(ctx, cfg, slog.Default())
	if err != nil {
		fatal("Error opening store", err)
	}
	return notes.NewService(store), closeFn
}

// preview flattens content to one line of at most n runes.
func preview(content string, n int) string {
	s := strings.Join(strings.Fields(content), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
