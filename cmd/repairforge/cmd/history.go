package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/entrepeneur4lyf/repairforge/internal/history"
	"github.com/entrepeneur4lyf/repairforge/internal/markdown"
)

var (
	historyLimit int

	idStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	dateStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#60A5FA"))
	problemStyle = lipgloss.NewStyle().Bold(true)
	diagStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#A3A3A3")).PaddingLeft(2)
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect and manage past diagnoses",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List past diagnoses, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newServices(cmd.Context(), cfg, serviceOptions{})
		if err != nil {
			return err
		}
		defer svc.Close()

		printEntries(svc, svc.history.List(cmd.Context()))
		return nil
	},
}

var historySearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Fuzzy search past diagnoses",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newServices(cmd.Context(), cfg, serviceOptions{})
		if err != nil {
			return err
		}
		defer svc.Close()

		printEntries(svc, svc.history.Search(cmd.Context(), strings.Join(args, " ")))
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Render a past repair guide",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newServices(cmd.Context(), cfg, serviceOptions{})
		if err != nil {
			return err
		}
		defer svc.Close()

		entry, ok := svc.history.Get(cmd.Context(), args[0])
		if !ok {
			return fmt.Errorf("history entry %s not found", args[0])
		}
		fmt.Print(markdown.RenderOrRaw(markdown.Guide(entry.Guide, svc.translate), markdown.DefaultWidth))
		return nil
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete one entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newServices(cmd.Context(), cfg, serviceOptions{})
		if err != nil {
			return err
		}
		defer svc.Close()

		if _, ok := svc.history.Get(cmd.Context(), args[0]); !ok {
			return fmt.Errorf("history entry %s not found", args[0])
		}
		left := svc.history.Remove(cmd.Context(), args[0])
		fmt.Printf("Deleted %s (%d remaining)\n", args[0], len(left))
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every entry",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newServices(cmd.Context(), cfg, serviceOptions{})
		if err != nil {
			return err
		}
		defer svc.Close()

		svc.history.Clear(cmd.Context())
		fmt.Println("History cleared")
		return nil
	},
}

func init() {
	historyCmd.PersistentFlags().IntVarP(&historyLimit, "limit", "n", 0, "Show at most this many entries")
	historyCmd.AddCommand(historyListCmd, historySearchCmd, historyShowCmd, historyDeleteCmd, historyClearCmd)
	rootCmd.AddCommand(historyCmd)
}

func printEntries(svc *services, entries []history.Entry) {
	if len(entries) == 0 {
		fmt.Println(svc.locales.T("noHistory"))
		return
	}
	if historyLimit > 0 && len(entries) > historyLimit {
		entries = entries[:historyLimit]
	}
	for _, e := range entries {
		fmt.Printf("%s  %s  %s\n",
			idStyle.Render(e.ID),
			dateStyle.Render(e.CreatedAt.Local().Format(time.DateTime)),
			problemStyle.Render(e.Description),
		)
		if e.Guide != nil && e.Guide.Diagnosis != "" {
			fmt.Println(diagStyle.Render(e.Guide.Diagnosis))
		}
	}
}
