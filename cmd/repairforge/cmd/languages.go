package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/entrepeneur4lyf/repairforge/internal/i18n"
)

var activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List supported languages",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newServices(cmd.Context(), cfg, serviceOptions{})
		if err != nil {
			return err
		}
		defer svc.Close()

		active := svc.locales.Language()
		for _, l := range i18n.Supported {
			line := fmt.Sprintf("  %-6s %-22s %s", l.Code, l.Name, i18n.EnglishName(l.Code))
			if l.Code == active {
				line = activeStyle.Render("* " + line[2:])
			}
			fmt.Println(line)
		}
		return nil
	},
}

var languagesUseCmd = &cobra.Command{
	Use:   "use <code>",
	Short: "Save the default language",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		code := args[0]
		if _, ok := i18n.Lookup(code); !ok {
			m := i18n.Match(code)
			if m == i18n.DefaultLocale {
				return fmt.Errorf("%w: %s", i18n.ErrUnknownLocale, args[0])
			}
			code = m
		}

		svc, err := newServices(cmd.Context(), cfg, serviceOptions{})
		if err != nil {
			return err
		}
		defer svc.Close()

		if err := svc.prefs.SaveLocale(code); err != nil {
			return err
		}
		fmt.Printf("Language set to %s\n", code)
		return nil
	},
}

func init() {
	languagesCmd.AddCommand(languagesUseCmd)
	rootCmd.AddCommand(languagesCmd)
}
