package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/entrepeneur4lyf/repairforge/internal/app"
	"github.com/entrepeneur4lyf/repairforge/internal/guide"
	"github.com/entrepeneur4lyf/repairforge/internal/markdown"
)

var (
	diagnoseMedia  string
	diagnoseLang   string
	diagnoseFormat string
	diagnoseOutput string
	diagnoseWidth  int
)

var errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose <description>",
	Short: "Generate a repair guide for a problem description",
	Example: `  repairforge diagnose "Hydraulic fluid leaking from the boom cylinder"
  repairforge diagnose "Track keeps slipping" --media track.jpg --lang hi`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		sub := guide.Submission{Description: strings.Join(args, " ")}
		if diagnoseMedia != "" {
			m, err := loadMedia(diagnoseMedia)
			if err != nil {
				return err
			}
			sub.Media = m
		}

		svc, err := newServices(ctx, cfg, serviceOptions{model: true, locale: diagnoseLang})
		if err != nil {
			return err
		}
		defer svc.Close()

		st, err := svc.ctrl.Submit(ctx, sub)
		if err != nil {
			var verr *guide.ValidationError
			if errors.As(err, &verr) {
				return errors.New(validationSummary(st))
			}
		}
		if st.Status != app.StatusReady {
			msg := st.Error
			if msg == "" && err != nil {
				msg = err.Error()
			}
			return errors.New(errorStyle.Render(msg))
		}
		if st.Error != "" {
			// Translation failures leave the original guide in place.
			fmt.Fprintln(os.Stderr, errorStyle.Render(st.Error))
		}

		g := st.DisplayGuide()
		var out string
		switch diagnoseFormat {
		case "json":
			b, err := json.MarshalIndent(g, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode guide: %w", err)
			}
			out = string(b) + "\n"
		case "markdown":
			out = markdown.Guide(g, svc.translate)
		default:
			out = markdown.RenderOrRaw(markdown.Guide(g, svc.translate), diagnoseWidth)
		}

		if diagnoseOutput != "" {
			if err := os.WriteFile(diagnoseOutput, []byte(out), 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", diagnoseOutput, err)
			}
			return nil
		}
		fmt.Print(out)
		return nil
	},
}

func init() {
	diagnoseCmd.Flags().StringVarP(&diagnoseMedia, "media", "m", "", "Photo or video of the problem")
	diagnoseCmd.Flags().StringVarP(&diagnoseLang, "lang", "l", "", "Guide language for this run (see 'repairforge languages')")
	diagnoseCmd.Flags().StringVarP(&diagnoseFormat, "format", "f", "text", "Output format (text, markdown, json)")
	diagnoseCmd.Flags().StringVarP(&diagnoseOutput, "output", "o", "", "Write the guide to a file instead of stdout")
	diagnoseCmd.Flags().IntVar(&diagnoseWidth, "width", markdown.DefaultWidth, "Word wrap width for text output")
	rootCmd.AddCommand(diagnoseCmd)
}

// loadMedia reads a file and determines its MIME type from the extension,
// then from its content.
func loadMedia(path string) (*guide.Media, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read media: %w", err)
	}
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return &guide.Media{MIMEType: mimeType, Name: filepath.Base(path), Data: data}, nil
}

func validationSummary(st app.State) string {
	var msgs []string
	for _, m := range []string{st.Form.DescriptionError, st.Form.MediaError} {
		if m != "" {
			msgs = append(msgs, errorStyle.Render(m))
		}
	}
	return strings.Join(msgs, "\n")
}
