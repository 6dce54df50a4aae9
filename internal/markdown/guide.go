// Package markdown lays out repair guides as markdown documents and renders
// them for the terminal.
package markdown

import (
	"fmt"
	"strings"

	"github.com/entrepeneur4lyf/repairforge/internal/guide"
)

// Translate resolves a message key to display text.
type Translate func(key string) string

// Guide lays out g with section titles resolved through t. Empty sections
// are omitted; empty summary fields show a dash.
func Guide(g *guide.RepairGuide, t Translate) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", t("repairGuideTitle"))
	fmt.Fprintf(&b, "## %s\n\n%s\n\n", t("diagnosisTitle"), g.Diagnosis)

	b.WriteString("| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| **%s** | %s |\n", t("estimatedCostTitle"), cell(g.EstimatedCost))
	fmt.Fprintf(&b, "| **%s** | %s |\n", t("machineDowntimeTitle"), cell(g.MachineDowntime))
	fmt.Fprintf(&b, "| **%s** | %s |\n", t("manualLaborTimeTitle"), cell(g.ManualLaborTime))
	fmt.Fprintf(&b, "| **%s** | %s |\n\n", t("partAvailabilityTitle"), cell(g.PartAvailability))

	if len(g.SafetyWarnings) > 0 {
		fmt.Fprintf(&b, "## ⚠ %s\n\n", t("safetyWarningsTitle"))
		for _, w := range g.SafetyWarnings {
			fmt.Fprintf(&b, "> %s\n>\n", w)
		}
		b.WriteString("\n")
	}

	bullets(&b, t("requiredToolsTitle"), g.RequiredTools)
	bullets(&b, t("requiredMaterialsTitle"), g.RequiredMaterials)

	fmt.Fprintf(&b, "## %s\n\n", t("repairStepsTitle"))
	for i, step := range g.RepairSteps {
		fmt.Fprintf(&b, "%d. %s\n", i+1, step.Description)
	}
	b.WriteString("\n")

	bullets(&b, t("preventativeMaintenanceTitle"), g.PreventativeMaintenance)
	return b.String()
}

func bullets(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", title)
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
	b.WriteString("\n")
}

func cell(s string) string {
	if s == "" {
		return "-"
	}
	return strings.ReplaceAll(s, "|", "\\|")
}
