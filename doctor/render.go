package doctor

import "github.com/pterm/pterm"

// Render prints the report as a table with colored status markers
func Render(report *Report) {
	rows := pterm.TableData{{"Check", "Status", "Detail"}}
	for _, c := range report.Checks {
		rows = append(rows, []string{c.Name, statusLabel(c.Status), c.Detail})
	}
	pterm.DefaultTable.WithHasHeader().WithData(rows).Render()

	if report.Healthy() {
		pterm.Success.Println("Environment looks healthy")
	} else {
		pterm.Error.Println("Environment has problems, see failed checks above")
	}
}

func statusLabel(s Status) string {
	switch s {
	case StatusOK:
		return pterm.Green("ok")
	case StatusWarn:
		return pterm.Yellow("warn")
	default:
		return pterm.Red("fail")
	}
}
