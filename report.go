package setup

import (
	"bytes"
	"fmt"
	"os"
	"text/template"
)

const (
	reportTemplateName    = "templates/status.md.tmpl"
	DefaultReportFilename = "SETUP_STATUS.md"
)

// reportData is what the status report template is executed with.
type reportData struct {
	Report    *Report
	Variables StringMap
	Date      string
	Percent   int
	NextSteps []string
}

// RenderReport renders the Markdown status report for a verification run.
func RenderReport(r *Report, variables StringMap) (string, error) {
	templ, err := template.New("status").Funcs(template.FuncMap{
		"mark": func(ok bool) string {
			if ok {
				return markerPass
			}
			return markerFail
		},
	}).Parse(MustGetResource(reportTemplateName))
	if err != nil {
		return "", err
	}
	data := reportData{
		Report:    r,
		Variables: variables,
		Date:      r.Created.Format("2006-01-02 15:04"),
		Percent:   int(r.Progress() * 100),
		NextSteps: nextSteps(r),
	}
	var buf bytes.Buffer
	if err := templ.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// WriteReport renders the status report and writes it to path.
func WriteReport(path string, r *Report, variables StringMap) error {
	content, err := RenderReport(r, variables)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0644)
}

// nextSteps turns the failed checks into a short actionable list, mirroring
// the summary the console progress check prints.
func nextSteps(r *Report) []string {
	var steps []string
	for _, section := range r.Sections {
		failed := 0
		for _, check := range section.Checks {
			if !check.OK {
				failed++
			}
		}
		if failed == 0 {
			continue
		}
		switch section.Title {
		case "Python packages":
			steps = append(steps, "Install missing packages: run the setup tool without flags")
		case "Parser files":
			steps = append(steps, "Rebuild the parser library: structcoder-setup -rebuild-parsers")
		case "Pretrained checkpoint":
			for _, check := range section.Checks {
				if !check.OK && check.Detail != "" {
					steps = append(steps, "Download the checkpoint: "+check.Detail)
				}
			}
		case "Preprocessed data":
			steps = append(steps, "Run preprocessing: jupyter notebook finetune_preprocess.ipynb")
		default:
			steps = append(steps, fmt.Sprintf("Fix the failing checks under %q", section.Title))
		}
	}
	if len(steps) == 0 {
		steps = append(steps, "Setup is complete. Run python test_dfg_extraction.py for a smoke test.")
	}
	return steps
}
