package cli

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/LawLens/internal/application/diagnosis"
	"github.com/turtacn/LawLens/internal/bootstrap"
	"github.com/turtacn/LawLens/pkg/errors"
)

// reportView renders a diagnosis report for the terminal.
type reportView struct {
	*diagnosis.Report
}

func (v reportView) String() string {
	r := v.Report
	var sb strings.Builder
	fmt.Fprintf(&sb, "report:     %s\n", r.ID)
	fmt.Fprintf(&sb, "status:     %s\n", statusColor(r.Status))
	fmt.Fprintf(&sb, "crime:      %s\n", r.Features.CandidateCrime)
	if r.Features.RiskLevel != "" {
		fmt.Fprintf(&sb, "risk:       %s\n", r.Features.RiskLevel)
	}
	if len(r.Rows) > 0 {
		fmt.Fprintf(&sb, "similarity: %.1f%% average over %d cases\n", r.AverageSimilarity, len(r.Rows))
	}
	for _, s := range r.Sections {
		if s.Error != "" {
			fmt.Fprintf(&sb, "warning:    %s #%d (%s) could not be read: %s\n", s.Kind, s.Index+1, s.Name, s.Error)
		}
	}

	if len(r.Rows) > 0 {
		sb.WriteString("\nprecedents:\n")
		for i, row := range r.Rows {
			marker := " "
			if row.Main {
				marker = "*"
			}
			fmt.Fprintf(&sb, "%s %d. %s %s (%d) %s %.1f%%\n", marker, i+1, row.CaseID, row.Title, row.Year, row.Judgment, row.Similarity)
			if row.Link != "" {
				fmt.Fprintf(&sb, "     %s\n", row.Link)
			}
		}
	}
	if r.Advice != "" {
		sb.WriteString("\nadvice:\n")
		sb.WriteString(r.Advice)
		sb.WriteString("\n")
	}
	if r.Complaint != "" {
		sb.WriteString("\ncomplaint draft:\n")
		sb.WriteString(r.Complaint)
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (v reportView) TableHeaders() []string { return rankResult{}.TableHeaders() }

func (v reportView) TableRows() [][]string { return caseRows(v.Rows) }

// loadEvidence reads each path into an Evidence item named after the file.
func loadEvidence(paths []string) ([]diagnosis.Evidence, error) {
	out := make([]diagnosis.Evidence, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeBadRequest, "cannot read evidence file").WithDetail(p)
		}
		out = append(out, diagnosis.Evidence{
			Name:        filepath.Base(p),
			ContentType: mime.TypeByExtension(filepath.Ext(p)),
			Data:        data,
		})
	}
	return out, nil
}

func newDiagnoseCmd() *cobra.Command {
	var (
		req      diagnosis.Request
		mode     string
		textFile string
		images   []string
		audio    []string
	)
	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Run the full diagnosis over text, screenshots and recordings",
		Example: "  lawlens diagnose --text-file chat.txt --image capture.png --audio call.m4a\n" +
			"  lawlens diagnose --mode comments --post-title \"...\" --victim \"...\" -t \"...\" -o json",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if textFile != "" {
				data, err := readInput(cmd, textFile)
				if err != nil {
					return err
				}
				req.Text = strings.TrimSpace(req.Text + "\n" + string(data))
			}
			req.Mode = diagnosis.Mode(mode)
			if req.Images, err = loadEvidence(images); err != nil {
				return err
			}
			if req.Audio, err = loadEvidence(audio); err != nil {
				return err
			}

			ctx, cancel := commandContext(cmd, cc)
			defer cancel()
			app, err := bootstrap.New(ctx, cc.Config, cc.Logger, bootstrap.Options{SkipQueue: true})
			if err != nil {
				return err
			}
			defer app.Close()

			report, err := app.Service.Diagnose(ctx, req)
			if err != nil {
				return err
			}
			return PrintResult(cmd, reportView{Report: report})
		},
	}
	f := cmd.Flags()
	f.StringVarP(&req.Text, "text", "t", "", "chat or situation text")
	f.StringVar(&textFile, "text-file", "", "read text from a file (- for stdin)")
	f.StringVarP(&mode, "mode", "m", string(diagnosis.ModeGeneral), "analysis mode (general, comments)")
	f.StringVar(&req.PostTitle, "post-title", "", "post title in comments mode")
	f.StringVar(&req.Victim, "victim", "", "victim nickname in comments mode")
	f.StringSliceVar(&images, "image", nil, "screenshot file (repeatable)")
	f.StringSliceVar(&audio, "audio", nil, "recording file (repeatable)")
	f.BoolVar(&req.DraftComplaint, "draft-complaint", false, "also draft a police complaint")
	return cmd
}
