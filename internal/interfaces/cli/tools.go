package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/turtacn/LawLens/internal/application/diagnosis"
	"github.com/turtacn/LawLens/internal/bootstrap"
	"github.com/turtacn/LawLens/internal/domain/evidence"
	"github.com/turtacn/LawLens/internal/domain/precedent"
	"github.com/turtacn/LawLens/pkg/errors"
)

// readInput reads the named file, or stdin for "" and "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeBadRequest, "cannot read input").WithDetail(path)
	}
	return data, nil
}

func decodeJSONInput(cmd *cobra.Command, path string, dest any) error {
	data, err := readInput(cmd, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return errors.Wrap(err, errors.ErrCodeBadRequest, "input is not valid JSON").WithDetail(path)
	}
	return nil
}

func argOrEmpty(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// ─────────────────────────────────────────────────────────────────────────────
// clean
// ─────────────────────────────────────────────────────────────────────────────

type cleanResult struct {
	Cleaned string `json:"cleaned"`
}

func (r cleanResult) String() string { return r.Cleaned }

func newCleanCmd() *cobra.Command {
	var (
		text        string
		placeholder string
		keepEmoji   bool
	)
	cmd := &cobra.Command{
		Use:   "clean [file|-]",
		Short: "Normalize chat text (dates, notices, repeats, phone numbers, emoji)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			raw := text
			if raw == "" {
				data, err := readInput(cmd, argOrEmpty(args))
				if err != nil {
					return err
				}
				raw = string(data)
			}
			if placeholder == "" {
				placeholder = cc.Config.Pipeline.PhonePlaceholder
			}
			opts := []evidence.NormalizerOption{evidence.WithPhonePlaceholder(placeholder)}
			if keepEmoji {
				opts = append(opts, evidence.WithoutEmojiNames())
			}
			cleaned := evidence.NewNormalizer(opts...).Clean(raw)
			if cleaned == "" {
				return errors.New(errors.ErrCodeEvidenceEmpty, "text is empty after normalization")
			}
			return PrintResult(cmd, cleanResult{Cleaned: cleaned})
		},
	}
	cmd.Flags().StringVarP(&text, "text", "t", "", "text to clean instead of a file")
	cmd.Flags().StringVar(&placeholder, "phone-placeholder", "", "replacement for phone numbers (default from config)")
	cmd.Flags().BoolVar(&keepEmoji, "keep-emoji", false, "leave emoji as they are instead of naming them")
	return cmd
}

// ─────────────────────────────────────────────────────────────────────────────
// lines
// ─────────────────────────────────────────────────────────────────────────────

type linesResult struct {
	Lines []string `json:"lines"`
}

func (r linesResult) String() string { return strings.Join(r.Lines, "\n") }

func (r linesResult) TableHeaders() []string { return []string{"#", "Line"} }

func (r linesResult) TableRows() [][]string {
	rows := make([][]string, len(r.Lines))
	for i, l := range r.Lines {
		rows[i] = []string{strconv.Itoa(i + 1), l}
	}
	return rows
}

func newLinesCmd() *cobra.Command {
	var yThreshold float64
	cmd := &cobra.Command{
		Use:   "lines [fragments.json|-]",
		Short: "Rebuild text lines from positioned OCR fragments",
		Long: "Reads a JSON array of {\"text\",\"x\",\"y\"} fragments and groups them into\n" +
			"lines top-to-bottom, left-to-right.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			var frags []evidence.Fragment
			if err := decodeJSONInput(cmd, argOrEmpty(args), &frags); err != nil {
				return err
			}
			if yThreshold <= 0 {
				yThreshold = cc.Config.Pipeline.YThreshold
			}
			return PrintResult(cmd, linesResult{Lines: evidence.ReconstructLines(frags, yThreshold)})
		},
	}
	cmd.Flags().Float64Var(&yThreshold, "y-threshold", 0, "vertical tolerance in pixels (default from config)")
	return cmd
}

// ─────────────────────────────────────────────────────────────────────────────
// align
// ─────────────────────────────────────────────────────────────────────────────

type alignResult struct {
	Segments []evidence.LabeledSegment `json:"segments"`
	labeled  bool
}

func (r alignResult) String() string {
	if !r.labeled {
		plain := make([]evidence.Segment, len(r.Segments))
		for i, s := range r.Segments {
			plain[i] = s.Segment
		}
		return evidence.FormatPlain(plain)
	}
	return evidence.FormatLabeled(r.Segments)
}

func (r alignResult) TableHeaders() []string { return []string{"Start", "End", "Speaker", "Text"} }

func (r alignResult) TableRows() [][]string {
	rows := make([][]string, len(r.Segments))
	for i, s := range r.Segments {
		rows[i] = []string{evidence.FormatClock(s.Start), evidence.FormatClock(s.End), s.Speaker, s.Text}
	}
	return rows
}

func newAlignCmd() *cobra.Command {
	var (
		turnsPath string
		prefix    string
	)
	cmd := &cobra.Command{
		Use:   "align [segments.json|-]",
		Short: "Label transcript segments with diarized speakers",
		Long: "Reads transcript segments ({\"start\",\"end\",\"text\"}) and, with --turns,\n" +
			"diarization turns ({\"start\",\"end\",\"speaker_id\"}). Each segment takes the\n" +
			"speaker with the largest overlap. Without turns the transcript is unlabeled.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			var segments []evidence.Segment
			if err := decodeJSONInput(cmd, argOrEmpty(args), &segments); err != nil {
				return err
			}
			var turns []evidence.Turn
			if turnsPath != "" {
				if err := decodeJSONInput(cmd, turnsPath, &turns); err != nil {
					return err
				}
			}
			if prefix == "" {
				prefix = cc.Config.Pipeline.SpeakerPrefix
			}
			return PrintResult(cmd, alignResult{
				Segments: evidence.NewAligner(prefix).Align(segments, turns),
				labeled:  turnsPath != "",
			})
		},
	}
	cmd.Flags().StringVar(&turnsPath, "turns", "", "diarization turns JSON file")
	cmd.Flags().StringVar(&prefix, "speaker-prefix", "", "speaker label prefix (default from config)")
	return cmd
}

// ─────────────────────────────────────────────────────────────────────────────
// rank
// ─────────────────────────────────────────────────────────────────────────────

type rankResult struct {
	Outcome precedent.RankedOutcome `json:"outcome"`
	Rows    []diagnosis.CaseRow     `json:"rows"`
}

func (r rankResult) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "status: %s\n", statusColor(r.Outcome.Status))
	if !r.Outcome.HasPrecedent() {
		sb.WriteString("no similar precedent found")
		return sb.String()
	}
	for i, row := range r.Rows {
		marker := " "
		if row.Main {
			marker = "*"
		}
		fmt.Fprintf(&sb, "%s %d. %s (%s, %d) %s %.1f%%\n", marker, i+1, row.CaseID, row.Title, row.Year, row.Judgment, row.Similarity)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (r rankResult) TableHeaders() []string {
	return []string{"Rank", "Case", "Title", "Year", "Judgment", "Fine", "Similarity", "Main"}
}

func (r rankResult) TableRows() [][]string {
	return caseRows(r.Rows)
}

func caseRows(rows []diagnosis.CaseRow) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		main := ""
		if row.Main {
			main = "*"
		}
		fine := "-"
		if row.Fine > 0 {
			fine = strconv.FormatInt(row.Fine, 10) + "만원"
		}
		out[i] = []string{
			strconv.Itoa(i + 1),
			row.CaseID,
			truncate(row.Title, 30),
			strconv.Itoa(row.Year),
			row.Judgment,
			fine,
			fmt.Sprintf("%.1f%%", row.Similarity),
			main,
		}
	}
	return out
}

func statusColor(s precedent.Status) string {
	switch s {
	case precedent.StatusConvictionFound:
		return color.GreenString(s.String())
	case precedent.StatusWarning:
		return color.YellowString(s.String())
	default:
		return color.RedString(s.String())
	}
}

func newRankCmd() *cobra.Command {
	var (
		query  string
		k      int
		budget int
	)
	cmd := &cobra.Command{
		Use:   "rank [scored.json|-]",
		Short: "Pick the anchor precedent and order supporting cases",
		Long: "Ranks a JSON array of scored cases ({\"case\":{...},\"score\":...}) so the\n" +
			"first conviction within the budget anchors the result. With --query the\n" +
			"candidates come from the configured search backend instead.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if budget <= 0 {
				budget = cc.Config.Pipeline.ConvictionBudget
			}

			var scored []precedent.ScoredCase
			if query != "" {
				ctx, cancel := commandContext(cmd, cc)
				defer cancel()
				app, err := bootstrap.New(ctx, cc.Config, cc.Logger, bootstrap.Options{SkipEngines: true, SkipQueue: true})
				if err != nil {
					return err
				}
				defer app.Close()
				if k <= 0 {
					k = cc.Config.Pipeline.SearchK
				}
				if scored, err = app.Searcher.Search(ctx, query, k); err != nil {
					return err
				}
			} else if err := decodeJSONInput(cmd, argOrEmpty(args), &scored); err != nil {
				return err
			}

			outcome := precedent.Rank(scored, budget)
			return PrintResult(cmd, rankResult{Outcome: outcome, Rows: diagnosis.BuildRows(outcome)})
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "search the configured backend for this text")
	cmd.Flags().IntVarP(&k, "top-k", "k", 0, "candidates to fetch with --query (default from config)")
	cmd.Flags().IntVar(&budget, "budget", 0, "conviction search budget (default from config)")
	return cmd
}
