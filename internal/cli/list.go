package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sakif/moodmap/internal/model"
	"github.com/sakif/moodmap/internal/storage/backends"
)

// Output formats for list.
const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputYAML  = "yaml"
)

// ListOptions
type ListOptions struct {
	Output string
	Type   string
}

// row is the flat form of an entry used for json and yaml output.
type row struct {
	ID          string  `json:"id" yaml:"id"`
	Type        string  `json:"type" yaml:"type"`
	Latitude    float64 `json:"latitude" yaml:"latitude"`
	Longitude   float64 `json:"longitude" yaml:"longitude"`
	Description string  `json:"description" yaml:"description"`
}

func addList(topLevel *cobra.Command, ro *RootOptions) {
	lo := &ListOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List journal entries, newest first",
		Example: `
moodmap list
moodmap list --type sad -o json
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := ro.load(cmd.ErrOrStderr(), true)
			if err != nil {
				return err
			}
			store, err := backends.OpenEntryStore(cmd.Context(), cfg.Storage, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.Load(cmd.Context())
			if err != nil {
				return err
			}
			entries, err = filterByType(entries, lo.Type)
			if err != nil {
				return err
			}
			return printEntries(cmd.OutOrStdout(), lo.Output, entries)
		},
	}
	cmd.Flags().StringVarP(&lo.Output, "output", "o", OutputTable,
		"Output format: table, json or yaml.")
	cmd.Flags().StringVarP(&lo.Type, "type", "t", "",
		"Only list entries of this mood.")

	topLevel.AddCommand(cmd)
}

func filterByType(entries []model.Entry, t string) ([]model.Entry, error) {
	if t == "" {
		return entries, nil
	}
	c, ok := model.ParseCategory(t)
	if !ok {
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownCategory, t)
	}
	var out []model.Entry
	for _, e := range entries {
		if e.Category == c {
			out = append(out, e)
		}
	}
	return out, nil
}

// printEntries writes entries newest first, the order the page lists them.
func printEntries(w io.Writer, format string, entries []model.Entry) error {
	rows := make([]row, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		rows = append(rows, row{
			ID:          e.ID,
			Type:        string(e.Category),
			Latitude:    e.Coords.Lat,
			Longitude:   e.Coords.Lng,
			Description: e.Description,
		})
	}

	switch strings.ToLower(format) {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case OutputYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(rows)
	case OutputTable, "":
		printTable(w, rows)
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

var moodColors = map[model.Category]*color.Color{
	model.Happy:      color.New(color.FgYellow),
	model.Sad:        color.New(color.FgBlue),
	model.Anxiety:    color.New(color.FgMagenta),
	model.Depression: color.New(color.FgHiBlack),
}

func printTable(w io.Writer, rows []row) {
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, "No entries yet.")
		return
	}

	bold := color.New(color.Bold).SprintFunc()
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = 60
	tbl.AddRow(bold("MOOD"), bold("WHERE"), bold("DESCRIPTION"), bold("ID"))
	for _, r := range rows {
		c := model.Category(r.Type)
		mood := c.Icon() + " " + c.Title()
		if col, ok := moodColors[c]; ok {
			mood = col.Sprint(mood)
		}
		tbl.AddRow(mood, fmt.Sprintf("%.4f, %.4f", r.Latitude, r.Longitude), r.Description, r.ID)
	}
	_, _ = fmt.Fprintln(w, tbl)
}
