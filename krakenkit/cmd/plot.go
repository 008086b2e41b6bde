package cmd

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

const (
	focusColumn     = "Scientific_name"
	countColumn     = "Nr_frag_direct_at_taxon"
	hostSpeciesName = "Homo sapiens"
	virusSubstring  = "virus"
)

// nonGroupingColumns are the report fields that never act as a grouping
// dimension; charts group over SampleID and the metadata columns.
var nonGroupingColumns = map[string]bool{
	"Perc_frag_cover":         true,
	"Nr_frag_cover":           true,
	"Nr_frag_direct_at_taxon": true,
	"Rank_code":               true,
	"NCBI_ID":                 true,
}

type mergedTable struct {
	columns []string
	rows    [][]string
}

// loadMergedTable reads the merged TSV, normalizing column names ('/' and
// spaces become underscores) and trimming cell whitespace.
func loadMergedTable(path string) (*mergedTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open merged table: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read table header: %w", err)
		}
		return nil, errors.New("merged table is empty")
	}

	columns := strings.Split(scanner.Text(), "\t")
	for i, c := range columns {
		columns[i] = normalizeColumn(c)
	}

	t := &mergedTable{columns: columns}
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), "\t")
		for i, v := range fields {
			fields[i] = strings.TrimSpace(v)
		}
		t.rows = append(t.rows, fields)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan merged table: %w", err)
	}
	return t, nil
}

func normalizeColumn(name string) string {
	name = strings.ReplaceAll(name, "/", "_")
	return strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
}

func (t *mergedTable) cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

type plotOptions struct {
	TopN    int
	OutDir  string
	Exclude []string
	Colors  colorFunc
}

// generateAbundancePlots renders the viral and/or bacterial abundance charts
// for a merged table. The bacterial view is the complement of the
// case-insensitive "virus" name match, not a positive bacterial pattern.
func generateAbundancePlots(tablePath string, viral, bacterial bool, opts plotOptions) error {
	t, err := loadMergedTable(tablePath)
	if err != nil {
		return err
	}
	if opts.Colors == nil {
		opts.Colors = defaultColors()
	}

	nameIdx := indexOf(t.columns, focusColumn)
	if nameIdx < 0 {
		return fmt.Errorf("merged table has no %s column", focusColumn)
	}

	skip := map[string]bool{hostSpeciesName: true}
	for _, name := range opts.Exclude {
		skip[name] = true
	}

	var viralRows, bacterialRows [][]string
	for _, row := range t.rows {
		name := t.cell(row, nameIdx)
		if skip[name] {
			continue
		}
		if strings.Contains(strings.ToLower(name), virusSubstring) {
			viralRows = append(viralRows, row)
		} else {
			bacterialRows = append(bacterialRows, row)
		}
	}

	if viral {
		if err := plotView(t.columns, viralRows, "Viral", opts); err != nil {
			return err
		}
	}
	if bacterial {
		if err := plotView(t.columns, bacterialRows, "Bacterial", opts); err != nil {
			return err
		}
	}
	return nil
}

func plotView(columns []string, rows [][]string, title string, opts plotOptions) error {
	if len(rows) == 0 {
		warnf("%s view has no rows; skipping", title)
		return nil
	}

	nameIdx := indexOf(columns, focusColumn)
	countIdx := indexOf(columns, countColumn)
	if countIdx < 0 {
		return fmt.Errorf("merged table has no %s column", countColumn)
	}

	if opts.TopN > 0 {
		rows = filterTopCategories(rows, nameIdx, opts.TopN)
	}

	for colIdx, col := range columns {
		if colIdx == nameIdx || nonGroupingColumns[col] {
			continue
		}
		cats, series, means := groupMeans(rows, colIdx, nameIdx, countIdx)
		if len(cats) == 0 {
			continue
		}
		if err := renderBarChart(title, col, cats, series, means, opts); err != nil {
			return err
		}
	}
	return nil
}

// filterTopCategories keeps rows whose focus value is among the n most
// frequent by raw row count. Ties break by name to keep output deterministic.
func filterTopCategories(rows [][]string, focusIdx, n int) [][]string {
	counts := make(map[string]int)
	for _, row := range rows {
		if focusIdx < len(row) {
			counts[row[focusIdx]]++
		}
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})
	if n < len(names) {
		names = names[:n]
	}

	keep := make(map[string]bool, len(names))
	for _, name := range names {
		keep[name] = true
	}

	var kept [][]string
	for _, row := range rows {
		if focusIdx < len(row) && keep[row[focusIdx]] {
			kept = append(kept, row)
		}
	}
	return kept
}

// groupMeans averages the direct-fragment count per (focus, category) pair.
// Both axes come back sorted.
func groupMeans(rows [][]string, groupIdx, focusIdx, countIdx int) (cats, series []string, means map[string]map[string]float64) {
	type accum struct {
		sum float64
		n   int
	}
	groups := make(map[string]map[string]*accum)

	for _, row := range rows {
		if groupIdx >= len(row) || focusIdx >= len(row) || countIdx >= len(row) {
			continue
		}
		count, err := strconv.ParseFloat(row[countIdx], 64)
		if err != nil {
			continue
		}
		cat := row[groupIdx]
		focus := row[focusIdx]
		if groups[focus] == nil {
			groups[focus] = make(map[string]*accum)
		}
		if groups[focus][cat] == nil {
			groups[focus][cat] = &accum{}
		}
		groups[focus][cat].sum += count
		groups[focus][cat].n++
	}

	catSet := make(map[string]bool)
	means = make(map[string]map[string]float64, len(groups))
	for focus, byCat := range groups {
		series = append(series, focus)
		means[focus] = make(map[string]float64, len(byCat))
		for cat, a := range byCat {
			catSet[cat] = true
			means[focus][cat] = a.sum / float64(a.n)
		}
	}
	for cat := range catSet {
		cats = append(cats, cat)
	}
	sort.Strings(cats)
	sort.Strings(series)
	return cats, series, means
}

func renderBarChart(title, column string, cats, series []string, means map[string]map[string]float64, opts plotOptions) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s abundance by %s", title, column)
	p.Y.Label.Text = "Mean " + countColumn
	p.Legend.Top = true

	// Tick labels shrink as the chart gets busier, down to a 10pt floor.
	fontSize := 16.0 - float64(len(cats))/4.0
	if fontSize < 10 {
		fontSize = 10
	}
	p.X.Tick.Label.Font.Size = vg.Points(fontSize)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = -1

	barWidth := vg.Points(math.Max(4, 30/float64(len(series))))
	for i, focus := range series {
		vals := make(plotter.Values, len(cats))
		for j, cat := range cats {
			vals[j] = means[focus][cat]
		}
		bars, err := plotter.NewBarChart(vals, barWidth)
		if err != nil {
			return fmt.Errorf("bar chart %s: %w", column, err)
		}
		bars.LineStyle.Width = vg.Length(0)
		bars.Color = opts.Colors(focus)
		bars.Offset = vg.Length(float64(i)-float64(len(series)-1)/2) * barWidth
		p.Add(bars)
		p.Legend.Add(focus, bars)
	}
	p.NominalX(cats...)

	// Chart width grows with the number of bars drawn.
	width := vg.Length(math.Max(6, 0.4*float64(len(cats)*(len(series)+1)))) * vg.Inch
	height := 5 * vg.Inch

	name := fmt.Sprintf("%s_Abundance_by_%s.png", title, column)
	if opts.OutDir != "" {
		name = filepath.Join(opts.OutDir, name)
	}
	if err := p.Save(width, height, name); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	logf("Chart -> %s", name)
	return nil
}

func runPlot(args []string) {
	fs := flag.NewFlagSet("plot", flag.ExitOnError)
	input := fs.String("input", "", "Merged table TSV")
	topN := fs.Int("top-n", 0, "Keep only the N most frequent taxa per view (0 disables)")
	virus := fs.Bool("virus", false, "Render the viral view")
	bacteria := fs.Bool("bacteria", false, "Render the bacterial view")
	exclude := fs.String("exclude", "", "Comma-separated taxa to drop in addition to Homo sapiens")
	outDir := fs.String("outdir", "", "Directory for PNG output (default: working directory)")
	if err := fs.Parse(args); err != nil {
		fatalf("parse args failed: %v", err)
	}

	if *input == "" {
		fatalf("input is required")
	}

	viral, bacterial := *virus, *bacteria
	if !viral && !bacterial {
		viral, bacterial = true, true
	}
	if *outDir != "" {
		if err := os.MkdirAll(*outDir, 0o755); err != nil {
			fatalf("create output dir failed: %v", err)
		}
	}

	opts := plotOptions{TopN: *topN, OutDir: *outDir, Exclude: splitList(*exclude)}
	if err := generateAbundancePlots(*input, viral, bacterial, opts); err != nil {
		fatalf("plot failed: %v", err)
	}
}
