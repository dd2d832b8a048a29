// Package render writes a check's results to disk: one text report per
// anomaly kind found plus a Graphviz DOT rendering of its witness cycle,
// and an optional single-file watcher that re-triggers a caller-supplied
// check whenever the input history changes on disk.
package render

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/fsnotify/fsnotify"

	"github.com/dbhist/histcheck/internal/analyzer"
	"github.com/dbhist/histcheck/internal/sccdriver"
)

// reportTemplate renders one anomaly witness as a flat text report.
var reportTemplate = template.Must(template.New("report").Parse(
	`anomaly: {{.Name}}
scc size: {{len .SCC}}
witness cycle ({{len .Steps}} steps):
{{range .Steps}}  {{.}}
{{end}}`))

type reportData struct {
	Name  string
	SCC   []int64
	Steps []string
}

// dotTemplate renders a witness cycle as a Graphviz digraph.
var dotTemplate = template.Must(template.New("dot").Parse(
	`digraph {{.Name}} {
  rankdir=LR;
{{range .Edges}}  "{{.From}}" -> "{{.To}}" [label="{{.Label}}"];
{{end}}}
`))

type dotData struct {
	Name  string
	Edges []dotEdge
}

type dotEdge struct {
	From, To string
	Label    string
}

// Writer writes rendered reports under Dir: "<Dir>/<anomaly>.txt" for the
// text report and "<Dir>/dot/<anomaly>.dot" for the DOT rendering.
type Writer struct {
	Dir       string
	Explainer analyzer.PairExplainer
}

// NewWriter builds a Writer over dir, using the default in-memory
// PairExplainer unless explainer is non-nil.
func NewWriter(dir string, explainer analyzer.PairExplainer) *Writer {
	if explainer == nil {
		explainer = analyzer.ExplainPair
	}
	return &Writer{Dir: dir, Explainer: explainer}
}

// WriteReport renders every witness in report to Dir. It creates Dir and
// Dir/dot if they don't already exist.
func (w *Writer) WriteReport(report *sccdriver.Report) error {
	if w.Dir == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Join(w.Dir, "dot"), 0o755); err != nil {
		return fmt.Errorf("render: creating output dir: %w", err)
	}

	for name, witness := range report.Witnesses {
		steps := make([]string, len(witness.Cycle))
		edges := make([]dotEdge, len(witness.Cycle))
		for i, step := range witness.Cycle {
			explained, err := w.Explainer(step.From, step.To, step.Label)
			if err != nil {
				return fmt.Errorf("render: explaining step %d of %s: %w", i, name, err)
			}
			steps[i] = explained
			edges[i] = dotEdge{
				From:  fmt.Sprintf("T%d", step.From),
				To:    fmt.Sprintf("T%d", step.To),
				Label: step.Label.String(),
			}
		}

		var buf bytes.Buffer
		data := reportData{Name: name, SCC: toInt64s(witness.SCC), Steps: steps}
		if err := reportTemplate.Execute(&buf, data); err != nil {
			return fmt.Errorf("render: rendering report for %s: %w", name, err)
		}
		txtPath := filepath.Join(w.Dir, sanitize(name)+".txt")
		if err := os.WriteFile(txtPath, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("render: writing %s: %w", txtPath, err)
		}

		buf.Reset()
		if err := dotTemplate.Execute(&buf, dotData{Name: sanitize(name), Edges: edges}); err != nil {
			return fmt.Errorf("render: rendering dot for %s: %w", name, err)
		}
		dotPath := filepath.Join(w.Dir, "dot", sanitize(name)+".dot")
		if err := os.WriteFile(dotPath, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("render: writing %s: %w", dotPath, err)
		}
	}
	return nil
}

func toInt64s[T ~int64](vs []T) []int64 {
	out := make([]int64, len(vs))
	for i, v := range vs {
		out[i] = int64(v)
	}
	return out
}

func sanitize(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, r)
		default:
			out = append(out, '-')
		}
	}
	return string(out)
}

// WatchFile calls onChange every time path is written to, until ctx is
// canceled. It watches a single file rather than a directory tree, since
// a check run only ever has one history file to react to.
func WatchFile(ctx context.Context, path string, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("render: creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("render: watching %s: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("render: resolving %s: %w", path, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			eventAbs, err := filepath.Abs(event.Name)
			if err != nil || eventAbs != abs {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				onChange()
			}
		case _, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
		}
	}
}
