// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/kesslerlabs/carvex/internal/bytesource"
	"github.com/kesslerlabs/carvex/internal/catalog"
	"github.com/kesslerlabs/carvex/internal/recovered"
	"github.com/kesslerlabs/carvex/internal/scanner"
	"github.com/kesslerlabs/carvex/internal/util/sizefmt"
	"github.com/kesslerlabs/carvex/pkg/util/format"
)

// pollInterval governs how often the TUI re-samples the output directory
// while a scan runs in the background. The scanner itself is synchronous and
// has no progress channel (§5's "single logical task" model keeps it that
// way); polling the directory it writes into is the adapter that turns that
// into something a Bubble Tea program can animate.
const pollInterval = 250 * time.Millisecond

var (
	progressTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#FAFAFA")).
				Background(lipgloss.Color("#7D56F4")).
				Padding(0, 1)

	progressLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#7D56F4")).
				Bold(true)

	progressHelpStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#626262"))

	progressErrorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FF0000")).
				Bold(true)

	progressDoneStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#00FF00")).
				Bold(true)
)

func DefineProgressCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "progress <image>",
		Short:        "Scan a disk image with a live terminal progress display",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         RunProgress,
	}

	cmd.Flags().StringP("catalog", "c", "", "path to the signature catalog document (required)")
	cmd.Flags().StringP("dump", "d", "recovered", "directory to write recovered files to")
	cmd.Flags().StringSlice("ext", nil, "file types to carve (signature name or extension); default is every signature in the catalog")
	cmd.Flags().String("max-file-size", "", "cap every signature's max size at this value (e.g. 64MB)")
	_ = cmd.MarkFlagRequired("catalog")

	return cmd
}

func RunProgress(cmd *cobra.Command, args []string) error {
	path := args[0]

	catalogPath, _ := cmd.Flags().GetString("catalog")
	dumpDir, _ := cmd.Flags().GetString("dump")
	fileExt, _ := cmd.Flags().GetStringSlice("ext")
	maxFileSizeStr, _ := cmd.Flags().GetString("max-file-size")

	cat, err := catalog.Load(catalogPath)
	if err != nil {
		return err
	}

	if maxFileSizeStr != "" {
		maxSize, err := sizefmt.ParseBytes(maxFileSizeStr)
		if err != nil {
			return fmt.Errorf("--max-file-size: %w", err)
		}
		cat = cat.Capped(maxSize)
	}

	src, err := bytesource.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	size, _ := src.Size()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := tea.NewProgram(newProgressModel(ctx, src, cat, fileExt, dumpDir, path, size))
	_, err = p.Run()
	return err
}

type scanDoneMsg struct {
	manifest recovered.Manifest
	err      error
}

type pollMsg struct{}

type progressModel struct {
	ctx    context.Context
	src    *bytesource.Source
	cat    *catalog.Catalog
	ext    []string
	outDir string
	source string
	total  int64

	spinner  spinner.Model
	started  time.Time
	done     bool
	err      error
	manifest recovered.Manifest
}

func newProgressModel(ctx context.Context, src *bytesource.Source, cat *catalog.Catalog, ext []string, outDir, source string, total int64) progressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))

	return progressModel{
		ctx:     ctx,
		src:     src,
		cat:     cat,
		ext:     ext,
		outDir:  outDir,
		source:  source,
		total:   total,
		spinner: s,
		started: time.Now(),
	}
}

func (m progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.runScan(), pollTick())
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}

	case scanDoneMsg:
		m.done = true
		m.err = msg.err
		m.manifest = msg.manifest
		return m, nil

	case pollMsg:
		if m.done {
			return m, nil
		}
		return m, pollTick()

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m progressModel) View() string {
	var view string
	view += progressTitleStyle.Render(" carvex ") + "\n\n"
	view += fmt.Sprintf("%s %s\n", progressLabelStyle.Render("Source:"), m.source)
	if m.total > 0 {
		view += fmt.Sprintf("%s %s\n", progressLabelStyle.Render("Size:"), format.FormatBytes(m.total))
	}
	view += fmt.Sprintf("%s %s\n\n", progressLabelStyle.Render("Output:"), m.outDir)

	if !m.done {
		filesFound := countFiles(m.outDir)
		view += fmt.Sprintf("%s scanning... %d file(s) recovered so far (%s elapsed)\n",
			m.spinner.View(), filesFound, time.Since(m.started).Round(time.Second))
	} else if m.err != nil {
		view += progressErrorStyle.Render("scan failed") + "\n"
		view += fmt.Sprintf("error: %v\n", m.err)
	} else {
		view += progressDoneStyle.Render("scan complete") + "\n"
		view += fmt.Sprintf("%d file(s) recovered in %s\n", len(m.manifest), time.Since(m.started).Round(time.Second))
	}

	view += "\n" + progressHelpStyle.Render("press q to quit")
	return view
}

func (m progressModel) runScan() tea.Cmd {
	return func() tea.Msg {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		manifest, err := scanner.Scan(m.ctx, m.src, m.cat, m.ext, m.outDir, logger)
		return scanDoneMsg{manifest: manifest, err: err}
	}
}

func pollTick() tea.Cmd {
	return tea.Tick(pollInterval, func(time.Time) tea.Msg {
		return pollMsg{}
	})
}

// countFiles reports how many entries the scan has written to dir so far.
// It tolerates the directory not existing yet (no candidates accepted) and
// treats any other read error as zero, since this is a best-effort display.
func countFiles(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	return len(entries)
}
