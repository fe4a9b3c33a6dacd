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
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/kesslerlabs/carvex/internal/bytesource"
	"github.com/kesslerlabs/carvex/internal/catalog"
	"github.com/kesslerlabs/carvex/internal/env"
	"github.com/kesslerlabs/carvex/internal/logger"
	"github.com/kesslerlabs/carvex/internal/scanner"
	"github.com/kesslerlabs/carvex/internal/util/sizefmt"
	"github.com/kesslerlabs/carvex/pkg/dfxml"
	"github.com/kesslerlabs/carvex/pkg/pbar"
	fmtutil "github.com/kesslerlabs/carvex/pkg/util/format"
	"github.com/spf13/cobra"
)

func DefineScanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "scan <image>",
		Short:        "Scan a disk image or device for carvable files",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         RunScan,
	}

	cmd.Flags().StringP("catalog", "c", "", "path to the signature catalog document (required)")
	cmd.Flags().StringP("dump", "d", "recovered", "directory to write recovered files to")
	cmd.Flags().StringP("output", "o", "", "path of the DFXML report file (default report_<session>.xml)")
	cmd.Flags().StringSlice("ext", nil, "file types to carve (signature name or extension); default is every signature in the catalog")
	cmd.Flags().String("log-level", "INFO", "minimum log level: DEBUG, INFO, WARN, ERROR")
	cmd.Flags().Bool("no-log", false, "disable the scan's detailed log file")
	cmd.Flags().String("max-file-size", "", "cap every signature's max size at this value (e.g. 64MB)")

	_ = cmd.MarkFlagRequired("catalog")

	return cmd
}

func RunScan(cmd *cobra.Command, args []string) error {
	path := args[0]

	catalogPath, _ := cmd.Flags().GetString("catalog")
	dumpDir, _ := cmd.Flags().GetString("dump")
	reportFile, _ := cmd.Flags().GetString("output")
	fileExt, _ := cmd.Flags().GetStringSlice("ext")
	logLevelStr, _ := cmd.Flags().GetString("log-level")
	disableLog, _ := cmd.Flags().GetBool("no-log")
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

	session := genSessionID()

	if reportFile == "" {
		reportFile = fmt.Sprintf("report_%s.xml", session)
	}

	var logFilePath string
	if !disableLog {
		logFilePath = absPath(filepath.Join(dumpDir, session) + ".log")
	}

	log, logFile, err := setupLogger(logFilePath, logger.ParseLevel(logLevelStr).SlogLevel())
	if err != nil {
		return err
	}
	if logFile != nil {
		defer logFile.Close()
	}

	reportOut, err := os.Create(reportFile)
	if err != nil {
		return err
	}
	defer reportOut.Close()

	reportWriter := dfxml.NewDFXMLWriter(reportOut)
	defer reportWriter.Close()

	size, _ := src.Size()
	if err := reportWriter.WriteHeader(dfxml.DFXMLHeader{
		XmlOutput: dfxml.XmlOutputVersion,
		Metadata:  dfxml.DefaultMetadata,
		Creator: dfxml.Creator{
			Package:              env.AppName,
			Version:              env.Version,
			ExecutionEnvironment: dfxml.GetExecEnv(),
		},
		Source: dfxml.Source{
			ImageFilename: path,
			SectorSize:    512,
			ImageSize:     uint64(size),
		},
	}); err != nil {
		return fmt.Errorf("writing report header: %w", err)
	}

	fmt.Println("[INFO] Starting scanning operation...")
	fmt.Printf("[INFO] Source: \t%s\n", absPath(path))
	fmt.Printf("[INFO] Destination: \t%s\n", absPath(dumpDir))
	if disableLog {
		fmt.Println("[INFO] Output Log: \tdisabled")
	} else {
		fmt.Printf("[INFO] Output Log: \t%s\n", logFilePath)
	}
	fmt.Printf("[INFO] Scanning for %d signatures...\n", len(cat.Select(fileExt...)))

	var bar *pbar.ProgressBarState
	if size > 0 {
		bar = pbar.NewProgressBarState(size)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	manifest, err := scanner.Scan(ctx, src, cat, fileExt, dumpDir, log)
	if err != nil {
		return err
	}

	for _, rec := range manifest {
		if bar != nil {
			bar.ProcessedBytes = rec.Offset + rec.Size
			bar.FilesFound++
			bar.Render(false)
		}

		if err := reportWriter.WriteFileObject(dfxml.FileObject{
			Filename: filepath.Base(rec.Path),
			FileSize: uint64(rec.Size),
			ByteRuns: dfxml.ByteRuns{
				Runs: []dfxml.ByteRun{{
					Offset:    uint64(rec.Offset),
					ImgOffset: uint64(rec.Offset),
					Length:    uint64(rec.Size),
				}},
			},
		}); err != nil {
			log.Error("unable to write report entry", "err", err)
		}
	}
	if bar != nil {
		bar.Finish()
	}

	fmt.Println()
	fmt.Printf("[INFO] Scan completed!\n")
	fmt.Printf("[INFO] Files found: \t%d\n", len(manifest))
	fmt.Printf("[INFO] Scanned: \t%s\n", fmtutil.FormatBytes(size))
	fmt.Printf("[INFO] Duration: \t%s\n", formatDurationHMS(time.Since(start)))
	fmt.Printf("[INFO] Report saved to: \t%s\n", absPath(reportFile))
	return nil
}

func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

// genSessionID creates a unique label for a scan session, in the form
// YYYYMMDD_HHMMSS, used to name both the log file and (by default)
// correlate it with the report.
func genSessionID() string {
	return time.Now().Format("20060102_150405")
}

// formatDurationHMS formats a duration as HH:MM:SS, falling back to
// fractional seconds for anything under one second.
func formatDurationHMS(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
	totalSeconds := int64(d.Seconds())
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

// setupLogger initializes a slog.Logger writing to logFilePath, or
// discarding output entirely when logFilePath is empty.
func setupLogger(logFilePath string, minLevel slog.Level) (*slog.Logger, *os.File, error) {
	var w io.Writer
	var file *os.File

	if logFilePath == "" {
		w = io.Discard
	} else {
		logDir := filepath.Dir(logFilePath)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory %q: %w", logDir, err)
		}

		f, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file %q: %w", logFilePath, err)
		}
		w = f
		file = f
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     minLevel,
		AddSource: true,
	})
	return slog.New(handler), file, nil
}
