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
	"encoding/hex"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/kesslerlabs/carvex/internal/catalog"
	"github.com/spf13/cobra"
)

func DefineFormatsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "formats",
		Short: "List every signature in a catalog document",
		Long: `The 'formats' command displays a table of every signature defined in the
given catalog document: its name, declared extension, carving strategy, and
the header/footer bytes used to detect it.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         RunFormats,
	}

	cmd.Flags().StringP("catalog", "c", "", "path to the signature catalog document (required)")
	_ = cmd.MarkFlagRequired("catalog")
	return cmd
}

func RunFormats(cmd *cobra.Command, args []string) error {
	catalogPath, _ := cmd.Flags().GetString("catalog")

	cat, err := catalog.Load(catalogPath)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tEXT\tSTRATEGY\tHEADER\tFOOTER\tMAX SIZE")

	for _, sig := range cat.Signatures() {
		strategy := "fixed-size"
		footer := "-"
		if sig.Strategy == catalog.FooterBounded {
			strategy = "footer-bounded"
			footer = hex.EncodeToString(sig.Footer)
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n",
			sig.Name,
			sig.Extension,
			strategy,
			hex.EncodeToString(sig.Header),
			footer,
			sig.MaxSize,
		)
	}
	return w.Flush()
}
