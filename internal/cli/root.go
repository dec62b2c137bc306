// Package cli implements the docgraph command line tool.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docgraph/internal/doctree"
	"github.com/dgallion1/docgraph/internal/parser"
	"github.com/dgallion1/docgraph/internal/rule"
	"github.com/dgallion1/docgraph/internal/section"
)

type rootOptions struct {
	verbose bool
	noBold  bool
	noColon bool
	pdftext bool
}

// NewRootCmd builds the docgraph command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "docgraph",
		Short: "Extract code blocks together with the sections that enclose them",
		Long: `docgraph parses Markdown, HTML, text, PDF and DOCX documents into a node tree,
infers which section each node belongs to, and extracts the nodes you ask for
along with their section breadcrumbs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "Log debug output to stderr")
	pf.BoolVar(&opts.noBold, "no-bold", false, "Do not treat single bold paragraphs as section labels")
	pf.BoolVar(&opts.noColon, "no-colon", false, `Do not treat "Label:" paragraphs as section labels`)
	pf.BoolVar(&opts.pdftext, "pdftotext", true, "Fall back to pdftotext when the built-in PDF reader finds no text")

	cmd.AddCommand(newExtractCmd(opts), newEdgesCmd(opts), newTreeCmd(opts))
	return cmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "docgraph:", err)
		stop()
		os.Exit(1)
	}
}

func (o *rootOptions) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

func (o *rootOptions) pipeline() *rule.Pipeline {
	return rule.Standard(section.Heuristics{Bold: !o.noBold, Colon: !o.noColon}.Classifier())
}

// loadDocuments parses every path in argument order.
func (o *rootOptions) loadDocuments(paths []string) ([]*doctree.Document, error) {
	docs := make([]*doctree.Document, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		doc, err := parser.ParseFile(data, p, parser.Options{PDFFallbackPdftotext: o.pdftext})
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// checkRelationships only checks names; edge listings may filter by several.
func checkRelationships(p *rule.Pipeline, rels []string) error {
	if len(rels) == 0 {
		return fmt.Errorf("at least one relationship is required")
	}
	known := p.Names()
	for _, r := range rels {
		if !slices.Contains(known, r) {
			return fmt.Errorf("unknown relationship %q (have %s)", r, strings.Join(known, ", "))
		}
	}
	return nil
}

func checkFormat(format string, allowed ...string) error {
	if !slices.Contains(allowed, format) {
		return fmt.Errorf("unknown format %q (want %s)", format, strings.Join(allowed, ", "))
	}
	return nil
}
