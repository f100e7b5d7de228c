// Command folio manipulates PDF pages from the command line.
//
// Usage:
//
//	folio merge -o out.pdf a.pdf b.pdf [c.pdf ...]
//	folio extract -o out.pdf -pages 1-3,7 in.pdf
//	folio split -prefix part -every 1 in.pdf
//	folio rotate -o out.pdf -pages 2-4 -degrees 90 in.pdf
//	folio reorder -o out.pdf -order 3,1,2 in.pdf
//	folio compact -o out.pdf in.pdf
//	folio info in.pdf
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tsawler/folio"
	"github.com/tsawler/folio/compose"
	"github.com/tsawler/folio/reader"
	"github.com/tsawler/folio/writer"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "merge":
		err = runMerge(os.Args[2:])
	case "extract":
		err = runExtract(os.Args[2:])
	case "split":
		err = runSplit(os.Args[2:])
	case "rotate":
		err = runRotate(os.Args[2:])
	case "reorder":
		err = runReorder(os.Args[2:])
	case "compact":
		err = runCompact(os.Args[2:])
	case "info":
		err = runInfo(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "folio:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: folio <command> [flags] <input...>

commands:
  merge    concatenate two or more files
  extract  keep only the selected pages
  split    write each chunk of pages to its own file
  rotate   add a rotation to the selected pages
  reorder  permute the pages
  compact  drop unreachable objects and compress streams
  info     print page count and metadata`)
}

func runMerge(args []string) error {
	fs := flag.NewFlagSet("merge", flag.ExitOnError)
	output := fs.String("o", "", "output file (required)")
	fs.Parse(args)

	if *output == "" || fs.NArg() < 2 {
		return fmt.Errorf("merge requires -o and at least two inputs")
	}

	return folio.MergeFiles(*output, fs.Args()...)
}

func runExtract(args []string) error {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	output := fs.String("o", "", "output file (required)")
	pages := fs.String("pages", "", "page range expression (required)")
	fs.Parse(args)

	if *output == "" || *pages == "" || fs.NArg() != 1 {
		return fmt.Errorf("extract requires -o, -pages, and one input")
	}

	return folio.Open(fs.Arg(0)).Pages(*pages).WriteFile(*output)
}

func runSplit(args []string) error {
	fs := flag.NewFlagSet("split", flag.ExitOnError)
	prefix := fs.String("prefix", "part", "output filename prefix")
	every := fs.Int("every", 1, "pages per output file")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("split requires one input")
	}

	doc, err := reader.Open(fs.Arg(0))
	if err != nil {
		return err
	}

	parts, err := compose.SplitEvery(doc, *every)
	if err != nil {
		return err
	}

	for i, part := range parts {
		name := fmt.Sprintf("%s-%03d.pdf", *prefix, i+1)
		if err := writer.New().WriteFile(part, name); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		fmt.Println(name)
	}

	return nil
}

func runRotate(args []string) error {
	fs := flag.NewFlagSet("rotate", flag.ExitOnError)
	output := fs.String("o", "", "output file (required)")
	pages := fs.String("pages", "", "page range expression (default all)")
	degrees := fs.Int("degrees", 90, "rotation delta, multiple of 90")
	fs.Parse(args)

	if *output == "" || fs.NArg() != 1 {
		return fmt.Errorf("rotate requires -o and one input")
	}

	doc, err := reader.Open(fs.Arg(0))
	if err != nil {
		return err
	}

	expression := *pages
	if expression == "" {
		expression = fmt.Sprintf("1-%d", doc.PageCount())
	}

	out, err := compose.Rotate(doc, expression, *degrees)
	if err != nil {
		return err
	}

	return writer.New().WriteFile(out, *output)
}

func runReorder(args []string) error {
	fs := flag.NewFlagSet("reorder", flag.ExitOnError)
	output := fs.String("o", "", "output file (required)")
	order := fs.String("order", "", "comma-separated page order (required)")
	fs.Parse(args)

	if *output == "" || *order == "" || fs.NArg() != 1 {
		return fmt.Errorf("reorder requires -o, -order, and one input")
	}

	permutation := make([]int, 0)
	for _, part := range strings.Split(*order, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return fmt.Errorf("order contains non-integer %q", strings.TrimSpace(part))
		}
		permutation = append(permutation, n)
	}

	doc, err := reader.Open(fs.Arg(0))
	if err != nil {
		return err
	}

	out, err := compose.Reorder(doc, permutation)
	if err != nil {
		return err
	}

	return writer.New().WriteFile(out, *output)
}

func runCompact(args []string) error {
	fs := flag.NewFlagSet("compact", flag.ExitOnError)
	output := fs.String("o", "", "output file (required)")
	fs.Parse(args)

	if *output == "" || fs.NArg() != 1 {
		return fmt.Errorf("compact requires -o and one input")
	}

	return folio.Open(fs.Arg(0)).Recompact().WriteFile(*output)
}

func runInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("info requires one input")
	}

	doc, err := reader.Open(fs.Arg(0))
	if err != nil {
		return err
	}

	info, err := doc.Info()
	if err != nil {
		return err
	}

	fmt.Printf("pages:    %d\n", doc.PageCount())
	fmt.Printf("version:  %s\n", doc.Version())
	printField := func(label, value string) {
		if value != "" {
			fmt.Printf("%-9s %s\n", label+":", value)
		}
	}
	printField("title", info.Title)
	printField("author", info.Author)
	printField("subject", info.Subject)
	printField("keywords", info.Keywords)
	printField("creator", info.Creator)
	printField("producer", info.Producer)

	return nil
}
