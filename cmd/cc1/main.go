package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	cc1 "github.com/c89/cc1/go"
)

const (
	exitOK    = 0
	exitDiag  = 1
	exitUsage = 2
	exitIO    = 3
)

type args struct {
	output string

	m32 bool
	m64 bool

	lexOnly bool
	parseTU bool
	sem     bool

	dumpAST bool
	dumpSym bool

	verbose bool
}

func main() {
	a := &args{}

	root := &cobra.Command{
		Use:           "cc1 infile",
		Short:         "Strict C89 front end emitting LLVM IR for System V targets",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, argv []string) error {
			return run(a, argv[0])
		},
	}

	flags := root.Flags()
	flags.StringVarP(&a.output, "output", "o", "", "Write IR to this file ('-' for stdout)")
	flags.BoolVar(&a.m32, "m32", false, "Compile for i386 (the default)")
	flags.BoolVar(&a.m64, "m64", false, "Compile for x86_64")
	flags.BoolVar(&a.lexOnly, "lex-only", false, "Stop after lexing")
	flags.BoolVar(&a.parseTU, "parse-tu", false, "Stop after parsing")
	flags.BoolVar(&a.sem, "sem", false, "Stop after semantic analysis")
	flags.BoolVar(&a.dumpAST, "dump-ast", false, "Print the parse tree")
	flags.BoolVar(&a.dumpSym, "dump-sym", false, "Print the file-scope symbols after analysis")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Debug logging on stderr")

	// The traditional single-dash spellings of the target switches.
	argv := make([]string, 0, len(os.Args)-1)
	for _, arg := range os.Args[1:] {
		switch arg {
		case "-m32":
			argv = append(argv, "--m32")
		case "-m64":
			argv = append(argv, "--m64")
		default:
			argv = append(argv, arg)
		}
	}
	root.SetArgs(argv)

	if err := root.Execute(); err != nil {
		if ec, ok := err.(exitError); ok {
			os.Exit(int(ec))
		}
		// Flag and argument problems come back from cobra itself.
		fmt.Fprintln(os.Stderr, "cc1:", err)
		os.Exit(exitUsage)
	}
}

// exitError smuggles an exit code through cobra's RunE.
type exitError int

func (e exitError) Error() string { return fmt.Sprintf("exit %d", int(e)) }

func run(a *args, infile string) error {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	if a.verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.WarnLevel)
	}

	if a.m32 && a.m64 {
		fmt.Fprintln(os.Stderr, "cc1: -m32 and -m64 are mutually exclusive")
		return exitError(exitUsage)
	}
	target := cc1.TargetI386
	if a.m64 {
		target = cc1.TargetX8664
	}

	phase := cc1.PhaseIR
	switch {
	case a.lexOnly:
		phase = cc1.PhaseLex
	case a.parseTU:
		phase = cc1.PhaseParse
	case a.sem:
		phase = cc1.PhaseSema
	}

	src, err := os.ReadFile(infile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cc1: cannot read %s: %v\n", infile, err)
		return exitError(exitIO)
	}

	log.WithFields(logrus.Fields{
		"file":   infile,
		"target": target.Name,
		"bytes":  len(src),
	}).Debug("compiling")

	result := cc1.Compile(infile, src, cc1.Options{Target: target, Phase: phase})
	result.Diags.Report(os.Stderr)

	log.WithFields(logrus.Fields{
		"tokens": len(result.Tokens),
		"errors": result.Diags.ErrorCount(),
	}).Debug("front end done")

	if !result.OK() {
		return exitError(exitDiag)
	}

	if a.dumpAST && result.TU != nil {
		fmt.Println(cc1.PrettyString(result.TU))
	}
	if a.dumpSym && result.TU != nil {
		dumpSymbols(result.TU)
	}

	if phase != cc1.PhaseIR {
		return nil
	}

	log.WithField("bytes", len(result.IR)).Debug("IR emitted")

	out := a.output
	if out == "" {
		base := filepath.Base(infile)
		out = strings.TrimSuffix(base, filepath.Ext(base)) + ".ll"
	}
	if out == "-" {
		fmt.Print(result.IR)
		return nil
	}
	if err := os.WriteFile(out, []byte(result.IR), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "cc1: cannot write %s: %v\n", out, err)
		return exitError(exitIO)
	}
	return nil
}

func dumpSymbols(tu *cc1.TranslationUnit) {
	for _, d := range tu.Decls {
		if d.Sym == nil {
			continue
		}
		fmt.Printf("%s\t%s\n", d.Sym.Name, d.Sym.Type)
	}
}
