package cc1

// Phase selects how far the pipeline runs.
type Phase int

const (
	PhaseLex Phase = iota
	PhaseParse
	PhaseSema
	PhaseIR
)

// Options configures one compilation.
type Options struct {
	Target *Target
	Phase  Phase
}

// Result is everything a compilation produced up to the requested
// phase.  OK reports whether it is usable.
type Result struct {
	Tokens []Token
	TU     *TranslationUnit
	Syms   *SymTab
	IR     string
	Diags  *DiagBag
}

func (r *Result) OK() bool { return !r.Diags.HasErrors() }

// Compile runs source text through the pipeline: lexer, parser,
// semantic analysis, IR emission.  Each phase consumes the previous
// one's output; the first phase with errors is the last that runs.
func Compile(file string, src []byte, opts Options) *Result {
	if opts.Target == nil {
		opts.Target = TargetI386
	}
	r := &Result{Diags: &DiagBag{}}

	tokens, err := Lex(file, src, r.Diags)
	r.Tokens = tokens
	if err != nil || opts.Phase == PhaseLex {
		return r
	}

	r.TU = ParseTU(file, tokens, r.Diags)
	if r.Diags.HasErrors() || opts.Phase == PhaseParse {
		return r
	}

	r.Syms = Analyze(r.TU, opts.Target, r.Diags)
	if r.Diags.HasErrors() || opts.Phase == PhaseSema {
		return r
	}

	r.IR = GenIR(r.TU, opts.Target, r.Diags)
	if r.Diags.HasErrors() {
		r.IR = ""
	}
	return r
}
