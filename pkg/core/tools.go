package core

// Tool is the contract a pluggable transformation step implements. Each
// Tool value represents one prospective invocation, constructed by
// whatever assembles the initial queue (the embedding binary) with the
// arguments it needs; a Tool is consumed by exactly one Run call.
type Tool interface {
	// Name is snake_case and used as a directory-name prefix for this
	// tool's runs (e.g. "raw_source_to_cargo_llm").
	Name() string

	// MightWrite is the readiness query. It may be called any number of
	// times before Run and is never itself a commitment to execute.
	MightWrite(ctx MightWriteContext) MightWriteOutcome

	// Run performs the tool's one-shot work. It is called on a worker
	// goroutine with a fresh Edit scoped to (at least) the IDs this
	// tool most recently declared via MightWrite's Runnable outcome.
	// On a nil error the runner commits ctx.Edit; on non-nil, ctx.Edit
	// is discarded and the IR is left unchanged. Tools must not retain
	// ctx or anything reachable from it past Run's return.
	Run(ctx RunContext) error
}

// MightWriteContext is passed to MightWrite; it exposes the IR snapshot
// the readiness query should evaluate against.
type MightWriteContext struct {
	IR *HarvestIR
}

// MightWriteOutcome is the three-way result of a readiness query.
// Implemented as a closed set of unexported marker types so the only
// ways to produce one are the constructors below — mirroring the
// original's closed enum.
type MightWriteOutcome interface {
	mightWriteOutcome()
}

// OutcomeNotRunnable means this tool will never become runnable; the
// scheduler may discard it permanently. Among the shipped tools only
// projectkind returns it (when the loaded source has no Go files).
type OutcomeNotRunnable struct{}

func (OutcomeNotRunnable) mightWriteOutcome() {}

// OutcomeRunnable means the tool is ready now. IDs is the set of
// pre-existing IDs it may write if run; any ID it allocates itself
// during Run is implicitly permitted without pre-declaration.
type OutcomeRunnable struct {
	IDs map[ID]struct{}
}

func (OutcomeRunnable) mightWriteOutcome() {}

// OutcomeTryAgain means the tool's preconditions aren't met yet; the
// scheduler should re-offer it after some other tool commits.
type OutcomeTryAgain struct{}

func (OutcomeTryAgain) mightWriteOutcome() {}

// RunContext is passed to Run. Edit is the tool's write permit;
// Snapshot is the IR view captured at spawn time (matching the snapshot
// used for the MightWrite call that made this invocation runnable);
// Config is the process configuration; Reporter is this run's scoped
// diagnostics handle.
type RunContext struct {
	Edit     *Edit
	Snapshot *HarvestIR
	Config   *Config
	Reporter ToolReporter
}

// ToolReporter is the per-run diagnostics handle a Tool receives in its
// RunContext. It is a narrow interface (rather than the concrete
// *diagnostics.ToolReporter type) so pkg/core has no import on
// pkg/core/diagnostics itself, and tests can supply a stub. Tools log
// ambiently through this handle rather than a passed-in logger,
// following the teacher's arbor.ILogger field/method shape, since Go
// has no thread-local dispatch to install invisibly (see design notes).
type ToolReporter interface {
	// RunDir returns the filesystem path of this run's step workspace
	// (steps/{tool}_{run:03}/), already created.
	RunDir() string
	// Logf appends a line to this run's messages file (and, via the
	// collector's fan-out, the global messages file and stdout).
	Logf(format string, args ...any)
}
