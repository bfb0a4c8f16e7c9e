package mutate

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/cerberus-code/cerberus/internal/build"
	"github.com/cerberus-code/cerberus/internal/cerrors"
	"github.com/cerberus-code/cerberus/internal/parse"
	"github.com/cerberus-code/cerberus/internal/scanner"
	"github.com/cerberus-code/cerberus/internal/store"
	"github.com/cerberus-code/cerberus/pkg/cerberus/model"
)

// Config configures an Engine.
type Config struct {
	RootDir string
	Store   *store.Store
	// Builder triggers the incremental index refresh (step 6 of the
	// pipeline) after a successful write.
	Builder *build.Builder

	// BackupDir defaults to <RootDir>/.cerberus/backups.
	BackupDir string
	// LedgerPath defaults to <RootDir>/.cerberus/ledger.db.
	LedgerPath string
}

// Engine runs the Mutation Engine pipeline: locate, reformat, splice,
// validate, atomic write + backup, ledger, index refresh.
type Engine struct {
	cfg       Config
	ledger    *Ledger
	astParser *parse.ASTParser
	registry  *parse.LanguageRegistry
}

// New builds an Engine, opening its ledger database.
func New(cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("mutate: store is required")
	}
	if cfg.BackupDir == "" {
		cfg.BackupDir = filepath.Join(cfg.RootDir, ".cerberus", "backups")
	}
	if cfg.LedgerPath == "" {
		cfg.LedgerPath = filepath.Join(cfg.RootDir, ".cerberus", "ledger.db")
	}

	ledger, err := OpenLedger(cfg.LedgerPath)
	if err != nil {
		return nil, err
	}

	registry := parse.DefaultRegistry()
	return &Engine{
		cfg:       cfg,
		ledger:    ledger,
		astParser: parse.NewASTParserWithRegistry(registry),
		registry:  registry,
	}, nil
}

// Close releases the engine's ledger and parser.
func (e *Engine) Close() error {
	e.astParser.Close()
	return e.ledger.Close()
}

// Edit replaces target's source span with newCode and refreshes the
// index for the changed file.
func (e *Engine) Edit(ctx context.Context, target Target, newCode string, opts Options) (*Result, error) {
	return e.mutate(ctx, model.OpEdit, target, newCode, opts)
}

// Delete removes target's source span (plus a trailing blank line, if
// any) and refreshes the index for the changed file.
func (e *Engine) Delete(ctx context.Context, target Target, opts Options) (*Result, error) {
	return e.mutate(ctx, model.OpDelete, target, "", opts)
}

func (e *Engine) mutate(ctx context.Context, op model.MutationOp, target Target, newCode string, opts Options) (*Result, error) {
	risk, err := e.riskGate(ctx, target.Symbol)
	if err != nil {
		return nil, err
	}
	if risk == RiskHigh && !opts.Force {
		return nil, cerrors.RiskGateBlocked(target.File, string(risk))
	}

	loc, err := e.locate(ctx, target)
	if err != nil {
		return nil, err
	}

	var style *indentStyle
	if op == model.OpEdit && opts.PreserveIndentation {
		lines := strings.Split(normalizeLineEndings(string(loc.content)), "\n")
		s := detectIndentStyle(lines)
		style = &s
	}

	result := splice(loc, newCode, style)

	if opts.RunSyntaxCheck {
		language := scanner.DetectLanguage(target.File)
		if err := validateSyntax(ctx, e.astParser, e.registry, target.File, language, result.newContent); err != nil {
			return nil, err
		}
	}

	if opts.DryRun {
		return &Result{
			File:                target.File,
			Symbol:              target.Symbol,
			LinesChanged:        result.linesChanged,
			LinesTotal:          result.linesTotal,
			TokensSavedEstimate: tokensSavedEstimate(result.linesTotal, result.linesChanged),
			Risk:                risk,
			DryRun:              true,
		}, nil
	}

	var backupPath string
	if opts.Backup {
		backupPath, err = backup(e.cfg.BackupDir, target.File, loc.content)
		if err != nil {
			return nil, err
		}
	}

	if err := atomicWrite(loc.file.absPath, result.newContent); err != nil {
		return nil, err
	}

	entry := model.MutationLedgerEntry{
		Timestamp:           time.Now().UTC(),
		Operation:           op,
		File:                target.File,
		Symbol:              target.Symbol,
		LinesChanged:        result.linesChanged,
		LinesTotal:          result.linesTotal,
		TokensSavedEstimate: tokensSavedEstimate(result.linesTotal, result.linesChanged),
		BackupPath:          backupPath,
	}
	if err := e.ledger.Append(ctx, entry); err != nil {
		return nil, err
	}

	if e.cfg.Builder != nil {
		if err := e.cfg.Builder.IndexFile(ctx, target.File); err != nil {
			return nil, cerrors.StoreWriteError("mutation applied but index refresh failed", err)
		}
	}

	return &Result{
		File:                target.File,
		Symbol:              target.Symbol,
		LinesChanged:        result.linesChanged,
		LinesTotal:          result.linesTotal,
		TokensSavedEstimate: entry.TokensSavedEstimate,
		BackupPath:          backupPath,
		Risk:                risk,
	}, nil
}

