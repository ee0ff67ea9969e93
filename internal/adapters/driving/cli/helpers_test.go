package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/filings-qa/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/filings-qa/internal/core/domain"
	"github.com/custodia-labs/filings-qa/internal/core/ports/driving"
	"github.com/custodia-labs/filings-qa/internal/core/services"
)

// fakePipeline implements driving.PipelineService.
type fakePipeline struct {
	RunFunc    func(ctx context.Context, stage domain.Stage, docIDs []string) (*driving.RunReport, error)
	StatusFunc func(ctx context.Context, docIDs []string, verify bool) ([]driving.DocumentStatus, error)

	runs []fakeRun
}

type fakeRun struct {
	Stage  domain.Stage
	DocIDs []string
}

func (f *fakePipeline) Run(ctx context.Context, stage domain.Stage, docIDs []string) (*driving.RunReport, error) {
	f.runs = append(f.runs, fakeRun{Stage: stage, DocIDs: docIDs})
	if f.RunFunc != nil {
		return f.RunFunc(ctx, stage, docIDs)
	}
	report := &driving.RunReport{RunID: "run-1", Stage: stage}
	for _, id := range docIDs {
		report.Documents = append(report.Documents, driving.DocumentResult{DocID: id, Chunks: 3})
	}
	return report, nil
}

func (f *fakePipeline) Status(ctx context.Context, docIDs []string, verify bool) ([]driving.DocumentStatus, error) {
	if f.StatusFunc != nil {
		return f.StatusFunc(ctx, docIDs, verify)
	}
	return nil, nil
}

// fakeAnswers implements driving.AnswerService.
type fakeAnswers struct {
	AnswerFunc func(ctx context.Context, question string, opts domain.AskOptions) (*domain.Answer, error)
	SearchFunc func(ctx context.Context, query string, opts domain.AskOptions) ([]domain.SearchHit, error)

	lastOpts domain.AskOptions
}

func (f *fakeAnswers) Answer(ctx context.Context, question string, opts domain.AskOptions) (*domain.Answer, error) {
	f.lastOpts = opts
	if f.AnswerFunc != nil {
		return f.AnswerFunc(ctx, question, opts)
	}
	return &domain.Answer{Question: question, State: domain.QAAnswered}, nil
}

func (f *fakeAnswers) Search(ctx context.Context, query string, opts domain.AskOptions) ([]domain.SearchHit, error) {
	f.lastOpts = opts
	if f.SearchFunc != nil {
		return f.SearchFunc(ctx, query, opts)
	}
	return nil, nil
}

// fakeEval implements driving.EvalService.
type fakeEval struct {
	EvaluateFunc func(ctx context.Context, docIDs []string, types []string, topK int) ([]domain.EvalResult, error)
}

func (f *fakeEval) Evaluate(ctx context.Context, docIDs []string, types []string, topK int) ([]domain.EvalResult, error) {
	return f.EvaluateFunc(ctx, docIDs, types, topK)
}

func testEntries() []domain.DocumentEntry {
	return []domain.DocumentEntry{
		{ID: "acme-fy23", Company: "Acme", FiscalPeriod: "FY2023", SourcePath: "acme.txt",
			DocType: domain.DocTypeFiling, Format: domain.FormatPlaintext},
		{ID: "acme-q2", Company: "Acme", FiscalPeriod: "Q2 2024", SourcePath: "acme-q2.txt",
			DocType: domain.DocTypeTranscript, Format: domain.FormatPlaintext},
		{ID: "beta-fy23", Company: "Beta", FiscalPeriod: "FY2023", SourcePath: "beta.docx",
			DocType: domain.DocTypeFiling, Format: domain.FormatDocx},
	}
}

// testApp builds an App around fakes and installs it as newApp for the
// duration of the test. The returned options pointer records the last
// request.
func testApp(t *testing.T) (*App, *appOptions) {
	t.Helper()

	registry, err := services.NewRegistry(testEntries())
	require.NoError(t, err)

	app := &App{
		Config:   domain.DefaultConfig(),
		Registry: registry,
		Pipeline: &fakePipeline{},
		Answers:  &fakeAnswers{},
		Eval:     &fakeEval{},
		Chunks:   memory.NewChunkFileStore(),
	}

	var got appOptions
	original := newApp
	newApp = func(opts appOptions) (*App, error) {
		got = opts
		return app, nil
	}
	t.Cleanup(func() { newApp = original })
	return app, &got
}

// execute runs the root command with args and returns its output.
// Flag values are reset afterwards because cobra keeps them between runs.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		resetFlags(rootCmd)
	})

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}
