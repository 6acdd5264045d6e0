// Command execution for CLI commands.
//
// Information Hiding:
// - Storage and registry setup hidden
// - Model resolution delegated to the service
// - Output formatting hidden

package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/richinex/booster/comparison"
	"github.com/richinex/booster/config"
	"github.com/richinex/booster/connection"
	"github.com/richinex/booster/llm"
	"github.com/richinex/booster/modelconfig"
	"github.com/richinex/booster/server"
	"github.com/richinex/booster/service"
	"github.com/richinex/booster/storage"
)

// App holds what every command needs.
type App struct {
	Settings config.Settings
	Service  *service.Service
	Log      zerolog.Logger
	Out      io.Writer
	In       io.Reader

	kv storage.KVStore
}

// Open builds an App backed by the sqlite database in settings.
func Open(settings config.Settings, log zerolog.Logger) (*App, error) {
	kv, err := storage.OpenSqlite(settings.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	app, err := NewApp(settings, kv, log)
	if err != nil {
		kv.Close()
		return nil, err
	}
	return app, nil
}

// NewApp builds an App over kv. The App takes ownership of kv.
func NewApp(settings config.Settings, kv storage.KVStore, log zerolog.Logger) (*App, error) {
	reg, err := settings.Registry()
	if err != nil {
		return nil, err
	}
	svc := service.New(kv, reg, log,
		service.WithTemperature(settings.LLM.Temperature),
		service.WithTimeout(settings.LLM.Timeout),
	)
	return &App{
		Settings: settings,
		Service:  svc,
		Log:      log,
		Out:      os.Stdout,
		In:       os.Stdin,
		kv:       kv,
	}, nil
}

// Close releases the store.
func (a *App) Close() error {
	return a.kv.Close()
}

// ListProviders prints the provider registry.
func (a *App) ListProviders() {
	rows := [][]string{{"ID", "NAME", "BASE URL", "DEFAULT MODEL", "AUTH"}}
	for _, spec := range a.Service.Registry().List() {
		rows = append(rows, []string{spec.ID, spec.Name, spec.BaseURL, spec.DefaultModel, string(spec.Auth.Type)})
	}
	a.printTable(rows)
}

// ListModels prints the model picker rows, masked.
func (a *App) ListModels(ctx context.Context) error {
	models, active, err := a.Service.Models(ctx)
	if err != nil {
		return err
	}

	rows := [][]string{{"", "ID", "NAME", "MODEL", "KIND", "ENABLED", "API KEY"}}
	for _, m := range models {
		marker := ""
		if m.ID == active {
			marker = "*"
		}
		kind := "custom"
		if m.IsStandard {
			kind = "standard"
		}
		enabled := "no"
		if m.IsEnabled {
			enabled = "yes"
		}
		rows = append(rows, []string{marker, m.ID, m.Name, m.Model, kind, enabled, m.APIKey})
	}
	a.printTable(rows)
	return nil
}

func (a *App) printTable(rows [][]string) {
	widths := columnWidths(rows)
	for i, r := range rows {
		line := row(widths, r...)
		switch {
		case i == 0:
			line = headerStyle.Render(line)
		case r[0] == "*":
			line = activeStyle.Render(line)
		}
		fmt.Fprintln(a.Out, line)
	}
}

// SetModel saves a standard slot. An empty key is read from the
// provider's environment variable.
func (a *App) SetModel(ctx context.Context, modelType string, form modelconfig.ModelConfig) error {
	if form.APIKey == "" {
		if key, err := config.APIKeyFor(modelType); err == nil {
			form.APIKey = key
		}
	}
	saved, err := a.Service.SaveStandardModel(ctx, modelType, form)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "%s %s (%s, %s)\n", successStyle.Render("saved"), saved.ID, saved.Model, modelconfig.MaskAPIKey(saved.APIKey))
	return nil
}

// AddCustom stores a custom interface and prints its id.
func (a *App) AddCustom(ctx context.Context, form modelconfig.CustomInterface) error {
	saved, err := a.Service.AddCustomInterface(ctx, form)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "%s %s %s\n", successStyle.Render("added"), saved.ID, dimStyle.Render(saved.Name))
	return nil
}

// RemoveCustom deletes a custom interface.
func (a *App) RemoveCustom(ctx context.Context, id string) error {
	if err := a.Service.DeleteCustomInterface(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "%s %s\n", successStyle.Render("removed"), id)
	return nil
}

// UseModel sets the active model.
func (a *App) UseModel(ctx context.Context, id string) error {
	if err := a.Service.SetActiveModel(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "%s %s\n", successStyle.Render("active model"), id)
	return nil
}

// TestModel probes a stored model and reports the classified result. With
// retry set, transient failures are retried with backoff. A failed probe is
// reported, not returned.
func (a *App) TestModel(ctx context.Context, id string, retry bool) error {
	opts := []connection.Option{connection.WithLogger(a.Log)}
	if retry {
		opts = append(opts, connection.WithRetry(llm.DefaultRetryPolicy))
	}
	res, err := a.Service.TestModelWith(ctx, id, connection.NewTester(a.Service.Registry(), opts...))
	if err != nil {
		return err
	}
	if res.Success {
		fmt.Fprintln(a.Out, successStyle.Render("connection ok"))
		return nil
	}
	fmt.Fprintf(a.Out, "%s %s\n", errorStyle.Render("connection failed ["+string(res.ErrorType)+"]"), res.OriginalError)
	return nil
}

// FetchModels prints a stored model's catalog.
func (a *App) FetchModels(ctx context.Context, id string) error {
	opts, err := a.Service.FetchModels(ctx, id, nil)
	if err != nil {
		kind, msg := connection.Classify(err)
		return fmt.Errorf("%s: %s", kind, msg)
	}
	if len(opts) == 0 {
		fmt.Fprintln(a.Out, dimStyle.Render("no models listed"))
		return nil
	}
	for _, o := range opts {
		if o.Name != o.ID {
			fmt.Fprintf(a.Out, "%s  %s\n", o.ID, dimStyle.Render(o.Name))
			continue
		}
		fmt.Fprintln(a.Out, o.ID)
	}
	return nil
}

// ChatOptions configure Chat.
type ChatOptions struct {
	ModelID       string
	SystemMessage string
	Stream        bool
}

// Chat sends one message, or reads messages from In until "exit" when
// message is empty, keeping the conversation as history.
func (a *App) Chat(ctx context.Context, message string, opts ChatOptions) error {
	if message != "" {
		_, err := a.send(ctx, message, nil, opts)
		return err
	}

	fmt.Fprintln(a.Out, dimStyle.Render("Type 'exit' to quit."))
	var history []llm.ChatMessage
	scanner := bufio.NewScanner(a.In)
	for {
		fmt.Fprint(a.Out, "> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}

		reply, err := a.send(ctx, input, history, opts)
		if err != nil {
			fmt.Fprintf(a.Out, "%s\n\n", errorStyle.Render("Error: "+err.Error()))
			continue
		}
		history = append(history, llm.UserMessage(input), llm.AssistantMessage(reply))
	}
	return scanner.Err()
}

func (a *App) send(ctx context.Context, message string, history []llm.ChatMessage, opts ChatOptions) (string, error) {
	req := service.Request{
		ModelID:       opts.ModelID,
		UserMessage:   message,
		SystemMessage: opts.SystemMessage,
		History:       history,
	}
	var h llm.StreamHandler
	if opts.Stream {
		h = llm.StreamFuncs{
			Data:     func(delta string) { fmt.Fprint(a.Out, delta) },
			Complete: func() { fmt.Fprintln(a.Out) },
		}
	}
	reply, err := a.Service.CallLLM(ctx, req, opts.Stream, h)
	if err != nil {
		return "", err
	}
	if !opts.Stream {
		fmt.Fprintln(a.Out, reply)
	}
	return reply, nil
}

// sideBuffer collects one comparison side; both sides are printed once
// the run finishes.
type sideBuffer struct {
	mu   sync.Mutex
	text strings.Builder
	err  error
}

func (b *sideBuffer) OnData(delta string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.text.WriteString(delta)
}

func (b *sideBuffer) OnError(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.err = err
}

func (b *sideBuffer) OnComplete() {}

// Compare runs message through both prompts and prints both answers.
func (a *App) Compare(ctx context.Context, modelID, message, originalPrompt, optimizedPrompt string) error {
	original, optimized := &sideBuffer{}, &sideBuffer{}
	err := a.Service.Compare(ctx, modelID, message,
		comparison.Side{SystemMessage: originalPrompt, Handler: original},
		comparison.Side{SystemMessage: optimizedPrompt, Handler: optimized},
	)
	if err != nil {
		return err
	}
	a.printSide("Original prompt", original)
	a.printSide("Optimized prompt", optimized)
	return nil
}

func (a *App) printSide(title string, b *sideBuffer) {
	fmt.Fprintln(a.Out, sectionStyle.Render(title))
	if b.err != nil {
		kind, msg := connection.Classify(b.err)
		fmt.Fprintf(a.Out, "%s\n\n", errorStyle.Render("["+string(kind)+"] "+msg))
		return
	}
	fmt.Fprintf(a.Out, "%s\n\n", b.text.String())
}

// Serve runs the HTTP API until interrupted.
func (a *App) Serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(a.Settings.Server, a.Service, a.Log)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "%s listening on %s\n", headerStyle.Render("booster"), a.Settings.Server.Addr)
	return srv.Run(ctx)
}
