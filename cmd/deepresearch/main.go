package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/wharfside/deepresearch/internal/agents"
	"github.com/wharfside/deepresearch/internal/config"
	"github.com/wharfside/deepresearch/internal/report"
	"github.com/wharfside/deepresearch/internal/research"
)

var (
	loadConfig = func() (config.Config, error) {
		if err := config.Validate(); err != nil {
			return config.Config{}, err
		}
		return config.Load(), nil
	}
	newRuntime = func(cfg config.Config) research.SessionRuntime {
		return agents.NewClient(agents.ClientConfig{
			Endpoint: cfg.ProjectEndpoint,
			APIKey:   cfg.ProjectAPIKey,
		})
	}
	notifyContext           = signal.NotifyContext
	input         io.Reader = os.Stdin
	output        io.Writer = os.Stdout
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := notifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	runtime := newRuntime(cfg)
	spec := agents.NewResearchAgentSpec(agents.ResearchSpecConfig{
		Model:              cfg.AgentModelDeployment,
		BingConnectionID:   cfg.BingConnectionID,
		ResearchModel:      cfg.ResearchModel,
		BrowserServerURL:   cfg.BrowserMCPServerURL,
		BrowserServerLabel: cfg.BrowserMCPServerLabel,
	})

	session, err := research.Open(ctx, runtime, spec, research.Options{
		PollInterval: cfg.PollInterval,
		MaxWait:      cfg.MaxWait,
	})
	if err != nil {
		return err
	}
	defer session.Close(context.Background())

	fmt.Fprintf(output, "Created agent, ID: %s\n", session.AgentID())
	fmt.Fprintf(output, "Created thread, ID: %s\n", session.ThreadID())

	// The thread is reused across turns so follow-up questions keep their
	// conversational context.
	scanner := bufio.NewScanner(input)
	for {
		fmt.Fprint(output, "\nEnter your research question (or 'quit' to exit): ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		switch strings.ToLower(text) {
		case "quit", "exit", "q":
			return nil
		}

		result, err := session.Run(ctx, text, func(progress string) {
			fmt.Fprintln(output, progress)
		}, nil)
		if err != nil {
			fmt.Fprintf(output, "Research failed: %v\n", err)
			continue
		}
		printResult(output, result)
		if ctx.Err() != nil {
			return nil
		}
	}
	return scanner.Err()
}

func printResult(w io.Writer, result research.TerminalResult) {
	switch result.Outcome {
	case research.OutcomeCompleted:
		assembled := report.Assemble(result.Message)
		if assembled.Answer == "" {
			fmt.Fprintln(w, "Run completed but produced no report content.")
			return
		}
		fmt.Fprintln(w, "\nFinal report:")
		fmt.Fprintln(w, assembled.Markdown())
	case research.OutcomeFailed:
		if result.ErrorDetail != "" {
			fmt.Fprintf(w, "Run failed: %s\n", result.ErrorDetail)
		} else {
			fmt.Fprintln(w, "Run failed.")
		}
	case research.OutcomeCancelled:
		fmt.Fprintln(w, "Run cancelled.")
	case research.OutcomeTimedOut:
		fmt.Fprintln(w, "Run timed out before completing.")
	case research.OutcomeRequiresAction:
		fmt.Fprintln(w, "Run is waiting on a required action; stopping this turn.")
	}
}
