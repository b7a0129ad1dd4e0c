// solvault - conversation streaming with a reusable solution vault.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/solvault/internal/chat"
	"github.com/jeranaias/solvault/internal/cloud"
	"github.com/jeranaias/solvault/internal/config"
	"github.com/jeranaias/solvault/internal/ollama"
	"github.com/jeranaias/solvault/internal/provider"
	"github.com/jeranaias/solvault/internal/router"
	"github.com/jeranaias/solvault/internal/solution"
	"github.com/jeranaias/solvault/internal/storage"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "ask":
		err = handleAsk(args)
	case "match":
		err = handleMatch(args)
	case "save":
		err = handleSave(args)
	case "solutions":
		err = handleSolutions(args)
	case "status":
		err = handleStatus(args)
	case "version":
		fmt.Printf("solvault %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`solvault - conversation streaming with a reusable solution vault

Usage:
  solvault ask [-c conversation] <question>   stream an answer, checking the vault first
  solvault match <question>                   check the vault without asking the model
  solvault save -c <conversation>             extract and commit the last exchange
  solvault solutions [list|show|delete]       manage the vault
  solvault status                             check provider liveness
  solvault version                            print version`)
}

// =============================================================================
// APPLICATION WIRING
// =============================================================================

// app bundles the wired collaborators behind the orchestration core.
type app struct {
	settings      *config.Settings
	conversations *storage.ConversationStore
	vault         *storage.SolutionStore
	broker        *chat.Broker
	registry      *chat.Registry
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	settings := config.NewSettings(cfg)

	conversations, err := storage.NewConversationStore(cfg.Storage.ConversationsDir)
	if err != nil {
		return nil, err
	}
	vault, err := storage.OpenSolutionStore(cfg.Storage.SolutionsPath)
	if err != nil {
		return nil, err
	}

	broker := chat.NewBroker()
	registry := chat.NewRegistry(broker, selectProvider(settings), saveMessage(conversations))

	return &app{
		settings:      settings,
		conversations: conversations,
		vault:         vault,
		broker:        broker,
		registry:      registry,
	}, nil
}

func (a *app) close() {
	a.vault.Close()
}

// selectProvider adapts settings into the registry's provider selector.
func selectProvider(settings *config.Settings) chat.SelectFunc {
	ollamaClient := ollama.NewClient()
	cloudClient := cloud.NewClient()

	return func(vision bool) (provider.Client, provider.Options) {
		name, opts := settings.ChatProvider(vision)
		if name == config.ProviderCloud {
			return cloudClient, opts
		}
		return ollamaClient, opts
	}
}

// saveMessage adapts the conversation store into the worker's persistence
// callback.
func saveMessage(store *storage.ConversationStore) chat.SaveFunc {
	return func(conversationID, role, content string) (chat.PersistedMessage, error) {
		msg, err := store.AppendMessage(conversationID, role, content)
		if err != nil {
			return chat.PersistedMessage{}, err
		}
		return chat.PersistedMessage{
			ID:        msg.ID,
			Role:      msg.Role,
			Content:   msg.Content,
			CreatedAt: msg.CreatedAt,
		}, nil
	}
}

func clientFor(name string) provider.Client {
	if name == config.ProviderCloud {
		return cloud.NewClient()
	}
	return ollama.NewClient()
}

// =============================================================================
// ASK
// =============================================================================

func handleAsk(args []string) error {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	convID := fs.String("c", "", "conversation ID (new conversation when empty)")
	noRouter := fs.Bool("no-router", false, "skip the solution vault check")
	fs.Parse(args)

	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		return fmt.Errorf("usage: solvault ask [-c conversation] <question>")
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	cfg := a.settings.Current()

	// Consult the vault before spending an inference call.
	if cfg.Router.Enabled && !*noRouter {
		if answered, err := a.tryVaultMatch(question, cfg.Router.Threshold); err == nil && answered {
			return nil
		}
	}

	if *convID == "" {
		*convID = uuid.NewString()
		fmt.Printf("conversation: %s\n", *convID)
	}

	userMsg, err := a.conversations.AppendMessage(*convID, provider.RoleUser, question)
	if err != nil {
		return err
	}

	// Replay the full history so the model sees prior exchanges.
	conv, err := a.conversations.Load(*convID)
	if err != nil {
		return err
	}
	var messages []provider.Message
	for _, m := range conv.Messages {
		messages = append(messages, provider.Message{ID: m.ID, Role: m.Role, Content: provider.Content{Text: m.Content}})
	}

	events, cancel := a.broker.Subscribe(*convID)
	defer cancel()

	if _, err := a.registry.Start(*convID, messages, userMsg.ID); err != nil {
		return err
	}

	return renderStream(events)
}

// renderStream prints chunk deltas as they arrive. Events carry cumulative
// buffers; the printed prefix length tracks what is already on screen.
func renderStream(events <-chan chat.Event) error {
	printed := 0
	for ev := range events {
		switch ev.Type {
		case chat.EventChunk:
			if len(ev.Content) > printed {
				fmt.Print(ev.Content[printed:])
				printed = len(ev.Content)
			}
		case chat.EventCompleted:
			fmt.Println()
			return nil
		case chat.EventFailed:
			fmt.Println()
			return fmt.Errorf("%s", ev.Err)
		}
	}
	return nil
}

// tryVaultMatch reports whether a saved solution answered the question.
func (a *app) tryVaultMatch(question string, threshold float64) (bool, error) {
	stored, err := a.vault.List()
	if err != nil || len(stored) == 0 {
		return false, err
	}

	pool := make([]router.Solution, 0, len(stored))
	byID := make(map[string]storage.StoredSolution, len(stored))
	for _, s := range stored {
		pool = append(pool, router.Solution{
			ID:          s.ID,
			Title:       s.Title,
			Topics:      s.Topics,
			Difficulty:  s.Difficulty,
			Query:       s.Query,
			Description: s.Description,
		})
		byID[s.ID] = s
	}

	name, opts := a.settings.RouterProvider()
	r := router.NewRouter(clientFor(name), opts, true)

	ctx, cancelCtx := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelCtx()

	result, err := r.FindMatch(ctx, question, pool, threshold)
	if err != nil {
		// A router failure never blocks the question; fall through to the
		// model.
		return false, nil
	}

	if result.Matched && !result.Accepted {
		fmt.Printf("(vault: closest match %q at confidence %.2f, below threshold)\n", byID[result.SolutionID].Title, result.Confidence)
	}
	if !result.Accepted {
		return false, nil
	}

	sol := byID[result.SolutionID]
	fmt.Printf("(vault match: %q, confidence %.2f)\n\n%s\n", sol.Title, result.Confidence, sol.Answer)
	return true, nil
}

// =============================================================================
// MATCH
// =============================================================================

func handleMatch(args []string) error {
	fs := flag.NewFlagSet("match", flag.ExitOnError)
	fs.Parse(args)

	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		return fmt.Errorf("usage: solvault match <question>")
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	stored, err := a.vault.List()
	if err != nil {
		return err
	}

	pool := make([]router.Solution, 0, len(stored))
	for _, s := range stored {
		pool = append(pool, router.Solution{
			ID: s.ID, Title: s.Title, Topics: s.Topics,
			Difficulty: s.Difficulty, Query: s.Query, Description: s.Description,
		})
	}

	name, opts := a.settings.RouterProvider()
	r := router.NewRouter(clientFor(name), opts, true)

	ctx, cancelCtx := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelCtx()

	result, err := r.FindMatch(ctx, question, pool, a.settings.Current().Router.Threshold)
	if err != nil {
		return err
	}

	if !result.Matched {
		fmt.Println("no match")
		return nil
	}
	status := "accepted"
	if !result.Accepted {
		status = "below threshold"
	}
	fmt.Printf("match: %s (confidence %.2f, %s)\nreasoning: %s\n", result.SolutionID, result.Confidence, status, result.Reasoning)
	return nil
}

// =============================================================================
// SAVE
// =============================================================================

func handleSave(args []string) error {
	fs := flag.NewFlagSet("save", flag.ExitOnError)
	convID := fs.String("c", "", "conversation to save the last exchange from")
	fs.Parse(args)

	if *convID == "" {
		return fmt.Errorf("usage: solvault save -c <conversation>")
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	conv, err := a.conversations.Load(*convID)
	if err != nil {
		return err
	}

	question, answer, ok := lastExchange(conv)
	if !ok {
		return fmt.Errorf("conversation %s has no completed exchange", *convID)
	}

	candidate := solution.Package(question, answer)

	name, opts := a.settings.ExtractionProvider()
	extractor := solution.NewExtractor(clientFor(name), opts)

	ctx, cancelCtx := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancelCtx()

	meta, err := extractor.Extract(ctx, candidate)
	if err != nil {
		return err
	}
	meta.Apply(&candidate)

	id, err := a.vault.Save(candidate)
	if err != nil {
		return err
	}

	fmt.Printf("saved solution %s: %q [%s]\n", id, candidate.Title, candidate.Difficulty)
	return nil
}

// lastExchange finds the final user/assistant pair of a conversation.
func lastExchange(conv *storage.StoredConversation) (question, answer string, ok bool) {
	for i := len(conv.Messages) - 1; i > 0; i-- {
		if conv.Messages[i].Role == provider.RoleAssistant && conv.Messages[i-1].Role == provider.RoleUser {
			return conv.Messages[i-1].Content, conv.Messages[i].Content, true
		}
	}
	return "", "", false
}

// =============================================================================
// SOLUTIONS
// =============================================================================

func handleSolutions(args []string) error {
	sub := "list"
	if len(args) > 0 {
		sub = args[0]
		args = args[1:]
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	switch sub {
	case "list":
		solutions, err := a.vault.List()
		if err != nil {
			return err
		}
		if len(solutions) == 0 {
			fmt.Println("vault is empty")
			return nil
		}
		for _, s := range solutions {
			fmt.Printf("%s  %-40q  %s  %s\n", s.ID, s.Title, s.Difficulty, strings.Join(s.Topics, ","))
		}
		return nil

	case "show":
		if len(args) != 1 {
			return fmt.Errorf("usage: solvault solutions show <id>")
		}
		s, err := a.vault.Get(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("title: %s\ndifficulty: %s\ntopics: %s\nlanguages: %s\n\nquestion:\n%s\n\nanswer:\n%s\n",
			s.Title, s.Difficulty, strings.Join(s.Topics, ", "), strings.Join(s.Languages, ", "), s.Query, s.Answer)
		return nil

	case "delete":
		if len(args) != 1 {
			return fmt.Errorf("usage: solvault solutions delete <id>")
		}
		if err := a.vault.Delete(args[0]); err != nil {
			return err
		}
		fmt.Println("deleted")
		return nil

	default:
		return fmt.Errorf("unknown solutions subcommand: %s", sub)
	}
}

// =============================================================================
// STATUS
// =============================================================================

func handleStatus(args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancelCtx := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelCtx()

	for _, name := range []string{config.ProviderOllama, config.ProviderCloud} {
		opts := a.settings.OptionsFor(name, "")
		identity, err := clientFor(name).CheckLiveness(ctx, opts)
		if err != nil {
			fmt.Printf("%-8s unavailable: %v\n", name, err)
			continue
		}
		fmt.Printf("%-8s %s\n", name, identity)
	}
	return nil
}
