// ABOUTME: Entry point for the qchat command line client
// ABOUTME: Thin collaborator driving the store, session and service packages

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"

	"github.com/quantumchat/qchat/internal/config"
	"github.com/quantumchat/qchat/internal/contacts"
	"github.com/quantumchat/qchat/internal/messaging"
	"github.com/quantumchat/qchat/internal/session"
	"github.com/quantumchat/qchat/internal/settings"
	"github.com/quantumchat/qchat/internal/store"
)

// version is overridden via -ldflags at release build time.
var version = "dev"

func usage() {
	fmt.Println("Usage: qchat <command> [args]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  init                          Write a default config file")
	fmt.Println("  signup <email> <password> <username>")
	fmt.Println("                                Create the device account")
	fmt.Println("  signin <email> <password>     Sign in to the stored account")
	fmt.Println("  signout                       Sign out (keeps the account)")
	fmt.Println("  whoami                        Show the current session")
	fmt.Println("  contacts add <name> <username>")
	fmt.Println("  contacts list")
	fmt.Println("  contacts verify <id>")
	fmt.Println("  contacts rm <id>")
	fmt.Println("  send <contact-id> <text>      Send a message")
	fmt.Println("  history <contact-id>          Show a conversation")
	fmt.Println("  settings [hybrid on|off] [device-verified on|off]")
	fmt.Println("  profile <username> [avatar]   Update the account profile")
	fmt.Println("  version                       Print the version")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "init":
		err = runInit()
	case "version":
		fmt.Println(version)
	case "signup", "signin", "signout", "whoami", "contacts", "send", "history", "settings", "profile":
		err = runWithApp(ctx, os.Args[1], os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

// app bundles the core components every subcommand needs.
type app struct {
	db       *store.DB
	sessions *session.Manager
	contacts *contacts.Service
	messages *messaging.Service
	settings *settings.Service
}

func runWithApp(ctx context.Context, command string, args []string) error {
	cfg := loadConfig()
	setupLogger(cfg.Logging)

	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	sessions := session.NewManager(db)
	if err := sessions.Initialize(ctx); err != nil {
		return err
	}

	a := &app{
		db:       db,
		sessions: sessions,
		contacts: contacts.NewService(db),
		messages: messaging.NewService(db),
		settings: settings.NewService(db, sessions),
	}

	switch command {
	case "signup":
		return a.runSignUp(ctx, args)
	case "signin":
		return a.runSignIn(ctx, args)
	case "signout":
		return a.runSignOut()
	case "whoami":
		return a.runWhoami()
	case "contacts":
		return a.runContacts(ctx, args)
	case "send":
		return a.runSend(ctx, args)
	case "history":
		return a.runHistory(ctx, args)
	case "settings":
		return a.runSettings(ctx, args)
	case "profile":
		return a.runProfile(ctx, args)
	}
	return fmt.Errorf("unknown command: %s", command)
}

// loadConfig reads the config file if present, falling back to defaults so
// first runs need no setup.
func loadConfig() *config.Config {
	path := config.Path()
	cfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return config.Default()
		}
		fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		return config.Default()
	}
	return cfg
}

func setupLogger(cfg config.LoggingConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func runInit() error {
	path := config.Path()
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	content := fmt.Sprintf(`database:
  path: %q

logging:
  level: info
  format: text
`, config.Default().Database.Path)

	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	color.Green("Wrote %s", path)
	return nil
}
