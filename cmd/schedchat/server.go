package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/schedchat/schedchat/internal/api"
	"github.com/schedchat/schedchat/internal/config"
	"github.com/schedchat/schedchat/internal/dialogue"
	"github.com/schedchat/schedchat/internal/nlu"
	"github.com/schedchat/schedchat/internal/ollama"
	"github.com/schedchat/schedchat/internal/reminder"
	"github.com/schedchat/schedchat/internal/storage"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the schedchat server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running schedchat server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show schedchat system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "schedchat.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "schedchat version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	// Refuse to double-start: probe the health endpoint before claiming the
	// PID file.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("schedchat is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("schedchat is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ollamaClient := ollama.New(cfg.Ollama.BaseURL)
	if err := ollama.EnsureReady(ctx, ollamaClient, cfg.Ollama.Model, os.Stderr); err != nil {
		return err
	}

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	gatewayTimeout, err := cfg.Dialogue.Timeout()
	if err != nil {
		return fmt.Errorf("invalid gateway timeout: %w", err)
	}
	gateway := nlu.NewGateway(ollamaClient, cfg.Ollama.Model, gatewayTimeout)
	executor := dialogue.NewExecutor(store)
	controller := dialogue.NewController(gateway, store, executor)

	topRouter := chi.NewRouter()
	topRouter.Mount("/", api.NewChatHandler(controller))
	if cfg.Server.APIToken != "" {
		topRouter.Mount("/users", api.NewAppHandler(api.AppDeps{
			Store: store,
			Token: cfg.Server.APIToken,
		}))
	} else {
		slog.Warn("no API token configured, management endpoints disabled")
	}

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: topRouter,
	}

	poll, err := cfg.Reminder.Poll()
	if err != nil {
		return fmt.Errorf("invalid reminder poll interval: %w", err)
	}
	worker := reminder.NewWorker(store, reminder.LogNotifier{}, poll)

	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Store: store,
		Turns: controller,
	})
	stdioSrv := server.NewStdioServer(mcpSrv)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "schedchat listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		worker.Run(gctx)
		return nil
	})

	g.Go(func() error {
		if err := stdioSrv.Listen(gctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
		return nil
	})
	slog.Info("MCP server started (stdio transport)")

	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("schedchat is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop schedchat (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to schedchat (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	ollamaResp, err := client.Get(cfg.Ollama.BaseURL + "/api/version")
	if err != nil {
		printStatus("Ollama", "not running")
	} else {
		ollamaResp.Body.Close()
		printStatus("Ollama", "running at %s", cfg.Ollama.BaseURL)
	}

	printStatus("Model", "%s", cfg.Ollama.Model)
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}
