package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hackdojo/hackdojo/internal/config"
	"github.com/hackdojo/hackdojo/internal/curriculum"
	"github.com/hackdojo/hackdojo/internal/devserver"
	"github.com/hackdojo/hackdojo/internal/llm"
	"github.com/hackdojo/hackdojo/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reference HackDojo backend for local development",
	Long: `Run an in-memory HackDojo backend. Accounts and progress are lost on exit.
Submitted code runs with the configured Python interpreter and is NOT sandboxed;
only run this on a machine you trust.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		addr := cfg.Server.Addr
		if a, _ := cmd.Flags().GetString("addr"); a != "" {
			addr = a
		}
		demo, _ := cmd.Flags().GetBool("demo")

		logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

		doc, err := loadCurriculum(cfg.Server.Curriculum)
		if err != nil {
			return err
		}

		srvCfg := devserver.Config{
			Secret:     []byte(cfg.Server.JWTSecret),
			TokenTTL:   cfg.Server.TokenTTL,
			Curriculum: doc,
			Executor:   devserver.PythonExecutor{Python: cfg.Server.Python, Timeout: cfg.Server.ExecTimeout},
			Logger:     logger,
			SeedDemo:   demo,
		}
		if cfg.Server.JWTSecret == "" {
			logger.Warn("server.jwt_secret is not set; tokens will not survive a restart")
		}

		ctx, stop := signal.NotifyContext(ctxOf(cmd), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if llmCfg, ok := llm.Resolve(); ok {
			var events store.EventRepo
			if dbPath, err := resolveDBPath(cmd, cfg.Store.Path); err == nil {
				if st, err := store.Open(dbPath); err == nil {
					defer st.Close()
					events = st.EventRepo()
				}
			}
			provider, err := llm.NewProvider(ctx, llmCfg, events)
			if err != nil {
				logger.Warn("LLM provider unavailable, Sensei will answer with hints", slog.Any("error", err))
			} else {
				srvCfg.Assistant = provider
				logger.Info("sensei model configured", slog.String("provider", llmCfg.Provider))
			}
		}

		srv, err := devserver.New(srvCfg)
		if err != nil {
			return fmt.Errorf("start server: %w", err)
		}
		if demo {
			logger.Info("demo accounts seeded",
				slog.Any("emails", []string{"student@hackdojo.dev", "parent@hackdojo.dev", "admin@hackdojo.dev"}),
				slog.String("password", devserver.DemoPassword))
		}
		return srv.Run(ctx, addr)
	},
}

func loadCurriculum(path string) (*curriculum.Document, error) {
	if path == "" {
		return curriculum.Default()
	}
	doc, err := curriculum.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load curriculum %s: %w", path, err)
	}
	return doc, nil
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
	serveCmd.Flags().Bool("demo", true, "Seed demo student, parent and admin accounts")
}
