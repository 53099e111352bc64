package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"vectra/internal/config"
	"vectra/internal/engine"
	"vectra/internal/scheduler"
	"vectra/internal/server"
	"vectra/internal/snapshot"
	"vectra/internal/version"
)

var (
	cfgFile string
	port    int
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vectra",
	Short: "Vectra - vector storage and retrieval engine",
	Long: `Vectra is a lightweight vector database: libraries of documents and
chunks with per-library ANN indexes (flat, ivf), filtered k-nearest-neighbor
search and snapshot persistence, served over a REST API.`,
	Version: version.Full(),
}

// serverCmd starts the HTTP server.
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the Vectra API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

// inspectCmd prints the contents summary of a snapshot directory.
var inspectCmd = &cobra.Command{
	Use:   "inspect [directory]",
	Short: "Summarize the snapshot in a data directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "./data"
		if len(args) == 1 {
			dir = args[0]
		}
		return runInspect(dir)
	},
}

// versionCmd prints version and build information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("Vectra %s\n", version.Full())
		info := version.GetBuildInfo()
		if info.GitCommit != "unknown" {
			fmt.Printf("Git commit: %s\n", info.GitCommit)
		}
		if info.BuildDate != "unknown" {
			fmt.Printf("Build date: %s\n", info.BuildDate)
		}
		fmt.Printf("Go version: %s\n", info.GoVersion)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (JSON or YAML)")
	serverCmd.Flags().IntVarP(&port, "port", "p", 0, "override the configured port")
	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	_ = godotenv.Load()
	if cfgFile == "" {
		cfgFile = os.Getenv("VECTRA_CONFIG")
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServer() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if port != 0 {
		cfg.Port = port
	}

	var backend snapshot.Backend
	if cfg.Persistence.Enabled {
		backend, err = snapshot.Open(cfg.Persistence.Backend, cfg.Persistence.Directory)
		if err != nil {
			return err
		}
	}

	eng := engine.New(engine.Options{
		Backend:           backend,
		AutosaveThreshold: cfg.Persistence.AutosaveThreshold,
	})
	defer eng.Close()

	if cfg.Persistence.Enabled {
		stats, restored, err := eng.RestoreOnStart()
		if err != nil {
			return fmt.Errorf("restore on start: %w", err)
		}
		if restored {
			log.Printf("restored snapshot: %d libraries, %d documents, %d chunks",
				stats.Libraries, stats.Documents, stats.Chunks)
		} else {
			log.Printf("no snapshot found in %s, starting empty", cfg.Persistence.Directory)
		}
	}

	var sched *scheduler.Scheduler
	if cfg.Persistence.Enabled && cfg.Persistence.Schedule != "" {
		sched, err = scheduler.New(cfg.Persistence.Schedule, func() error {
			_, err := eng.SaveSnapshot()
			return err
		})
		if err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
		log.Printf("snapshot schedule active: %s", cfg.Persistence.Schedule)
	}

	srv := server.New(cfg.Addr(), eng)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Vectra %s listening on %s", version.Full(), cfg.Addr())
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Printf("received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}

	if cfg.Persistence.Enabled {
		if _, err := eng.SaveSnapshot(); err != nil {
			log.Printf("final snapshot failed: %v", err)
		} else {
			log.Printf("final snapshot written")
		}
	}
	return nil
}

func runInspect(dir string) error {
	// Probe the file backend first, then sqlite, without creating
	// anything in the inspected directory.
	candidates := []struct{ name, artifact string }{
		{snapshot.BackendFile, snapshot.SnapshotFileName},
		{snapshot.BackendSQLite, snapshot.SnapshotDBName},
	}
	for _, c := range candidates {
		if _, err := os.Stat(filepath.Join(dir, c.artifact)); err != nil {
			continue
		}
		backend, err := snapshot.Open(c.name, dir)
		if err != nil {
			continue
		}
		state, err := backend.Load(context.Background())
		backend.Close()
		if err != nil {
			continue
		}
		fmt.Printf("Snapshot in %s (%s backend)\n", dir, c.name)
		fmt.Printf("  Format version: %d\n", state.Version)
		fmt.Printf("  Saved at:       %s\n", state.SavedAt.Format(time.RFC3339))
		fmt.Printf("  Libraries:      %d\n", len(state.Libraries))
		fmt.Printf("  Documents:      %d\n", len(state.Documents))
		fmt.Printf("  Chunks:         %d\n", len(state.Chunks))
		for _, lib := range state.Libraries {
			fmt.Printf("  - %s (%s, index=%s)\n", lib.Name, lib.ID, lib.IndexKind)
		}
		return nil
	}
	return fmt.Errorf("no snapshot found in %s", dir)
}
