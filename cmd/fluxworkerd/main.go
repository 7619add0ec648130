// Command fluxworkerd runs a worker agent: it registers with a master,
// heartbeats, and executes assigned actions.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/fluxrun/fluxrun/pkg/api/flowpb"
	"github.com/fluxrun/fluxrun/pkg/config"
	"github.com/fluxrun/fluxrun/pkg/datamanager"
	"github.com/fluxrun/fluxrun/pkg/log"
	"github.com/fluxrun/fluxrun/pkg/storage"
	"github.com/fluxrun/fluxrun/pkg/transfer"
	"github.com/fluxrun/fluxrun/pkg/worker"
)

var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "fluxworkerd",
	Short:   "fluxworkerd runs a worker agent against a master",
	Version: Version,
	RunE:    runWorker,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("fluxworkerd %s (%s)\n", Version, Commit))

	rootCmd.Flags().String("worker-id", "", "unique worker id (required)")
	rootCmd.Flags().String("master-addr", "localhost:7979", "master gRPC address")
	rootCmd.Flags().String("work-dir", "", "on-disk directory for FILE/BINDING_OBJECT data (required)")
	rootCmd.Flags().String("kind", "", "worker kind, matched against task implementation candidates")
	rootCmd.Flags().Int("cpus", 1, "CPUs this worker offers")
	rootCmd.Flags().Int("memory-mb", 1024, "memory in MB this worker offers")
	rootCmd.Flags().String("storage-config", "", "PSCO storage backend config path (empty disables PSCO)")
	rootCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.Flags().Bool("log-json", false, "emit logs as JSON")

	_ = rootCmd.MarkFlagRequired("worker-id")
	_ = rootCmd.MarkFlagRequired("work-dir")
}

func runWorker(cmd *cobra.Command, args []string) error {
	logLevel, _ := cmd.Flags().GetString("log-level")
	logJSON, _ := cmd.Flags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(logLevel), JSONOutput: logJSON})

	workerID, _ := cmd.Flags().GetString("worker-id")
	masterAddr, _ := cmd.Flags().GetString("master-addr")
	workDir, _ := cmd.Flags().GetString("work-dir")
	kind, _ := cmd.Flags().GetString("kind")
	cpus, _ := cmd.Flags().GetInt("cpus")
	memoryMB, _ := cmd.Flags().GetInt("memory-mb")
	storageCfgPath, _ := cmd.Flags().GetString("storage-config")

	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return fmt.Errorf("create work dir %s: %w", workDir, err)
	}

	backend, err := storage.New(storageCfgPath)
	if err != nil {
		return fmt.Errorf("init storage backend: %w", err)
	}

	transferCfg := config.Default().Transfer
	dataMgr := datamanager.New(workerID, workDir, transfer.NewLocalProvider(), backend, transferCfg.AllowNonAtomicMove)

	conn, err := grpc.NewClient(masterAddr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		flowpb.DialCodecOption(),
	)
	if err != nil {
		return fmt.Errorf("dial master %s: %w", masterAddr, err)
	}
	defer conn.Close()

	agent := worker.New(worker.Config{
		WorkerID: workerID,
		Kind:     kind,
		CPUs:     cpus,
		MemoryMB: memoryMB,
	}, flowpb.NewFlowMasterAPIClient(conn), dataMgr, worker.ShellInvoker{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Logger.Info().Msg("shutting down")
		cancel()
	}()

	return agent.Run(ctx)
}
