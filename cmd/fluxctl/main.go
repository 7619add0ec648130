// Command fluxctl is a CLI client for a running master, demonstrating the
// pkg/client wire contract.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fluxrun/fluxrun/pkg/api/flowpb"
	"github.com/fluxrun/fluxrun/pkg/client"
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
	Use:     "fluxctl",
	Short:   "fluxctl talks to a running fluxmasterd over its gRPC API",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("fluxctl %s (%s)\n", Version, Commit))
	rootCmd.PersistentFlags().String("master-addr", "localhost:7979", "master gRPC address")

	rootCmd.AddCommand(submitCmd, barrierCmd, cancelCmd, statusCmd)
}

func dial(cmd *cobra.Command) (*client.Client, error) {
	addr, _ := cmd.Flags().GetString("master-addr")
	return client.New(addr)
}

var submitCmd = &cobra.Command{
	Use:   "submit <task-id> <app> -- <command...>",
	Short: "Submit a task with no declared data dependencies",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dial(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		taskID, app := args[0], args[1]
		commandLine := args[2:]

		resp, err := c.SubmitTask(&flowpb.SubmitTaskRequest{
			TaskID: taskID,
			App:    app,
			ImplCandidates: []*flowpb.ImplementationWire{
				{Name: "default", CPUs: 1, MemoryMB: 1},
			},
			CommandLine: commandLine,
			MaxRetries:  3,
		})
		if err != nil {
			return fmt.Errorf("submit task: %w", err)
		}
		if !resp.Accepted {
			return fmt.Errorf("master rejected task: %s", resp.Error)
		}
		fmt.Printf("task %s accepted\n", taskID)
		return nil
	},
}

var barrierCmd = &cobra.Command{
	Use:   "barrier <app>",
	Short: "Block until every task submitted so far for an application finishes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dial(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		resp, err := c.Barrier(args[0])
		if err != nil {
			return fmt.Errorf("barrier: %w", err)
		}
		if resp.Error != "" {
			return fmt.Errorf("barrier failed: %s", resp.Error)
		}
		fmt.Printf("application %s drained\n", args[0])
		return nil
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <app>",
	Short: "Cancel every non-terminal task belonging to an application",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dial(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		if _, err := c.CancelApplication(args[0]); err != nil {
			return fmt.Errorf("cancel application: %w", err)
		}
		fmt.Printf("application %s cancelled\n", args[0])
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether the master at --master-addr is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := dial(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		resp, err := c.RegisterData()
		if err != nil {
			return fmt.Errorf("master unreachable: %w", err)
		}
		fmt.Printf("master reachable, allocated probe DID %d\n", resp.DID)
		return nil
	},
}

func init() {
	submitCmd.Flags().SetInterspersed(false)
}
