// Command mongosvc-admin is the operator-facing process-control CLI: it
// dials the running daemon's administrative gRPC side-channel and issues
// one-shot pool-stats, reindex, or reload-config calls. It does not speak
// the data-plane BSON protocol itself.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

var (
	addr    string
	timeout time.Duration
)

func main() {
	root := &cobra.Command{
		Use:   "mongosvc-admin",
		Short: "Operator CLI for the mongosvc storage daemon's admin RPC side-channel",
	}
	root.PersistentFlags().StringVar(&addr, "addr", "127.0.0.1:9190", "admin rpc address")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Second, "rpc deadline")

	root.AddCommand(poolStatsCmd())
	root.AddCommand(reindexCmd())
	root.AddCommand(reloadConfigCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func poolStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pool-stats",
		Short: "Report the listener-facing connection pool's current occupancy",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := new(structpb.Struct)
			if err := call(cmd.Context(), "PoolStats", new(emptypb.Empty), out); err != nil {
				return err
			}
			return printStruct(out)
		},
	}
}

func reindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the version-history collection's indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := new(structpb.Struct)
			if err := call(cmd.Context(), "Reindex", new(structpb.Struct), out); err != nil {
				return err
			}
			return printStruct(out)
		},
	}
}

func reloadConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reload-config",
		Short: "Re-apply the daemon's loaded logging settings without a restart",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := new(structpb.Struct)
			if err := call(cmd.Context(), "ReloadConfig", new(emptypb.Empty), out); err != nil {
				return err
			}
			return printStruct(out)
		},
	}
}

// call dials addr fresh for each invocation — the CLI runs one command
// and exits, so there's no pool to keep warm — and invokes the named
// AdminService method directly via grpc.ClientConn.Invoke, mirroring the
// hand-constructed grpc.ServiceDesc on the server side (there is no
// generated client stub to call instead).
func call(ctx context.Context, method string, req, reply any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	fullMethod := "/mongosvc.admin.v1.AdminService/" + method
	if err := conn.Invoke(ctx, fullMethod, req, reply); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

func printStruct(s *structpb.Struct) error {
	b, err := protojson.MarshalOptions{Indent: "  "}.Marshal(s)
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}
