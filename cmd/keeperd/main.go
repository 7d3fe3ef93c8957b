package main

import (
    "context"
    "fmt"
    "os"
    "os/signal"
    "syscall"

    "github.com/spf13/cobra"
    "go.uber.org/zap"
)

func main() {
    ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer cancel()

    if err := newRootCmd().ExecuteContext(ctx); err != nil {
        fmt.Fprintln(os.Stderr, err)
        os.Exit(1)
    }
}

func newRootCmd() *cobra.Command {
    root := &cobra.Command{
        Use:           "keeperd",
        Short:         "Staking reward keeper",
        SilenceUsage:  true,
        SilenceErrors: true,
    }
    root.AddCommand(newRunCmd(), newServeCmd())
    return root
}

func newRunCmd() *cobra.Command {
    return &cobra.Command{
        Use:       "run [mode]",
        Short:     "Run one invocation and print the result",
        Args:      cobra.MaximumNArgs(1),
        ValidArgs: modes,
        RunE: func(cmd *cobra.Command, args []string) error {
            mode := ""
            if len(args) == 1 {
                mode = args[0]
            }
            k, err := setup(cmd.Context(), mode)
            if err != nil {
                return err
            }
            defer k.Close()

            k.runner(cmd.OutOrStdout()).Once(cmd.Context())
            return nil
        },
    }
}

func newServeCmd() *cobra.Command {
    return &cobra.Command{
        Use:   "serve",
        Short: "Invoke MODE on every poll interval and serve health and metrics",
        Args:  cobra.NoArgs,
        RunE: func(cmd *cobra.Command, _ []string) error {
            ctx, cancel := context.WithCancel(cmd.Context())
            defer cancel()

            k, err := setup(ctx, "")
            if err != nil {
                return err
            }
            defer k.Close()

            srv := k.server()
            go func() {
                if err := srv.Start(ctx); err != nil {
                    k.log.Error("http server exited", zap.Error(err))
                    cancel()
                }
            }()
            return k.runner(cmd.OutOrStdout()).Run(ctx)
        },
    }
}
