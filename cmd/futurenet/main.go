// Command futurenet issues a single endpoint request from the command line,
// with the same configuration, authentication and mutual TLS the library
// uses.
//
//	futurenet request https://api.example.com /users/7
//	futurenet request -X POST -d name=gear -d count=2 https://api.example.com /widgets
//	futurenet request --upload report.pdf --config client.yml https://api.example.com /files
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kbukum/futurenet/version"
)

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           "futurenet",
		Short:         "Declarative HTTP requests with mutual TLS",
		Version:       version.Get().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "config file (default: ./futurenet.yml)")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", "", ".env file to load")
	root.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "print response headers and debug logs")

	root.AddCommand(newRequestCmd(opts))
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		newPrinter(os.Stdout, os.Stderr, false).failure(err)
		os.Exit(1)
	}
}
