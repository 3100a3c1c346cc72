package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/wyfcoding/sortviz/animation"
	"github.com/wyfcoding/sortviz/app"
	"github.com/wyfcoding/sortviz/config"
	"github.com/wyfcoding/sortviz/logging"

	"github.com/spf13/cobra"
)

const defaultConfigPath = "./configs/sortviz/config.toml"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sortviz",
		Short:         "Sorting animation service with inversion tracking",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	root.AddCommand(newServeCmd(), newRunCmd(), newInversionsCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var confPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and WebSocket server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := app.NewBuilder("sortviz").WithConfigPath(confPath).Build()
			if err != nil {
				return err
			}
			return a.Run()
		},
	}
	cmd.Flags().StringVar(&confPath, "conf", defaultConfigPath, "path to config file")
	return cmd
}

func newRunCmd() *cobra.Command {
	var (
		algo   string
		values string
		fast   bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Animate one sort and print the run as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			input, err := parseValuesFlag(values)
			if err != nil {
				return err
			}
			res, err := cliService(cmd.ErrOrStderr()).Animate(cmd.Context(), algo, input, fast)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVarP(&algo, "algorithm", "a", "quicksort", "quicksort or mergesort")
	cmd.Flags().StringVar(&values, "values", "", "comma separated numbers, e.g. 3,1,2")
	cmd.Flags().BoolVar(&fast, "fast", false, "use the O(n log n) inversion counter")
	_ = cmd.MarkFlagRequired("values")
	return cmd
}

func newInversionsCmd() *cobra.Command {
	var (
		values string
		fast   bool
	)
	cmd := &cobra.Command{
		Use:   "inversions",
		Short: "Count inversions of a sequence",
		RunE: func(cmd *cobra.Command, _ []string) error {
			input, err := parseValuesFlag(values)
			if err != nil {
				return err
			}
			count, err := cliService(cmd.ErrOrStderr()).Inversions(cmd.Context(), input, fast)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), count)
			return err
		},
	}
	cmd.Flags().StringVar(&values, "values", "", "comma separated numbers, e.g. 3,1,2")
	cmd.Flags().BoolVar(&fast, "fast", false, "use the O(n log n) inversion counter")
	_ = cmd.MarkFlagRequired("values")
	return cmd
}

// cliService 命令行模式下不限制输入长度，日志只输出警告以上级别.
func cliService(stderr io.Writer) *animation.Service {
	cfg := config.Default().Sort
	cfg.MaxLength = 0
	logger := logging.NewFromConfig(&logging.Config{
		Service: "sortviz",
		Module:  "cli",
		Level:   "warn",
		Writer:  stderr,
	})
	return animation.NewService(cfg, animation.WithLogger(logger))
}

func parseValuesFlag(raw string) ([]float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []float64{}, nil
	}
	return animation.ParseValues(strings.Split(raw, ","))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
