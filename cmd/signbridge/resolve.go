package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ayusman/signbridge/internal/asset"
	"github.com/ayusman/signbridge/internal/config"
)

var resolveTranscript bool

var resolveCmd = &cobra.Command{
	Use:   "resolve <label|transcript>",
	Short: "Show which animation a label or spoken phrase maps to",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resolver, err := newResolver(cfg.Assets)
		if err != nil {
			return err
		}

		text := strings.Join(args, " ")
		path, ok := resolver.Resolve(text)
		if resolveTranscript {
			path, ok = resolver.ResolveTranscript(text)
		}

		out := cmd.OutOrStdout()
		if !ok {
			fmt.Fprintln(out, "no asset")
			return nil
		}
		fmt.Fprintln(out, path)
		return nil
	},
}

func init() {
	resolveCmd.Flags().BoolVarP(&resolveTranscript, "transcript", "t", false, "resolve as a spoken phrase")
	rootCmd.AddCommand(resolveCmd)
}

// newResolver builds the asset resolver from config, loading the word table
// file when one is set.
func newResolver(c config.AssetsConfig) (*asset.Resolver, error) {
	if c.WordsFile == "" {
		return asset.NewResolver(c.Base, asset.DefaultWords), nil
	}

	words, err := asset.LoadWords(c.WordsFile)
	if err != nil {
		return nil, err
	}
	return asset.NewResolver(c.Base, words), nil
}
