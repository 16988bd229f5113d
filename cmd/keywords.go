package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var keywordsRefresh bool

var keywordsCmd = &cobra.Command{
	Use:   "keywords",
	Short: "Show or refresh the scan keyword list",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		expander := env.expander()

		var kws []string
		if keywordsRefresh {
			kws, err = expander.Refresh(ctx)
			if err != nil {
				return eris.Wrap(err, "refresh keywords")
			}
			zap.L().Info("keywords refreshed", zap.Int("count", len(kws)))
		} else {
			kws, err = expander.Keywords(ctx)
			if err != nil {
				return eris.Wrap(err, "load keywords")
			}
		}

		for _, kw := range kws {
			fmt.Println(kw)
		}
		return nil
	},
}

func init() {
	keywordsCmd.Flags().BoolVar(&keywordsRefresh, "refresh", false, "force a new LLM expansion")
	rootCmd.AddCommand(keywordsCmd)
}
