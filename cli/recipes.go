package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/mensylisir/xmrecipe/runtime"
	"github.com/mensylisir/xmrecipe/sink"
)

func newRecipesCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recipes",
		Short: "Read back recipes saved by the configured sink",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List saved recipe ids and titles",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				catalog, done, err := root.catalog()
				if err != nil {
					return err
				}
				defer done()
				ctx := cmd.Context()
				ids, err := catalog.IDs(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, id := range ids {
					recipe, ok, err := catalog.Load(ctx, id)
					if err != nil {
						return err
					}
					if !ok {
						continue
					}
					fmt.Fprintf(out, "%s  %s\n", id, recipe.Title)
				}
				fmt.Fprintf(out, "%d saved recipes\n", len(ids))
				return nil
			},
		},
		&cobra.Command{
			Use:   "show ID",
			Short: "Print one saved recipe as JSON",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				catalog, done, err := root.catalog()
				if err != nil {
					return err
				}
				defer done()
				recipe, ok, err := catalog.Load(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !ok {
					return errors.Errorf("no saved recipe with id %s", args[0])
				}
				data, err := json.MarshalIndent(recipe, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			},
		},
	)
	return cmd
}

// catalog opens the configured sink for reading. done releases it.
func (o *rootOptions) catalog() (sink.Catalog, func(), error) {
	cfg, err := o.loadConfig(runtime.NewCliArgs())
	if err != nil {
		return nil, nil, err
	}
	s, err := sink.New(cfg.Spec.Sink)
	if err != nil {
		return nil, nil, err
	}
	done := func() {
		if closer, ok := s.(io.Closer); ok {
			_ = closer.Close()
		}
	}
	catalog, ok := s.(sink.Catalog)
	if !ok {
		done()
		return nil, nil, errors.Errorf("sink %q cannot list recipes", cfg.Spec.Sink.Type)
	}
	return catalog, done, nil
}
