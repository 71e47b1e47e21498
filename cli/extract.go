package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/mensylisir/xmrecipe/extract"
	"github.com/mensylisir/xmrecipe/httpcache"
)

func newExtractCommand() *cobra.Command {
	var url string
	cmd := &cobra.Command{
		Use:   "extract FILE",
		Short: "Extract a recipe from a local HTML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrapf(err, "failed to read %s", args[0])
			}
			page, err := httpcache.DecodeHTML(data, "")
			if err != nil {
				return err
			}
			result, extractErr := extract.Recipe(page, url)
			if result != nil {
				doc, err := json.MarshalIndent(result, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(doc))
			}
			return extractErr
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "Source URL recorded on the recipe")
	return cmd
}
