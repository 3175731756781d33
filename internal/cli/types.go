package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "Type definition commands",
	Long:  "Upload event and source type definitions to the gateway",
}

var typesUploadCmd = &cobra.Command{
	Use:     "upload <file>",
	Short:   "Upload type definitions",
	Long:    "Register the event and source types defined in a JSON file",
	Example: `  sgctl types upload ./mission_types.json`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := NewClient(serverURL, authToken).UploadTypes(args[0])
		if err != nil {
			return fmt.Errorf("upload failed: %w", err)
		}

		if len(result.EventTypes) > 0 {
			fmt.Printf("Event types registered:  %s\n", strings.Join(result.EventTypes, ", "))
		}
		if len(result.SourceTypes) > 0 {
			fmt.Printf("Source types registered: %s\n", strings.Join(result.SourceTypes, ", "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(typesCmd)
	typesCmd.AddCommand(typesUploadCmd)
}
