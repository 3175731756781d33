package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sourceCmd = &cobra.Command{
	Use:   "source",
	Short: "Source document commands",
	Long:  "Upload external source documents to the gateway",
}

var sourceUploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a source document",
	Long:  "Validate and persist one source document JSON file",
	Example: `  sgctl source upload ./contacts_2024.json
  sgctl source upload ./contacts_2024.json --derivation-group "DSN Contacts"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		derivationGroup, _ := cmd.Flags().GetString("derivation-group")

		result, err := NewClient(serverURL, authToken).UploadSource(args[0], derivationGroup)
		if err != nil {
			return fmt.Errorf("upload failed: %w", err)
		}

		fmt.Printf("Source %q accepted\n", result.Key)
		fmt.Printf("  type:             %s\n", result.SourceTypeName)
		fmt.Printf("  derivation group: %s\n", result.DerivationGroupName)
		fmt.Printf("  period:           %s .. %s\n", result.StartTime, result.EndTime)
		fmt.Printf("  events:           %d\n", result.EventCount)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sourceCmd)
	sourceCmd.AddCommand(sourceUploadCmd)

	sourceUploadCmd.Flags().StringP("derivation-group", "g", "", "derivation group name (default: \"<source type> Default\")")
}
