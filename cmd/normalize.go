package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flashmemo/flashmemo/pkg/linkurl"
)

// normalizeCmd prints the canonical form and source app of each input.
var normalizeCmd = &cobra.Command{
	Use:   "normalize [raw...]",
	Short: "Canonicalize app links and classify their source app",
	Long: `Rewrites app deep links (instagram://, twitter://, x://, youtube://) into their
canonical web URLs and prints the source app. Reads stdin when no argument is given.`,
	Example: `  flashmemo normalize "youtube://watch?v=dQw4w9WgXcQ"
  cat links.txt | flashmemo normalize -o rca -d ,`,
	RunE: func(cmd *cobra.Command, args []string) error {
		outputFlags, _ := cmd.Flags().GetString("output")
		delimiter, _ := cmd.Flags().GetString("delimiter")
		if err := validateOutputFlags(outputFlags); err != nil {
			return err
		}

		if len(args) > 0 {
			for _, raw := range args {
				fmt.Println(formatNormalized(raw, outputFlags, delimiter))
			}
			return nil
		}

		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			raw := strings.TrimSpace(sc.Text())
			if raw == "" {
				continue
			}
			fmt.Println(formatNormalized(raw, outputFlags, delimiter))
		}
		return sc.Err()
	},
}

func validateOutputFlags(flags string) error {
	if flags == "" {
		return fmt.Errorf("output flags cannot be empty")
	}
	for _, f := range flags {
		if !strings.ContainsRune("car", f) {
			return fmt.Errorf("unsupported output flag %q. Supported: c, a, r", f)
		}
	}
	return nil
}

// formatNormalized renders one input according to the output flags:
// c for canonical URL, a for app, r for the raw input.
func formatNormalized(raw, flags, delimiter string) string {
	var fields []string
	for _, f := range flags {
		switch f {
		case 'c':
			fields = append(fields, linkurl.Normalize(raw))
		case 'a':
			app := linkurl.Classify(raw).String()
			if app == "" {
				app = "-"
			}
			fields = append(fields, app)
		case 'r':
			fields = append(fields, raw)
		}
	}
	return strings.Join(fields, delimiter)
}

func init() {
	rootCmd.AddCommand(normalizeCmd)
	normalizeCmd.Flags().StringP("output", "o", "ca", "Output flags. Supported: c (canonical URL), a (source app), r (raw input). Can be combined. Example: -o rca")
	normalizeCmd.Flags().StringP("delimiter", "d", " ", "Delimiter character to use between output fields")
}
