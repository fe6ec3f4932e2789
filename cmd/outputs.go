package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bnema/wallmon/internal/compositor"
)

// OutputInfo represents information about a single output
type OutputInfo struct {
	Name   string `json:"name"`
	Width  int32  `json:"width"`
	Height int32  `json:"height"`
	Scale  int32  `json:"scale"`
}

var jsonOutput bool

var outputsCmd = &cobra.Command{
	Use:   "outputs",
	Short: "Show connected outputs",
	Long:  `Display the outputs the compositor currently advertises, with their pixel geometry and scale.`,
	RunE:  runOutputs,
}

func init() {
	outputsCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.AddCommand(outputsCmd)
}

func runOutputs(cmd *cobra.Command, args []string) error {
	conn, err := compositor.Connect()
	if err != nil {
		return fmt.Errorf("failed to connect to compositor: %w", err)
	}
	defer conn.Close()

	outputs := conn.Outputs()

	if jsonOutput {
		infos := make([]OutputInfo, 0, len(outputs))
		for _, out := range outputs {
			infos = append(infos, OutputInfo{Name: out.Name, Width: out.Width, Height: out.Height, Scale: out.Scale})
		}
		return json.NewEncoder(os.Stdout).Encode(infos)
	}

	if len(outputs) == 0 {
		fmt.Println("No outputs detected")
		return nil
	}
	for _, out := range outputs {
		fmt.Printf("%-12s %dx%d", out.Name, out.Width, out.Height)
		if out.Scale > 1 {
			fmt.Printf(" (scale %d)", out.Scale)
		}
		fmt.Println()
	}
	return nil
}
