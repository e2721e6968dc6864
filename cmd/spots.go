package main

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var spotsOpts struct {
	runID    string
	location string
}

var spotsCmd = &cobra.Command{
	Use:   "spots",
	Short: "Print the critical spots of a stored run",
	Long:  "Reads critical planting spots from the results database, either for a specific run ID or for the most recent run of a location slug.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if spotsOpts.runID == "" && spotsOpts.location == "" {
			return eris.New("spots: one of --run or --location is required")
		}

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		runID := spotsOpts.runID
		if runID == "" {
			run, err := st.LatestRun(cmd.Context(), spotsOpts.location)
			if err != nil {
				return err
			}
			if run == nil {
				return eris.Errorf("spots: no runs for location %q", spotsOpts.location)
			}
			runID = run.ID
		}

		sp, err := st.SpotsForRun(cmd.Context(), runID)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(map[string]any{
			"run_id": runID,
			"spots":  sp,
		}, "", "  ")
		if err != nil {
			return eris.Wrap(err, "spots: marshal output")
		}
		cmd.Println(string(out))
		return nil
	},
}

func init() {
	spotsCmd.Flags().StringVar(&spotsOpts.runID, "run", "", "run ID")
	spotsCmd.Flags().StringVar(&spotsOpts.location, "location", "", "location slug (uses the latest run)")
	rootCmd.AddCommand(spotsCmd)
}
