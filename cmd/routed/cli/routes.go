package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/meshroute/routeengine/internal/api"
)

func newRoutesCmd() *cobra.Command {
	var apiAddr string

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Print the route table of a running routed instance.",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := &http.Client{Timeout: 5 * time.Second}
			resp, err := client.Get(fmt.Sprintf("http://%s/routes", apiAddr))
			if err != nil {
				return fmt.Errorf("failed to query routes: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("routes endpoint returned %s", resp.Status)
			}

			var routes []api.Route
			if err := json.NewDecoder(resp.Body).Decode(&routes); err != nil {
				return fmt.Errorf("failed to decode routes: %w", err)
			}

			printRoutes(routes)
			return nil
		},
	}

	cmd.Flags().StringVar(&apiAddr, "api-addr", "127.0.0.1:8080", "HTTP address of the observation API")
	return cmd
}

func printRoutes(routes []api.Route) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_CENTER)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(true)
	table.SetRowLine(true)
	table.SetHeader([]string{"Destination", "Next Hop", "Cost", "Hostname", "IPv4"})

	for _, r := range routes {
		table.Append([]string{
			r.Destination,
			r.NextHop,
			fmt.Sprintf("%d", r.Cost),
			r.Hostname,
			r.IPv4,
		})
	}
	table.Render()
}
