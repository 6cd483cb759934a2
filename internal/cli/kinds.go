package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// NewKindsCmd создаёт команду просмотра каталога типов узлов.
func NewKindsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List supported node kinds",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			kinds, err := client.ListKinds()
			if err != nil {
				return err
			}

			headers := []string{"KIND", "COMPUTE", "INPUTS", "OUTPUTS"}
			rows := make([][]string, len(kinds))
			for i, k := range kinds {
				rows[i] = []string{
					k.Kind,
					strconv.FormatBool(k.Compute),
					formatPorts(k.Inputs),
					formatPorts(k.Outputs),
				}
			}

			out.Print(headers, rows, kinds)
			return nil
		},
	}
}

// formatPorts собирает список портов в строку вида "id:type, id:type".
func formatPorts(ports []PortResponse) string {
	if len(ports) == 0 {
		return "-"
	}
	parts := make([]string, len(ports))
	for i, p := range ports {
		parts[i] = p.ID + ":" + p.Type
	}
	return strings.Join(parts, ", ")
}
