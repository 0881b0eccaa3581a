package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rmacdonaldsmith/mqttroute/internal/routingtable"
	routingtablepkg "github.com/rmacdonaldsmith/mqttroute/pkg/routingtable"
)

func newMatchCommand() *cobra.Command {
	var (
		filters []string
		topics  []string
	)

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Show which filters a topic would be delivered to",
		Long: `Build a routing table from --filter values and print, for every --topic,
the filters that match in delivery order. Does not connect to a broker.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatch(cmd.OutOrStdout(), filters, topics)
		},
	}

	cmd.Flags().StringArrayVar(&filters, "filter", nil, "Topic filter (repeatable, required)")
	cmd.Flags().StringArrayVar(&topics, "topic", nil, "Topic to route (repeatable, required)")
	if err := cmd.MarkFlagRequired("filter"); err != nil {
		panic(fmt.Sprintf("Failed to mark filter as required: %v", err))
	}
	if err := cmd.MarkFlagRequired("topic"); err != nil {
		panic(fmt.Sprintf("Failed to mark topic as required: %v", err))
	}

	return cmd
}

func runMatch(out io.Writer, filters, topics []string) error {
	rt := routingtable.NewInMemoryRoutingTable()
	names := make(map[*routingtablepkg.Handle]string, len(filters))

	for _, filter := range filters {
		handle := routingtablepkg.NewHandle(nil)
		if err := rt.AddSubscription(filter, handle); err != nil {
			return err
		}
		names[handle] = filter
	}

	for _, topic := range topics {
		matches := rt.GetCallbacks(topic)
		if len(matches) == 0 {
			fmt.Fprintf(out, "%s: no match\n", topic)
			continue
		}
		fmt.Fprintf(out, "%s:\n", topic)
		for i, h := range matches {
			fmt.Fprintf(out, "  %d. %s\n", i+1, names[h])
		}
	}
	return nil
}
