package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "List entities on an agent's branch",
		Run:   runQuery,
	}

	cmd.Flags().String("by-agent", "", "Agent whose branch to read (default: current agent)")
	cmd.Flags().StringP("type", "t", "", "Filter by entity type")

	RootCmd.AddCommand(cmd)
}

func runQuery(cmd *cobra.Command, args []string) {
	agent, _ := cmd.Flags().GetString("by-agent")
	entityType, _ := cmd.Flags().GetString("type")

	if agent == "" {
		agent = getAgent()
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}

	gs, err := s.QueryByAgent(agent, entityType)
	if err != nil {
		exitErr("query", err)
	}

	if formatFlag == "text" {
		for _, g := range gs {
			fmt.Printf("%s\t%s\t%s\n", g.Type, g.ID, g.UpdatedAt.Format("2006-01-02 15:04:05"))
		}
		return
	}
	printEntities(gs)
}
