package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	traverseCmd := &cobra.Command{
		Use:   "traverse [start-id]",
		Short: "Walk the relationship graph from an entity",
		Args:  cobra.ExactArgs(1),
		Run:   runTraverse,
	}
	traverseCmd.Flags().IntP("depth", "d", 3, "Maximum traversal depth")

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Find the shortest relationship path between two entities",
		Run:   runPath,
	}
	pathCmd.Flags().String("from", "", "Source entity id (required)")
	pathCmd.Flags().String("to", "", "Target entity id (required)")
	pathCmd.Flags().IntP("depth", "d", 10, "Maximum path length")
	pathCmd.MarkFlagRequired("from")
	pathCmd.MarkFlagRequired("to")

	RootCmd.AddCommand(traverseCmd, pathCmd)
}

func runTraverse(cmd *cobra.Command, args []string) {
	depth, _ := cmd.Flags().GetInt("depth")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}

	result, err := s.Traverse(args[0], depth)
	if err != nil {
		exitErr("traverse", err)
	}

	if formatFlag == "text" {
		for _, v := range result.Visits {
			fmt.Printf("%*s%s (%s)\n", v.Depth*2, "", v.ID, v.Type)
		}
		for _, d := range result.Dangling {
			fmt.Printf("dangling: %s\n", d)
		}
		return
	}
	printJSON(result)
}

func runPath(cmd *cobra.Command, args []string) {
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	depth, _ := cmd.Flags().GetInt("depth")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}

	edges, ok := s.FindPath(from, to, depth)
	if !ok {
		exitErr("path", fmt.Errorf("no path from %s to %s within depth %d", from, to, depth))
	}
	printJSON(edges)
}
