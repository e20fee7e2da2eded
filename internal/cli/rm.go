package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "rm",
		Short: "Delete an entity",
		Long:  "Delete an entity from the current branch. Deleting twice, or deleting something that never existed, is not an error.",
		Run:   runRm,
	}

	cmd.Flags().String("id", "", "Entity id (required)")
	cmd.Flags().StringP("type", "t", "", "Entity type (required)")

	cmd.MarkFlagRequired("id")
	cmd.MarkFlagRequired("type")

	RootCmd.AddCommand(cmd)
}

func runRm(cmd *cobra.Command, args []string) {
	id, _ := cmd.Flags().GetString("id")
	entityType, _ := cmd.Flags().GetString("type")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}

	if err := s.Rm(id, entityType); err != nil {
		exitErr("rm", err)
	}
	fmt.Printf("deleted %s %s\n", entityType, id)
}
