package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Retrieve an entity",
		Run:   runGet,
	}

	cmd.Flags().String("id", "", "Entity id (required)")
	cmd.Flags().StringP("type", "t", "", "Entity type (required)")

	cmd.MarkFlagRequired("id")
	cmd.MarkFlagRequired("type")

	RootCmd.AddCommand(cmd)
}

func runGet(cmd *cobra.Command, args []string) {
	id, _ := cmd.Flags().GetString("id")
	entityType, _ := cmd.Flags().GetString("type")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}

	g, err := s.Get(id, entityType)
	if err != nil {
		exitErr("get", err)
	}
	if g == nil {
		fmt.Println("null")
		return
	}
	printEntity(g)
}
