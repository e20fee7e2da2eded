package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the commit history of the current branch",
		Run:   runHistory,
	}

	cmd.Flags().IntP("limit", "n", 20, "Maximum commits to show (0 = all)")

	RootCmd.AddCommand(cmd)
}

func runHistory(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}

	commits, err := s.History(limit)
	if err != nil {
		exitErr("history", err)
	}

	if formatFlag == "text" {
		for _, c := range commits {
			fmt.Printf("%s  %s  %s  %s\n", c.Hash.String()[:8], c.When.Format("2006-01-02 15:04:05"), c.Author, c.Message)
		}
		return
	}

	type row struct {
		Hash    string `json:"hash"`
		Author  string `json:"author"`
		Message string `json:"message"`
		When    string `json:"when"`
	}
	rows := make([]row, len(commits))
	for i, c := range commits {
		rows[i] = row{
			Hash:    c.Hash.String(),
			Author:  c.Author,
			Message: c.Message,
			When:    c.When.UTC().Format("2006-01-02T15:04:05Z07:00"),
		}
	}
	printJSON(rows)
}
