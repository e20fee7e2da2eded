package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	branchCmd := &cobra.Command{
		Use:   "branch",
		Short: "Manage agent branches",
	}

	createCmd := &cobra.Command{
		Use:   "create [name]",
		Short: "Create a branch",
		Args:  cobra.ExactArgs(1),
		Run:   runBranchCreate,
	}
	createCmd.Flags().String("for-agent", "", "Agent to associate with the branch")
	createCmd.Flags().String("from", "", "Start point: branch name or commit hash (default: current tip)")

	switchCmd := &cobra.Command{
		Use:   "switch [name]",
		Short: "Switch the current branch",
		Args:  cobra.ExactArgs(1),
		Run:   runBranchSwitch,
	}
	switchCmd.Flags().BoolP("create", "c", false, "Create the branch if it does not exist")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List branches",
		Run:   runBranchList,
	}
	listCmd.Flags().Bool("current", false, "Only the current branch")
	listCmd.Flags().String("for-agent", "", "Only branches of this agent")

	deleteCmd := &cobra.Command{
		Use:   "delete [name]",
		Short: "Delete a branch",
		Args:  cobra.ExactArgs(1),
		Run:   runBranchDelete,
	}
	deleteCmd.Flags().Bool("force", false, "Delete even when the branch is not merged")

	branchCmd.AddCommand(createCmd, switchCmd, listCmd, deleteCmd)
	RootCmd.AddCommand(branchCmd)
}

func runBranchCreate(cmd *cobra.Command, args []string) {
	forAgent, _ := cmd.Flags().GetString("for-agent")
	from, _ := cmd.Flags().GetString("from")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}

	if err := s.CreateBranch(args[0], forAgent, from); err != nil {
		exitErr("branch create", err)
	}
	fmt.Printf("created branch %s\n", args[0])
}

func runBranchSwitch(cmd *cobra.Command, args []string) {
	create, _ := cmd.Flags().GetBool("create")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}

	if err := s.SwitchBranch(args[0], create); err != nil {
		exitErr("branch switch", err)
	}
	fmt.Printf("switched to %s\n", args[0])
}

func runBranchList(cmd *cobra.Command, args []string) {
	currentOnly, _ := cmd.Flags().GetBool("current")
	forAgent, _ := cmd.Flags().GetString("for-agent")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}

	branches, err := s.ListBranches(currentOnly, forAgent)
	if err != nil {
		exitErr("branch list", err)
	}

	if formatFlag == "text" {
		for _, b := range branches {
			marker := " "
			if b.Current {
				marker = "*"
			}
			fmt.Printf("%s %s\t%s\n", marker, b.Name, b.Agent)
		}
		return
	}

	type row struct {
		Name    string `json:"name"`
		Agent   string `json:"agent,omitempty"`
		Current bool   `json:"current"`
		Hash    string `json:"hash"`
	}
	rows := make([]row, len(branches))
	for i, b := range branches {
		rows[i] = row{Name: b.Name, Agent: b.Agent, Current: b.Current, Hash: b.Hash.String()}
	}
	printJSON(rows)
}

func runBranchDelete(cmd *cobra.Command, args []string) {
	force, _ := cmd.Flags().GetBool("force")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}

	if err := s.DeleteBranch(args[0], force); err != nil {
		exitErr("branch delete", err)
	}
	fmt.Printf("deleted branch %s\n", args[0])
}
