package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/stratumdev/stratum/internal/entity"
)

func init() {
	cmd := &cobra.Command{
		Use:   "task [title]",
		Short: "Store a task",
		Long:  "Shorthand for put --type task with typed flags.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runTask,
	}

	cmd.Flags().String("id", "", "Task id (generated when omitted)")
	cmd.Flags().String("description", "", "Longer description")
	cmd.Flags().String("status", "pending", "Status: pending, in_progress, completed, blocked")
	cmd.Flags().StringP("priority", "p", "normal", "Priority: low, normal, high, critical")
	cmd.Flags().String("parent", "", "Parent task id")
	cmd.Flags().String("tags", "", "Comma-separated tags")
	cmd.Flags().String("outcome", "", "Outcome note once finished")

	RootCmd.AddCommand(cmd)
}

func runTask(cmd *cobra.Command, args []string) {
	id, _ := cmd.Flags().GetString("id")
	description, _ := cmd.Flags().GetString("description")
	status, _ := cmd.Flags().GetString("status")
	priority, _ := cmd.Flags().GetString("priority")
	parent, _ := cmd.Flags().GetString("parent")
	tagsStr, _ := cmd.Flags().GetString("tags")
	outcome, _ := cmd.Flags().GetString("outcome")

	if id == "" {
		id = entity.NewID()
	}

	task := &entity.Task{
		ID:          id,
		Title:       strings.Join(args, " "),
		Description: description,
		Status:      status,
		Priority:    priority,
		Agent:       getAgent(),
		Parent:      parent,
		Tags:        splitList(tagsStr),
		Outcome:     outcome,
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}

	if err := s.Put(task.ToGeneric()); err != nil {
		exitErr("task", err)
	}

	stored, err := s.Get(id, entity.TypeTask)
	if err != nil {
		exitErr("task", err)
	}
	printEntity(stored)
}
