package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/stratumdev/stratum/internal/entity"
)

var errMissingRelID = errors.New("--rm requires --id")

func init() {
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Create or remove relationships between entities",
		Run:   runLink,
	}

	cmd.Flags().String("from", "", "Source entity id (required)")
	cmd.Flags().String("from-type", "", "Source entity type (required)")
	cmd.Flags().String("to", "", "Target entity id (required)")
	cmd.Flags().String("to-type", "", "Target entity type (required)")
	cmd.Flags().StringP("kind", "k", "", "Relationship kind: depends_on, contains, references, supersedes (required)")
	cmd.Flags().String("direction", entity.DirectionUni, "unidirectional or bidirectional")
	cmd.Flags().String("strength", "strong", "weak, medium, or strong")
	cmd.Flags().String("description", "", "Free-form note on the relationship")
	cmd.Flags().String("id", "", "Relationship id (generated when omitted; required with --rm)")
	cmd.Flags().Bool("rm", false, "Remove the relationship instead")

	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("from-type")
	cmd.MarkFlagRequired("to")
	cmd.MarkFlagRequired("to-type")
	cmd.MarkFlagRequired("kind")

	RootCmd.AddCommand(cmd)
}

func runLink(cmd *cobra.Command, args []string) {
	from, _ := cmd.Flags().GetString("from")
	fromType, _ := cmd.Flags().GetString("from-type")
	to, _ := cmd.Flags().GetString("to")
	toType, _ := cmd.Flags().GetString("to-type")
	kind, _ := cmd.Flags().GetString("kind")
	direction, _ := cmd.Flags().GetString("direction")
	strength, _ := cmd.Flags().GetString("strength")
	description, _ := cmd.Flags().GetString("description")
	id, _ := cmd.Flags().GetString("id")
	rm, _ := cmd.Flags().GetBool("rm")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}

	if rm {
		if id == "" {
			exitErr("link", errMissingRelID)
		}
		if err := s.Rm(id, entity.TypeRelationship); err != nil {
			exitErr("link", err)
		}
		return
	}

	if id == "" {
		id = entity.NewID()
	}
	rel := &entity.Relationship{
		ID:          id,
		Agent:       getAgent(),
		SourceID:    from,
		SourceType:  fromType,
		TargetID:    to,
		TargetType:  toType,
		Kind:        kind,
		Direction:   direction,
		Strength:    strength,
		Description: description,
	}
	if err := rel.Validate(); err != nil {
		exitErr("link", err)
	}

	if err := s.Put(rel.ToGeneric()); err != nil {
		exitErr("link", err)
	}

	stored, err := s.Get(id, entity.TypeRelationship)
	if err != nil {
		exitErr("link", err)
	}
	printEntity(stored)
}
