package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stratumdev/stratum/internal/entity"
)

func init() {
	cmd := &cobra.Command{
		Use:   "put",
		Short: "Store an entity",
		Long:  "Store an entity on the current branch. Creating and updating are the same operation; the id decides which.",
		Run:   runPut,
	}

	cmd.Flags().StringP("type", "t", "", "Entity type (required)")
	cmd.Flags().String("id", "", "Entity id (generated when omitted)")
	cmd.Flags().StringP("data", "d", "", "Entity payload as JSON (required)")
	cmd.Flags().String("meta", "", "Metadata as JSON")

	cmd.MarkFlagRequired("type")
	cmd.MarkFlagRequired("data")

	RootCmd.AddCommand(cmd)
}

func runPut(cmd *cobra.Command, args []string) {
	entityType, _ := cmd.Flags().GetString("type")
	id, _ := cmd.Flags().GetString("id")
	dataStr, _ := cmd.Flags().GetString("data")
	metaStr, _ := cmd.Flags().GetString("meta")

	if id == "" {
		id = entity.NewID()
	}

	g := entity.NewGeneric(id, entityType, getAgent())

	data, err := parseJSONMap(dataStr)
	if err != nil {
		exitErr("parse --data", err)
	}
	g.Data = data

	if metaStr != "" {
		meta, err := parseJSONMap(metaStr)
		if err != nil {
			exitErr("parse --meta", err)
		}
		g.Metadata = meta
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}

	if err := s.Put(g); err != nil {
		exitErr("put", err)
	}

	stored, err := s.Get(id, entityType)
	if err != nil {
		exitErr("put", err)
	}
	printEntity(stored)
}

func parseJSONMap(s string) (*entity.Map, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, fmt.Errorf("not a JSON object: %w", err)
	}
	return entity.MapFromAny(raw)
}
