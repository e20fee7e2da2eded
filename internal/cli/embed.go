package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stratumdev/stratum/internal/chunker"
	"github.com/stratumdev/stratum/internal/embedding"
	"github.com/stratumdev/stratum/internal/entity"
	"github.com/stratumdev/stratum/internal/vector"
)

func init() {
	embedCmd := &cobra.Command{
		Use:   "embed",
		Short: "Index an entity for similarity search",
		Long:  "Embed an entity's text content and store the vector in the local similarity index. Requires STRATUM_EMBED_PROVIDER.",
		Run:   runEmbed,
	}
	embedCmd.Flags().String("id", "", "Entity id (required)")
	embedCmd.Flags().StringP("type", "t", "", "Entity type (required)")
	embedCmd.MarkFlagRequired("id")
	embedCmd.MarkFlagRequired("type")

	similarCmd := &cobra.Command{
		Use:   "similar [query text]",
		Short: "Find entities similar to a query",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSimilar,
	}
	similarCmd.Flags().IntP("top", "k", 5, "Number of results")

	RootCmd.AddCommand(embedCmd, similarCmd)
}

func getEmbedder() embedding.Embedder {
	e := embedding.NewFromEnv()
	if e == nil {
		exitErr("embed", fmt.Errorf("no embedding provider configured (set STRATUM_EMBED_PROVIDER)"))
	}
	return e
}

func runEmbed(cmd *cobra.Command, args []string) {
	id, _ := cmd.Flags().GetString("id")
	entityType, _ := cmd.Flags().GetString("type")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}

	g, err := s.Get(id, entityType)
	if err != nil {
		exitErr("embed", err)
	}
	if g == nil {
		exitErr("embed", fmt.Errorf("no %s with id %s", entityType, id))
	}

	text := entityText(g)
	if text == "" {
		exitErr("embed", fmt.Errorf("%s %s has no text content", entityType, id))
	}

	emb := getEmbedder()
	vec, err := embedSegments(cmd, emb, text)
	if err != nil {
		exitErr("embed", err)
	}

	idx, err := vector.Open(getVectorDBPath())
	if err != nil {
		exitErr("open index", err)
	}
	defer idx.Close()

	if err := idx.Save(id, entityType, emb.Model(), vec); err != nil {
		exitErr("embed", err)
	}
	fmt.Printf("indexed %s %s (%d dims, model %s)\n", entityType, id, len(vec), emb.Model())
}

func runSimilar(cmd *cobra.Command, args []string) {
	top, _ := cmd.Flags().GetInt("top")

	emb := getEmbedder()
	query, err := emb.Embed(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		exitErr("similar", err)
	}

	idx, err := vector.Open(getVectorDBPath())
	if err != nil {
		exitErr("open index", err)
	}
	defer idx.Close()

	matches, err := idx.Search(query, emb.Model(), top)
	if err != nil {
		exitErr("similar", err)
	}

	if formatFlag == "text" {
		for _, m := range matches {
			fmt.Printf("%.4f\t%s\t%s\n", m.Score, m.EntityType, m.EntityID)
		}
		return
	}
	printJSON(matches)
}

// embedSegments embeds long text per segment and averages the vectors.
func embedSegments(cmd *cobra.Command, emb embedding.Embedder, text string) (embedding.Vector, error) {
	segs := chunker.Segments(text, chunker.DefaultMaxLen)
	if len(segs) == 1 {
		return emb.Embed(cmd.Context(), segs[0])
	}

	var sum []float64
	for _, seg := range segs {
		v, err := emb.Embed(cmd.Context(), seg)
		if err != nil {
			return nil, err
		}
		if sum == nil {
			sum = make([]float64, len(v))
		}
		for i := range v {
			sum[i] += float64(v[i])
		}
	}
	out := make(embedding.Vector, len(sum))
	for i, v := range sum {
		out[i] = float32(v / float64(len(segs)))
	}
	return out, nil
}

// entityText gathers the string fields of an entity's payload, in key
// order, as the text to embed.
func entityText(g *entity.Generic) string {
	var parts []string
	for _, key := range g.Data.Keys() {
		v, _ := g.Data.Get(key)
		if s, ok := v.AsString(); ok && strings.TrimSpace(s) != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}
