package cli

import (
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stratumdev/stratum/internal/entity"
)

func init() {
	cmd := &cobra.Command{
		Use:   "note [title]",
		Short: "Store a context note",
		Long:  "Shorthand for put --type context. Content can be given with --content or piped via stdin.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runNote,
	}

	cmd.Flags().String("id", "", "Note id (generated when omitted)")
	cmd.Flags().StringP("content", "c", "", "Note body")
	cmd.Flags().String("source", "", "Where the knowledge came from")
	cmd.Flags().String("relevance", "", "low, medium, or high")
	cmd.Flags().String("tags", "", "Comma-separated tags")
	cmd.Flags().String("related-to", "", "Comma-separated entity ids this note relates to")

	RootCmd.AddCommand(cmd)
}

func runNote(cmd *cobra.Command, args []string) {
	id, _ := cmd.Flags().GetString("id")
	content, _ := cmd.Flags().GetString("content")
	source, _ := cmd.Flags().GetString("source")
	relevance, _ := cmd.Flags().GetString("relevance")
	tagsStr, _ := cmd.Flags().GetString("tags")
	relatedStr, _ := cmd.Flags().GetString("related-to")

	if content == "" {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				exitErr("read stdin", err)
			}
			content = string(b)
		}
	}

	if id == "" {
		id = entity.NewID()
	}

	note := &entity.ContextNote{
		ID:        id,
		Title:     strings.Join(args, " "),
		Content:   strings.TrimSpace(content),
		Source:    source,
		Relevance: relevance,
		Agent:     getAgent(),
		Tags:      splitList(tagsStr),
		RelatedTo: splitList(relatedStr),
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}

	if err := s.Put(note.ToGeneric()); err != nil {
		exitErr("note", err)
	}

	stored, err := s.Get(id, entity.TypeContext)
	if err != nil {
		exitErr("note", err)
	}
	printEntity(stored)
}

func splitList(s string) []string {
	var out []string
	for _, e := range strings.Split(s, ",") {
		if e = strings.TrimSpace(e); e != "" {
			out = append(out, e)
		}
	}
	return out
}
