// Package cli implements the stratum CLI commands.
package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/stratumdev/stratum/internal/entity"
	"github.com/stratumdev/stratum/internal/gitstore"
)

var (
	repoPath   string
	agentFlag  string
	formatFlag string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "stratum",
	Short: "Versioned memory store for cooperating agents",
	Long:  "Structured memory for AI agents backed by a git repository. Every write is a commit, every agent works on its own branch.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&repoPath, "repo", "r", "", "Repository path (default: $STRATUM_REPO or ~/.stratum/repo)")
	RootCmd.PersistentFlags().StringVarP(&agentFlag, "agent", "a", "", "Agent identity (default: $STRATUM_AGENT or \"default\")")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
}

func getRepoPath() string {
	if repoPath != "" {
		return repoPath
	}
	if env := os.Getenv("STRATUM_REPO"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".stratum", "repo")
}

func getAgent() string {
	if agentFlag != "" {
		return agentFlag
	}
	if env := os.Getenv("STRATUM_AGENT"); env != "" {
		return env
	}
	return "default"
}

func getVectorDBPath() string {
	if env := os.Getenv("STRATUM_VECTOR_DB"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".stratum", "vectors.db")
}

func openStore() (*gitstore.Store, error) {
	return gitstore.Open(gitstore.Options{
		Path:  getRepoPath(),
		Agent: getAgent(),
	})
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

// printEntity reindents the canonical encoding rather than re-marshaling, so
// CLI output and stored bytes never drift apart.
func printEntity(g *entity.Generic) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, g.Encode(), "", "  "); err != nil {
		fmt.Println(string(g.Encode()))
		return
	}
	fmt.Println(buf.String())
}

func printEntities(gs []*entity.Generic) {
	raws := make([]json.RawMessage, len(gs))
	for i, g := range gs {
		raws[i] = g.Encode()
	}
	printJSON(raws)
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
