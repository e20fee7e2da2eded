package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stratumdev/stratum/internal/gitstore"
	"github.com/stratumdev/stratum/internal/gitsync"
)

func init() {
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Exchange branches with a remote repository",
	}

	pushCmd := &cobra.Command{
		Use:   "push",
		Short: "Publish a branch to the remote",
		Run:   runSyncPush,
	}
	pullCmd := &cobra.Command{
		Use:   "pull",
		Short: "Fetch a branch from the remote and fast-forward",
		Run:   runSyncPull,
	}

	for _, c := range []*cobra.Command{pushCmd, pullCmd} {
		c.Flags().String("remote", "origin", "Remote name")
		c.Flags().String("url", "", "Remote URL (registers the remote when given)")
		c.Flags().StringP("branch", "b", "", "Branch to sync (default: current branch)")
		c.Flags().String("auth", "", "Auth type: ssh, http, token (none for local remotes)")
		c.Flags().StringP("user", "u", "", "Username for ssh or http auth")
		c.Flags().String("password", "", "Password for http auth, or the token")
		c.Flags().String("key", "", "SSH private key path (ssh-agent when omitted)")
		c.Flags().String("passphrase", "", "SSH key passphrase")
	}

	syncCmd.AddCommand(pushCmd, pullCmd)
	RootCmd.AddCommand(syncCmd)
}

func syncSetup(cmd *cobra.Command) (*gitstore.Store, string, string, *gitsync.Credentials) {
	remote, _ := cmd.Flags().GetString("remote")
	url, _ := cmd.Flags().GetString("url")
	branch, _ := cmd.Flags().GetString("branch")
	authType, _ := cmd.Flags().GetString("auth")
	user, _ := cmd.Flags().GetString("user")
	password, _ := cmd.Flags().GetString("password")
	key, _ := cmd.Flags().GetString("key")
	passphrase, _ := cmd.Flags().GetString("passphrase")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}

	if url != "" {
		if err := gitsync.EnsureRemote(s, remote, url); err != nil {
			exitErr("sync", err)
		}
	}
	if branch == "" {
		branch = s.CurrentBranch()
	}

	var creds *gitsync.Credentials
	if authType != "" {
		creds, err = gitsync.NewCredentials(gitsync.AuthConfig{
			Type:       authType,
			Username:   user,
			Password:   password,
			KeyPath:    key,
			Passphrase: passphrase,
		})
		if err != nil {
			exitErr("sync", err)
		}
	}
	return s, remote, branch, creds
}

func runSyncPush(cmd *cobra.Command, args []string) {
	s, remote, branch, creds := syncSetup(cmd)
	if err := gitsync.Push(cmd.Context(), s, remote, branch, creds); err != nil {
		exitErr("push", err)
	}
	fmt.Printf("pushed %s to %s\n", branch, remote)
}

func runSyncPull(cmd *cobra.Command, args []string) {
	s, remote, branch, creds := syncSetup(cmd)
	if err := gitsync.Pull(cmd.Context(), s, remote, branch, creds); err != nil {
		exitErr("pull", err)
	}
	fmt.Printf("pulled %s from %s\n", branch, remote)
}
