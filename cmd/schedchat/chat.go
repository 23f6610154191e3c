package main

import (
	"bufio"
	"fmt"
	"os"
	"os/user"
	"strings"

	"github.com/spf13/cobra"

	"github.com/schedchat/schedchat/internal/dialogue"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the assistant interactively",
	Long: `Chat with the assistant interactively.

Type messages and get replies until you enter "exit" or press Ctrl-D.

Examples:
  schedchat chat
  schedchat chat --user alice`,
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")
		if userID == "" {
			userID = defaultUserID()
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "Chatting as %s. Type a message, or \"exit\" to quit.\n", colorize(colorBold, userID))

		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Fprint(os.Stderr, colorize(colorCyan, "you> "))
			if !scanner.Scan() {
				fmt.Fprintln(os.Stderr)
				return scanner.Err()
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if line == "exit" || line == "quit" {
				return nil
			}

			resp, err := client.post(cmd.Context(), "/chat", map[string]string{
				"user_id": userID,
				"message": line,
			})
			if err != nil {
				printError("%v", err)
				continue
			}

			var result dialogue.TurnResult
			if err := decodeJSON(resp, &result); err != nil {
				printError("%v", err)
				continue
			}

			fmt.Printf("%s %s\n", colorize(colorGreen, "assistant>"), result.Response)
			if !result.Success {
				printWarning("last action did not complete (%s)", result.Action)
			}
		}
	},
}

func init() {
	chatCmd.Flags().String("user", "", "user id to chat as (default: OS username)")
}

func defaultUserID() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "default"
}
