package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/schedchat/schedchat/internal/config"
	"github.com/schedchat/schedchat/internal/storage"
)

// --- tasks ---

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List tasks created for a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")
		if userID == "" {
			userID = defaultUserID()
		}
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/users/%s/tasks?limit=%d", userID, limit))
		if err != nil {
			return err
		}

		var tasks []storage.Task
		if err := decodeJSON(resp, &tasks); err != nil {
			return err
		}
		if len(tasks) == 0 {
			fmt.Println("No tasks found.")
			return nil
		}

		for _, t := range tasks {
			when := "recurring"
			if !t.StartAt.IsZero() {
				when = t.StartAt.Local().Format("Mon Jan 2 15:04")
			}
			fmt.Printf("%s  %-20s  %s\n", colorize(colorCyan, t.ID[:8]), when, t.Title)
		}
		return nil
	},
}

// --- meetings ---

var meetingsCmd = &cobra.Command{
	Use:   "meetings",
	Short: "List meetings scheduled for a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")
		if userID == "" {
			userID = defaultUserID()
		}
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/users/%s/meetings?limit=%d", userID, limit))
		if err != nil {
			return err
		}

		var meetings []storage.Meeting
		if err := decodeJSON(resp, &meetings); err != nil {
			return err
		}
		if len(meetings) == 0 {
			fmt.Println("No meetings found.")
			return nil
		}

		for _, m := range meetings {
			fmt.Printf("%s  %s  %dm  %s\n",
				colorize(colorCyan, m.ID[:8]),
				m.StartAt.Local().Format("Mon Jan 2 15:04"),
				m.DurationMinutes,
				m.Title,
			)
		}
		return nil
	},
}

// --- conversation ---

var conversationCmd = &cobra.Command{
	Use:   "conversation",
	Short: "Inspect or reset a user's conversation",
}

var conversationShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored conversation as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")
		if userID == "" {
			userID = defaultUserID()
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/users/"+userID+"/conversation")
		if err != nil {
			return err
		}

		var conv any
		if err := decodeJSON(resp, &conv); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(conv)
	},
}

var conversationResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the stored conversation, abandoning any pending action",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")
		if userID == "" {
			userID = defaultUserID()
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/users/"+userID+"/conversation")
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Conversation for %s reset", userID)
		return nil
	},
}

func init() {
	tasksCmd.Flags().String("user", "", "user id (default: OS username)")
	tasksCmd.Flags().Int("limit", 20, "maximum number of tasks to list")
	meetingsCmd.Flags().String("user", "", "user id (default: OS username)")
	meetingsCmd.Flags().Int("limit", 20, "maximum number of meetings to list")

	conversationShowCmd.Flags().String("user", "", "user id (default: OS username)")
	conversationResetCmd.Flags().String("user", "", "user id (default: OS username)")
	conversationCmd.AddCommand(conversationShowCmd)
	conversationCmd.AddCommand(conversationResetCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, key := range config.Keys() {
			val, _ := config.Get(cfg, key)
			if config.IsSecret(key) && val != "" {
				val = "***"
			}
			fmt.Printf("  %s = %v\n", colorize(colorBold, key), val)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.Set(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
