package main

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"
	api "gitlab.com/dirk.krummacker/address-book/pkg/model"
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register the user given by --user and --password",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		user := api.User{Username: username, Password: password}
		if _, err := call(http.MethodPost, "/users", user, nil); err != nil {
			return err
		}
		fmt.Printf("registered %s\n", username)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List your contacts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var contacts []api.Contact
		if _, err := call(http.MethodGet, "/contacts", nil, &contacts); err != nil {
			return err
		}
		return printJSON(contacts)
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find contacts with a name, phone number, email or notes equal to the query",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var contacts []api.Contact
		path := "/search?query=" + url.QueryEscape(args[0])
		if _, err := call(http.MethodGet, path, nil, &contacts); err != nil {
			return err
		}
		return printJSON(contacts)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write your contacts to a backup file on the server",
	Long: `Export writes your contacts to a backup file in the backup directory of the
service. Without a file name the default backup file is written.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var response api.BackupResponse
		if _, err := call(http.MethodPost, "/backup", backupRequest(args), &response); err != nil {
			return err
		}
		fmt.Printf("exported %d contacts to %s\n", response.Exported, response.FileName)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Add the contacts of a backup file on the server to your contacts",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var response api.ImportResponse
		if _, err := call(http.MethodPost, "/import", backupRequest(args), &response); err != nil {
			return err
		}
		fmt.Printf("imported %d contacts from %s\n", response.Imported, response.FileName)
		return nil
	},
}

func backupRequest(args []string) api.BackupRequest {
	var request api.BackupRequest
	if len(args) > 0 {
		request.FileName = args[0]
	}
	return request
}
