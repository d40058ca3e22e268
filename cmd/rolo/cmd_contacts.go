package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/xiaot623/rolo/internal/domain"
)

var contactsLimit int

var contactsCmd = &cobra.Command{
	Use:   "contacts",
	Short: "Browse contacts",
}

var contactsListCmd = &cobra.Command{
	Use:   "list [query]",
	Short: "List contacts, optionally filtered by a search query",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		toolArgs := map[string]interface{}{"limit": contactsLimit}
		if len(args) == 1 {
			toolArgs["query"] = args[0]
		}

		a, err := openApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		result := a.svc.InvokeTool(cmd.Context(), "", "search_contacts", toolArgs)
		if !result.Success {
			return printResult(cmd.OutOrStdout(), result)
		}
		var contacts []domain.Contact
		if err := remarshal(result.Result, &contacts); err != nil {
			return err
		}
		if len(contacts) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No contacts found.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tEMAIL\tPHONE\tCOMPANY")
		for _, c := range contacts {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", c.ID, c.DisplayName(), c.Email, c.Phone, c.Company)
		}
		return w.Flush()
	},
}

var contactsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a contact with its tags, notes and relationships",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid contact id %q", args[0])
		}

		a, err := openApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		result := a.svc.InvokeTool(cmd.Context(), "", "get_contact", map[string]interface{}{"contact_id": id})
		return printResult(cmd.OutOrStdout(), result)
	},
}

func init() {
	contactsListCmd.Flags().IntVarP(&contactsLimit, "limit", "n", 50, "maximum number of contacts")
	contactsCmd.AddCommand(contactsListCmd, contactsShowCmd)
}

// remarshal converts a generic tool result into a typed value.
func remarshal(in interface{}, out interface{}) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}
