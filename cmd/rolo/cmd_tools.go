package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/xiaot623/rolo/internal/domain"
)

var toolSession string

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Inspect and run the tools the model can call",
}

var toolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enabled tools with their classification",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tCLASS\tPARAMETERS\tDESCRIPTION")
		for _, t := range a.svc.ListTools() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.Name, t.Classification, paramList(t.Parameters), t.Description)
		}
		return w.Flush()
	},
}

var toolsInvokeCmd = &cobra.Command{
	Use:   "invoke <tool> [json-args]",
	Short: "Run one tool through the same safety checks the model goes through",
	Long: `Runs a tool exactly like a model request: policy, confirmation, SQL
screening and the automatic backup all apply.

Example:
  rolo tools invoke add_tag_to_contact '{"contact_id": 3, "tag_name": "family"}'
  rolo tools invoke execute_sql '{"sql": "SELECT count(*) FROM contacts", "confirm": true}'`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		toolArgs := map[string]interface{}{}
		if len(args) == 2 {
			if err := json.Unmarshal([]byte(args[1]), &toolArgs); err != nil {
				return fmt.Errorf("arguments must be a JSON object: %w", err)
			}
		}

		a, err := openApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		result := a.svc.InvokeTool(cmd.Context(), toolSession, args[0], toolArgs)
		return printResult(cmd.OutOrStdout(), result)
	},
}

func init() {
	toolsInvokeCmd.Flags().StringVar(&toolSession, "session", "", "record the call in this session's audit")
	toolsCmd.AddCommand(toolsListCmd, toolsInvokeCmd)
}

func paramList(schema domain.ParameterSchema) string {
	required := map[string]bool{}
	for _, r := range schema.Required {
		required[r] = true
	}
	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		if required[name] {
			names = append(names, name)
		} else {
			names = append(names, name+"?")
		}
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

// printResult writes the result as indented JSON. A failed result is also
// returned as an error so the exit code is non-zero.
func printResult(out io.Writer, result domain.ToolCallResult) error {
	b, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(out, string(b))
	if !result.Success {
		return fmt.Errorf("%s: %s", result.Error, result.Message)
	}
	return nil
}
