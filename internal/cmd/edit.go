package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/atikulmunna/vislog/internal/model"
)

var editValues model.LogEntry

var editCmd = &cobra.Command{
	Use:   "edit INDEX",
	Short: "Edit one stored entry",
	Long: `Edit the entry at INDEX (as shown by list). Only the given fields change.

Examples:
  vislog edit 3 --page /pricing
  vislog edit 0 --domain acme.com --method POST`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

func init() {
	f := editCmd.Flags()
	f.StringVar(&editValues.IP, "ip", "", "new IP")
	f.StringVar(&editValues.Domain, "domain", "", "new domain")
	f.StringVar(&editValues.Timestamp, "timestamp", "", "new timestamp")
	f.StringVar(&editValues.RequestType, "method", "", "new request type")
	f.StringVar(&editValues.PageURL, "page", "", "new page URL")
	f.StringVar(&editValues.ReferralURL, "referral", "", "new referral URL")
	f.StringVar(&editValues.UserAgent, "user-agent", "", "new user agent")
	rootCmd.AddCommand(editCmd)
}

func runEdit(cmd *cobra.Command, args []string) error {
	index, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid index %q", args[0])
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	logs := st.Snapshot().Logs
	if index < 0 || index >= len(logs) {
		return fmt.Errorf("index %d out of range (0-%d)", index, len(logs)-1)
	}

	old := logs[index]
	updated := applyEdits(cmd, old)
	if updated == old {
		return fmt.Errorf("nothing to change: pass at least one field flag")
	}

	_, found, err := st.UpdateAt(index, updated)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("index %d out of range", index)
	}
	return renderer(cmd).Render(index, updated)
}

func applyEdits(cmd *cobra.Command, e model.LogEntry) model.LogEntry {
	fields := []struct {
		flag string
		dst  *string
		val  string
	}{
		{"ip", &e.IP, editValues.IP},
		{"domain", &e.Domain, editValues.Domain},
		{"timestamp", &e.Timestamp, editValues.Timestamp},
		{"method", &e.RequestType, editValues.RequestType},
		{"page", &e.PageURL, editValues.PageURL},
		{"referral", &e.ReferralURL, editValues.ReferralURL},
		{"user-agent", &e.UserAgent, editValues.UserAgent},
	}
	for _, f := range fields {
		if cmd.Flags().Changed(f.flag) {
			*f.dst = f.val
		}
	}
	return e
}
