package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/brizzai/dataport-cli/internal/session"
	"github.com/brizzai/dataport-cli/internal/tokens"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type outputFormat string

const (
	formatText outputFormat = "text"
	formatJSON outputFormat = "json"
	formatYAML outputFormat = "yaml"
)

func validateFormat(format string) error {
	switch outputFormat(format) {
	case formatText, formatJSON, formatYAML:
		return nil
	default:
		return fmt.Errorf("unsupported output format %q (text|json|yaml)", format)
	}
}

func formatOf(cmd *cobra.Command) outputFormat {
	format, _ := cmd.Flags().GetString("output")
	if format == "" {
		return formatText
	}
	return outputFormat(format)
}

// render writes v as JSON or YAML, or calls text for the text format.
func render(w io.Writer, format outputFormat, v interface{}, text func(w io.Writer) error) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return text(w)
	}
}

func printUser(w io.Writer, user *tokens.UserData) error {
	if user == nil {
		pterm.Info.WithWriter(w).Println("No profile information available")
		return nil
	}
	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	rows := [][]string{
		{"Email", user.Email},
		{"Name", name},
		{"ID", fmt.Sprint(user.ID)},
	}
	if user.ProfileType != nil {
		rows = append(rows, []string{"Profile", *user.ProfileType})
	}
	if user.IsSuperuser != nil && *user.IsSuperuser {
		rows = append(rows, []string{"Superuser", "yes"})
	}
	return pterm.DefaultTable.WithWriter(w).WithData(rows).Render()
}

func printStatus(w io.Writer, status session.Status) error {
	expires := "-"
	if status.AccessExpiresAt != nil {
		expires = fmt.Sprintf("%s (in %s)",
			status.AccessExpiresAt.Local().Format(time.RFC1123),
			time.Until(*status.AccessExpiresAt).Round(time.Second))
	}
	user := "-"
	if status.User != nil {
		user = status.User.Email
	}
	rows := [][]string{
		{"State", string(status.State)},
		{"User", user},
		{"Access token expires", expires},
		{"Refresh due", yesNo(status.ShouldRefresh)},
		{"Refresh token", yesNo(status.HasRefreshToken)},
		{"Persistent storage", yesNo(status.Persistent)},
	}
	return pterm.DefaultTable.WithWriter(w).WithData(rows).Render()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
