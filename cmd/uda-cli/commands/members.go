package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"
	"uda-connector/internal/components/chrono"
	"uda-connector/internal/memberstore"
	"uda-connector/pkg/udamember"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	membersJson           *bool
	membersDb             *string
	membersSearch         *string
	membersMinCorrelation *float64
)

func init() {
	membersJson = membersCmd.Flags().Bool("json", false, "Print members as JSON instead of a table.")
	membersDb = membersCmd.Flags().String("db", "", "Also write the members to this sqlite file (or libsql url), replacing its previous contents.")
	membersSearch = membersCmd.Flags().String("search", "", "Only print members whose name resembles this one, most similar first.")
	membersMinCorrelation = membersCmd.Flags().Float64("min-correlation", 0.8, "Minimum name similarity (0 to 1) for --search.")
	rootCmd.AddCommand(membersCmd)
}

var membersCmd = &cobra.Command{
	Use:   "members [--json] [--db <path>] [--search <name>]",
	Short: "Logs into UDA and lists the competitors of the organization.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		err = s.client.Authenticate(ctx, s.creds.Login(), s.creds.Password())
		if err != nil {
			return fmt.Errorf("login as %s: %s", s.creds, describe(err))
		}

		start := time.Now()
		members, err := s.client.RetrieveMembers(ctx)
		if err != nil {
			return fmt.Errorf("retrieve members: %s", describe(err))
		}
		slog.Debug("retrieved members", "count", len(members), "seconds", time.Since(start).Seconds())

		if *membersDb != "" {
			err = saveMembers(cmd, *membersDb, s.creds.BaseUrl(), members)
			if err != nil {
				return err
			}
		}

		if *membersSearch != "" {
			matches := udamember.Search(members, *membersSearch, *membersMinCorrelation)
			if *membersJson {
				return writeJson(cmd.OutOrStdout(), matches)
			}
			renderMatches(cmd.OutOrStdout(), matches)
			return nil
		}

		if *membersJson {
			return writeJson(cmd.OutOrStdout(), members)
		}
		renderMembers(cmd.OutOrStdout(), members)
		return nil
	},
}

func saveMembers(cmd *cobra.Command, path, baseUrl string, members []udamember.Member) error {
	db, err := memberstore.OpenDB(path)
	if err != nil {
		return err
	}
	defer db.Close()

	store, err := memberstore.NewStore(cmd.Context(), db, chrono.NewStandardTime())
	if err != nil {
		return err
	}
	err = store.Save(cmd.Context(), baseUrl, members)
	if err != nil {
		return fmt.Errorf("save members to %s: %w", path, err)
	}
	slog.Info("saved members", "db", path, "count", len(members))
	return nil
}

func writeJson(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

func optional(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

func memberRow(m udamember.Member) table.Row {
	return table.Row{
		m.Id,
		optional(m.MembershipNumber),
		m.FullName(),
		m.Email,
		optional(m.Club),
		m.Confirmed,
	}
}

var memberHeader = table.Row{"Id", "Membership", "Name", "Email", "Club", "Confirmed"}

func renderMembers(w io.Writer, members []udamember.Member) {
	t := newTable(w)
	t.AppendHeader(memberHeader)
	for _, m := range members {
		t.AppendRow(memberRow(m))
	}
	t.AppendFooter(table.Row{"", "", "", "", "Total", len(members)})
	t.Render()
}

func renderMatches(w io.Writer, matches []udamember.Match) {
	t := newTable(w)
	t.AppendHeader(append(table.Row{"Similarity"}, memberHeader...))
	for _, m := range matches {
		t.AppendRow(append(table.Row{fmt.Sprintf("%.2f", m.Correlation)}, memberRow(m.Member)...))
	}
	t.Render()
}
