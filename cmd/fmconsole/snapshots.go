package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func (c *cli) snapshotsCmd() *cobra.Command {
	var (
		olderThan time.Duration
		deleteRes string
	)
	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "Show saved snapshots",
		Long: `Show the snapshots saved by successful fetches. --delete removes every
snapshot of one resource; --older-than removes snapshots older than the
given age (for example 720h).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSnapshots(cmd.OutOrStdout(), deleteRes, olderThan)
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&deleteRes, "delete", "", "delete all snapshots of a resource")
	fs.DurationVar(&olderThan, "older-than", 0, "delete snapshots older than this age")
	return cmd
}

func (c *cli) runSnapshots(out io.Writer, deleteRes string, olderThan time.Duration) error {
	st, err := c.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if deleteRes != "" {
		n, err := st.DeleteSnapshots(deleteRes)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "deleted %d snapshot(s) of %s\n", n, deleteRes)
	}
	if olderThan > 0 {
		n, err := st.Prune(time.Now().Add(-olderThan))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "pruned %d snapshot(s) older than %s\n", n, olderThan)
	}

	infos, err := st.ListSnapshots()
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Fprintln(out, "No snapshots saved. Run 'fmconsole prefetch' to save some.")
		return nil
	}

	rows := make([][]string, len(infos))
	for i, info := range infos {
		query := info.QueryKey
		if query == "" {
			query = "(all)"
		}
		rows[i] = []string{
			info.Resource,
			truncate(query, 48),
			humanize.Comma(int64(info.RecordCount)),
			humanize.Bytes(uint64(max(0, info.Bytes))),
			humanize.Time(info.FetchedAt),
		}
	}
	fmt.Fprintln(out, plainTable([]string{"RESOURCE", "QUERY", "RECORDS", "SIZE", "SAVED"}, rows))
	return nil
}
