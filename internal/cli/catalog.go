package cli

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/spf13/cobra"

	"github.com/llehouerou/wavelet/internal/errmsg"
	"github.com/llehouerou/wavelet/internal/playback"
)

func newCatalogCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the track catalog",
	}
	cmd.AddCommand(newCatalogAddCmd(opts), newCatalogListCmd(opts), newCatalogRemoveCmd(opts))
	return cmd
}

func newCatalogAddCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <path>...",
		Short: "Import music files or directories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(opts, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.catalog.Import(cmd.Context(), args...)
			if err != nil {
				return errmsg.Wrap(errmsg.OpCatalogImport, err)
			}
			for path, err := range res.Failed {
				fmt.Fprintln(cmd.ErrOrStderr(), errmsg.FormatWith(errmsg.OpCatalogImport, path, err))
			}
			n := len(res.Added)
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s\n", humanize.Comma(int64(n)), english.PluralWord(n, "track", ""))
			return nil
		},
	}
}

func newCatalogListCmd(opts *globalOptions) *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog tracks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(opts, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			var tracks []playback.Track
			if search != "" {
				tracks, err = a.catalog.Search(cmd.Context(), search)
			} else {
				tracks, err = a.catalog.List(cmd.Context())
			}
			if err != nil {
				return errmsg.Wrap(errmsg.OpCatalogList, err)
			}
			return printTracks(cmd.OutOrStdout(), tracks)
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "only tracks whose title, artist or album contains this")
	return cmd
}

func newCatalogRemoveCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a track from the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return errmsg.Wrap(errmsg.OpCatalogRemove, err)
			}
			a, err := setup(opts, nil)
			if err != nil {
				return err
			}
			defer a.Close()
			return errmsg.Wrap(errmsg.OpCatalogRemove, a.catalog.Remove(cmd.Context(), id))
		},
	}
}

func printTracks(w io.Writer, tracks []playback.Track) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tARTIST\tALBUM\t#\tTITLE\tLENGTH")
	for _, t := range tracks {
		num := ""
		if t.TrackNumber > 0 {
			num = strconv.Itoa(t.TrackNumber)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, t.Artist, t.Album, num, t.Title, playback.FormatSeconds(t.Duration))
	}
	return tw.Flush()
}
