package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/llehouerou/wavelet/internal/config"
	"github.com/llehouerou/wavelet/internal/errmsg"
	"github.com/llehouerou/wavelet/internal/playback"
	"github.com/llehouerou/wavelet/internal/server"
)

// remoteAddr returns the --addr flag, or the configured listen address.
func remoteAddr(opts *globalOptions, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return "", errmsg.Wrap(errmsg.OpConfigLoad, err)
	}
	return cfg.GetServerConfig().Listen, nil
}

func newCtlCmd(opts *globalOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "ctl",
		Short: "Control a running wavelet server",
	}
	cmd.PersistentFlags().StringVarP(&addr, "addr", "a", "", "server address (default from config)")

	client := func() (*server.Client, error) {
		a, err := remoteAddr(opts, addr)
		if err != nil {
			return nil, err
		}
		return server.NewClient(a), nil
	}

	state := &cobra.Command{
		Use:   "state",
		Short: "Show the current session state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := client()
			if err != nil {
				return err
			}
			s, err := c.State(cmd.Context())
			if err != nil {
				return errmsg.Wrap(errmsg.OpCommandSend, err)
			}
			printState(cmd.OutOrStdout(), s)
			return nil
		},
	}
	cmd.AddCommand(state)

	for _, name := range []string{"start", "pause", "stop", "toggle"} {
		cmd.AddCommand(&cobra.Command{
			Use:   name,
			Short: "Send " + name,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				c, err := client()
				if err != nil {
					return err
				}
				s, err := c.Command(cmd.Context(), name)
				if err != nil {
					return errmsg.Wrap(errmsg.OpCommandSend, err)
				}
				printState(cmd.OutOrStdout(), s)
				return nil
			},
		})
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "load <id>",
		Short: "Load a catalog track by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return errmsg.Wrap(errmsg.OpTrackLoad, err)
			}
			c, err := client()
			if err != nil {
				return err
			}
			s, err := c.Load(cmd.Context(), id)
			if err != nil {
				return errmsg.Wrap(errmsg.OpTrackLoad, err)
			}
			printState(cmd.OutOrStdout(), s)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the server's catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := client()
			if err != nil {
				return err
			}
			tracks, err := c.Catalog(cmd.Context())
			if err != nil {
				return errmsg.Wrap(errmsg.OpCatalogList, err)
			}
			return printTracks(cmd.OutOrStdout(), tracks)
		},
	})
	return cmd
}

func trackLabel(t *playback.Track) string {
	if t == nil {
		return "(no track)"
	}
	if t.Artist == "" {
		return t.Title
	}
	return t.Artist + " - " + t.Title
}

func printState(w io.Writer, s playback.State) {
	if s.Track == nil {
		fmt.Fprintf(w, "%-8s %s\n", s.Phase, trackLabel(nil))
		return
	}
	fmt.Fprintf(w, "%-8s %s  %s / %s\n", s.Phase, trackLabel(s.Track),
		playback.FormatSeconds(s.Elapsed), playback.FormatSeconds(s.Track.Duration))
}

func newWatchCmd(opts *globalOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print session changes from a running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := remoteAddr(opts, addr)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return watch(ctx, server.NewClient(a), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "server address (default from config)")
	return cmd
}

func watch(ctx context.Context, c *server.Client, w io.Writer) error {
	err := c.Watch(ctx, func(m server.Message) {
		fmt.Fprintln(w, formatMessage(m))
	})
	return errmsg.Wrap(errmsg.OpWatch, err)
}

func formatMessage(m server.Message) string {
	switch m.Type {
	case server.MsgTrack:
		if m.Track == nil {
			return "track    " + trackLabel(nil)
		}
		return fmt.Sprintf("track    %s (%s)", trackLabel(m.Track), playback.FormatSeconds(m.Track.Duration))
	case server.MsgPhase:
		if m.Phase != nil {
			return "phase    " + m.Phase.String()
		}
	case server.MsgElapsed:
		if m.Elapsed != nil {
			return "elapsed  " + playback.FormatSeconds(*m.Elapsed)
		}
	case server.MsgError:
		return "error    " + m.Error
	}
	return m.Type
}
