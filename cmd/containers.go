package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/docker/go-units"
	"github.com/pterm/pterm"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nicholas-fedor/portainerctl/pkg/container"
	"github.com/nicholas-fedor/portainerctl/pkg/filters"
	"github.com/nicholas-fedor/portainerctl/pkg/types"
)

// defaultStopTimeoutSeconds is how long the daemon waits for a container to
// stop before sending SIGKILL.
const defaultStopTimeoutSeconds = 10

// errInvalidFilter indicates a --filter argument was not in key=value form.
var errInvalidFilter = errors.New("invalid filter (expected key=value)")

func newPSCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ps",
		Short: "List containers on the endpoint",
		RunE:  runPS,
	}

	cmdFlags := cmd.Flags()
	cmdFlags.BoolP("all", "a", false, "show all containers, not only running ones")
	cmdFlags.BoolP("latest", "l", false, "show only the most recently created container")
	cmdFlags.BoolP("quiet", "q", false, "only display container ids")
	cmdFlags.BoolP("size", "s", false, "display container sizes")
	cmdFlags.Bool("no-trunc", false, "do not truncate container ids")
	cmdFlags.IntP("limit", "n", 0, "show at most this many recently created containers")
	cmdFlags.String("since", "", "only containers created after this id or name")
	cmdFlags.String("before", "", "only containers created before this id or name")
	cmdFlags.StringArrayP("filter", "f", nil, "filter output (key=value, repeatable)")

	return cmd
}

func runPS(cmd *cobra.Command, _ []string) error {
	cmdFlags := cmd.Flags()

	all, _ := cmdFlags.GetBool("all")
	latest, _ := cmdFlags.GetBool("latest")
	quiet, _ := cmdFlags.GetBool("quiet")
	size, _ := cmdFlags.GetBool("size")
	noTrunc, _ := cmdFlags.GetBool("no-trunc")
	limit, _ := cmdFlags.GetInt("limit")
	since, _ := cmdFlags.GetString("since")
	before, _ := cmdFlags.GetString("before")
	rawFilters, _ := cmdFlags.GetStringArray("filter")

	filterArgs := filters.Args{}

	for _, rawFilter := range rawFilters {
		name, value, found := strings.Cut(rawFilter, "=")
		if !found {
			return fmt.Errorf("%w: %q", errInvalidFilter, rawFilter)
		}

		filterArgs.Add(name, value)
	}

	params := container.ListParams{
		ListOptions: container.ListOptions{
			All:     all,
			Latest:  latest,
			Size:    size,
			Quiet:   quiet,
			Limit:   limit,
			Since:   since,
			Before:  before,
			Filters: filterArgs,
		},
		// The summary listing carries every column the table needs.
		Sparse: true,
	}

	containers, err := collection.List(cmd.Context(), params)
	if err != nil {
		return err
	}

	if quiet {
		for _, entry := range containers {
			fmt.Fprintln(cmd.OutOrStdout(), entry.ID())
		}

		return nil
	}

	table := pterm.TableData{
		{"CONTAINER ID", "IMAGE", "CREATED", "STATE", "STATUS", "NAMES"},
	}

	for _, entry := range containers {
		id := string(entry.ID())
		if !noTrunc {
			id = entry.ShortID()
		}

		table = append(table, []string{
			id,
			entry.Image(),
			createdAgo(entry),
			entry.State(),
			entry.Status(),
			entry.Name(),
		})
	}

	return pterm.DefaultTable.WithHasHeader().WithData(table).Render()
}

// createdAgo renders the container creation time as a human duration.
func createdAgo(entry *container.Container) string {
	created, ok := entry.Attributes()["Created"].(float64)
	if !ok {
		return ""
	}

	createdAt := time.Unix(int64(created), 0)

	return units.HumanDuration(time.Since(createdAt)) + " ago"
}

func newInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect CONTAINER",
		Short: "Display the full configuration of a container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, err := collection.Get(cmd.Context(), types.ContainerID(args[0]))
			if err != nil {
				return err
			}

			return printJSON(cmd, entry.Attributes())
		},
	}
}

func newStartCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "start CONTAINER [CONTAINER...]",
		Short: "Start one or more stopped containers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return forEachContainer(cmd, args, "Started", apiClient.StartContainer)
		},
	}
}

func newStopCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stop CONTAINER [CONTAINER...]",
		Short: "Stop one or more running containers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			timeout, _ := cmd.Flags().GetInt("time")

			return forEachContainer(cmd, args, "Stopped",
				func(ctx context.Context, ref types.ContainerReference) error {
					return apiClient.StopContainer(ctx, ref, timeout)
				})
		},
	}
	cmd.Flags().IntP("time", "t", defaultStopTimeoutSeconds, "seconds to wait before killing the container")

	return cmd
}

func newRestartCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restart CONTAINER [CONTAINER...]",
		Short: "Restart one or more containers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			timeout, _ := cmd.Flags().GetInt("time")

			return forEachContainer(cmd, args, "Restarted",
				func(ctx context.Context, ref types.ContainerReference) error {
					return apiClient.RestartContainer(ctx, ref, timeout)
				})
		},
	}
	cmd.Flags().IntP("time", "t", defaultStopTimeoutSeconds, "seconds to wait before killing the container")

	return cmd
}

func newKillCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kill CONTAINER [CONTAINER...]",
		Short: "Kill one or more containers or send them a signal",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rawSignal, _ := cmd.Flags().GetString("signal")
			signal := container.Signal(rawSignal)

			// Numeric signals go over the wire in their integer form.
			if num, err := strconv.Atoi(rawSignal); err == nil {
				signal = container.NumericSignal(num)
			}

			return forEachContainer(cmd, args, "Killed",
				func(ctx context.Context, ref types.ContainerReference) error {
					return apiClient.KillContainer(ctx, ref, signal)
				})
		},
	}
	cmd.Flags().StringP("signal", "s", "", "signal to send (name or number, default SIGKILL)")

	return cmd
}

func newPauseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pause CONTAINER [CONTAINER...]",
		Short: "Pause all processes within one or more containers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return forEachContainer(cmd, args, "Paused", apiClient.PauseContainer)
		},
	}
}

func newUnpauseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unpause CONTAINER [CONTAINER...]",
		Short: "Resume all processes within one or more paused containers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return forEachContainer(cmd, args, "Unpaused", apiClient.UnpauseContainer)
		},
	}
}

func newStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats CONTAINER",
		Short: "Display a single resource usage snapshot for a container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := apiClient.ContainerStats(cmd.Context(), types.ContainerID(args[0]))
			if err != nil {
				return err
			}

			return printJSON(cmd, stats)
		},
	}
}

func newTopCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "top CONTAINER",
		Short: "Display the running processes of a container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			psArgs, _ := cmd.Flags().GetString("ps-args")

			result, err := apiClient.ContainerTop(cmd.Context(), types.ContainerID(args[0]), psArgs)
			if err != nil {
				return err
			}

			return renderTopTable(result)
		},
	}
	cmd.Flags().String("ps-args", "", "arguments to pass to ps (e.g. aux)")

	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display the Docker version reported by the endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			version, err := apiClient.Version(cmd.Context())
			if err != nil {
				return err
			}

			return printJSON(cmd, version)
		},
	}
}

// forEachContainer applies op to each named container, logging a line per
// success and returning the first failure.
func forEachContainer(
	cmd *cobra.Command,
	names []string,
	verb string,
	op func(ctx context.Context, ref types.ContainerReference) error,
) error {
	for _, name := range names {
		if err := op(cmd.Context(), types.ContainerID(name)); err != nil {
			return fmt.Errorf("failed to handle container %s: %w", name, err)
		}

		logrus.WithField("container", name).Info(verb + " container")
	}

	return nil
}

// renderTopTable prints the titles and process rows from a top result.
func renderTopTable(result container.Attributes) error {
	table := pterm.TableData{}

	if titles, ok := result["Titles"].([]any); ok {
		table = append(table, anyStrings(titles))
	}

	if processes, ok := result["Processes"].([]any); ok {
		for _, row := range processes {
			if cells, isList := row.([]any); isList {
				table = append(table, anyStrings(cells))
			}
		}
	}

	return pterm.DefaultTable.WithHasHeader().WithData(table).Render()
}

// anyStrings flattens a decoded JSON string list.
func anyStrings(values []any) []string {
	cells := make([]string, 0, len(values))

	for _, value := range values {
		if text, ok := value.(string); ok {
			cells = append(cells, text)
		}
	}

	return cells
}

// printJSON pretty-prints v on the command's stdout.
func printJSON(cmd *cobra.Command, v any) error {
	buf, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(buf))

	return nil
}
