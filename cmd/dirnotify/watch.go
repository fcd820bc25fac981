package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	humanize "github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/mutagen-io/dirnotify/cmd"
	"github.com/mutagen-io/dirnotify/pkg/async"
	"github.com/mutagen-io/dirnotify/pkg/filesystem/watching"
	"github.com/mutagen-io/dirnotify/pkg/filesystem/watching/backend"
	"github.com/mutagen-io/dirnotify/pkg/handle"
	"github.com/mutagen-io/dirnotify/pkg/server"
)

// validateExclusions ensures that exclusion patterns are valid doublestar
// patterns.
func validateExclusions(patterns []string) error {
	for _, pattern := range patterns {
		if _, err := doublestar.Match(pattern, "a"); err != nil {
			return errors.Wrapf(err, "invalid exclusion pattern: %s", pattern)
		}
	}
	return nil
}

// excluded returns whether or not a relative path matches any of the exclusion
// patterns.
func excluded(patterns []string, path string) bool {
	for _, pattern := range patterns {
		if match, _ := doublestar.Match(pattern, path); match {
			return true
		}
	}
	return false
}

// actionColors maps actions to the colors used to print them.
var actionColors = map[watching.Action]*color.Color{
	watching.ActionAdded:    color.New(color.FgGreen),
	watching.ActionRemoved:  color.New(color.FgRed),
	watching.ActionModified: color.New(color.FgYellow),
}

// tally tracks the changes observed by the watch command.
type tally struct {
	// started is the time at which watching started.
	started time.Time
	// notifications is the number of completed requests.
	notifications uint64
	// records counts the records printed per action.
	records map[watching.Action]uint64
	// excluded is the number of records suppressed by exclusions.
	excluded uint64
}

// summary formats a summary of the tally.
func (t *tally) summary() string {
	var total uint64
	for _, count := range t.records {
		total += count
	}
	return fmt.Sprintf("%s notifications, %s changes (%s added, %s removed, %s modified, %s excluded) since %s",
		humanize.Comma(int64(t.notifications)),
		humanize.Comma(int64(total)),
		humanize.Comma(int64(t.records[watching.ActionAdded])),
		humanize.Comma(int64(t.records[watching.ActionRemoved])),
		humanize.Comma(int64(t.records[watching.ActionModified])),
		humanize.Comma(int64(t.excluded)),
		humanize.Time(t.started),
	)
}

// watchMain is the entry point for the watch command.
func watchMain(_ *cobra.Command, arguments []string) error {
	// Validate arguments.
	if len(arguments) != 1 {
		return errors.New("exactly one directory must be specified")
	} else if watchConfiguration.filter.filter == 0 {
		return errors.New("filter must be non-empty")
	} else if err := validateExclusions(watchConfiguration.excludes); err != nil {
		return err
	}

	// Load settings.
	settings, logger, err := loadSettings()
	if err != nil {
		return err
	}
	preference, err := backend.ParsePreference(settings.Backend.Preference)
	if err != nil {
		return errors.Wrap(err, "invalid backend preference")
	}
	options := backend.Options{
		EventBuffer: settings.Backend.EventBuffer,
		Logger:      logger.Sublogger("backend"),
	}

	// Set up termination signal handling.
	signalTermination := make(chan os.Signal, 1)
	signal.Notify(signalTermination, cmd.TerminationSignals...)
	defer signal.Stop(signalTermination)

	// Create and start the server, ensuring its termination.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	notifier := server.New(logger.Sublogger("server"), func() *backend.Selection {
		return backend.Select(preference, options)
	}, watching.Options{MaximumPendingRecords: settings.Watch.MaximumPendingRecords})
	runErrors := make(chan error, 1)
	go func() {
		runErrors <- notifier.Run(ctx)
	}()
	defer notifier.Terminate()

	// Open the directory.
	directory, err := notifier.OpenDirectory(ctx, arguments[0], handle.AccessListDirectory|handle.AccessSynchronize)
	if err != nil {
		return err
	}

	// Create the arm request.
	arm := server.ArmRequest{
		Filter:       watchConfiguration.filter.filter,
		Recursive:    watchConfiguration.recursive,
		WantDetail:   !watchConfiguration.noDetail,
		Asynchronous: true,
	}

	// Track changes and print a summary on exit.
	counts := &tally{started: time.Now(), records: make(map[watching.Action]uint64)}
	statusLine := &cmd.StatusLinePrinter{}
	defer func() {
		statusLine.Clear()
		fmt.Println(counts.summary())
	}()

	// Loop until terminated, re-arming after each notification.
	for first := true; ; first = false {
		// Arm the watch.
		request, err := notifier.ArmWatch(ctx, directory, arm)
		if err != nil {
			return errors.Wrap(err, "unable to arm watch")
		}

		// Report the backend in use once it's known.
		if first {
			kind, err := notifier.Backend(ctx)
			if err != nil {
				return errors.Wrap(err, "unable to query backend")
			}
			fmt.Printf("Watching %s (%s backend, filter %s, recursive: %t)\n",
				arguments[0], kind, arm.Filter, arm.Recursive,
			)
			if kind == backend.KindUnavailable {
				cmd.Warning("no notification backend available, changes won't be reported")
			}
		}

		// Wait for a notification.
		select {
		case <-signalTermination:
			return nil
		case err := <-runErrors:
			return errors.Wrap(err, "server failed")
		case <-request.Done():
		}
		if status := request.Status(); status != async.StatusAlerted {
			return errors.Errorf("watch completed with status: %s", status)
		}
		counts.notifications++

		// Print the queued changes.
		statusLine.Clear()
		for {
			record, err := notifier.ReadChange(ctx, directory)
			if errors.Is(err, watching.ErrNoData) {
				break
			} else if err != nil {
				return errors.Wrap(err, "unable to read change")
			}
			if excluded(watchConfiguration.excludes, record.Path) {
				counts.excluded++
				continue
			}
			counts.records[record.Action]++
			actionColors[record.Action].Fprintf(color.Output, "%-8s", record.Action)
			fmt.Fprintln(color.Output, record.Path)
		}
		if watchConfiguration.noDetail {
			fmt.Fprintln(color.Output, "Change detected")
		}
		statusLine.Print(counts.summary())
	}
}

// watchCommand is the watch command.
var watchCommand = &cobra.Command{
	Use:   "watch <directory>",
	Short: "Watch a directory for changes and print them as they occur",
	Args:  cobra.ExactArgs(1),
	Run:   cmd.Mainify(watchMain),
}

// watchConfiguration stores configuration for the watch command.
var watchConfiguration struct {
	// recursive indicates whether or not the entire subtree should be watched.
	recursive bool
	// filter is the change filter.
	filter filterValue
	// noDetail indicates that per-change records should not be requested.
	noDetail bool
	// excludes are doublestar patterns for relative paths to suppress.
	excludes []string
}

func init() {
	// Set the default filter.
	watchConfiguration.filter.filter = watching.FilterFileName | watching.FilterDirectoryName | watching.FilterLastWrite

	// Configure flags.
	cmd.ConfigureCommand(watchCommand)
	flags := watchCommand.Flags()
	flags.BoolVarP(&watchConfiguration.recursive, "recursive", "r", false, "Watch the entire directory tree")
	flags.VarP(&watchConfiguration.filter, "filter", "f", "Specify change filters (name,dir,attributes,size,write,access,creation,security,all)")
	flags.BoolVar(&watchConfiguration.noDetail, "no-detail", false, "Only report that changes occurred")
	flags.StringSliceVarP(&watchConfiguration.excludes, "exclude", "e", nil, "Suppress changes to paths matching a doublestar pattern")
}
