// Command overlayctl is a harness exercising pkg/overlay's Engine from the
// command line: no daemon, no persisted state, just a --config-described
// live tree replayed fresh on every invocation, the way a test harness
// rebuilds fixture state rather than depending on it surviving across
// runs.
package main

import (
	"fmt"
	"os"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/minio/minio/pkg/wildcard"

	"github.com/ofkit/dtoverlay/pkg/audit"
	"github.com/ofkit/dtoverlay/pkg/changeset"
	"github.com/ofkit/dtoverlay/pkg/dtblob"
	"github.com/ofkit/dtoverlay/pkg/dtree"
	"github.com/ofkit/dtoverlay/pkg/overlay"
)

var (
	configPath string
	tracePat   string
	auditLog   bool
)

func main() {
	defer glog.Flush()

	root := &cobra.Command{
		Use:   "overlayctl",
		Short: "apply and remove device-tree overlay blobs against a harness live tree",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML file describing the live tree and previously-applied overlays")
	root.PersistentFlags().StringVar(&tracePat, "trace", "", "glob matched against each notified fragment's target path; matches are logged")
	root.PersistentFlags().BoolVar(&auditLog, "audit", false, "log every applied/reverted primitive entry as an RFC6902 JSON Patch line")

	root.AddCommand(applyCmd(), removeCmd(), removeAllCmd(), listCmd())

	if err := root.Execute(); err != nil {
		glog.Errorf("overlayctl: %v", err)
		os.Exit(1)
	}
}

// buildEngine loads --config, constructs the live tree it describes, and
// replays every overlay blob config.Overlays lists, in order, against a
// fresh Engine, wiring the default blob decoder, phandle resolver, and
// changeset executor (or the audit-wrapped executor, if --audit is set)
// before the requested operation runs.
func buildEngine() (*overlay.Engine, error) {
	c, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	live := buildLiveTree(c)

	var opts []overlay.Option
	if auditLog {
		ex := changeset.NewExecutor()
		ex.OnEntry = audit.NewDumper().OnEntry
		opts = append(opts, overlay.WithExecutor(ex))
	}
	e := overlay.NewEngine(live, opts...)

	if tracePat != "" {
		e.RegisterObserver(traceObserver(tracePat))
	}

	for _, blobPath := range c.Overlays {
		buf, err := os.ReadFile(blobPath)
		if err != nil {
			return nil, fmt.Errorf("reading overlay %s: %w", blobPath, err)
		}
		if _, err := e.Apply(buf, nil); err != nil {
			return nil, fmt.Errorf("replaying overlay %s: %w", blobPath, err)
		}
	}

	return e, nil
}

func traceObserver(pattern string) overlay.ObserverFunc {
	return func(action overlay.Action, data changeset.NotifyData) error {
		path := dtree.PathOf(data.Target)
		if wildcard.Match(pattern, path) {
			glog.Infof("trace: %s %s", action, path)
		}
		return nil
	}
}

func applyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply <blob-file>",
		Short: "apply an overlay blob on top of the replayed live tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := buildEngine()
			if err != nil {
				return err
			}
			buf, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if _, err := dtblob.Decode(buf); err != nil {
				return fmt.Errorf("%s does not look like an overlay blob: %w", args[0], err)
			}
			id, err := e.Apply(buf, nil)
			if err != nil {
				fmt.Printf("apply failed (id=%d): %v\n", id, err)
				return err
			}
			fmt.Printf("applied: id=%d\n", id)
			return nil
		},
	}
}

func removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "remove a previously-applied overlay by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id int
			if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
				return fmt.Errorf("invalid id %q: %w", args[0], err)
			}
			e, err := buildEngine()
			if err != nil {
				return err
			}
			if err := e.Remove(&id); err != nil {
				return err
			}
			fmt.Println("removed")
			return nil
		},
	}
}

func removeAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-all",
		Short: "remove every replayed overlay, most recently applied first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := buildEngine()
			if err != nil {
				return err
			}
			if err := e.RemoveAll(); err != nil {
				return err
			}
			fmt.Println("removed all")
			return nil
		},
	}
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list the overlays the replayed config leaves registered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := buildEngine()
			if err != nil {
				return err
			}
			if e.Corruption().IsCorrupt() {
				fmt.Println("WARNING: engine corruption flag is set")
			}
			summaries := e.ListSummaries()
			if len(summaries) == 0 {
				fmt.Println("no overlays registered")
				return nil
			}
			for _, s := range summaries {
				fmt.Printf("%d\t%d fragments\t%s\n", s.ID, s.FragmentCount, s.NotifyState)
			}
			return nil
		},
	}
}
