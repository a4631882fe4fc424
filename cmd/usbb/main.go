package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"usbb-go/internal/app"
	"usbb-go/internal/config"
	"usbb-go/internal/jobs"
	"usbb-go/internal/usbb"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer a.Close().
func newApp() (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// check prints a failed Result and turns it into an error for the exit code.
func check(res usbb.Result) error {
	if res.OK() {
		return nil
	}
	if err := printJSON(res); err != nil {
		return err
	}
	return fmt.Errorf("%s: %s", res.Error.Code, res.Error.Message)
}

// runJob follows a submitted job until it completes or the process is
// interrupted, and fails unless the job succeeded.
func runJob(cmd *cobra.Command, a *app.App, id string, res usbb.Result) error {
	if err := check(res); err != nil {
		return err
	}
	ctx, stop := signalContext(cmd)
	defer stop()

	st, err := a.RunJob(ctx, id, os.Stdout)
	if err != nil {
		return err
	}
	fmt.Printf("%s %s in %s (%d errors)\n", st.ID, st.Status, jobDuration(st), st.ErrorCount)
	if st.Status != jobs.StatusSuccess {
		return fmt.Errorf("job %s %s: %s", st.ID, st.Status, st.Error)
	}
	return nil
}

func jobDuration(st jobs.State) time.Duration {
	if st.StartedAt == nil || st.FinishedAt == nil {
		return 0
	}
	return st.FinishedAt.Sub(*st.StartedAt).Truncate(time.Millisecond)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

var rootCmd = &cobra.Command{
	Use:           "usbb",
	Short:         "Back up removable drives to other drives",
	SilenceUsage:  true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("# %s\n", defaults["config_path"])
		var m config.Manager
		return m.Write(os.Stdout, cfg)
	},
}

// device command
var deviceCmd = &cobra.Command{
	Use:   "device",
	Short: "Manage source and backup devices",
}

var deviceAddCmd = &cobra.Command{
	Use:   "add (source|backup) PATH",
	Short: "Register a device",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		description, _ := cmd.Flags().GetString("description")

		deviceType := usbb.DeviceType(args[0])
		if !deviceType.Valid() {
			return fmt.Errorf("device type must be source or backup, got %q", args[0])
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		device, res := a.AddDevice(deviceType, args[1], name, description)
		if err := check(res); err != nil {
			return err
		}
		return printJSON(device)
	},
}

var deviceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		devices, err := a.ListDevices()
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(devices)
		}
		if len(devices) == 0 {
			fmt.Println("No devices registered.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTYPE\tNAME\tONLINE\tUSED\tFREE\tLAST SCAN\tLAST BACKUP\tPATH")
		for _, d := range devices {
			fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%d\t%d\t%s\t%s\t%s\n",
				d.ID, d.DeviceType, d.Name, a.Service().IsOnline(d), d.UsedSize, d.FreeSpace,
				formatDate(d.LastScanDate), formatDate(d.LastBackupDate), d.Path)
		}
		return w.Flush()
	},
}

var deviceUpdateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Rename, describe or relocate a device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var changes usbb.DeviceChanges
		if cmd.Flags().Changed("name") {
			v, _ := cmd.Flags().GetString("name")
			changes.Name = &v
		}
		if cmd.Flags().Changed("description") {
			v, _ := cmd.Flags().GetString("description")
			changes.Description = &v
		}
		if cmd.Flags().Changed("path") {
			v, _ := cmd.Flags().GetString("path")
			changes.Path = &v
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		device, res := a.UpdateDevice(args[0], changes)
		if err := check(res); err != nil {
			return err
		}
		return printJSON(device)
	},
}

var deviceRemoveCmd = &cobra.Command{
	Use:   "remove ID",
	Short: "Forget a device and its file records",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := check(a.RemoveDevice(args[0])); err != nil {
			return err
		}
		fmt.Printf("Removed device %s\n", args[0])
		return nil
	},
}

var deviceReportCmd = &cobra.Command{
	Use:   "report ID",
	Short: "Show backup status of a device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		verify, _ := cmd.Flags().GetBool("verify")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signalContext(cmd)
		defer stop()

		report, res := a.Report(ctx, args[0], verify)
		if err := check(res); err != nil {
			return err
		}
		return printJSON(report)
	},
}

// scan command
var scanCmd = &cobra.Command{
	Use:   "scan [ID...]",
	Short: "Scan devices for new, changed, moved and deleted files",
	RunE: func(cmd *cobra.Command, args []string) error {
		full, _ := cmd.Flags().GetBool("full")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		id, res := a.SubmitScan(args, full)
		return runJob(cmd, a, id, res)
	},
}

// backup command
var backupCmd = &cobra.Command{
	Use:   "backup --to ID SOURCE_ID...",
	Short: "Copy new content from source devices to a backup device",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		backupID, _ := cmd.Flags().GetString("to")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		id, res := a.SubmitBackup(args, backupID)
		return runJob(cmd, a, id, res)
	},
}

// restore command
var restoreCmd = &cobra.Command{
	Use:   "restore --from ID --to ID [--dest DIR] PATH...",
	Short: "Copy files or folders from a backup device onto a source device",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, _ := cmd.Flags().GetString("from")
		to, _ := cmd.Flags().GetString("to")
		dest, _ := cmd.Flags().GetString("dest")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		id, res := a.SubmitRestore(usbb.RestoreRequest{
			BackupDeviceID: from,
			SourceDeviceID: to,
			Destination:    dest,
			Paths:          args,
		})
		return runJob(cmd, a, id, res)
	},
}

// dedup command
var dedupCmd = &cobra.Command{
	Use:   "dedup ID...",
	Short: "Remove duplicate content from backup devices",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		id, res := a.SubmitDedup(args)
		return runJob(cmd, a, id, res)
	},
}

// serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Monitor devices and expose metrics until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signalContext(cmd)
		defer stop()
		return a.Serve(ctx)
	},
}

// db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Catalog maintenance",
}

var dbBackupCmd = &cobra.Command{
	Use:   "backup FILE",
	Short: "Write a consistent copy of the catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.BackupCatalog(args[0]); err != nil {
			return fmt.Errorf("backing up catalog: %w", err)
		}
		fmt.Printf("Catalog written to %s\n", args[0])
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// device subcommands
	deviceCmd.AddCommand(deviceAddCmd)
	deviceAddCmd.Flags().StringP("name", "n", "", "Display name")
	deviceAddCmd.Flags().StringP("description", "d", "", "Free-form description")
	deviceCmd.AddCommand(deviceListCmd)
	deviceListCmd.Flags().Bool("json", false, "Print devices as JSON")
	deviceCmd.AddCommand(deviceUpdateCmd)
	deviceUpdateCmd.Flags().StringP("name", "n", "", "New display name")
	deviceUpdateCmd.Flags().StringP("description", "d", "", "New description")
	deviceUpdateCmd.Flags().String("path", "", "New mount path, must hold the device marker")
	deviceCmd.AddCommand(deviceRemoveCmd)
	deviceCmd.AddCommand(deviceReportCmd)
	deviceReportCmd.Flags().Bool("verify", false, "Re-read every file to detect silent content changes")

	dbCmd.AddCommand(dbBackupCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(deviceCmd)
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().BoolP("full", "f", false, "Hash new fingerprints instead of detecting moves")
	rootCmd.AddCommand(backupCmd)
	backupCmd.Flags().String("to", "", "Backup device ID")
	_ = backupCmd.MarkFlagRequired("to")
	rootCmd.AddCommand(restoreCmd)
	restoreCmd.Flags().String("from", "", "Backup device ID")
	restoreCmd.Flags().String("to", "", "Source device ID")
	restoreCmd.Flags().String("dest", "", "Destination folder on the source device")
	_ = restoreCmd.MarkFlagRequired("from")
	_ = restoreCmd.MarkFlagRequired("to")
	rootCmd.AddCommand(dedupCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(dbCmd)
}
