package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/axdrive/axdrive/pkg/ax"
	"github.com/axdrive/axdrive/pkg/config"
	"github.com/axdrive/axdrive/pkg/logging"
	"github.com/axdrive/axdrive/pkg/mcp"
	"github.com/axdrive/axdrive/pkg/storage/sqlite"
	gitvcs "github.com/axdrive/axdrive/pkg/vcs/git"
	"github.com/axdrive/axdrive/pkg/workflow"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	switch os.Args[1] {
	case "init":
		initProfile()
	case "version":
		fmt.Println("axdrive 1.0.0")
	case "apps":
		exitOn("apps", appsCommand(os.Args[2:]))
	case "tools":
		exitOn("tools", toolsCommand(os.Args[2:]))
	case "resources":
		exitOn("resources", resourcesCommand(os.Args[2:]))
	case "tree":
		exitOn("tree", treeCommand(os.Args[2:]))
	case "roles":
		exitOn("roles", rolesCommand(os.Args[2:]))
	case "screenshot":
		exitOn("screenshot", screenshotCommand(os.Args[2:]))
	case "run":
		exitOn("run", runCommand(os.Args[2:]))
	case "history":
		exitOn("history", historyCommand(os.Args[2:]))
	case "show":
		exitOn("show", showCommand(os.Args[2:]))
	case "vcs":
		exitOn("vcs", vcsCommand(os.Args[2:]))
	case "diag":
		exitOn("diag", diagCommand(os.Args[2:]))
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func exitOn(name string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s error: %v\n", name, err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("Usage: axdrive <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  init        Initialize a local profile (writes config.toml)")
	fmt.Println("  apps        List applications the daemon can see")
	fmt.Println("  tools       List the daemon's tools")
	fmt.Println("  resources   List the daemon's resources")
	fmt.Println("  tree        Dump the current accessibility tree as JSON")
	fmt.Println("  roles       Print a role frequency table for the current tree")
	fmt.Println("  screenshot  Capture a screenshot and save it to a file")
	fmt.Println("  run         Run the location-search workflow and save the report")
	fmt.Println("  history     List saved runs")
	fmt.Println("  show        Print one saved run report by id")
	fmt.Println("  vcs push|pull    Sync the report archive with its remote")
	fmt.Println("  diag        Print profile configuration paths")
	fmt.Println("  version     Print CLI version")
}

func initProfile() {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	profilePath := fs.String("profile", "./_dev_profile", "Profile directory")
	name := fs.String("name", "dev", "Profile name")
	force := fs.Bool("force", false, "Overwrite existing config if present")
	_ = fs.Parse(os.Args[2:])
	if err := os.MkdirAll(*profilePath, 0o700); err != nil {
		fmt.Fprintf(os.Stderr, "init error: %v\n", err)
		os.Exit(1)
	}
	configPath := filepath.Join(*profilePath, "config.toml")
	if _, err := os.Stat(configPath); err == nil && !*force {
		fmt.Fprintf(os.Stderr, "config already exists at %s (use --force to overwrite)\n", configPath)
		os.Exit(1)
	}
	cfg := config.DefaultProfile(*name)
	if err := config.Save(configPath, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "init error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("initialized profile %s at %s\n", cfg.ProfileName, *profilePath)
}

// loadProfile reads config and prepares the logger for a command.
func loadProfile(profileDir string) (*config.ProfileConfig, *logging.Logger, error) {
	cfg, err := config.LoadProfile(profileDir)
	if err != nil {
		return nil, nil, err
	}
	logger := logging.New("axdrive")
	logCfg := cfg.Logging
	logCfg.FilePath = config.ResolvePath(profileDir, logCfg.FilePath)
	if err := logger.Configure(logCfg); err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// dialSession spawns the daemon, waits out its startup, and completes the
// initialize handshake. The caller owns Close.
func dialSession(ctx context.Context, cfg *config.ProfileConfig, logger *logging.Logger) (*mcp.Session, error) {
	session, err := mcp.Dial(cfg.Daemon.Command, cfg.Daemon.Args, time.Duration(cfg.RPC.CallTimeoutSec)*time.Second, logger)
	if err != nil {
		return nil, err
	}
	if cfg.Daemon.StartupWaitMS > 0 {
		time.Sleep(time.Duration(cfg.Daemon.StartupWaitMS) * time.Millisecond)
	}
	if _, err := session.Initialize(ctx); err != nil {
		session.Close()
		return nil, fmt.Errorf("initialize: %w", err)
	}
	return session, nil
}

func withSession(args []string, fn func(ctx context.Context, session *mcp.Session, cfg *config.ProfileConfig) error) error {
	fs := flag.NewFlagSet("session", flag.ExitOnError)
	profile := fs.String("profile", "./_dev_profile", "Profile directory")
	_ = fs.Parse(args)

	cfg, logger, err := loadProfile(*profile)
	if err != nil {
		return err
	}
	ctx := context.Background()
	session, err := dialSession(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer session.Close()
	return fn(ctx, session, cfg)
}

func appsCommand(args []string) error {
	return withSession(args, func(ctx context.Context, session *mcp.Session, _ *config.ProfileConfig) error {
		apps, err := session.Applications(ctx)
		if err != nil {
			return err
		}
		for _, app := range apps {
			fmt.Printf("%-8d %-40s %s\n", app.PID, app.BundleID, app.Name)
		}
		fmt.Printf("%d applications\n", len(apps))
		return nil
	})
}

func toolsCommand(args []string) error {
	return withSession(args, func(ctx context.Context, session *mcp.Session, _ *config.ProfileConfig) error {
		tools, err := session.ListTools(ctx)
		if err != nil {
			return err
		}
		for _, tool := range tools {
			fmt.Printf("%-20s %s\n", tool.Name, tool.Description)
		}
		return nil
	})
}

func resourcesCommand(args []string) error {
	return withSession(args, func(ctx context.Context, session *mcp.Session, _ *config.ProfileConfig) error {
		resources, err := session.ListResources(ctx)
		if err != nil {
			return err
		}
		for _, res := range resources {
			fmt.Printf("%-50s %s\n", res.URI, res.Name)
		}
		return nil
	})
}

func treeCommand(args []string) error {
	return withSession(args, func(ctx context.Context, session *mcp.Session, _ *config.ProfileConfig) error {
		snap, err := session.Tree(ctx)
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	})
}

func rolesCommand(args []string) error {
	return withSession(args, func(ctx context.Context, session *mcp.Session, _ *config.ProfileConfig) error {
		snap, err := session.Tree(ctx)
		if err != nil {
			return err
		}
		counts := ax.CountByRole(snap.Tree)
		roles := make([]string, 0, len(counts))
		for role := range counts {
			roles = append(roles, role)
		}
		sort.Strings(roles)
		for _, role := range roles {
			fmt.Printf("%-24s %d\n", role, counts[role])
		}
		return nil
	})
}

func screenshotCommand(args []string) error {
	fs := flag.NewFlagSet("screenshot", flag.ExitOnError)
	profile := fs.String("profile", "./_dev_profile", "Profile directory")
	out := fs.String("out", "screenshot.png", "Output file path")
	_ = fs.Parse(args)

	cfg, logger, err := loadProfile(*profile)
	if err != nil {
		return err
	}
	ctx := context.Background()
	session, err := dialSession(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer session.Close()

	shot, err := session.Screenshot(ctx)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*out, shot.Data, 0o600); err != nil {
		return err
	}
	fmt.Printf("saved %dx%d %s screenshot to %s\n", shot.Width, shot.Height, shot.Format, *out)
	return nil
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	profile := fs.String("profile", "./_dev_profile", "Profile directory")
	query := fs.String("query", "", "Location to search (defaults to workflow.query)")
	_ = fs.Parse(args)

	cfg, logger, err := loadProfile(*profile)
	if err != nil {
		return err
	}
	target := *query
	if target == "" {
		target = cfg.Workflow.Query
	}
	if target == "" {
		return fmt.Errorf("no query given and workflow.query unset")
	}

	ctx := context.Background()
	session, err := dialSession(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer session.Close()

	classifier := ax.DefaultClassifier()
	if len(cfg.Keywords.Weather) > 0 {
		classifier.Weather = cfg.Keywords.Weather
	}
	if len(cfg.Keywords.Location) > 0 {
		classifier.Location = cfg.Keywords.Location
	}

	search := &workflow.LocationSearch{
		Session:    session,
		Classifier: classifier,
		Query:      target,
		SettleWait: time.Duration(cfg.Workflow.SettleWaitSec) * time.Second,
		FallbackX:  cfg.Workflow.FallbackX,
		FallbackY:  cfg.Workflow.FallbackY,
	}
	runner := workflow.NewRunner(logger)
	report := runner.Run(ctx, target, search.Steps())

	if err := saveReport(ctx, *profile, cfg, report, logger); err != nil {
		logger.Printf("saving report failed: %v", err)
	}
	printReport(report)
	if report.State == workflow.StateFailed {
		return fmt.Errorf("failed at step %s", report.FailedStep)
	}
	return nil
}

func saveReport(ctx context.Context, profileDir string, cfg *config.ProfileConfig, report *workflow.Report, logger *logging.Logger) error {
	store, err := sqlite.Open(config.ResolvePath(profileDir, cfg.Storage.DBPath))
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Init(ctx); err != nil {
		return err
	}
	if err := store.SaveReport(ctx, report); err != nil {
		return err
	}

	reportsDir := filepath.Join(profileDir, "reports")
	if err := os.MkdirAll(reportsDir, 0o700); err != nil {
		return err
	}
	reportPath := filepath.Join(reportsDir, report.RunID+".json")
	if err := writeReportFile(reportPath, report); err != nil {
		return err
	}

	if cfg.VCS.Enabled {
		archive, err := gitvcs.Open(reportsDir, cfg.VCS.Remote.URL)
		if err != nil {
			return err
		}
		message := fmt.Sprintf("run %s: %s (%s)", report.RunID, report.Query, report.State)
		status, err := archive.Commit(ctx, message, []string{report.RunID + ".json"})
		if err != nil {
			return err
		}
		if status.Committed {
			logger.Printf("archived report as %s", status.Hash)
		}
	}
	return nil
}

func writeReportFile(path string, report *workflow.Report) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func printReport(report *workflow.Report) {
	fmt.Printf("run %s (%s): %s\n", report.RunID, report.Query, report.State)
	for _, step := range report.Steps {
		mark := "ok"
		switch {
		case !step.Succeeded:
			mark = "FAIL"
		case step.Estimated:
			mark = "ok (estimated)"
		}
		fmt.Printf("  %-22s %s\n", step.StepName, mark)
		if step.Error != "" {
			fmt.Printf("    %s\n", step.Error)
		}
	}
	if len(report.Steps) > 0 {
		last := report.Steps[len(report.Steps)-1]
		if temp, ok := last.Extracted["temperature"]; ok {
			fmt.Printf("temperature: %v\n", temp)
		}
		if cond, ok := last.Extracted["condition"]; ok {
			fmt.Printf("condition: %v\n", cond)
		}
	}
}

func historyCommand(args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	profile := fs.String("profile", "./_dev_profile", "Profile directory")
	limit := fs.Int("limit", 20, "Maximum runs to list")
	_ = fs.Parse(args)

	cfg, _, err := loadProfile(*profile)
	if err != nil {
		return err
	}
	ctx := context.Background()
	store, err := sqlite.Open(config.ResolvePath(*profile, cfg.Storage.DBPath))
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Init(ctx); err != nil {
		return err
	}
	runs, err := store.ListRuns(ctx, *limit)
	if err != nil {
		return err
	}
	for _, run := range runs {
		line := fmt.Sprintf("%s  %-10s %-12s %s", run.RunID, run.State, run.Query, run.StartedAt.Format(time.RFC3339))
		if run.FailedStep != "" {
			line += "  failed at " + run.FailedStep
		}
		fmt.Println(line)
	}
	return nil
}

func showCommand(args []string) error {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	profile := fs.String("profile", "./_dev_profile", "Profile directory")
	_ = fs.Parse(args)
	if fs.NArg() == 0 {
		return fmt.Errorf("usage: axdrive show [options] <run-id>")
	}
	runID := fs.Arg(0)

	cfg, _, err := loadProfile(*profile)
	if err != nil {
		return err
	}
	ctx := context.Background()
	store, err := sqlite.Open(config.ResolvePath(*profile, cfg.Storage.DBPath))
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Init(ctx); err != nil {
		return err
	}
	report, err := store.LoadReport(ctx, runID)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func vcsCommand(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: axdrive vcs <push|pull> [options]")
	}
	sub := args[0]
	fs := flag.NewFlagSet("vcs", flag.ExitOnError)
	profile := fs.String("profile", "./_dev_profile", "Profile directory")
	_ = fs.Parse(args[1:])

	cfg, _, err := loadProfile(*profile)
	if err != nil {
		return err
	}
	if !cfg.VCS.Enabled {
		return fmt.Errorf("vcs disabled for profile %s", cfg.ProfileName)
	}
	archive, err := gitvcs.Open(filepath.Join(*profile, "reports"), cfg.VCS.Remote.URL)
	if err != nil {
		return err
	}
	ctx := context.Background()
	switch sub {
	case "push":
		if err := archive.Push(ctx); err != nil {
			return err
		}
		fmt.Println("pushed report archive")
	case "pull":
		if err := archive.Pull(ctx); err != nil {
			return err
		}
		fmt.Println("pulled report archive")
	default:
		return fmt.Errorf("unknown vcs subcommand %q", sub)
	}
	return nil
}

func diagCommand(args []string) error {
	fs := flag.NewFlagSet("diag", flag.ExitOnError)
	profile := fs.String("profile", "./_dev_profile", "Profile directory")
	_ = fs.Parse(args)
	cfg, err := config.LoadProfile(*profile)
	if err != nil {
		return err
	}
	fmt.Printf("Profile: %s\n", cfg.ProfileName)
	fmt.Printf("Config: %s\n", filepath.Join(*profile, "config.toml"))
	fmt.Printf("Daemon: %s %v\n", cfg.Daemon.Command, cfg.Daemon.Args)
	fmt.Printf("DB Path: %s\n", config.ResolvePath(*profile, cfg.Storage.DBPath))
	fmt.Printf("Call Timeout: %ds\n", cfg.RPC.CallTimeoutSec)
	fmt.Printf("Fallback Point: (%g, %g)\n", cfg.Workflow.FallbackX, cfg.Workflow.FallbackY)
	if cfg.Logging.FilePath != "" {
		fmt.Printf("Log File: %s\n", config.ResolvePath(*profile, cfg.Logging.FilePath))
	}
	fmt.Printf("VCS Branch: %s (enabled=%t)\n", cfg.VCS.Branch, cfg.VCS.Enabled)
	if cfg.VCS.Remote.URL != "" {
		fmt.Printf("Remote URL: %s\n", cfg.VCS.Remote.URL)
	}
	return nil
}
