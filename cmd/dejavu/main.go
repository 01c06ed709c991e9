package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"dejavu/internal/app"
	"dejavu/internal/config"
	"dejavu/internal/gateway"
	"dejavu/internal/logging"
	"dejavu/internal/store"
	"dejavu/internal/types"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose   bool
	apiKey    string
	workspace string
	timeout   time.Duration

	// Logger
	logger *zap.Logger
)

// Transcript styles.
var (
	userStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	coachStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	chipStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	titleStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "dejavu",
	Short: "dejavu - personal goal coaching in your terminal",
	Long: `dejavu is a local-first personal coach.

It runs a structured setup conversation to extract your vision, turns it
into categories with weekly progress paths, and keeps coaching you through
execution and weekly review. All data stays in a local SQLite file.

Run without arguments to start the interactive chat.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapConfig := zap.NewProductionConfig()
		if verbose {
			zapConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapConfig.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		level := "info"
		if verbose {
			level = "debug"
		}
		if err := logging.Initialize(resolveWorkspace(), verbose, level); err != nil {
			return fmt.Errorf("failed to initialize file logging: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat()
	},
}

var goalsCmd = &cobra.Command{
	Use:   "goals [category-title]",
	Short: "List your categories and the goals inside them",
	RunE:  showGoals,
}

var planCmd = &cobra.Command{
	Use:   "plan [category-title]",
	Short: "Show the weekly progress path for a category",
	Long: `Shows the derived weekly milestones for one category, or for every
category when no title is given. Paths are regenerated from the category
declaration whenever it changes; editing them by hand has no effect.`,
	RunE: showPlan,
}

var visionCmd = &cobra.Command{
	Use:   "vision",
	Short: "Show the vision file extracted from your setup conversation",
	RunE:  showVision,
}

var darkmodeCmd = &cobra.Command{
	Use:   "darkmode [on|off]",
	Short: "Show or set the dark mode preference",
	Args:  cobra.MaximumNArgs(1),
	RunE:  setDarkMode,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all local data (categories, goals, chats, vision)",
	RunE:  resetAll,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show dejavu status",
	RunE:  showStatus,
}

var resetYes bool

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "Gemini API key (or set GEMINI_API_KEY env)")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Operation timeout")

	resetCmd.Flags().BoolVar(&resetYes, "yes", false, "Skip the confirmation prompt")

	rootCmd.AddCommand(goalsCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(visionCmd)
	rootCmd.AddCommand(darkmodeCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func resolveWorkspace() string {
	if workspace != "" {
		return workspace
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

// openApp builds the full service graph for one command invocation.
// The returned cleanup closes the store and the bus.
func openApp() (*app.App, func(), error) {
	ws := resolveWorkspace()
	cfg, err := config.Load(ws)
	if err != nil {
		return nil, nil, err
	}
	if apiKey != "" {
		cfg.Gateway.APIKey = apiKey
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	dbPath := cfg.Storage.DatabasePath
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(ws, dbPath)
	}
	local, err := store.NewLocalStore(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open local store: %w", err)
	}

	gw := gateway.NewGeminiClient(gateway.Config{
		APIKey:          cfg.Gateway.APIKey,
		BaseURL:         cfg.Gateway.BaseURL,
		Model:           cfg.Gateway.Model,
		Timeout:         cfg.Gateway.Timeout,
		MaxOutputTokens: cfg.Gateway.MaxOutputTokens,
	})

	a, err := app.New(cfg, local, gw)
	if err != nil {
		local.Close()
		return nil, nil, err
	}

	cleanup := func() {
		a.Close()
		local.Close()
	}
	return a, cleanup, nil
}

// runChat is the default interactive loop. One tab is active at a time;
// /tab switches, /tabs lists, /quit exits. The hub poller runs alongside so
// edits from another process show up within a poll interval.
func runChat() error {
	a, cleanup, err := openApp()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	go func() {
		if err := a.StartHubPoller(ctx); err != nil {
			logger.Warn("hub poller stopped", zap.Error(err))
		}
	}()

	fmt.Println(titleStyle.Render("dejavu") + "  type /quit to exit, /tabs to list conversations")
	fmt.Println()

	activeTab := app.CentralTabID
	replayTab(a, activeTab)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print(userStyle.Render("you") + " > ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			switch {
			case line == "/quit" || line == "/exit":
				return nil
			case line == "/tabs":
				for _, tab := range a.Chats.Tabs() {
					marker := "  "
					if tab.TabID == activeTab {
						marker = "* "
					}
					fmt.Printf("%s%s  %s (%d messages)\n", marker, tab.TabID, tab.Title, len(tab.Messages))
				}
			case strings.HasPrefix(line, "/tab "):
				target := strings.TrimSpace(strings.TrimPrefix(line, "/tab "))
				if _, ok := a.Chats.Tab(target); !ok {
					fmt.Println(errStyle.Render("no such tab: " + target))
					continue
				}
				activeTab = target
				replayTab(a, activeTab)
			default:
				fmt.Println(errStyle.Render("unknown command: " + line))
			}
			continue
		}

		sendCtx, sendCancel := context.WithTimeout(ctx, timeout)
		result, err := a.SendMessage(sendCtx, activeTab, line)
		sendCancel()
		if err != nil {
			fmt.Println(errStyle.Render(err.Error()))
			continue
		}

		fmt.Printf("%s\n", chipStyle.Render(stageChip(result.Stage)))
		fmt.Printf("%s > %s\n\n", coachStyle.Render("coach"), result.Reply.Text)

		for _, cat := range result.CreatedCategories {
			fmt.Println(chipStyle.Render(fmt.Sprintf("created category %q (%s) with a weekly plan", cat.Title, cat.Type)))
		}
	}
	return scanner.Err()
}

// replayTab prints the tail of a tab's transcript when switching into it.
func replayTab(a *app.App, tabID string) {
	tab, ok := a.Chats.Tab(tabID)
	if !ok {
		return
	}
	fmt.Println(titleStyle.Render(tab.Title))
	start := 0
	if len(tab.Messages) > 10 {
		start = len(tab.Messages) - 10
	}
	for _, msg := range tab.Messages[start:] {
		label := userStyle.Render("you")
		if msg.Sender == types.SenderAI {
			label = coachStyle.Render("coach")
		}
		fmt.Printf("%s > %s\n", label, msg.Text)
	}
	fmt.Println()
}

func stageChip(info types.StageInfo) string {
	if info.MainStage == types.StageSetup && info.CurrentPhase > 0 {
		return fmt.Sprintf("[Phase %d/5 • %.0f%%]", info.CurrentPhase, info.Progress)
	}
	return fmt.Sprintf("[%s • %.0f%%]", info.MainStage, info.Progress)
}

func showGoals(cmd *cobra.Command, args []string) error {
	a, cleanup, err := openApp()
	if err != nil {
		return err
	}
	defer cleanup()

	categories, err := a.Local.LoadCategories()
	if err != nil {
		return err
	}
	if len(categories) == 0 {
		fmt.Println("No categories yet. Run the chat and finish your setup conversation.")
		return nil
	}

	var filter string
	if len(args) > 0 {
		filter = strings.ToLower(strings.Join(args, " "))
	}

	for _, cat := range categories {
		if filter != "" && !strings.Contains(strings.ToLower(cat.Title), filter) {
			continue
		}
		fmt.Println(titleStyle.Render(fmt.Sprintf("%s (%s)", cat.Title, cat.Type)))
		goals, err := a.Local.LoadGoals(cat.Title, cat.Type)
		if err != nil {
			return err
		}
		for _, g := range goals {
			box := "[ ]"
			if g.Completed {
				box = "[x]"
			}
			fmt.Printf("  %s %s\n", box, g.Title)
		}
		fmt.Println()
	}
	return nil
}

func showPlan(cmd *cobra.Command, args []string) error {
	a, cleanup, err := openApp()
	if err != nil {
		return err
	}
	defer cleanup()

	categories, err := a.Local.LoadCategories()
	if err != nil {
		return err
	}

	var filter string
	if len(args) > 0 {
		filter = strings.ToLower(strings.Join(args, " "))
	}

	shown := 0
	for _, cat := range categories {
		if filter != "" && !strings.Contains(strings.ToLower(cat.Title), filter) {
			continue
		}
		path, ok, err := a.Local.LoadProgressPath(cat.ID)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		shown++

		fmt.Println(titleStyle.Render(fmt.Sprintf("%s — week %d of %d", cat.Title, path.CurrentWeek, path.TotalWeeks)))
		for _, m := range path.WeeklyMilestones {
			fmt.Printf("  Week %d\n", m.WeekNumber)
			for _, o := range m.Objectives {
				fmt.Printf("    goal: %s\n", o)
			}
			for _, act := range m.Actions {
				fmt.Printf("    do:   %s\n", act)
			}
			for _, s := range m.SuccessCriteria {
				fmt.Printf("    done: %s\n", s)
			}
		}
		fmt.Println()
	}

	if shown == 0 {
		fmt.Println("No progress paths found.")
	}
	return nil
}

func showVision(cmd *cobra.Command, args []string) error {
	a, cleanup, err := openApp()
	if err != nil {
		return err
	}
	defer cleanup()

	vf, ok, err := a.Local.LoadVisionFile()
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("No vision file yet. Finish your setup conversation in the chat.")
		return nil
	}

	fmt.Println(titleStyle.Render("Vision") + "  generated " + vf.GeneratedAt.Format("2006-01-02"))
	if len(vf.Inputs) > 0 {
		fmt.Println("Inputs:")
		for _, in := range vf.Inputs {
			fmt.Printf("  • %s (%s)\n", in.Title, in.Tag)
		}
	}
	if len(vf.Outputs) > 0 {
		fmt.Println("Outputs:")
		for _, out := range vf.Outputs {
			fmt.Printf("  • %s (by %s)\n", out.Title, out.TargetDate.Format("2006-01-02"))
		}
	}
	if len(vf.PainPoints) > 0 {
		fmt.Println("Pain points:")
		for _, p := range vf.PainPoints {
			fmt.Printf("  • %s\n", p)
		}
	}
	if len(vf.Constraints) > 0 {
		fmt.Println("Constraints:")
		for _, c := range vf.Constraints {
			fmt.Printf("  • %s\n", c)
		}
	}
	if len(vf.SupportSystems) > 0 {
		fmt.Println("Support:")
		for _, s := range vf.SupportSystems {
			fmt.Printf("  • %s\n", s)
		}
	}
	if vf.Confidence != "" {
		fmt.Printf("Confidence: %s\n", vf.Confidence)
	}
	return nil
}

func setDarkMode(cmd *cobra.Command, args []string) error {
	a, cleanup, err := openApp()
	if err != nil {
		return err
	}
	defer cleanup()

	if len(args) == 0 {
		enabled, err := a.Local.DarkMode()
		if err != nil {
			return err
		}
		state := "off"
		if enabled {
			state = "on"
		}
		fmt.Println("dark mode is " + state)
		return nil
	}

	switch strings.ToLower(args[0]) {
	case "on", "true", "1":
		err = a.Local.SetDarkMode(true)
	case "off", "false", "0":
		err = a.Local.SetDarkMode(false)
	default:
		return fmt.Errorf("expected on or off, got %q", args[0])
	}
	return err
}

func resetAll(cmd *cobra.Command, args []string) error {
	if !resetYes {
		fmt.Print("This deletes every category, goal, chat, and the vision file. Type 'reset' to confirm: ")
		reader := bufio.NewReader(os.Stdin)
		line, _ := reader.ReadString('\n')
		if strings.TrimSpace(line) != "reset" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	a, cleanup, err := openApp()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := a.Local.ResetAll(); err != nil {
		return err
	}
	fmt.Println("All local data deleted.")
	return nil
}

func showStatus(cmd *cobra.Command, args []string) error {
	a, cleanup, err := openApp()
	if err != nil {
		return err
	}
	defer cleanup()

	fmt.Println(titleStyle.Render("dejavu status"))
	fmt.Printf("  model:     %s\n", a.Config.Gateway.Model)
	fmt.Printf("  database:  %s\n", a.Config.Storage.DatabasePath)
	fmt.Printf("  poll:      %s\n", a.Config.Sync.PollInterval)

	keySet := "no"
	if a.Config.Gateway.APIKey != "" {
		keySet = "yes"
	}
	fmt.Printf("  api key:   %s\n", keySet)

	categories, err := a.Local.LoadCategories()
	if err != nil {
		return err
	}
	fmt.Printf("  categories: %d\n", len(categories))
	fmt.Printf("  tabs:       %d\n", len(a.Chats.Tabs()))

	_, hasVision, err := a.Local.LoadVisionFile()
	if err != nil {
		return err
	}
	fmt.Printf("  vision:     %v\n", hasVision)
	return nil
}
