package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/khanglvm/game-curator/internal/config"
	"github.com/khanglvm/game-curator/internal/routing"
	"github.com/khanglvm/game-curator/internal/storage"
)

// NewInitCmd creates the 'init' command that writes a default configuration.
func NewInitCmd(g *Globals) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Long: `Write a default configuration to ~/.game-curator/config.yaml (or --config).

An existing file is kept unless --force is given; the previous version is
saved as a .bak file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := strings.TrimSpace(g.ConfigPath)
			if path == "" {
				p, err := config.GetDefaultConfigPath()
				if err != nil {
					return err
				}
				path = p
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
			}

			dir, err := config.DefaultDir()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return fmt.Errorf("failed to create config directory: %w", err)
			}
			if err := config.Save(config.NewConfig(dir), path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s\n", path)
			fmt.Fprintln(cmd.OutOrStdout(), "Next: set embedding.api_key (or OPENAI_API_KEY) and run 'game-curator settings set-key'.")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing config")
	return cmd
}

// NewSettingsCmd creates the 'settings' command group.
func NewSettingsCmd(g *Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage your provider key and model routing",
	}
	cmd.AddCommand(newSettingsShowCmd(g))
	cmd.AddCommand(newSettingsSetKeyCmd(g))
	cmd.AddCommand(newSettingsSetModelCmd(g))
	return cmd
}

// settingsView is the display form of a user's settings. The key is never shown.
type settingsView struct {
	Provider   string           `json:"provider"`
	KeySet     bool             `json:"keySet"`
	Active     bool             `json:"active"`
	BaseURL    string           `json:"baseUrl,omitempty"`
	AISettings routing.Settings `json:"aiSettings"`
}

func newSettingsShowCmd(g *Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show your provider and routing settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUserApp(cmd, g, func(ctx context.Context, app *App, userID string) error {
				providerName := app.Config.Generation.Provider
				view := settingsView{Provider: providerName}

				creds, err := app.Store.GetProviderCredentials(ctx, userID, providerName)
				switch {
				case err == nil:
					view.KeySet = creds.APIKey != ""
					view.Active = creds.Active
					view.BaseURL = creds.BaseURL
				case !errors.Is(err, storage.ErrNotFound):
					return fmt.Errorf("failed to load credentials: %w", err)
				}

				view.AISettings, err = app.Store.GetAISettings(ctx, userID)
				if err != nil {
					return fmt.Errorf("failed to load AI settings: %w", err)
				}

				if g.JSON {
					return writeJSON(cmd, view)
				}
				printSettings(cmd, view)
				return nil
			})
		},
	}
	return cmd
}

func printSettings(cmd *cobra.Command, v settingsView) {
	out := cmd.OutOrStdout()

	key := colorize(out, text.FgRed, "not set")
	if v.KeySet && v.Active {
		key = colorize(out, text.FgGreen, "set")
	} else if v.KeySet {
		key = colorize(out, text.FgYellow, "set (inactive)")
	}
	fmt.Fprintf(out, "Provider:      %s\n", v.Provider)
	fmt.Fprintf(out, "API key:       %s\n", key)
	if v.BaseURL != "" {
		fmt.Fprintf(out, "Base URL:      %s\n", v.BaseURL)
	}

	s := v.AISettings
	fmt.Fprintf(out, "Default model: %s\n", s.DefaultModel)
	fmt.Fprintf(out, "Max tokens:    %d\n", s.DefaultMaxTokens)
	if s.DefaultTemperature != nil {
		fmt.Fprintf(out, "Temperature:   %s\n", strconv.FormatFloat(*s.DefaultTemperature, 'f', -1, 64))
	}
	fmt.Fprintf(out, "Smart routing: %t\n", s.SmartRoutingEnabled())

	if len(s.Overrides) == 0 {
		return
	}
	tasks := make([]string, 0, len(s.Overrides))
	for t := range s.Overrides {
		tasks = append(tasks, string(t))
	}
	sort.Strings(tasks)
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		o := s.Overrides[routing.TaskType(t)]
		temp := ""
		if o.Temperature != nil {
			temp = strconv.FormatFloat(*o.Temperature, 'f', -1, 64)
		}
		rows = append(rows, []string{t, o.Model, temp})
	}
	fmt.Fprintln(out)
	printTable(cmd, []string{"Task", "Model", "Temperature"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight})
}

func newSettingsSetKeyCmd(g *Globals) *cobra.Command {
	var key, baseURL string
	var inactive bool

	cmd := &cobra.Command{
		Use:   "set-key",
		Short: "Store your generation provider API key",
		Long: `Store the API key used for generation requests. The key defaults to
$OPENAI_API_KEY. Use --inactive to keep the key but switch generation off.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if key == "" {
				key = os.Getenv(fallbackKeyEnvVar)
			}
			return withUserApp(cmd, g, func(ctx context.Context, app *App, userID string) error {
				providerName := app.Config.Generation.Provider
				if baseURL == "" {
					baseURL = app.Config.Generation.BaseURL
				}
				if _, err := config.NewProviderConfig(providerName, key, baseURL, true); err != nil {
					return err
				}
				if err := app.Store.SaveProviderCredentials(ctx, storage.ProviderCredentials{
					UserID:   userID,
					Provider: providerName,
					APIKey:   strings.TrimSpace(key),
					BaseURL:  strings.TrimSpace(baseURL),
					Active:   !inactive,
				}); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Saved %s credentials for %s\n", providerName, userID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "API key (default $"+fallbackKeyEnvVar+")")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "OpenAI-compatible base URL (default generation.base_url)")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "Store the key but disable generation")
	return cmd
}

func newSettingsSetModelCmd(g *Globals) *cobra.Command {
	var (
		defaultModel  string
		maxTokens     int
		temperature   float64
		smartRouting  bool
		task          string
		overrideModel string
		clearOverride bool
	)

	cmd := &cobra.Command{
		Use:   "set-model",
		Short: "Change default model, routing or per-task overrides",
		Example: `  game-curator settings set-model --default gpt-4o --max-tokens 3000
  game-curator settings set-model --smart-routing=false
  game-curator settings set-model --task next_game --model o3-mini
  game-curator settings set-model --task next_game --clear`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var taskType routing.TaskType
			if task != "" {
				taskType = routing.TaskType(task)
				if !taskType.Valid() {
					return fmt.Errorf("unknown task %q", task)
				}
				if overrideModel == "" && !clearOverride {
					return fmt.Errorf("--task needs --model or --clear")
				}
			} else if overrideModel != "" || clearOverride {
				return fmt.Errorf("--model and --clear need --task")
			}

			return withUserApp(cmd, g, func(ctx context.Context, app *App, userID string) error {
				s, err := app.Store.GetAISettings(ctx, userID)
				if err != nil {
					return fmt.Errorf("failed to load AI settings: %w", err)
				}

				flags := cmd.Flags()
				if flags.Changed("default") {
					s.DefaultModel = defaultModel
				}
				if flags.Changed("max-tokens") {
					s.DefaultMaxTokens = maxTokens
				}
				if flags.Changed("smart-routing") {
					s.SmartRouting = routing.Bool(smartRouting)
				}

				switch {
				case clearOverride:
					delete(s.Overrides, taskType)
				case taskType != "":
					o := routing.Override{Model: overrideModel}
					if flags.Changed("temperature") {
						o.Temperature = routing.Float(temperature)
					}
					if s.Overrides == nil {
						s.Overrides = make(map[routing.TaskType]routing.Override)
					}
					s.Overrides[taskType] = o
				case flags.Changed("temperature"):
					s.DefaultTemperature = routing.Float(temperature)
				}

				if err := app.Store.SaveAISettings(ctx, userID, s); err != nil {
					return err
				}
				if g.JSON {
					return writeJSON(cmd, s)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "✓ Settings saved")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&defaultModel, "default", "", "Default model")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "Default max output tokens")
	cmd.Flags().Float64Var(&temperature, "temperature", 0, "Temperature (default, or for --task)")
	cmd.Flags().BoolVar(&smartRouting, "smart-routing", true, "Use per-task model routing")
	cmd.Flags().StringVar(&task, "task", "", "Task to override: collection_suggestions, next_game, cover_image")
	cmd.Flags().StringVar(&overrideModel, "model", "", "Model pinned for --task")
	cmd.Flags().BoolVar(&clearOverride, "clear", false, "Remove the override for --task")
	return cmd
}

// NewActivityCmd creates the 'activity' command.
func NewActivityCmd(g *Globals) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Show recent AI operations and their cost",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUserApp(cmd, g, func(ctx context.Context, app *App, userID string) error {
				acts, err := app.Store.ListActivity(ctx, userID, limit)
				if err != nil {
					return fmt.Errorf("failed to load activity: %w", err)
				}
				if g.JSON {
					return writeJSON(cmd, acts)
				}
				if len(acts) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No activity yet.")
					return nil
				}

				var total float64
				rows := make([][]string, 0, len(acts))
				for _, a := range acts {
					total += a.CostUSD
					rows = append(rows, []string{
						a.CreatedAt.Local().Format("2006-01-02 15:04"),
						a.Action,
						a.Status,
						a.Model,
						formatUSD(a.CostUSD),
						strconv.FormatInt(a.DurationMS, 10) + "ms",
						truncate(a.Error, 40),
					})
				}
				printTable(cmd,
					[]string{"When", "Action", "Status", "Model", "Cost", "Took", "Error"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft})
				fmt.Fprintf(cmd.OutOrStdout(), "Total: %s\n", formatUSD(total))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries")
	return cmd
}
