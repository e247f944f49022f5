// Package cli drives the task list controller from the command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/todo-list/internal/client"
	"github.com/BuzzLyutic/todo-list/internal/config"
	"github.com/BuzzLyutic/todo-list/internal/controller"
	"github.com/BuzzLyutic/todo-list/internal/filter"
	"github.com/BuzzLyutic/todo-list/internal/model"
)

// StoreFactory builds the task store a command talks to.
type StoreFactory func(cfg config.Config, logger *zap.Logger) client.TaskStore

func HTTPStore(cfg config.Config, logger *zap.Logger) client.TaskStore {
	return client.New(cfg.StoreURL,
		client.WithTimeout(cfg.RequestTimeout.Duration),
		client.WithLogger(logger),
	)
}

type App struct {
	newStore StoreFactory
	logger   *zap.Logger
	out      io.Writer

	configPath string
	storeURL   string
	timeout    time.Duration
	status     string
	priority   string
}

func NewApp(newStore StoreFactory, logger *zap.Logger, out io.Writer) *App {
	if newStore == nil {
		newStore = HTTPStore
	}
	if out == nil {
		out = os.Stdout
	}
	return &App{newStore: newStore, logger: logger, out: out}
}

func (a *App) Run(ctx context.Context, args []string) error {
	root := a.RootCommand()
	root.SetArgs(args)
	root.SetOut(a.out)
	root.SetErr(a.out)
	return root.ExecuteContext(ctx)
}

func (a *App) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "todo",
		Short:         "Manage a todo list stored behind a REST task store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "path to a TOML config file")
	pf.StringVar(&a.storeURL, "store-url", "", "task store base URL (overrides config)")
	pf.DurationVar(&a.timeout, "timeout", 0, "per-request timeout (overrides config)")
	pf.StringVar(&a.status, "status", "", "status filter: All, Active, Completed")
	pf.StringVar(&a.priority, "priority-filter", "", "priority filter: All, High, Medium, Low, Unset")

	root.AddCommand(
		a.listCommand(),
		a.addCommand(),
		a.toggleCommand(),
		a.editCommand(),
		a.deleteCommand(),
		a.filtersCommand(),
	)
	return root
}

func (a *App) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the tasks visible under the active filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withController(cmd.Context(), func(ctx context.Context, c *controller.Controller) error {
				return nil
			})
		},
	}
}

func (a *App) addCommand() *cobra.Command {
	var priority string
	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Create a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withController(cmd.Context(), func(ctx context.Context, c *controller.Controller) error {
				task, err := c.AddTask(ctx, args[0], model.Priority(priority))
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "added %s\n", task.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "priority: Low, Medium, High (empty = unset)")
	return cmd
}

func (a *App) toggleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle ID",
		Short: "Flip the completed state of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withController(cmd.Context(), func(ctx context.Context, c *controller.Controller) error {
				_, err := c.ToggleCompleted(ctx, args[0])
				return err
			})
		},
	}
}

func (a *App) editCommand() *cobra.Command {
	var (
		name     string
		priority string
	)
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Rename a task and set its priority",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withController(cmd.Context(), func(ctx context.Context, c *controller.Controller) error {
				newName, newPriority := name, model.Priority(priority)
				// keep the current values for flags that were not given
				for _, t := range c.Tasks() {
					if t.ID != args[0] {
						continue
					}
					if !cmd.Flags().Changed("name") {
						newName = t.Name
					}
					if !cmd.Flags().Changed("priority") {
						newPriority = t.Priority
					}
				}
				_, err := c.EditTask(ctx, args[0], newName, newPriority)
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "new name")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "new priority")
	return cmd
}

func (a *App) deleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "delete ID",
		Aliases: []string{"rm"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withController(cmd.Context(), func(ctx context.Context, c *controller.Controller) error {
				return c.DeleteTask(ctx, args[0])
			})
		},
	}
}

func (a *App) filtersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "filters",
		Short: "List the available filter names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(a.out, "status:   %v\n", filter.StatusNames())
			fmt.Fprintf(a.out, "priority: %v\n", filter.PriorityNames())
			return nil
		},
	}
}

func (a *App) loadConfig() (config.Config, error) {
	cfg, err := config.LoadFile(a.configPath)
	if err != nil {
		return cfg, err
	}
	if a.storeURL != "" {
		cfg.StoreURL = a.storeURL
	}
	if a.timeout > 0 {
		cfg.RequestTimeout = config.Duration{Duration: a.timeout}
	}
	if a.status != "" {
		cfg.StatusFilter = a.status
	}
	if a.priority != "" {
		cfg.PriorityFilter = a.priority
	}
	return cfg, nil
}

// withController loads the collection, runs op and prints the resulting view.
func (a *App) withController(ctx context.Context, op func(context.Context, *controller.Controller) error) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	if !filter.KnownStatus(cfg.StatusFilter) {
		a.logger.Warn("unknown status filter, showing all", zap.String("filter", cfg.StatusFilter))
	}
	if !filter.KnownPriority(cfg.PriorityFilter) {
		a.logger.Warn("unknown priority filter, showing all", zap.String("filter", cfg.PriorityFilter))
	}

	c := controller.New(a.newStore(cfg, a.logger), a.logger,
		controller.WithFilters(cfg.StatusFilter, cfg.PriorityFilter))
	defer c.Stop()

	if err := c.Start(ctx); err != nil {
		return err
	}
	if err := op(ctx, c); err != nil {
		return err
	}

	Render(a.out, c.View())
	return nil
}

// Render prints a view as plain text.
func Render(w io.Writer, v controller.View) {
	fmt.Fprintln(w, v.Heading)
	fmt.Fprintln(w, v.PriorityHeading)
	for _, t := range v.Tasks {
		mark := " "
		if t.Completed {
			mark = "x"
		}
		fmt.Fprintf(w, "[%s] %s  %s", mark, t.ID, t.Name)
		if t.Priority != model.PriorityUnset {
			fmt.Fprintf(w, " (%s)", t.Priority)
		}
		fmt.Fprintln(w)
	}
}
