package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/devhub-tools/devhub/internal/types"
	"github.com/devhub-tools/devhub/internal/ui"
)

var todoCmd = &cobra.Command{
	Use:     "todo",
	GroupID: "data",
	Short:   "Manage the todo list",
}

var todoAddCmd = &cobra.Command{
	Use:   "add <text>...",
	Short: "Add a todo",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(appOptions{withHub: true})
		if err != nil {
			return err
		}
		defer a.Close()

		todo, err := a.hub.AddTodo(context.Background(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		if todo == nil {
			return fmt.Errorf("todo text is required")
		}
		fmt.Printf("%s Added %s\n", ui.Success("✓"), ui.Muted(todo.ID[:8]))
		return nil
	},
}

var todoListCmd = &cobra.Command{
	Use:   "list",
	Short: "List todos",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		todos, err := a.store.Todos().List(context.Background())
		if err != nil {
			return err
		}
		fmt.Print(ui.TodoList(todos))
		if len(todos) > 0 {
			fmt.Printf("\n%d open\n", types.ActiveTodos(todos))
		}
		return nil
	},
}

var todoToggleCmd = &cobra.Command{
	Use:   "toggle <id>",
	Short: "Mark a todo done or not done",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(appOptions{withHub: true})
		if err != nil {
			return err
		}
		defer a.Close()

		id, err := resolveID(a.hub.Snapshot().Todos, args[0], func(t types.TodoItem) string { return t.ID })
		if err != nil {
			return err
		}
		todo, err := a.hub.ToggleTodo(context.Background(), id)
		if err != nil {
			return err
		}
		state := "open"
		if todo.Completed {
			state = "done"
		}
		fmt.Printf("%s %s is %s\n", ui.Success("✓"), todo.Text, state)
		return nil
	},
}

var todoRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a todo",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(appOptions{withHub: true})
		if err != nil {
			return err
		}
		defer a.Close()

		id, err := resolveID(a.hub.Snapshot().Todos, args[0], func(t types.TodoItem) string { return t.ID })
		if err != nil {
			return err
		}
		if err := a.hub.DeleteTodo(context.Background(), id); err != nil {
			return err
		}
		fmt.Printf("%s Deleted todo %s\n", ui.Success("✓"), id)
		return nil
	},
}

func init() {
	todoCmd.AddCommand(todoAddCmd, todoListCmd, todoToggleCmd, todoRmCmd)
	rootCmd.AddCommand(todoCmd)
}
