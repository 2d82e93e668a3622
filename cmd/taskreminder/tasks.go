package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"task-reminder/internal/model"
	"task-reminder/internal/service"
)

func addCmd(configPath *string) *cobra.Command {
	var (
		category     string
		priority     string
		notes        string
		noReminder   bool
		remindAt     []string
		remindBefore []int
		remindClock  string
	)

	cmd := &cobra.Command{
		Use:   "add [name] [YYYY-MM-DD HH:MM]",
		Short: "Create a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			input := service.TaskInput{
				Name:            args[0],
				DueDate:         args[1],
				Category:        model.Category(category),
				Priority:        model.Priority(priority),
				Notes:           notes,
				ReminderEnabled: !noReminder,
			}

			switch {
			case len(remindAt) > 0:
				kind := model.ReminderSingle
				if len(remindAt) > 1 {
					kind = model.ReminderMultiple
				}
				input.CustomReminder = &model.CustomReminder{Type: kind, Times: remindAt}
			case len(remindBefore) > 0:
				due, err := model.ParseWallClock(args[1], a.loc)
				if err != nil {
					return err
				}
				reminder, err := model.BuildCustomReminder(model.ReminderMultiple, due, due, remindClock, remindBefore)
				if err != nil {
					return err
				}
				input.CustomReminder = &reminder
			}

			task, err := a.store.Create(cmd.Context(), input)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created task #%d\n", task.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Work, Personal, Shopping, Health or Other")
	cmd.Flags().StringVar(&priority, "priority", "", "Low, Normal, Medium, High or Urgent")
	cmd.Flags().StringVar(&notes, "notes", "", "Free text notes")
	cmd.Flags().BoolVar(&noReminder, "no-reminder", false, "Create the task with reminders off")
	cmd.Flags().StringArrayVar(&remindAt, "remind-at", nil, "Custom reminder instant YYYY-MM-DD HH:MM (repeatable)")
	cmd.Flags().IntSliceVar(&remindBefore, "remind-before", nil, "Custom reminders this many days before the due date")
	cmd.Flags().StringVar(&remindClock, "remind-clock", "09:00", "Clock time for --remind-before")

	return cmd
}

func listCmd(configPath *string) *cobra.Command {
	var (
		category string
		priority string
		status   string
		window   string
		search   string
		sortKey  string
		desc     bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks, optionally filtered and sorted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dueWindow, err := service.ParseDueWindow(window)
			if err != nil {
				return err
			}
			key, err := service.ParseSortKey(sortKey)
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context(), *configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			now := a.now()
			tasks := service.Filter(a.store.List(), service.Criteria{
				Category:  model.Category(category),
				Priority:  model.Priority(priority),
				Status:    model.Status(status),
				DueWindow: dueWindow,
				Search:    search,
			}, now)
			service.SortTasks(tasks, key, desc)
			return printTasks(cmd.OutOrStdout(), tasks)
		},
	}

	cmd.Flags().StringVar(&category, "category", service.All, "Category or All")
	cmd.Flags().StringVar(&priority, "priority", service.All, "Priority or All")
	cmd.Flags().StringVar(&status, "status", service.All, "Pending, Completed or All")
	cmd.Flags().StringVar(&window, "window", "all", "all, today, week or month")
	cmd.Flags().StringVar(&search, "search", "", "Case-insensitive name search")
	cmd.Flags().StringVar(&sortKey, "sort", "due", "name, due, category, priority or status")
	cmd.Flags().BoolVar(&desc, "desc", false, "Sort descending")

	return cmd
}

func todayCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "today",
		Short: "List pending tasks due today",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()
			return printTasks(cmd.OutOrStdout(), service.TodayView(a.store.List(), a.now()))
		},
	}
}

func completeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "complete [id]",
		Short: "Mark a task completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("task id must be a number: %w", err)
			}
			a, err := openApp(cmd.Context(), *configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			reminders := service.NewReminderService(a.store, nil, a.log, service.ReminderOptions{})
			task, err := reminders.Complete(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "completed task #%d %s\n", task.ID, task.Name)
			return nil
		},
	}
}

func statsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show completion statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			st := service.Aggregate(a.store.List(), a.now())
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Total:           %d\n", st.Total)
			fmt.Fprintf(out, "Completed:       %d\n", st.Completed)
			fmt.Fprintf(out, "Pending:         %d\n", st.Pending)
			fmt.Fprintf(out, "Overdue:         %d\n", st.Overdue)
			fmt.Fprintf(out, "Completion rate: %.1f%%\n", st.CompletionRate)

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "\nCATEGORY\tCOUNT\tSHARE")
			for _, c := range model.Categories {
				fmt.Fprintf(w, "%s\t%d\t%.0f%%\n", c, st.ByCategory[c], st.Share(st.ByCategory[c]))
			}
			fmt.Fprintln(w, "\nPRIORITY\tCOUNT\tSHARE")
			for _, p := range model.Priorities {
				fmt.Fprintf(w, "%s\t%d\t%.0f%%\n", p, st.ByPriority[p], st.Share(st.ByPriority[p]))
			}
			return w.Flush()
		},
	}
}

func printTasks(out io.Writer, tasks []model.Task) error {
	if len(tasks) == 0 {
		_, err := fmt.Fprintln(out, "no tasks")
		return err
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tDUE\tSTATUS\tCATEGORY\tPRIORITY")
	for _, t := range tasks {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", t.ID, t.Name, t.DueDate, t.Status.OrDefault(), t.Category.OrDefault(), t.Priority.OrDefault())
	}
	return w.Flush()
}
