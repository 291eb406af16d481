// Command wvctl queries a running webviewer server from the terminal.
//
//	wvctl tasks [-q query] [-status s1,s2] [-priority p] [-current] [-id ID]
//	wvctl issues [-task id] [-id ID]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/anombyte93/TaskMasterWebViewer/internal/client"
	"github.com/anombyte93/TaskMasterWebViewer/internal/domain/issue"
	"github.com/anombyte93/TaskMasterWebViewer/internal/domain/task"
	"github.com/anombyte93/TaskMasterWebViewer/internal/query"
)

const defaultAddr = "http://localhost:5000"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "tasks":
		err = runTasks(ctx, os.Args[2:])
	case "issues":
		err = runIssues(ctx, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "wvctl:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: wvctl <tasks|issues> [flags]")
}

func newClient(addr string) *client.Client {
	if env := os.Getenv("WEBVIEWER_ADDR"); addr == defaultAddr && env != "" {
		addr = env
	}
	return client.New(addr, nil)
}

func runTasks(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("tasks", flag.ExitOnError)
	addr := fs.String("addr", defaultAddr, "server base URL")
	q := fs.String("q", "", "fuzzy search query")
	status := fs.String("status", "", "comma-separated status filter")
	priority := fs.String("priority", "", "comma-separated priority filter")
	current := fs.Bool("current", false, "show the current task only")
	id := fs.String("id", "", "show one task by id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c := newClient(*addr)

	if *current {
		t, err := c.CurrentTask(ctx)
		if err != nil {
			return err
		}
		printTask(*t, 0)
		return nil
	}
	if *id != "" {
		t, err := c.Task(ctx, *id)
		if err != nil {
			return err
		}
		printTask(*t, 0)
		return nil
	}

	tasks, err := c.Tasks(ctx)
	if err != nil {
		return err
	}

	// Narrow locally so the search/filter behavior matches the dashboard.
	spec := query.FilterSpec{}
	if *status != "" {
		spec["status"] = strings.Split(*status, ",")
	}
	if *priority != "" {
		spec["priority"] = strings.Split(*priority, ",")
	}
	pipeline := query.NewPipeline(task.Task.SearchFields, task.Task.FilterValue, query.DefaultOptions())
	tasks = pipeline.Run(tasks, *q, spec)

	for _, t := range tasks {
		printTask(t, 0)
	}
	fmt.Printf("%d task(s)\n", len(tasks))
	return nil
}

func printTask(t task.Task, depth int) {
	indent := strings.Repeat("  ", depth)
	line := fmt.Sprintf("%s%s  [%s]", indent, t.ID.String(), t.Status)
	if t.Priority != "" {
		line += fmt.Sprintf(" (%s)", t.Priority)
	}
	fmt.Printf("%s  %s\n", line, t.Title)
	for _, sub := range t.Subtasks {
		printTask(sub, depth+1)
	}
}

func runIssues(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("issues", flag.ExitOnError)
	addr := fs.String("addr", defaultAddr, "server base URL")
	taskID := fs.String("task", "", "only issues related to this task")
	id := fs.String("id", "", "show one issue by id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c := newClient(*addr)

	if *id != "" {
		iss, err := c.Issue(ctx, *id)
		if err != nil {
			return err
		}
		printIssue(*iss)
		return nil
	}

	issues, err := c.Issues(ctx, *taskID)
	if err != nil {
		return err
	}
	for _, iss := range issues {
		printIssue(iss)
	}
	fmt.Printf("%d issue(s)\n", len(issues))
	return nil
}

func printIssue(i issue.Issue) {
	fmt.Printf("%s  [%s/%s]  %s", i.ID, i.Severity, i.Status, i.Title)
	if i.RelatedTaskID != "" {
		fmt.Printf("  (task %s)", i.RelatedTaskID)
	}
	fmt.Println()
}
