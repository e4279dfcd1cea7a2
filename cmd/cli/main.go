package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/aryan0dhankhar/bugtracker/pkg/client"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	c := client.New(getAPIURL(), client.WithToken(loadToken()))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var err error
	switch command {
	case "auth":
		err = handleAuth(ctx, c, args)
	case "project":
		err = handleProject(ctx, c, args)
	case "issue":
		err = handleIssue(ctx, c, args)
	case "comment":
		err = handleComment(ctx, c, args)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			fmt.Fprintf(os.Stderr, "✗ %s (%d)\n", apiErr.Message, apiErr.StatusCode)
		} else {
			fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		}
		os.Exit(1)
	}
}

func handleAuth(ctx context.Context, c *client.Client, args []string) error {
	if len(args) < 1 {
		fmt.Println("Usage: bugtracker auth <register|login|logout|who>")
		return nil
	}

	switch args[0] {
	case "register", "login":
		fs := flag.NewFlagSet(args[0], flag.ExitOnError)
		username := fs.String("username", "", "username")
		password := fs.String("password", "", "password")
		fs.Parse(args[1:])

		if *username == "" || *password == "" {
			fs.PrintDefaults()
			return errors.New("username and password are required")
		}
		if args[0] == "register" {
			id, err := c.Register(ctx, *username, *password)
			if err != nil {
				return err
			}
			fmt.Printf("✓ User registered: %s (id %d)\n", *username, id)
			return nil
		}
		token, err := c.Login(ctx, *username, *password)
		if err != nil {
			return err
		}
		if err := saveToken(token); err != nil {
			return fmt.Errorf("failed to save token: %w", err)
		}
		fmt.Printf("✓ Logged in as: %s\n", *username)
	case "logout":
		os.Remove(tokenFile())
		fmt.Println("✓ Logged out")
	case "who":
		if c.Token() == "" {
			fmt.Println("Not logged in")
			return nil
		}
		fmt.Printf("✓ Logged in (token: %s...)\n", truncate(c.Token(), 20))
	default:
		return fmt.Errorf("unknown auth command: %s", args[0])
	}
	return nil
}

func handleProject(ctx context.Context, c *client.Client, args []string) error {
	if len(args) < 1 {
		fmt.Println("Usage: bugtracker project <list|show|create|update|delete>")
		return nil
	}

	fs := flag.NewFlagSet("project "+args[0], flag.ExitOnError)
	id := fs.Int64("id", 0, "project id")
	title := fs.String("title", "", "project title")
	description := fs.String("description", "", "project description")
	fs.Parse(args[1:])

	switch args[0] {
	case "list":
		projects, err := c.ListProjects(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tISSUES\tOWNER\tCREATED")
		for _, p := range projects {
			fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n", p.ID, p.Title, p.Issues, p.User.Username, p.CreatedAt.Format(time.RFC3339))
		}
		return w.Flush()
	case "show":
		p, err := c.GetProject(ctx, *id)
		if err != nil {
			return err
		}
		fmt.Printf("#%d %s\n%s\nowner: %s, issues: %d\n", p.ID, p.Title, p.Description, p.User.Username, p.Issues)
	case "create":
		p, err := c.CreateProject(ctx, *title, *description)
		if err != nil {
			return err
		}
		fmt.Printf("✓ Project created: %d\n", p.ID)
	case "update":
		var update client.ProjectUpdate
		fs.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "title":
				update.Title = title
			case "description":
				update.Description = description
			}
		})
		if err := c.UpdateProject(ctx, *id, update); err != nil {
			return err
		}
		fmt.Printf("✓ Project %d updated\n", *id)
	case "delete":
		if _, err := c.DeleteProject(ctx, *id); err != nil {
			return err
		}
		fmt.Printf("✓ Project %d deleted\n", *id)
	default:
		return fmt.Errorf("unknown project command: %s", args[0])
	}
	return nil
}

func handleIssue(ctx context.Context, c *client.Client, args []string) error {
	if len(args) < 1 {
		fmt.Println("Usage: bugtracker issue <list|show|create|update|delete> -project <id>")
		return nil
	}

	fs := flag.NewFlagSet("issue "+args[0], flag.ExitOnError)
	project := fs.Int64("project", 0, "project id")
	number := fs.Int("number", 0, "issue number")
	title := fs.String("title", "", "issue title")
	body := fs.String("body", "", "issue body")
	status := fs.String("status", "", "issue status")
	fs.Parse(args[1:])

	switch args[0] {
	case "list":
		issues, err := c.ListIssues(ctx, *project)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NUMBER\tTITLE\tSTATUS\tCOMMENTS\tOWNER")
		for _, i := range issues {
			fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n", i.Number, i.Title, i.Status, i.Comments, i.User.Username)
		}
		return w.Flush()
	case "show":
		i, err := c.GetIssue(ctx, *project, *number)
		if err != nil {
			return err
		}
		fmt.Printf("#%d %s [%s]\n%s\nowner: %s, comments: %d\n", i.Number, i.Title, i.Status, i.Body, i.User.Username, i.Comments)
	case "create":
		i, err := c.CreateIssue(ctx, *project, *title, *body)
		if err != nil {
			return err
		}
		fmt.Printf("✓ Issue created: #%d\n", i.Number)
	case "update":
		var update client.IssueUpdate
		fs.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "title":
				update.Title = title
			case "body":
				update.Body = body
			case "status":
				update.Status = status
			}
		})
		if err := c.UpdateIssue(ctx, *project, *number, update); err != nil {
			return err
		}
		fmt.Printf("✓ Issue #%d updated\n", *number)
	case "delete":
		if _, err := c.DeleteIssue(ctx, *project, *number); err != nil {
			return err
		}
		fmt.Printf("✓ Issue #%d deleted\n", *number)
	default:
		return fmt.Errorf("unknown issue command: %s", args[0])
	}
	return nil
}

func handleComment(ctx context.Context, c *client.Client, args []string) error {
	if len(args) < 1 {
		fmt.Println("Usage: bugtracker comment <list|create|update|delete> -project <id> -number <n>")
		return nil
	}

	fs := flag.NewFlagSet("comment "+args[0], flag.ExitOnError)
	project := fs.Int64("project", 0, "project id")
	number := fs.Int("number", 0, "issue number")
	id := fs.Int64("id", 0, "comment id")
	body := fs.String("body", "", "comment body")
	fs.Parse(args[1:])

	switch args[0] {
	case "list":
		comments, err := c.ListComments(ctx, *project, *number)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tOWNER\tBODY")
		for _, cm := range comments {
			fmt.Fprintf(w, "%d\t%s\t%s\n", cm.ID, cm.User.Username, truncate(cm.Body, 60))
		}
		return w.Flush()
	case "create":
		cm, err := c.CreateComment(ctx, *project, *number, *body)
		if err != nil {
			return err
		}
		fmt.Printf("✓ Comment created: %d\n", cm.ID)
	case "update":
		if err := c.UpdateComment(ctx, *project, *number, *id, *body); err != nil {
			return err
		}
		fmt.Printf("✓ Comment %d updated\n", *id)
	case "delete":
		if _, err := c.DeleteComment(ctx, *project, *number, *id); err != nil {
			return err
		}
		fmt.Printf("✓ Comment %d deleted\n", *id)
	default:
		return fmt.Errorf("unknown comment command: %s", args[0])
	}
	return nil
}

// Helper functions
func getAPIURL() string {
	if url := os.Getenv("BUGTRACKER_API"); url != "" {
		return url
	}
	return "http://localhost:8080"
}

func tokenFile() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".bugtracker", "token")
}

func saveToken(token string) error {
	if err := os.MkdirAll(filepath.Dir(tokenFile()), 0o700); err != nil {
		return err
	}
	return os.WriteFile(tokenFile(), []byte(token), 0o600)
}

func loadToken() string {
	data, _ := os.ReadFile(tokenFile())
	return strings.TrimSpace(string(data))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func printUsage() {
	fmt.Print(`BugTracker CLI

Usage:
  bugtracker <command> [options]

Commands:
  auth     User authentication (register, login, logout, who)
  project  Projects (list, show, create, update, delete)
  issue    Issues of a project (list, show, create, update, delete)
  comment  Comments on an issue (list, create, update, delete)
  help     Show this help message

Environment Variables:
  BUGTRACKER_API    API server (default: http://localhost:8080)

Examples:
  bugtracker auth register -username alice -password pw1
  bugtracker auth login -username alice -password pw1
  bugtracker project create -title "Website"
  bugtracker issue create -project 1 -title "Login button misaligned"
  bugtracker issue update -project 1 -number 1 -status closed
  bugtracker comment create -project 1 -number 1 -body "Fixed in main"
`)
}
