package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dukex/flowcanvas/pkg/client"
	"github.com/dukex/flowcanvas/pkg/graph"
	"github.com/dukex/flowcanvas/pkg/log"
	"github.com/urfave/cli/v3"
)

var errMissingArgument = errors.New("missing argument")

func newCommand(out io.Writer, opts ...client.Option) *cli.Command {
	newClient := func(command *cli.Command) *client.Client {
		return client.New(command.String("api-url"), command.String("user"), opts...)
	}

	return &cli.Command{
		Name:                  "flowcanvas",
		Usage:                 "Create, inspect and edit workflows",
		EnableShellCompletion: true,
		Writer:                out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "api-url",
				Usage:   "Base URL of the flowcanvas API",
				Value:   "http://localhost:9091",
				Sources: cli.EnvVars("FLOWCANVAS_API_URL"),
			},
			&cli.StringFlag{
				Name:    "user",
				Aliases: []string{"u"},
				Usage:   "Owner identity sent as X-User-ID",
				Sources: cli.EnvVars("FLOWCANVAS_USER"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Before: func(ctx context.Context, command *cli.Command) (context.Context, error) {
			log.Setup(command.String("log-level"))

			return ctx, nil
		},
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List workflows, most recently updated first",
				Action: func(ctx context.Context, command *cli.Command) error {
					summaries, err := newClient(command).List(ctx)
					if err != nil {
						return err
					}

					return printJSON(command, summaries)
				},
			},
			{
				Name:  "create",
				Usage: "Create an empty workflow",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Workflow name", Required: true},
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "Workflow description"},
				},
				Action: func(ctx context.Context, command *cli.Command) error {
					header, err := newClient(command).Create(ctx, command.String("name"), command.String("description"))
					if err != nil {
						return err
					}

					return printJSON(command, header)
				},
			},
			{
				Name:      "show",
				Usage:     "Print a workflow with its nodes and edges",
				ArgsUsage: "<workflow-id>",
				Action: func(ctx context.Context, command *cli.Command) error {
					id, err := requireArg(command, 0, "workflow-id")
					if err != nil {
						return err
					}

					workflow, err := newClient(command).Get(ctx, id)
					if err != nil {
						return err
					}

					return printJSON(command, workflow)
				},
			},
			{
				Name:      "apply",
				Usage:     "Apply a JSON file of editing operations to a workflow and save it",
				ArgsUsage: "<workflow-id> <operations.json>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "dry-run", Usage: "Print the edited graph without saving"},
				},
				Action: func(ctx context.Context, command *cli.Command) error {
					return applyOperations(ctx, command, newClient(command))
				},
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Delete a workflow with its nodes and edges",
				ArgsUsage: "<workflow-id>",
				Action: func(ctx context.Context, command *cli.Command) error {
					id, err := requireArg(command, 0, "workflow-id")
					if err != nil {
						return err
					}

					if err := newClient(command).Delete(ctx, id); err != nil {
						return err
					}

					_, err = fmt.Fprintf(command.Root().Writer, "deleted %s\n", id)

					return err
				},
			},
			{
				Name:  "dashboard",
				Usage: "Print workflow totals and the most recent workflows",
				Action: func(ctx context.Context, command *cli.Command) error {
					stats, err := newClient(command).Dashboard(ctx)
					if err != nil {
						return err
					}

					return printJSON(command, stats)
				},
			},
		},
	}
}

func applyOperations(ctx context.Context, command *cli.Command, c *client.Client) error {
	id, err := requireArg(command, 0, "workflow-id")
	if err != nil {
		return err
	}

	path, err := requireArg(command, 1, "operations.json")
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read operations: %w", err)
	}

	ops, err := graph.DecodeOperations(data)
	if err != nil {
		return err
	}

	editor, err := c.Open(ctx, id, graph.NewClockGenerator())
	if err != nil {
		return err
	}

	edited := editor.Apply(ops...)

	if command.Bool("dry-run") {
		return printJSON(command, edited)
	}

	header, err := editor.Save(ctx)
	if err != nil {
		return err
	}

	return printJSON(command, header)
}

func requireArg(command *cli.Command, index int, name string) (string, error) {
	value := command.Args().Get(index)
	if value == "" {
		return "", fmt.Errorf("%w: %s", errMissingArgument, name)
	}

	return value, nil
}

func printJSON(command *cli.Command, value any) error {
	encoder := json.NewEncoder(command.Root().Writer)
	encoder.SetIndent("", "  ")

	return encoder.Encode(value)
}
