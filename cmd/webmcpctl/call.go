package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/spf13/cobra"
)

type callArgs struct {
	argPairs []string
	argsJSON string
	validate bool
}

func newCallCmd(opts *cliOptions) *cobra.Command {
	args := &callArgs{}
	cmd := &cobra.Command{
		Use:   "call <tool> <operation>",
		Short: "Execute one master-tool operation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, positional []string) error {
			toolName, opName := positional[0], positional[1]

			arguments, err := buildCallArguments(args)
			if err != nil {
				return err
			}

			client := newAPIClient(opts)
			ctx := cmd.Context()

			if args.validate {
				descriptor, err := client.getOperation(ctx, toolName, opName)
				if err != nil {
					return err
				}
				if err := validateArguments(descriptor.InputSchema, arguments); err != nil {
					return err
				}
			}

			result, err := client.execute(ctx, toolName, opName, arguments)
			if err != nil {
				return err
			}
			if err := printExecuteResult(result, opts.jsonOutput); err != nil {
				return err
			}
			// The facade reports handler failures as 200 + success=false;
			// surface those through the exit code for scripting.
			if !result.Success {
				return exitSilent(2)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&args.argPairs, "arg", nil, "operation argument as key=value (repeatable; value parsed as JSON, else taken as string)")
	cmd.Flags().StringVar(&args.argsJSON, "args-json", "", "operation arguments as one JSON object")
	cmd.Flags().BoolVar(&args.validate, "validate", false, "validate arguments against the operation's input schema before calling")

	return cmd
}

func buildCallArguments(args *callArgs) (map[string]any, error) {
	if args.argsJSON != "" && len(args.argPairs) > 0 {
		return nil, errors.New("--arg and --args-json are mutually exclusive")
	}

	arguments := map[string]any{}
	if args.argsJSON != "" {
		if err := json.Unmarshal([]byte(args.argsJSON), &arguments); err != nil {
			return nil, fmt.Errorf("parse --args-json: %w", err)
		}
		return arguments, nil
	}

	for _, pair := range args.argPairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid --arg %q: want key=value", pair)
		}
		arguments[strings.TrimSpace(key)] = parseArgValue(value)
	}
	return arguments, nil
}

// parseArgValue keeps CLI arguments typed: numbers, booleans, arrays and
// objects pass through JSON; anything unparsable stays a plain string.
func parseArgValue(raw string) any {
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err == nil {
		return value
	}
	return raw
}

func validateArguments(schema *jsonschema.Schema, arguments map[string]any) error {
	if schema == nil {
		return nil
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return fmt.Errorf("resolve input schema: %w", err)
	}
	if err := resolved.Validate(arguments); err != nil {
		return fmt.Errorf("arguments rejected by schema: %w", err)
	}
	return nil
}
