package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"healthomics/pkg/server"

	_ "healthomics/toolsets/ecr"
	_ "healthomics/toolsets/omics"
)

const version = "0.1.0"

var runServer = server.Run
var exit = os.Exit

func main() {
	ctx := context.Background()

	flags := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	configPath := flags.String("config", "", "config file path (defaults to $HEALTHOMICS_MCP_CONFIG)")
	region := flags.String("region", "", "default AWS region")
	profile := flags.String("profile", "", "AWS shared config profile")
	toolsets := flags.String("toolsets", "", "comma-separated toolsets to enable")
	readOnly := flags.Bool("read-only", false, "hide tools that create workflows or start runs")
	logLevel := flags.String("log-level", "", "log level (overrides $FASTMCP_LOG_LEVEL)")
	logFormat := flags.String("log-format", "", "log format: text or json")

	_ = flags.Parse(os.Args[1:])

	options := server.Options{
		ConfigPath: *configPath,
		Version:    version,
		Stderr:     os.Stderr,
	}
	set := map[string]bool{}
	flags.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["region"] {
		options.Region = *region
	}
	if set["profile"] {
		options.Profile = *profile
	}
	if set["toolsets"] {
		options.Toolsets = parseCSV(*toolsets)
	}
	if set["read-only"] {
		options.ReadOnly = *readOnly
	}
	if set["log-level"] {
		options.LogLevel = *logLevel
	}
	if set["log-format"] {
		options.LogFormat = *logFormat
	}

	if err := runServer(ctx, options); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		exit(1)
	}
}

func parseCSV(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
